// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/ezrec/vm16/cpu"
	"github.com/ezrec/vm16/device"
	"github.com/ezrec/vm16/emulator"
)

func main() {
	var compile string
	var raw string
	var save string
	var banks string
	var protect bool
	var input string
	var output string
	var steps int
	var verbose bool
	var dump bool

	flag.StringVar(&compile, "c", "", ".asm file to assemble")
	flag.StringVar(&raw, "r", "", "Raw memory image to load")
	flag.StringVar(&save, "s", "", "Save memory image to file, do not execute")
	flag.StringVar(&banks, "b", "", "Directory of drum bank files")
	flag.BoolVar(&protect, "p", false, "Map the raw image read-only, below the devices")
	flag.StringVar(&input, "i", "-", "Tape input")
	flag.StringVar(&output, "o", "-", "Tape output")
	flag.IntVar(&steps, "n", 0, "Maximum instructions to execute (0 for no limit)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&dump, "d", false, "Dump registers on exit")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) == 0 && len(raw) == 0 {
		log.Fatalf("%v: one of -c or -r is required", os.Args[0])
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.ProtectImage = protect

	// Load a raw image.
	if len(raw) != 0 {
		data, err := os.ReadFile(raw)
		if err != nil {
			log.Fatalf("%v: %v", raw, err)
		}
		emu.Image = data
	}

	// Assemble a listing over the image.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}

		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	if len(banks) != 0 {
		err := emu.Drum.Unmarshal(os.DirFS(banks))
		if err != nil {
			log.Fatalf("%v: %v", banks, err)
		}
	}

	err := emu.Reset()
	if err != nil {
		log.Fatalf("reset: %v", err)
	}

	if len(save) != 0 {
		ouf, err := os.Create(save)
		if err != nil {
			log.Fatalf("%v: %v", save, err)
		}
		defer ouf.Close()

		err = emu.Ram.Marshal(ouf)
		if err != nil {
			log.Fatalf("%v: %v", save, err)
		}
		return
	}

	if input == "-" {
		emu.Tape.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Tape.Input = inf
	}

	if output == "-" {
		emu.Tape.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		emu.Tape.Output = ouf
	}

	emu.Terminal = *device.NewTerminal(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = emu.Run(ctx, steps)

	if dump {
		showState(os.Stderr, emu)
	}

	if len(banks) != 0 {
		save_err := emu.Drum.Marshal(dirFS(banks))
		if save_err != nil {
			log.Printf("%v: %v", banks, save_err)
		}
	}

	if err != nil {
		log.Fatal(err)
	}
}

// dirFS creates files in a host directory.
type dirFS string

func (dir dirFS) Create(name string) (file io.WriteCloser, err error) {
	return os.Create(filepath.Join(string(dir), name))
}

// showState writes the registers, and the instruction at ip.
func showState(w io.Writer, emu *emulator.Emulator) {
	var buff bytes.Buffer

	fmt.Fprintf(&buff, "ticks: %v\n", emu.Ticks())
	buff.WriteString(emu.Cpu.String())

	ip := emu.Ip()
	text, _, err := emu.Disassemble(uint32(ip))
	if err == nil {
		fmt.Fprintf(&buff, "0x%04x: %v", ip, text)
		if lineno := emu.LineNo(); lineno != 0 {
			fmt.Fprintf(&buff, " (line %d)", lineno)
		}
		buff.WriteString("\n")
	}

	w.Write(buff.Bytes())
}
