// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/vm16/cpu"
	"github.com/ezrec/vm16/device"
	"github.com/ezrec/vm16/internal"
	"github.com/ezrec/vm16/memory"
)

const (
	RAM_SIZE      = 0x10000                          // Bytes of main memory.
	TERMINAL_BASE = 0x3000                           // First address of the terminal screen.
	TERMINAL_END  = 0x30ff                           // Last address of the terminal screen.
	TAPE_BASE     = 0x3100                           // First address of the tape ports.
	TAPE_END      = TAPE_BASE + device.TAPE_SIZE - 1 // Last address of the tape ports.
	DRUM_BASE     = 0x3200                           // First address of the drum.
	DRUM_END      = DRUM_BASE + device.DRUM_SIZE - 1 // Last address of the drum.
	PROTECT_END   = TERMINAL_BASE - 1                // Last address a protected image covers.
)

var _emulator_defines = map[string]string{
	"RAM_SIZE":      fmt.Sprintf("0x%x", RAM_SIZE),
	"TERMINAL_BASE": fmt.Sprintf("0x%x", TERMINAL_BASE),
	"TERMINAL_END":  fmt.Sprintf("0x%x", TERMINAL_END),
	"TAPE_BASE":     fmt.Sprintf("0x%x", TAPE_BASE),
	"DRUM_BASE":     fmt.Sprintf("0x%x", DRUM_BASE),
	"PROTECT_END":   fmt.Sprintf("0x%x", PROTECT_END),
}

// Emulator state. CPU + memory map + devices.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Listing loaded at reset.
	Image    []uint8      // Raw image loaded at reset, before the listing.

	// If set, the image range below TERMINAL_BASE is mapped read-only
	// after loading.
	ProtectImage bool

	Mapper   memory.Mapper   // Unified address space seen by the CPU.
	Ram      *memory.Ram     // Main memory.
	Terminal device.Terminal // Terminal screen.
	Tape     device.Tape     // Tape I/O ports.
	Drum     device.Drum     // Bank-switched storage.

	unmapRom func()
}

// NewEmulator creates a new emulator, with RAM over the whole address
// range, shadowed by the terminal, the tape ports and the drum.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Program: &cpu.Program{},
		Ram:     memory.NewRam(RAM_SIZE),
	}

	emu.Mapper.Map(emu.Ram, 0, RAM_SIZE-1, false)
	emu.Mapper.Map(&emu.Terminal, TERMINAL_BASE, TERMINAL_END, true)
	emu.Mapper.Map(&emu.Tape, TAPE_BASE, TAPE_END, true)
	emu.Mapper.Map(&emu.Drum, DRUM_BASE, DRUM_END, true)

	emu.Cpu = cpu.NewCpu(&emu.Mapper)

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.Defines(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		emu.Terminal.Defines(),
		emu.Tape.Defines(),
		emu.Drum.Defines(),
	)
}

// Reset clears memory, loads the image and the listing, and resets
// the CPU. Drum banks are kept.
func (emu *Emulator) Reset() (err error) {
	emu.Mapper.Verbose = emu.Verbose
	emu.Cpu.Verbose = emu.Verbose
	emu.Drum.Verbose = emu.Verbose

	if emu.Verbose {
		log.Printf("emulator: reset, %v byte image", len(emu.Image))
	}

	if emu.unmapRom != nil {
		emu.unmapRom()
		emu.unmapRom = nil
	}

	emu.Ram.Reset()

	err = emu.Ram.Unmarshal(bytes.NewReader(emu.Image))
	if err != nil {
		return
	}

	// The listing goes to memory directly, not through the devices.
	err = emu.Program.Load(emu.Ram)
	if err != nil {
		return
	}

	if emu.ProtectImage && len(emu.Image) > 0 {
		end := min(uint32(len(emu.Image)-1), PROTECT_END)
		if uint32(emu.Cpu.StackTop) <= end {
			err = &ErrProtectStack{StackTop: emu.Cpu.StackTop, End: end}
			return
		}
		rom := memory.NewRom(emu.Ram.Data[:end+1])
		emu.unmapRom = emu.Mapper.Map(rom, 0, end, false)
	}

	emu.Drum.Reset()
	emu.Cpu.Reset()

	return
}

// Ticks returns the total instructions retired since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Ip returns current instruction pointer.
func (emu *Emulator) Ip() uint16 {
	return emu.Cpu.Registers.Read(cpu.REG_IP)
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	return emu.Program.LineNo(emu.Ip())
}

// Tick performs a single instruction of the emulator. 'done' is set
// once the CPU has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if emu.Cpu.Halted {
		done = true
		return
	}

	ip := emu.Ip()
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Address: ip, LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Step()
	if err != nil {
		return
	}

	done = emu.Cpu.Halted

	return
}

// Run ticks the emulator until the CPU halts, an error occurs, or the
// context is done. If 'limit' is positive, at most 'limit' instructions
// are executed before ErrStepLimit is returned.
func (emu *Emulator) Run(ctx context.Context, limit int) (err error) {
	for steps := 0; limit <= 0 || steps < limit; steps++ {
		err = ctx.Err()
		if err != nil {
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}

	err = ErrStepLimit
	return
}
