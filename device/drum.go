package device

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log"
	"maps"
	"regexp"
	"strconv"

	"github.com/ezrec/vm16/memory"
)

const (
	DRUM_SELECT    = 0     // Read/write: selected bank.
	DRUM_WINDOW    = 2     // Offset of the window onto the selected bank.
	DRUM_BANK_SIZE = 0x100 // Bytes per bank.
	DRUM_SIZE      = DRUM_WINDOW + DRUM_BANK_SIZE
)

var _drum_defines = map[string]string{
	"DRUM_SELECT":    fmt.Sprintf("%v", DRUM_SELECT),
	"DRUM_WINDOW":    fmt.Sprintf("%v", DRUM_WINDOW),
	"DRUM_BANK_SIZE": fmt.Sprintf("0x%x", DRUM_BANK_SIZE),
}

var reBankName = regexp.MustCompile(`(?i)^[0-9a-f]{4}\.bank$`)

// CreateFS is a file system that supports creating files.
type CreateFS interface {
	// Create creates a new file for writing.
	Create(name string) (file io.WriteCloser, err error)
}

// Drum is bank-switched storage. The word at DRUM_SELECT selects a
// bank, and the window that follows views the selected bank. Banks are
// created when first accessed, and survive a Reset.
type Drum struct {
	Verbose bool
	Banks   map[uint16](*memory.Ram)

	selected uint16
}

var _ memory.AddressSpace = (*Drum)(nil)

// Defines returns an iter of defines for the drum ports.
func (dc *Drum) Defines() iter.Seq2[string, string] {
	return maps.All(_drum_defines)
}

// Reset selects bank 0.
func (dc *Drum) Reset() {
	dc.selected = 0
}

// Selected returns the selected bank.
func (dc *Drum) Selected() uint16 {
	return dc.selected
}

// bank returns the selected bank, creating it if needed.
func (dc *Drum) bank() (ram *memory.Ram) {
	ram, ok := dc.Banks[dc.selected]
	if !ok {
		if dc.Banks == nil {
			dc.Banks = make(map[uint16](*memory.Ram))
		}
		ram = memory.NewRam(DRUM_BANK_SIZE)
		dc.Banks[dc.selected] = ram
		if dc.Verbose {
			log.Printf("drum: new bank 0x%04x", dc.selected)
		}
	}
	return
}

func (dc *Drum) check(address uint32, width int) (err error) {
	if uint64(address)+uint64(width) > DRUM_SIZE {
		err = &memory.ErrAddressRange{Address: address, Capacity: DRUM_SIZE}
	}
	return
}

// Get8 reads a byte of the select port, or of the window.
func (dc *Drum) Get8(address uint32) (value uint8, err error) {
	err = dc.check(address, 1)
	if err != nil {
		return
	}

	if address >= DRUM_WINDOW {
		return dc.bank().Get8(address - DRUM_WINDOW)
	}

	hi, lo := memory.Split16(dc.selected)
	if address == DRUM_SELECT {
		value = hi
	} else {
		value = lo
	}
	return
}

// Set8 writes a byte of the select port, or of the window.
func (dc *Drum) Set8(address uint32, value uint8) (err error) {
	err = dc.check(address, 1)
	if err != nil {
		return
	}

	if address >= DRUM_WINDOW {
		return dc.bank().Set8(address-DRUM_WINDOW, value)
	}

	hi, lo := memory.Split16(dc.selected)
	if address == DRUM_SELECT {
		hi = value
	} else {
		lo = value
	}
	dc.selected = memory.Join16(hi, lo)

	if dc.Verbose {
		log.Printf("drum: select bank 0x%04x", dc.selected)
	}

	return
}

// Get16 reads a big-endian word.
func (dc *Drum) Get16(address uint32) (value uint16, err error) {
	err = dc.check(address, 2)
	if err != nil {
		return
	}

	hi, err := dc.Get8(address)
	if err != nil {
		return
	}
	lo, err := dc.Get8(address + 1)
	if err != nil {
		return
	}

	value = memory.Join16(hi, lo)
	return
}

// Set16 writes a big-endian word.
func (dc *Drum) Set16(address uint32, value uint16) (err error) {
	err = dc.check(address, 2)
	if err != nil {
		return
	}

	hi, lo := memory.Split16(value)
	err = dc.Set8(address, hi)
	if err != nil {
		return
	}

	return dc.Set8(address+1, lo)
}

// Unmarshal loads banks from files named XXXX.bank, where XXXX is the
// bank number in hex. Other files are ignored.
func (dc *Drum) Unmarshal(filesys fs.FS) (err error) {
	entries, err := fs.ReadDir(filesys, ".")
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !reBankName.MatchString(name) {
			continue
		}

		var index uint64
		index, err = strconv.ParseUint(name[:4], 16, 16)
		if err != nil {
			return
		}

		var data []uint8
		data, err = fs.ReadFile(filesys, name)
		if err != nil {
			return
		}

		bank := memory.NewRam(DRUM_BANK_SIZE)
		err = bank.Unmarshal(bytes.NewReader(data))
		if err != nil {
			err = &ErrBankFile{Name: name, Err: err}
			return
		}

		if dc.Banks == nil {
			dc.Banks = make(map[uint16](*memory.Ram))
		}
		dc.Banks[uint16(index)] = bank
	}

	return
}

// Marshal writes every bank to a file named XXXX.bank.
func (dc *Drum) Marshal(filesys CreateFS) (err error) {
	for index, bank := range dc.Banks {
		var file io.WriteCloser
		file, err = filesys.Create(fmt.Sprintf("%04x.bank", index))
		if err != nil {
			return
		}

		err = bank.Marshal(file)
		close_err := file.Close()
		if err == nil {
			err = close_err
		}
		if err != nil {
			return
		}
	}

	return
}
