package device

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"os"

	"golang.org/x/term"

	"github.com/ezrec/vm16/memory"
)

const (
	TERMINAL_COLUMNS = 16 // Cells per virtual row.

	TERMINAL_CMD_NONE    = 0x00 // Character only.
	TERMINAL_CMD_BOLD    = 0x01 // Bold on, then character.
	TERMINAL_CMD_REGULAR = 0x02 // Bold off, then character.
	TERMINAL_CMD_CLEAR   = 0xff // Clear screen, then character.
)

const (
	ansiClear   = "\x1b[2J"
	ansiBold    = "\x1b[1m"
	ansiRegular = "\x1b[0m"
	ansiMoveTo  = "\x1b[%d;%dH"
)

// Terminal is a write-only screen. A 16-bit write places the character
// in the low byte at the cell selected by the address, after applying
// the command in the high byte. Reads always return zero.
type Terminal struct {
	Output io.Writer // Destination of the character stream.
	Plain  bool      // If set, no escape sequences are written.
}

var _ memory.AddressSpace = (*Terminal)(nil)

var _terminal_defines = map[string]string{
	"TERMINAL_COLUMNS": fmt.Sprintf("%v", TERMINAL_COLUMNS),
	"TERMINAL_BOLD":    fmt.Sprintf("0x%02x", TERMINAL_CMD_BOLD),
	"TERMINAL_REGULAR": fmt.Sprintf("0x%02x", TERMINAL_CMD_REGULAR),
	"TERMINAL_CLEAR":   fmt.Sprintf("0x%02x", TERMINAL_CMD_CLEAR),
}

// Defines returns an iter of defines for the terminal commands.
func (tm *Terminal) Defines() iter.Seq2[string, string] {
	return maps.All(_terminal_defines)
}

// NewTerminal creates a terminal writing to 'output'. If 'output' is a
// file that is not a terminal, escape sequences are suppressed.
func NewTerminal(output io.Writer) (tm *Terminal) {
	tm = &Terminal{
		Output: output,
	}

	if file, ok := output.(*os.File); ok {
		tm.Plain = !term.IsTerminal(int(file.Fd()))
	}

	return
}

// Cell returns the 1-based column and row of a screen address.
func (tm *Terminal) Cell(address uint32) (column, row int) {
	column = int(address%TERMINAL_COLUMNS) + 1
	row = int(address/TERMINAL_COLUMNS) + 1
	return
}

// Get8 always returns 0.
func (tm *Terminal) Get8(address uint32) (value uint8, err error) {
	return
}

// Get16 always returns 0.
func (tm *Terminal) Get16(address uint32) (value uint16, err error) {
	return
}

// Set8 emits a character with no command.
func (tm *Terminal) Set8(address uint32, value uint8) (err error) {
	return tm.Set16(address, uint16(value))
}

// Set16 applies the command in the high byte, moves the cursor to the
// addressed cell, and emits the character in the low byte.
func (tm *Terminal) Set16(address uint32, value uint16) (err error) {
	if tm.Output == nil {
		return
	}

	character, command := uint8(value&0xff), uint8(value>>8)

	if !tm.Plain {
		switch command {
		case TERMINAL_CMD_CLEAR:
			_, err = io.WriteString(tm.Output, ansiClear)
		case TERMINAL_CMD_BOLD:
			_, err = io.WriteString(tm.Output, ansiBold)
		case TERMINAL_CMD_REGULAR:
			_, err = io.WriteString(tm.Output, ansiRegular)
		}
		if err != nil {
			return
		}

		column, row := tm.Cell(address)
		_, err = fmt.Fprintf(tm.Output, ansiMoveTo, row, column)
		if err != nil {
			return
		}
	}

	_, err = tm.Output.Write([]byte{character})

	return
}
