package device

import (
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/ezrec/vm16/memory"
)

const (
	TAPE_DATA   = 0 // Read: next input byte. Write: output byte.
	TAPE_STATUS = 1 // Read: 1 while input is pending, else 0.
	TAPE_SIZE   = 2 // Size of the tape port, in bytes.

	TAPE_EOF = 0xffff // Data read past the end of input.
)

// Tape provides sequential byte I/O. It wraps an io.Reader for input
// and an io.Writer for output.
type Tape struct {
	Input  io.Reader
	Output io.Writer

	hasInput  bool
	lastInput byte
}

var _ memory.AddressSpace = (*Tape)(nil)

var _tape_defines = map[string]string{
	"TAPE_DATA":   fmt.Sprintf("%v", TAPE_DATA),
	"TAPE_STATUS": fmt.Sprintf("%v", TAPE_STATUS),
	"TAPE_EOF":    fmt.Sprintf("0x%x", TAPE_EOF),
}

// Defines returns an iter of defines for the tape ports.
func (tc *Tape) Defines() iter.Seq2[string, string] {
	return maps.All(_tape_defines)
}

// fill reads ahead one byte of input, if none is pending. It never
// reads more than once per call.
func (tc *Tape) fill() bool {
	if tc.hasInput {
		return true
	}

	if tc.Input == nil {
		return false
	}

	// A read of (0, nil) means no input yet; a later read may succeed.
	var one [1]byte
	n, _ := tc.Input.Read(one[:])
	if n == 0 {
		return false
	}

	tc.lastInput = one[0]
	tc.hasInput = true

	return true
}

// receive consumes the pending input byte.
func (tc *Tape) receive() (value uint16) {
	if !tc.fill() {
		return TAPE_EOF
	}

	tc.hasInput = false
	return uint16(tc.lastInput)
}

// send writes a byte to the output, if any.
func (tc *Tape) send(value uint8) (err error) {
	if tc.Output == nil {
		return
	}

	_, err = tc.Output.Write([]byte{value})
	return
}

func (tc *Tape) check(address uint32) (err error) {
	if address >= TAPE_SIZE {
		err = &memory.ErrAddressRange{Address: address, Capacity: TAPE_SIZE}
	}
	return
}

// Get8 reads the port selected by the address.
func (tc *Tape) Get8(address uint32) (value uint8, err error) {
	word, err := tc.Get16(address)
	value = uint8(word)
	return
}

// Get16 reads the port selected by the address.
func (tc *Tape) Get16(address uint32) (value uint16, err error) {
	err = tc.check(address)
	if err != nil {
		return
	}

	switch address {
	case TAPE_DATA:
		value = tc.receive()
	case TAPE_STATUS:
		if tc.fill() {
			value = 1
		}
	}

	return
}

// Set8 writes a byte to the output, when addressed to the data port.
func (tc *Tape) Set8(address uint32, value uint8) (err error) {
	err = tc.check(address)
	if err != nil {
		return
	}

	if address == TAPE_DATA {
		err = tc.send(value)
	}

	return
}

// Set16 writes the low byte to the output, when addressed to the data port.
func (tc *Tape) Set16(address uint32, value uint16) (err error) {
	return tc.Set8(address, uint8(value&0xff))
}
