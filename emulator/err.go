package emulator

import (
	"errors"

	"github.com/ezrec/vm16/translate"
)

var f = translate.From

var (
	ErrStepLimit = errors.New(f("step limit reached"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Address uint16
	LineNo  int
	Err     error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("0x%04x: %v", err.Address, err.Err)
	}
	return f("line %d (0x%04x): %v", err.LineNo, err.Address, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrProtectStack is returned when a protected image would cover the
// stack top.
type ErrProtectStack struct {
	StackTop uint16
	End      uint32
}

func (err *ErrProtectStack) Error() string {
	return f("stack top 0x%04x inside protected image [0x0000, 0x%04x]", err.StackTop, err.End)
}
