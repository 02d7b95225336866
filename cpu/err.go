package cpu

import (
	"errors"

	"github.com/ezrec/vm16/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalted = errors.New(f("halted"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrOrgSyntax          = errors.New(f(".org syntax"))
	ErrOrgBackwards       = errors.New(f(".org before current address"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrValueRange         = errors.New(f("value out of range"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrOpcode is returned when an opcode is not in the instruction set.
type ErrOpcode Opcode

func (eo ErrOpcode) Error() string {
	return f("bad opcode 0x%02x", uint8(eo))
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrRegister is returned when a register name is unknown.
type ErrRegister string

func (er ErrRegister) Error() string {
	return f("no such register '%v'", string(er))
}

// ErrInstruction locates a failure during the execution of an instruction.
type ErrInstruction struct {
	Address uint16 // Address of the opcode.
	Opcode  Opcode // Opcode being executed.
	Err     error
}

func (err *ErrInstruction) Error() string {
	return f("0x%04x %v: %v", err.Address, err.Opcode.String(), err.Err)
}

func (err *ErrInstruction) Unwrap() error {
	return err.Err
}

// ErrFetch is returned when the opcode itself could not be read.
type ErrFetch struct {
	Address uint16
	Err     error
}

func (err *ErrFetch) Error() string {
	return f("0x%04x: opcode fetch: %v", err.Address, err.Err)
}

func (err *ErrFetch) Unwrap() error {
	return err.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err *ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err *ErrMacro) Unwrap() error {
	return err.Err
}
