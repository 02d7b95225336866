package cpu

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
)

// Opcode is the one byte tag that starts every instruction.
type Opcode uint8

const (
	MOV_LIT_REG     = Opcode(0x10) // reg <- lit
	MOV_REG_REG     = Opcode(0x11) // dst <- src
	MOV_REG_MEM     = Opcode(0x12) // mem[addr] <- reg
	MOV_MEM_REG     = Opcode(0x13) // reg <- mem[addr]
	ADD_REG_REG     = Opcode(0x14) // acc <- a + b
	JMP_NOT_EQ      = Opcode(0x15) // if lit != acc, ip <- addr
	PSH_LIT         = Opcode(0x16) // push lit
	PSH_REG         = Opcode(0x17) // push reg
	POP             = Opcode(0x18) // reg <- pop
	CAL_LIT         = Opcode(0x19) // call addr
	CAL_REG         = Opcode(0x1a) // call reg
	RET             = Opcode(0x1b) // return
	HLT             = Opcode(0x1c) // halt
	MOV_LIT_MEM     = Opcode(0x1d) // mem[addr] <- lit
	MOV_REG_PTR_REG = Opcode(0x1e) // dst <- mem[ptr]
	MOV_LIT_OFF_REG = Opcode(0x1f) // dst <- mem[base + off]
	ADD_LIT_REG     = Opcode(0x20) // acc <- lit + reg
	SUB_REG_REG     = Opcode(0x21) // acc <- a - b
	SUB_LIT_REG     = Opcode(0x22) // acc <- lit - reg
	SUB_REG_LIT     = Opcode(0x23) // acc <- reg - lit
	MUL_REG_REG     = Opcode(0x24) // acc <- a * b
	MUL_LIT_REG     = Opcode(0x25) // acc <- lit * reg
	INC_REG         = Opcode(0x26) // reg <- reg + 1
	DEC_REG         = Opcode(0x27) // reg <- reg - 1
	LSF_REG_LIT     = Opcode(0x28) // reg <- reg << lit
	LSF_REG_REG     = Opcode(0x29) // reg <- reg << b
	RSF_REG_LIT     = Opcode(0x2a) // reg <- reg >> lit
	RSF_REG_REG     = Opcode(0x2b) // reg <- reg >> b
	AND_REG_LIT     = Opcode(0x2c) // acc <- reg & lit
	AND_REG_REG     = Opcode(0x2d) // acc <- a & b
	OR_REG_LIT      = Opcode(0x2e) // acc <- reg | lit
	OR_REG_REG      = Opcode(0x2f) // acc <- a | b
	XOR_REG_LIT     = Opcode(0x30) // acc <- reg ^ lit
	XOR_REG_REG     = Opcode(0x31) // acc <- a ^ b
)

// Operand is the kind of an instruction operand.
type Operand int

const (
	OPERAND_LIT  = Operand(0) // 16-bit literal.
	OPERAND_REG  = Operand(1) // Register, one byte.
	OPERAND_ADDR = Operand(2) // 16-bit memory address.
)

// Size returns the encoded size of the operand, in bytes.
func (operand Operand) Size() int {
	if operand == OPERAND_REG {
		return 1
	}
	return 2
}

type opcodeInfo struct {
	Name     string
	Operands []Operand
}

var (
	lit  = OPERAND_LIT
	rg   = OPERAND_REG
	addr = OPERAND_ADDR
)

var opcodeTable = map[Opcode]opcodeInfo{
	MOV_LIT_REG:     {"MOV_LIT_REG", []Operand{lit, rg}},
	MOV_REG_REG:     {"MOV_REG_REG", []Operand{rg, rg}},
	MOV_REG_MEM:     {"MOV_REG_MEM", []Operand{rg, addr}},
	MOV_MEM_REG:     {"MOV_MEM_REG", []Operand{addr, rg}},
	ADD_REG_REG:     {"ADD_REG_REG", []Operand{rg, rg}},
	JMP_NOT_EQ:      {"JMP_NOT_EQ", []Operand{lit, addr}},
	PSH_LIT:         {"PSH_LIT", []Operand{lit}},
	PSH_REG:         {"PSH_REG", []Operand{rg}},
	POP:             {"POP", []Operand{rg}},
	CAL_LIT:         {"CAL_LIT", []Operand{addr}},
	CAL_REG:         {"CAL_REG", []Operand{rg}},
	RET:             {"RET", nil},
	HLT:             {"HLT", nil},
	MOV_LIT_MEM:     {"MOV_LIT_MEM", []Operand{lit, addr}},
	MOV_REG_PTR_REG: {"MOV_REG_PTR_REG", []Operand{rg, rg}},
	MOV_LIT_OFF_REG: {"MOV_LIT_OFF_REG", []Operand{addr, rg, rg}},
	ADD_LIT_REG:     {"ADD_LIT_REG", []Operand{lit, rg}},
	SUB_REG_REG:     {"SUB_REG_REG", []Operand{rg, rg}},
	SUB_LIT_REG:     {"SUB_LIT_REG", []Operand{lit, rg}},
	SUB_REG_LIT:     {"SUB_REG_LIT", []Operand{rg, lit}},
	MUL_REG_REG:     {"MUL_REG_REG", []Operand{rg, rg}},
	MUL_LIT_REG:     {"MUL_LIT_REG", []Operand{lit, rg}},
	INC_REG:         {"INC_REG", []Operand{rg}},
	DEC_REG:         {"DEC_REG", []Operand{rg}},
	LSF_REG_LIT:     {"LSF_REG_LIT", []Operand{rg, lit}},
	LSF_REG_REG:     {"LSF_REG_REG", []Operand{rg, rg}},
	RSF_REG_LIT:     {"RSF_REG_LIT", []Operand{rg, lit}},
	RSF_REG_REG:     {"RSF_REG_REG", []Operand{rg, rg}},
	AND_REG_LIT:     {"AND_REG_LIT", []Operand{rg, lit}},
	AND_REG_REG:     {"AND_REG_REG", []Operand{rg, rg}},
	OR_REG_LIT:      {"OR_REG_LIT", []Operand{rg, lit}},
	OR_REG_REG:      {"OR_REG_REG", []Operand{rg, rg}},
	XOR_REG_LIT:     {"XOR_REG_LIT", []Operand{rg, lit}},
	XOR_REG_REG:     {"XOR_REG_REG", []Operand{rg, rg}},
}

// Valid returns true if the opcode is part of the instruction set.
func (op Opcode) Valid() (ok bool) {
	_, ok = opcodeTable[op]
	return
}

// String returns the mnemonic of the opcode.
func (op Opcode) String() string {
	info, ok := opcodeTable[op]
	if !ok {
		return fmt.Sprintf("Opcode(0x%02x)", uint8(op))
	}
	return info.Name
}

// Operands returns the operand layout that follows the opcode.
func (op Opcode) Operands() []Operand {
	return opcodeTable[op].Operands
}

// Size returns the encoded size of the instruction, in bytes.
func (op Opcode) Size() (size int) {
	size = 1
	for _, operand := range op.Operands() {
		size += operand.Size()
	}
	return
}

// LookupOpcode finds an opcode by its mnemonic, ignoring case.
func LookupOpcode(name string) (op Opcode, ok bool) {
	upper := strings.ToUpper(name)
	for code, info := range opcodeTable {
		if info.Name == upper {
			return code, true
		}
	}
	return
}

// Opcodes returns an iterator over the instruction set, in opcode order.
func Opcodes() iter.Seq[Opcode] {
	return slices.Values(slices.Sorted(maps.Keys(opcodeTable)))
}
