package cpu

import (
	"context"
	"fmt"
	"iter"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/vm16/memory"
)

var _cpu_defines = map[string]string{
	"STACK_TOP":      fmt.Sprintf("0x%x", STACK_TOP),
	"REGISTER_COUNT": fmt.Sprintf("%v", REGISTER_COUNT),
}

// Cpu is the simulation context for the processor.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Registers *Registers          // Register file.
	Memory    memory.AddressSpace // Unified address space.
	StackTop  uint16              // Initial sp and fp after a reset.
	Halted    bool                // Set once a HLT has retired.
	Ticks     int                 // Instructions retired since reset.
	frameSize uint16              // Bytes pushed in the current frame.
}

// NewCpu creates a new CPU executing from the given address space.
func NewCpu(mem memory.AddressSpace) (cpu *Cpu) {
	cpu = &Cpu{
		Registers: NewRegisters(),
		Memory:    mem,
		StackTop:  STACK_TOP,
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears the registers; execution restarts at address 0.
// - Sets sp and fp to the stack top.
// - Clears the halt state and tick counter.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Registers.Reset()
	cpu.Registers.Write(REG_SP, cpu.StackTop)
	cpu.Registers.Write(REG_FP, cpu.StackTop)
	cpu.frameSize = 0
	cpu.Halted = false
	cpu.Ticks = 0
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	for reg, value := range cpu.Registers.All() {
		text += fmt.Sprintf("% 5s: 0x%04x\n", reg.String(), value)
	}

	return
}

// Fetch reads the byte at ip, and advances ip.
func (cpu *Cpu) Fetch() (value uint8, err error) {
	ip := cpu.Registers.Read(REG_IP)
	value, err = cpu.Memory.Get8(uint32(ip))
	if err != nil {
		return
	}

	cpu.Registers.Write(REG_IP, ip+1)
	return
}

// Fetch16 reads the word at ip, and advances ip.
func (cpu *Cpu) Fetch16() (value uint16, err error) {
	ip := cpu.Registers.Read(REG_IP)
	value, err = cpu.Memory.Get16(uint32(ip))
	if err != nil {
		return
	}

	cpu.Registers.Write(REG_IP, ip+2)
	return
}

// fetchOperand fetches one operand. Registers are returned as their
// register index.
func (cpu *Cpu) fetchOperand(operand Operand) (value uint16, err error) {
	if operand == OPERAND_REG {
		var index uint8
		index, err = cpu.Fetch()
		value = uint16(RegisterOf(index))
		return
	}

	return cpu.Fetch16()
}

// Step fetches and executes a single instruction.
func (cpu *Cpu) Step() (err error) {
	if cpu.Halted {
		err = ErrHalted
		return
	}

	ip := cpu.Registers.Read(REG_IP)

	op, err := cpu.Fetch()
	if err != nil {
		err = &ErrFetch{Address: ip, Err: err}
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: 0x%04x %v", ip, Opcode(op).String())
	}

	err = cpu.Execute(Opcode(op))
	if err != nil {
		err = &ErrInstruction{Address: ip, Opcode: Opcode(op), Err: err}
		return
	}

	cpu.Ticks++

	return
}

// Run steps the CPU until a HLT retires, an instruction fails, or the
// context is done. The context is only checked between instructions.
func (cpu *Cpu) Run(ctx context.Context) (err error) {
	for !cpu.Halted {
		err = ctx.Err()
		if err != nil {
			return
		}

		err = cpu.Step()
		if err != nil {
			return
		}
	}

	return
}

// Execute decodes the operands of an opcode from the instruction stream,
// and performs it. Opcodes outside the instruction set fail with ErrOpcode.
func (cpu *Cpu) Execute(op Opcode) (err error) {
	if !op.Valid() {
		err = ErrOpcode(op)
		return
	}

	var arg [3]uint16
	for n, operand := range op.Operands() {
		arg[n], err = cpu.fetchOperand(operand)
		if err != nil {
			return
		}
	}

	regs := cpu.Registers
	reg := func(n int) Register { return Register(arg[n]) }
	val := func(n int) uint16 { return regs.Read(reg(n)) }
	acc := func(value uint16) { regs.Write(REG_ACC, value) }

	switch op {
	case MOV_LIT_REG:
		regs.Write(reg(1), arg[0])
	case MOV_REG_REG:
		regs.Write(reg(1), val(0))
	case MOV_REG_MEM:
		err = cpu.Memory.Set16(uint32(arg[1]), val(0))
	case MOV_MEM_REG:
		err = cpu.load(reg(1), uint32(arg[0]))
	case MOV_LIT_MEM:
		err = cpu.Memory.Set16(uint32(arg[1]), arg[0])
	case MOV_REG_PTR_REG:
		err = cpu.load(reg(1), uint32(val(0)))
	case MOV_LIT_OFF_REG:
		// Not wrapped; an address past 0xffff is an addressing error.
		err = cpu.load(reg(2), uint32(arg[0])+uint32(val(1)))
	case ADD_REG_REG:
		acc(val(0) + val(1))
	case ADD_LIT_REG:
		acc(arg[0] + val(1))
	case SUB_REG_REG:
		acc(val(0) - val(1))
	case SUB_LIT_REG:
		acc(arg[0] - val(1))
	case SUB_REG_LIT:
		acc(val(0) - arg[1])
	case MUL_REG_REG:
		acc(val(0) * val(1))
	case MUL_LIT_REG:
		acc(arg[0] * val(1))
	case INC_REG:
		regs.Write(reg(0), val(0)+1)
	case DEC_REG:
		regs.Write(reg(0), val(0)-1)
	case LSF_REG_LIT:
		regs.Write(reg(0), val(0)<<arg[1])
	case LSF_REG_REG:
		regs.Write(reg(0), val(0)<<val(1))
	case RSF_REG_LIT:
		regs.Write(reg(0), val(0)>>arg[1])
	case RSF_REG_REG:
		regs.Write(reg(0), val(0)>>val(1))
	case AND_REG_LIT:
		acc(val(0) & arg[1])
	case AND_REG_REG:
		acc(val(0) & val(1))
	case OR_REG_LIT:
		acc(val(0) | arg[1])
	case OR_REG_REG:
		acc(val(0) | val(1))
	case XOR_REG_LIT:
		acc(val(0) ^ arg[1])
	case XOR_REG_REG:
		acc(val(0) ^ val(1))
	case JMP_NOT_EQ:
		if arg[0] != regs.Read(REG_ACC) {
			regs.Write(REG_IP, arg[1])
		}
	case PSH_LIT:
		err = cpu.Push(arg[0])
	case PSH_REG:
		err = cpu.Push(val(0))
	case POP:
		var value uint16
		value, err = cpu.Pop()
		if err == nil {
			regs.Write(reg(0), value)
		}
	case CAL_LIT:
		err = cpu.call(arg[0])
	case CAL_REG:
		err = cpu.call(val(0))
	case RET:
		err = cpu.popState()
	case HLT:
		cpu.Halted = true
		if cpu.Verbose {
			log.Printf("cpu: halted after %v instructions", cpu.Ticks+1)
		}
	}

	return
}

// load reads a word from memory into a register.
func (cpu *Cpu) load(reg Register, address uint32) (err error) {
	value, err := cpu.Memory.Get16(address)
	if err != nil {
		return
	}

	cpu.Registers.Write(reg, value)
	return
}

// call saves the caller's state, and transfers control to the target.
func (cpu *Cpu) call(target uint16) (err error) {
	err = cpu.pushState()
	if err != nil {
		return
	}

	cpu.Registers.Write(REG_IP, target)
	return
}

// Disassemble decodes the instruction at an address. Bytes that are not
// an opcode are shown as data, with a size of 1.
func (cpu *Cpu) Disassemble(address uint32) (text string, size int, err error) {
	code, err := cpu.Memory.Get8(address)
	if err != nil {
		return
	}

	op := Opcode(code)
	if !op.Valid() {
		text = fmt.Sprintf(".byte 0x%02x", code)
		size = 1
		return
	}

	words := []string{op.String()}
	offset := address + 1
	for _, operand := range op.Operands() {
		switch operand {
		case OPERAND_REG:
			var index uint8
			index, err = cpu.Memory.Get8(offset)
			if err != nil {
				return
			}
			words = append(words, RegisterOf(index).String())
		default:
			var value uint16
			value, err = cpu.Memory.Get16(offset)
			if err != nil {
				return
			}
			words = append(words, fmt.Sprintf("0x%04x", value))
		}
		offset += uint32(operand.Size())
	}

	text = strings.Join(words, " ")
	size = op.Size()
	return
}

// Dump returns a hex view of 'count' bytes of memory at an address.
func (cpu *Cpu) Dump(address uint32, count int) (text string, err error) {
	words := []string{fmt.Sprintf("0x%04x:", address)}
	for n := range count {
		var value uint8
		value, err = cpu.Memory.Get8(address + uint32(n))
		if err != nil {
			return
		}
		words = append(words, fmt.Sprintf("0x%02x", value))
	}

	text = strings.Join(words, " ")
	return
}
