package cpu

import (
	"fmt"
	"iter"
	"strings"

	"github.com/ezrec/vm16/memory"
)

// Register identifies a slot in the register file.
type Register int

const (
	REG_IP  = Register(0)  // ip
	REG_ACC = Register(1)  // acc
	REG_R1  = Register(2)  // r1
	REG_R2  = Register(3)  // r2
	REG_R3  = Register(4)  // r3
	REG_R4  = Register(5)  // r4
	REG_R5  = Register(6)  // r5
	REG_R6  = Register(7)  // r6
	REG_R7  = Register(8)  // r7
	REG_R8  = Register(9)  // r8
	REG_SP  = Register(10) // sp
	REG_FP  = Register(11) // fp

	REGISTER_COUNT = 12 // Number of registers in the file.
)

var registerNames = [REGISTER_COUNT]string{
	"ip", "acc",
	"r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8",
	"sp", "fp",
}

// GeneralPurpose lists the registers preserved across a subroutine call,
// in the order they are pushed.
var GeneralPurpose = [...]Register{
	REG_R1, REG_R2, REG_R3, REG_R4, REG_R5, REG_R6, REG_R7, REG_R8,
}

// String returns the name of the register.
func (reg Register) String() string {
	if reg < 0 || reg >= REGISTER_COUNT {
		return fmt.Sprintf("Register(%d)", int(reg))
	}
	return registerNames[reg]
}

// Offset returns the offset of the register's slot in the file.
func (reg Register) Offset() uint32 {
	return uint32(reg) * 2
}

// RegisterOf reduces an operand byte to a register. Every byte value
// selects a register.
func RegisterOf(operand uint8) Register {
	return Register(int(operand) % REGISTER_COUNT)
}

// LookupRegister returns the register with the given name.
func LookupRegister(name string) (reg Register, err error) {
	lower := strings.ToLower(name)
	for n, regName := range registerNames {
		if regName == lower {
			reg = Register(n)
			return
		}
	}

	err = ErrRegister(name)
	return
}

// Registers is the register file: one 16-bit slot per register, backed
// by a small dedicated address space.
type Registers struct {
	mem *memory.Ram
}

// NewRegisters creates a zeroed register file.
func NewRegisters() (rf *Registers) {
	rf = &Registers{
		mem: memory.NewRam(REGISTER_COUNT * 2),
	}

	return
}

// Reset zeros all registers.
func (rf *Registers) Reset() {
	rf.mem.Reset()
}

// Read returns the value of a register.
func (rf *Registers) Read(reg Register) (value uint16) {
	value, err := rf.mem.Get16(reg.Offset())
	if err != nil {
		panic(err)
	}
	return
}

// Write sets the value of a register.
func (rf *Registers) Write(reg Register, value uint16) {
	err := rf.mem.Set16(reg.Offset(), value)
	if err != nil {
		panic(err)
	}
}

// Get returns the value of the named register.
func (rf *Registers) Get(name string) (value uint16, err error) {
	reg, err := LookupRegister(name)
	if err != nil {
		return
	}

	value = rf.Read(reg)
	return
}

// Set sets the value of the named register.
func (rf *Registers) Set(name string, value uint16) (err error) {
	reg, err := LookupRegister(name)
	if err != nil {
		return
	}

	rf.Write(reg, value)
	return
}

// All returns an iterator over the registers and their values, in slot order.
func (rf *Registers) All() iter.Seq2[Register, uint16] {
	return func(yield func(reg Register, value uint16) bool) {
		for n := range REGISTER_COUNT {
			reg := Register(n)
			if !yield(reg, rf.Read(reg)) {
				return
			}
		}
	}
}
