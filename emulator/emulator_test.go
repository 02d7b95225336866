package emulator

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/vm16/cpu"
	"github.com/ezrec/vm16/memory"
)

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.Equal(RAM_SIZE, emu.Ram.Capacity())

	var regions []memory.Region
	for region := range emu.Mapper.Regions() {
		regions = append(regions, region)
	}
	assert.Equal(4, len(regions))
	assert.Equal(uint32(DRUM_BASE), regions[0].Start)
	assert.Equal(uint32(0x3301), regions[0].End)
	assert.Equal(uint32(TAPE_BASE), regions[1].Start)
	assert.Equal(uint32(0x3101), regions[1].End)
	assert.Equal(uint32(TERMINAL_BASE), regions[2].Start)
	assert.Equal(uint32(0xffff), regions[3].End)
}

func newProgram(t *testing.T, emu *Emulator, program ...string) {
	asm := &cpu.Assembler{}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	emu.Program = prog
	err = emu.Reset()
	if err != nil {
		t.Fatal(err)
	}
}

func TestEmulator_Defines(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	defines := maps.Collect(emu.Defines())

	assert.Equal("0x3000", defines["TERMINAL_BASE"])
	assert.Equal("0x3100", defines["TAPE_BASE"])
	assert.Equal("0xfffe", defines["STACK_TOP"])
	assert.Equal("16", defines["TERMINAL_COLUMNS"])
	assert.Equal("0xffff", defines["TAPE_EOF"])
	assert.Equal("0x3200", defines["DRUM_BASE"])
	assert.Equal("0x100", defines["DRUM_BANK_SIZE"])
}

func TestEmulator_Echo(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	newProgram(t, emu,
		".equ DATA $(TAPE_BASE + TAPE_DATA)",
		"loop:",
		"    mov_mem_reg DATA acc",
		"    jmp_not_eq TAPE_EOF write",
		"    hlt",
		"write:",
		"    mov_reg_mem acc DATA",
		"    mov_lit_reg 0 acc",
		"    jmp_not_eq 1 loop",
	)

	output := &bytes.Buffer{}
	emu.Tape.Input = strings.NewReader("hello")
	emu.Tape.Output = output

	err := emu.Run(context.Background(), 1000)
	assert.NoError(err)
	assert.True(emu.Halted)
	assert.Equal("hello", output.String())

	// Memory behind the tape ports is untouched.
	assert.Equal([]uint8{0, 0}, emu.Ram.Data[TAPE_BASE:TAPE_BASE+2])

	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)
}

func TestEmulator_Terminal(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	newProgram(t, emu,
		"    mov_lit_mem $(TERMINAL_BOLD * 256 + 'H') TERMINAL_BASE",
		"    mov_lit_reg 'i' r1",
		"    mov_reg_mem r1 $(TERMINAL_BASE + TERMINAL_COLUMNS + 1)",
		"    hlt",
	)

	screen := &bytes.Buffer{}
	emu.Terminal.Output = screen

	err := emu.Run(context.Background(), 0)
	assert.NoError(err)
	assert.Equal("\x1b[1m\x1b[1;1HH\x1b[2;2Hi", screen.String())
	assert.Equal([]uint8{0, 0}, emu.Ram.Data[TERMINAL_BASE:TERMINAL_BASE+2])
	assert.Equal(4, emu.Ticks())
}

func TestEmulator_StepLimit(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	newProgram(t, emu, "loop: jmp_not_eq 1 loop")

	err := emu.Run(context.Background(), 10)
	assert.ErrorIs(err, ErrStepLimit)
	assert.Equal(10, emu.Ticks())
	assert.False(emu.Halted)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = emu.Run(ctx, 0)
	assert.ErrorIs(err, context.Canceled)
	assert.Equal(10, emu.Ticks())
}

func TestEmulator_RuntimeError(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	newProgram(t, emu,
		"    inc_reg r1",
		"    .byte 0",
		"    hlt",
	)

	err := emu.Run(context.Background(), 0)
	assert.ErrorIs(err, cpu.ErrOpcode(0))

	var runtimeErr *ErrRuntime
	assert.True(errors.As(err, &runtimeErr))
	assert.Equal(uint16(2), runtimeErr.Address)
	assert.Equal(2, runtimeErr.LineNo)
	assert.Equal(uint16(1), emu.Registers.Read(cpu.REG_R1))
}

func TestEmulator_Image(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Image = []uint8{
		uint8(cpu.MOV_LIT_REG), 0x00, 0x42, uint8(cpu.REG_R1),
		uint8(cpu.MOV_REG_MEM), uint8(cpu.REG_R1), 0x01, 0x00,
		uint8(cpu.HLT),
	}
	assert.NoError(emu.Reset())

	err := emu.Run(context.Background(), 0)
	assert.NoError(err)
	assert.Equal(uint16(0x42), emu.Registers.Read(cpu.REG_R1))
	assert.Equal([]uint8{0x00, 0x42}, emu.Ram.Data[0x100:0x102])
	assert.Equal(0, emu.LineNo())

	// Reset restores the image and clears the rest of memory.
	assert.NoError(emu.Reset())
	assert.Equal([]uint8{0x00, 0x00}, emu.Ram.Data[0x100:0x102])
	assert.Equal(uint16(0), emu.Ip())
	assert.False(emu.Halted)

	emu.Image = make([]uint8, RAM_SIZE+1)
	var rangeErr *memory.ErrAddressRange
	assert.ErrorAs(emu.Reset(), &rangeErr)
}

func TestEmulator_Call(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	newProgram(t, emu,
		"    mov_lit_reg 0x1111 r1",
		"    psh_lit 3",
		"    psh_lit 4",
		"    psh_lit 2 ; argument count",
		"    cal_lit sum",
		"    hlt",
		"",
		"; acc = arg0 + arg1",
		"sum:",
		"    mov_lit_off_reg 0x1a fp r2",
		"    mov_lit_off_reg 0x18 fp r3",
		"    add_reg_reg r2 r3",
		"    ret",
	)

	err := emu.Run(context.Background(), 100)
	assert.NoError(err)
	assert.Equal(uint16(7), emu.Registers.Read(cpu.REG_ACC))
	assert.Equal(uint16(0x1111), emu.Registers.Read(cpu.REG_R1))
	assert.Equal(uint16(0), emu.Registers.Read(cpu.REG_R2))
	assert.Equal(uint16(cpu.STACK_TOP), emu.Registers.Read(cpu.REG_SP))
	assert.Equal(uint16(cpu.STACK_TOP), emu.Registers.Read(cpu.REG_FP))
}

func TestEmulator_Drum(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	newProgram(t, emu,
		".equ SELECT $(DRUM_BASE + DRUM_SELECT)",
		".equ WINDOW $(DRUM_BASE + DRUM_WINDOW)",
		"    mov_lit_mem 7 SELECT",
		"    mov_lit_mem 0xbeef WINDOW",
		"    mov_lit_mem 0 SELECT",
		"    mov_mem_reg WINDOW r1",
		"    mov_lit_mem 7 SELECT",
		"    mov_mem_reg WINDOW r2",
		"    hlt",
	)

	err := emu.Run(context.Background(), 0)
	assert.NoError(err)
	assert.Equal(uint16(0), emu.Registers.Read(cpu.REG_R1))
	assert.Equal(uint16(0xbeef), emu.Registers.Read(cpu.REG_R2))
	assert.Equal(uint16(7), emu.Drum.Selected())

	// Banks survive a reset; the selection does not.
	assert.NoError(emu.Reset())
	assert.Equal(uint16(0), emu.Drum.Selected())
	assert.Equal([]uint8{0xbe, 0xef}, emu.Drum.Banks[7].Data[:2])
}

func TestEmulator_ProtectImage(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Image = []uint8{
		uint8(cpu.MOV_LIT_MEM), 0x12, 0x34, 0x01, 0x00,
		uint8(cpu.MOV_LIT_MEM), 0x12, 0x34, 0x00, 0x00,
		uint8(cpu.HLT),
	}
	emu.ProtectImage = true
	assert.NoError(emu.Reset())

	err := emu.Run(context.Background(), 0)
	assert.ErrorIs(err, memory.ErrReadOnly)
	assert.Equal([]uint8{0x12, 0x34}, emu.Ram.Data[0x100:0x102])
	assert.Equal(uint8(cpu.MOV_LIT_MEM), emu.Ram.Data[0])

	var runtimeErr *ErrRuntime
	assert.True(errors.As(err, &runtimeErr))
	assert.Equal(uint16(5), runtimeErr.Address)

	// Resetting without protection drops the read-only region.
	emu.ProtectImage = false
	assert.NoError(emu.Reset())
	count := 0
	for range emu.Mapper.Regions() {
		count++
	}
	assert.Equal(4, count)

	err = emu.Run(context.Background(), 0)
	assert.NoError(err)
	assert.Equal([]uint8{0x12, 0x34}, emu.Ram.Data[0:2])
}

func TestEmulator_ProtectFullImage(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Image = make([]uint8, RAM_SIZE)
	copy(emu.Image, []uint8{
		uint8(cpu.PSH_LIT), 0x12, 0x34,
		uint8(cpu.MOV_LIT_MEM), 0x00, 0x41, 0x30, 0x00,
		uint8(cpu.MOV_LIT_MEM), 0x56, 0x78, 0x40, 0x00,
		uint8(cpu.HLT),
	})
	emu.ProtectImage = true
	assert.NoError(emu.Reset())

	screen := &bytes.Buffer{}
	emu.Terminal.Output = screen

	err := emu.Run(context.Background(), 0)
	assert.NoError(err)
	assert.True(emu.Halted)
	assert.Equal("\x1b[1;1HA", screen.String())
	assert.Equal([]uint8{0x12, 0x34}, emu.Ram.Data[cpu.STACK_TOP:cpu.STACK_TOP+2])
	assert.Equal([]uint8{0x56, 0x78}, emu.Ram.Data[0x4000:0x4002])

	// The protected range stops below the devices.
	var regions []memory.Region
	for region := range emu.Mapper.Regions() {
		regions = append(regions, region)
	}
	assert.Equal(5, len(regions))
	assert.Equal(uint32(0), regions[0].Start)
	assert.Equal(uint32(PROTECT_END), regions[0].End)

	// A stack top inside the protected image is refused.
	emu.Cpu.StackTop = 0x1000
	var stackErr *ErrProtectStack
	assert.ErrorAs(emu.Reset(), &stackErr)
	assert.Equal(uint16(0x1000), stackErr.StackTop)
	assert.Equal(uint32(PROTECT_END), stackErr.End)
}
