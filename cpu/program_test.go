package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/vm16/memory"
)

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join([]string{
		"  mov_lit_reg 1 r1",
		"  hlt",
		".org 0x20",
		"  .byte 1 2 3",
	}, "\n")))
	assert.NoError(err)

	dbg := prog.Debug(2)
	assert.NotNil(dbg.Statement)
	assert.Equal(1, dbg.LineNo)
	assert.Equal(2, dbg.Index)

	dbg = prog.Debug(4)
	assert.Equal(2, dbg.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(0x10)
	assert.Nil(dbg.Statement)

	assert.Equal(4, prog.LineNo(0x22))
	assert.Equal(0, prog.LineNo(0x23))
}

func TestProgram_Load(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Statements: []Statement{
			{LineNo: 1, Address: 0x00, Bytes: []uint8{uint8(PSH_LIT), 0x12, 0x34}},
			{LineNo: 2, Address: 0x10, Bytes: []uint8{uint8(HLT)}},
		},
	}

	var addresses []uint16
	for address := range prog.Bytes() {
		addresses = append(addresses, address)
	}
	assert.Equal([]uint16{0x00, 0x01, 0x02, 0x10}, addresses)

	ram := memory.NewRam(0x100)
	err := prog.Load(ram)
	assert.NoError(err)
	assert.Equal([]uint8{0x16, 0x12, 0x34}, ram.Data[0:3])
	assert.Equal(uint8(0x1c), ram.Data[0x10])

	// Loading into read-only memory fails.
	rom := memory.NewRom(make([]uint8, 0x100))
	err = prog.Load(rom)
	assert.ErrorIs(err, memory.ErrReadOnly)

	// As does loading past the end of memory.
	small := memory.NewRam(0x08)
	err = prog.Load(small)
	var rangeErr *memory.ErrAddressRange
	assert.ErrorAs(err, &rangeErr)
	assert.Equal(uint32(0x10), rangeErr.Address)
}
