package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockDevice struct {
	set16Calls []uint32
	set8Calls  []uint32
	value      uint16
}

func (md *mockDevice) Get8(address uint32) (uint8, error) { return uint8(md.value), nil }

func (md *mockDevice) Set8(address uint32, value uint8) error {
	md.set8Calls = append(md.set8Calls, address)
	return nil
}

func (md *mockDevice) Get16(address uint32) (uint16, error) { return md.value, nil }

func (md *mockDevice) Set16(address uint32, value uint16) error {
	md.set16Calls = append(md.set16Calls, address)
	md.value = value
	return nil
}

func TestMapper_RoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, remap := range []bool{true, false} {
		ram := NewRam(0x10000)
		mm := &Mapper{}
		mm.Map(ram, 0, 0xffff, remap)

		for _, value := range []uint16{0, 0x1234, 0xffff} {
			for _, address := range []uint32{0, 0x3000, 0xfffe} {
				assert.NoError(mm.Set16(address, value))
				got, err := mm.Get16(address)
				assert.NoError(err)
				assert.Equal(value, got)

				direct, err := ram.Get16(address)
				assert.NoError(err)
				assert.Equal(value, direct)
			}
		}
	}
}

func TestMapper_Remap(t *testing.T) {
	assert := assert.New(t)

	remapped := NewRam(0x100)
	passed := NewRam(0x2100)

	mm := &Mapper{}
	mm.Map(remapped, 0x1000, 0x10ff, true)
	mm.Map(passed, 0x2000, 0x20ff, false)

	assert.NoError(mm.Set16(0x1010, 0xaaaa))
	value, err := remapped.Get16(0x10)
	assert.NoError(err)
	assert.Equal(uint16(0xaaaa), value)

	assert.NoError(mm.Set8(0x2010, 0xbb))
	byteValue, err := passed.Get8(0x2010)
	assert.NoError(err)
	assert.Equal(uint8(0xbb), byteValue)

	byteValue, err = mm.Get8(0x1011)
	assert.NoError(err)
	assert.Equal(uint8(0xaa), byteValue)
}

func TestMapper_Shadowing(t *testing.T) {
	assert := assert.New(t)

	ram := NewRam(0x10000)
	device := &mockDevice{}

	mm := &Mapper{}
	mm.Map(ram, 0, 0xffff, false)
	unmap := mm.Map(device, 0x3000, 0x30ff, true)

	assert.NoError(mm.Set16(0x3000, 0x1111))
	assert.NoError(mm.Set16(0x30fe, 0x2222))
	assert.NoError(mm.Set16(0x2ffe, 0x3333))
	assert.NoError(mm.Set16(0x3100, 0x4444))

	assert.Equal([]uint32{0x0000, 0x00fe}, device.set16Calls)

	for _, address := range []uint32{0x3000, 0x30fe} {
		value, err := ram.Get16(address)
		assert.NoError(err)
		assert.Equal(uint16(0), value)
	}

	value, err := ram.Get16(0x2ffe)
	assert.NoError(err)
	assert.Equal(uint16(0x3333), value)
	value, err = ram.Get16(0x3100)
	assert.NoError(err)
	assert.Equal(uint16(0x4444), value)

	// Unmapping uncovers the RAM beneath, and is idempotent.
	unmap()
	unmap()
	assert.NoError(mm.Set16(0x3000, 0x5555))
	value, err = ram.Get16(0x3000)
	assert.NoError(err)
	assert.Equal(uint16(0x5555), value)
	assert.Len(device.set16Calls, 2)

	count := 0
	for range mm.Regions() {
		count++
	}
	assert.Equal(1, count)
}

func TestMapper_Order(t *testing.T) {
	assert := assert.New(t)

	first := &mockDevice{value: 1}
	second := &mockDevice{value: 2}

	mm := &Mapper{}
	mm.Map(first, 0, 0xff, true)
	unmap := mm.Map(second, 0, 0xff, true)

	var starts []AddressSpace
	for region := range mm.Regions() {
		starts = append(starts, region.Device)
	}
	assert.Equal([]AddressSpace{second, first}, starts)

	value, err := mm.Get16(0x10)
	assert.NoError(err)
	assert.Equal(uint16(2), value)

	unmap()
	value, err = mm.Get16(0x10)
	assert.NoError(err)
	assert.Equal(uint16(1), value)
}

func TestMapper_Unmapped(t *testing.T) {
	assert := assert.New(t)

	mm := &Mapper{}

	_, err := mm.Get8(0)
	assert.Equal(ErrUnmapped(0), err)

	mm.Map(NewRam(0x100), 0, 0xff, true)

	_, err = mm.Get16(0x100)
	assert.Equal(ErrUnmapped(0x100), err)
	assert.Equal(ErrUnmapped(0x1234), mm.Set8(0x1234, 0))
	assert.Equal(ErrUnmapped(0xffff), mm.Set16(0xffff, 0))

	_, err = mm.Get16(0xff)
	var rangeErr *ErrAddressRange
	assert.ErrorAs(err, &rangeErr)
}
