package memory

import (
	"encoding/binary"
	"io"
)

// Ram is a fixed capacity, byte-addressable read/write store.
type Ram struct {
	Data []uint8
}

var _ AddressSpace = (*Ram)(nil)

// NewRam creates a zeroed store of 'size' bytes.
func NewRam(size int) (ram *Ram) {
	ram = &Ram{
		Data: make([]uint8, size),
	}

	return
}

// Capacity returns the size of the store, in bytes.
func (ram *Ram) Capacity() int {
	return len(ram.Data)
}

// Reset zeros the store.
func (ram *Ram) Reset() {
	clear(ram.Data)
}

// check verifies that 'width' bytes at 'address' are in range.
func (ram *Ram) check(address uint32, width int) (err error) {
	if uint64(address)+uint64(width) > uint64(len(ram.Data)) {
		err = &ErrAddressRange{Address: address, Capacity: len(ram.Data)}
	}
	return
}

// Get8 reads a byte.
func (ram *Ram) Get8(address uint32) (value uint8, err error) {
	err = ram.check(address, 1)
	if err != nil {
		return
	}

	value = ram.Data[address]
	return
}

// Set8 writes a byte.
func (ram *Ram) Set8(address uint32, value uint8) (err error) {
	err = ram.check(address, 1)
	if err != nil {
		return
	}

	ram.Data[address] = value
	return
}

// Get16 reads a big-endian word.
func (ram *Ram) Get16(address uint32) (value uint16, err error) {
	err = ram.check(address, 2)
	if err != nil {
		return
	}

	value = binary.BigEndian.Uint16(ram.Data[address:])
	return
}

// Set16 writes a big-endian word.
func (ram *Ram) Set16(address uint32, value uint16) (err error) {
	err = ram.check(address, 2)
	if err != nil {
		return
	}

	binary.BigEndian.PutUint16(ram.Data[address:], value)
	return
}

// Unmarshal loads a raw image from a reader, starting at address 0.
// The remainder of the store is left untouched.
func (ram *Ram) Unmarshal(file io.Reader) (err error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return
	}

	err = ram.check(0, len(data))
	if err != nil {
		return
	}

	copy(ram.Data, data)

	return
}

// Marshal writes the entire store to a writer.
func (ram *Ram) Marshal(file io.Writer) (err error) {
	_, err = file.Write(ram.Data)

	return
}
