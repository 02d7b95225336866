package memory

// Rom is a read-only store. Writes fail with ErrReadOnly.
type Rom struct {
	Ram
}

var _ AddressSpace = (*Rom)(nil)

// NewRom creates a read-only store holding a copy of 'data'.
func NewRom(data []uint8) (rom *Rom) {
	rom = &Rom{}
	rom.Data = append([]uint8(nil), data...)

	return
}

// Set8 rejects the write.
func (rom *Rom) Set8(address uint32, value uint8) (err error) {
	err = rom.check(address, 1)
	if err != nil {
		return
	}

	err = ErrReadOnly
	return
}

// Set16 rejects the write.
func (rom *Rom) Set16(address uint32, value uint16) (err error) {
	err = rom.check(address, 2)
	if err != nil {
		return
	}

	err = ErrReadOnly
	return
}
