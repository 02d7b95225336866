package memory

import (
	"errors"

	"github.com/ezrec/vm16/translate"
)

var f = translate.From

var (
	// ErrReadOnly is returned by writes to read-only stores.
	ErrReadOnly = errors.New(f("read only"))
)

// ErrUnmapped is returned when no mapped region contains an address.
type ErrUnmapped uint32

func (eu ErrUnmapped) Error() string {
	return f("no region mapped at 0x%04x", uint32(eu))
}

// ErrAddressRange is returned when an access falls outside an address space.
type ErrAddressRange struct {
	Address  uint32
	Capacity int
}

func (err *ErrAddressRange) Error() string {
	return f("address 0x%04x out of range [0x0000, 0x%04x)", err.Address, err.Capacity)
}
