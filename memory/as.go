// Package memory provides the address spaces of the vm16 system.
// It includes the AddressSpace contract, byte-addressable backing
// stores (Ram, Rom), and the Mapper that composes address spaces and
// memory-mapped devices into a single unified address space.
//
// All 16-bit accesses are big-endian: the high byte is stored at the
// lower address.
package memory

// AddressSpace defines the interface for all byte-addressable stores in
// the vm16 system. Addresses are valid in the range [0, capacity).
type AddressSpace interface {
	// Get8 reads a byte.
	Get8(address uint32) (value uint8, err error)
	// Set8 writes a byte.
	Set8(address uint32, value uint8) (err error)
	// Get16 reads a big-endian 16-bit word.
	Get16(address uint32) (value uint16, err error)
	// Set16 writes a big-endian 16-bit word.
	Set16(address uint32, value uint16) (err error)
}

// Join16 combines a high and low byte into a 16-bit word.
func Join16(hi, lo uint8) uint16 {
	return (uint16(hi) << 8) | uint16(lo)
}

// Split16 splits a 16-bit word into its high and low bytes.
func Split16(value uint16) (hi, lo uint8) {
	hi = uint8(value >> 8)
	lo = uint8(value & 0xff)
	return
}
