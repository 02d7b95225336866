package memory

import (
	"iter"
	"log"
	"slices"
)

// Region is a range of the unified address space delegated to a device.
type Region struct {
	Device AddressSpace // Device receiving the accesses.
	Start  uint32       // First address of the region.
	End    uint32       // Last address of the region (inclusive).
	Remap  bool         // If set, the device sees offsets from Start.
}

// Contains returns true if the address lies within the region.
func (region *Region) Contains(address uint32) bool {
	return address >= region.Start && address <= region.End
}

// translate converts a global address into the device's address.
func (region *Region) translate(address uint32) uint32 {
	if region.Remap {
		return address - region.Start
	}
	return address
}

// Mapper composes multiple address spaces into one. Regions mapped
// later shadow regions mapped earlier over the same addresses.
type Mapper struct {
	Verbose bool // Set to enable verbose logging.

	regions []*Region // Most recently mapped first.
}

var _ AddressSpace = (*Mapper)(nil)

// Map adds a device over the inclusive range [start, end], and returns
// a function that removes it again. The returned function may be
// called any number of times.
func (mm *Mapper) Map(device AddressSpace, start, end uint32, remap bool) (unmap func()) {
	region := &Region{
		Device: device,
		Start:  start,
		End:    end,
		Remap:  remap,
	}

	mm.regions = slices.Insert(mm.regions, 0, region)

	if mm.Verbose {
		log.Printf("mapper: map [0x%04x, 0x%04x] remap=%v", start, end, remap)
	}

	unmap = func() {
		before := len(mm.regions)
		mm.regions = slices.DeleteFunc(mm.regions, func(r *Region) bool { return r == region })
		if mm.Verbose && before != len(mm.regions) {
			log.Printf("mapper: unmap [0x%04x, 0x%04x]", start, end)
		}
	}

	return
}

// Regions returns an iterator over the mapped regions, in lookup order.
func (mm *Mapper) Regions() iter.Seq[Region] {
	return func(yield func(region Region) bool) {
		for _, region := range mm.regions {
			if !yield(*region) {
				return
			}
		}
	}
}

// find returns the region that handles an address, and the address
// as seen by that region's device.
func (mm *Mapper) find(address uint32) (device AddressSpace, local uint32, err error) {
	for _, region := range mm.regions {
		if region.Contains(address) {
			device = region.Device
			local = region.translate(address)
			return
		}
	}

	err = ErrUnmapped(address)
	return
}

// Get8 reads a byte from the region containing the address.
func (mm *Mapper) Get8(address uint32) (value uint8, err error) {
	device, local, err := mm.find(address)
	if err != nil {
		return
	}

	return device.Get8(local)
}

// Set8 writes a byte to the region containing the address.
func (mm *Mapper) Set8(address uint32, value uint8) (err error) {
	device, local, err := mm.find(address)
	if err != nil {
		return
	}

	return device.Set8(local, value)
}

// Get16 reads a word from the region containing the address.
func (mm *Mapper) Get16(address uint32) (value uint16, err error) {
	device, local, err := mm.find(address)
	if err != nil {
		return
	}

	return device.Get16(local)
}

// Set16 writes a word to the region containing the address.
func (mm *Mapper) Set16(address uint32, value uint16) (err error) {
	device, local, err := mm.find(address)
	if err != nil {
		return
	}

	return device.Set16(local, value)
}
