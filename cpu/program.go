package cpu

import (
	"iter"

	"github.com/ezrec/vm16/memory"
)

// Program is an assembled listing.
type Program struct {
	Statements []Statement
}

// Debug locates the statement that generated the byte at an address.
type Debug struct {
	*Statement
	Index int // Offset of the address within the statement's bytes.
}

// Debug returns the statement covering an address. If no statement
// covers the address, the returned Statement is nil.
func (prog *Program) Debug(address uint16) (dbg Debug) {
	for n, st := range prog.Statements {
		if int(address) >= st.Address && int(address) < st.Address+len(st.Bytes) {
			dbg = Debug{
				Statement: &prog.Statements[n],
				Index:     int(address) - st.Address,
			}
			break
		}
	}

	return
}

// LineNo returns the source line of the statement covering an address,
// or 0 if there is none.
func (prog *Program) LineNo(address uint16) int {
	dbg := prog.Debug(address)
	if dbg.Statement == nil {
		return 0
	}
	return dbg.LineNo
}

// Bytes returns an iterator over the assembled bytes and their addresses.
func (prog *Program) Bytes() iter.Seq2[uint16, uint8] {
	return func(yield func(address uint16, value uint8) bool) {
		for _, st := range prog.Statements {
			for n, value := range st.Bytes {
				if !yield(uint16(st.Address+n), value) {
					return
				}
			}
		}
	}
}

// Load writes the program into an address space.
func (prog *Program) Load(mem memory.AddressSpace) (err error) {
	for address, value := range prog.Bytes() {
		err = mem.Set8(uint32(address), value)
		if err != nil {
			return
		}
	}

	return
}
