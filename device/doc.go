// Package device provides memory-mapped devices for the vm16 system.
// Each device implements memory.AddressSpace, and is attached to the
// unified address space with a memory.Mapper region, normally with
// remapping enabled so that the device sees offsets from the start of
// its region.
//
// The Terminal is a write-only screen, the Tape a sequential byte
// stream, and the Drum bank-switched storage.
package device
