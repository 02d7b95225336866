// Package cpu implements the processor and assembler for the vm16 system.
//
// The processor consists of twelve 16-bit registers (ip, acc, r1-r8, sp
// and fp) held in a small register file, and executes a compact
// byte-coded instruction set against a memory.AddressSpace. Arithmetic
// and bitwise results are written to the accumulator. Subroutines use a
// stack that grows downward from the top of memory, with a frame that
// preserves r1-r8 and the return address across the call.
//
// The assembler provides a line-oriented assembly language for the
// instruction set, supporting macros, labels, equates, and compile-time
// expression evaluation.
package cpu
