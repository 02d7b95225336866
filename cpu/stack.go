package cpu

const (
	STACK_TOP = 0xfffe // Default initial stack pointer.
)

// Push stores a word at sp, then moves sp down by one word.
func (cpu *Cpu) Push(value uint16) (err error) {
	sp := cpu.Registers.Read(REG_SP)
	err = cpu.Memory.Set16(uint32(sp), value)
	if err != nil {
		return
	}

	cpu.Registers.Write(REG_SP, sp-2)
	cpu.frameSize += 2
	return
}

// Pop moves sp up by one word, then loads the word at sp.
func (cpu *Cpu) Pop() (value uint16, err error) {
	sp := cpu.Registers.Read(REG_SP) + 2
	value, err = cpu.Memory.Get16(uint32(sp))
	if err != nil {
		return
	}

	cpu.Registers.Write(REG_SP, sp)
	cpu.frameSize -= 2
	return
}

// FrameSize returns the number of bytes pushed in the current frame.
func (cpu *Cpu) FrameSize() uint16 {
	return cpu.frameSize
}

// pushState opens a new frame:
//   - Pushes r1-r8, then the return ip.
//   - Pushes the size of the caller's frame, including this word.
//   - Points fp at the new frame, which starts empty.
func (cpu *Cpu) pushState() (err error) {
	regs := cpu.Registers

	for _, reg := range GeneralPurpose {
		err = cpu.Push(regs.Read(reg))
		if err != nil {
			return
		}
	}

	err = cpu.Push(regs.Read(REG_IP))
	if err != nil {
		return
	}

	err = cpu.Push(cpu.frameSize + 2)
	if err != nil {
		return
	}

	regs.Write(REG_FP, regs.Read(REG_SP))
	cpu.frameSize = 0

	return
}

// popState closes the current frame:
//   - Discards everything the callee left on the stack.
//   - Restores ip and r8-r1.
//   - Pops the argument count pushed by the caller, and that many arguments.
//   - Points fp back at the caller's frame.
func (cpu *Cpu) popState() (err error) {
	regs := cpu.Registers

	fp := regs.Read(REG_FP)
	regs.Write(REG_SP, fp)

	size, err := cpu.Pop()
	if err != nil {
		return
	}

	ip, err := cpu.Pop()
	if err != nil {
		return
	}
	regs.Write(REG_IP, ip)

	for n := len(GeneralPurpose) - 1; n >= 0; n-- {
		var value uint16
		value, err = cpu.Pop()
		if err != nil {
			return
		}
		regs.Write(GeneralPurpose[n], value)
	}

	args, err := cpu.Pop()
	if err != nil {
		return
	}
	for range args {
		_, err = cpu.Pop()
		if err != nil {
			return
		}
	}

	regs.Write(REG_FP, fp+size)
	cpu.frameSize = regs.Read(REG_FP) - regs.Read(REG_SP)

	return
}
