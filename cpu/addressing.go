package cpu

import "fmt"

// instructionMode tells an addressing-mode task what kind of instruction is
// driving it, since load/RMW/store instructions fold the final bus access
// differently into the addressing sequence.
type instructionMode int

const (
	loadInstructionMode instructionMode = iota
	rmwInstructionMode
	storeInstructionMode
)

// addrImmediate implements immediate mode - #i. The operand was already
// fetched into p.opVal on opTick 2; this just advances PC past it.
func (p *Chip) addrImmediate(instructionMode) (bool, error) {
	if p.opTick != 2 {
		return true, InvalidCPUState{fmt.Sprintf("addrImmediate invalid opTick %d, not 2", p.opTick)}
	}
	p.PC++
	return true, nil
}

// addrZP implements zero-page mode - d. Reports p.opVal/p.opAddr for the
// instruction to consume; for RMW modes an extra tick writes the value back
// unchanged before the real modification happens.
func (p *Chip) addrZP(mode instructionMode) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 4:
		return true, InvalidCPUState{fmt.Sprintf("addrZP invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		p.opAddr = uint16(0x00FF & p.opVal)
		p.PC++
		return mode == storeInstructionMode, nil
	case p.opTick == 3:
		p.opVal = p.ram.Read(p.opAddr)
		return mode != rmwInstructionMode, nil
	}
	// case p.opTick == 4:
	p.ram.Write(p.opAddr, p.opVal)
	return true, nil
}

// addrZPX implements zero-page,X mode - d,x.
func (p *Chip) addrZPX(mode instructionMode) (bool, error) {
	return p.addrZPXY(mode, p.X)
}

// addrZPY implements zero-page,Y mode - d,y.
func (p *Chip) addrZPY(mode instructionMode) (bool, error) {
	return p.addrZPXY(mode, p.Y)
}

// addrZPXY is the shared implementation behind addrZPX/addrZPY.
func (p *Chip) addrZPXY(mode instructionMode, reg uint8) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 5:
		return true, InvalidCPUState{fmt.Sprintf("addrZPXY invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		p.opAddr = uint16(0x00FF & p.opVal)
		p.PC++
		return false, nil
	case p.opTick == 3:
		_ = p.ram.Read(p.opAddr)
		p.opAddr = uint16(uint8(p.opVal + reg))
		return mode == storeInstructionMode, nil
	case p.opTick == 4:
		p.opVal = p.ram.Read(p.opAddr)
		return mode != rmwInstructionMode, nil
	}
	// case p.opTick == 5:
	p.ram.Write(p.opAddr, p.opVal)
	return true, nil
}

// addrIndirectX implements indexed-indirect mode - (d,x).
func (p *Chip) addrIndirectX(mode instructionMode) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 7:
		return true, InvalidCPUState{fmt.Sprintf("addrIndirectX invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		p.opAddr = uint16(0x00FF & p.opVal)
		p.PC++
		return false, nil
	case p.opTick == 3:
		_ = p.ram.Read(p.opAddr)
		p.opAddr = uint16(uint8(p.opVal + p.X))
		return false, nil
	case p.opTick == 4:
		p.opVal = p.ram.Read(p.opAddr)
		p.opAddr = uint16(uint8(p.opAddr&0x00FF) + 1)
		return false, nil
	case p.opTick == 5:
		p.opAddr = (uint16(p.ram.Read(p.opAddr)) << 8) + uint16(p.opVal)
		return mode == storeInstructionMode, nil
	case p.opTick == 6:
		p.opVal = p.ram.Read(p.opAddr)
		return mode != rmwInstructionMode, nil
	}
	// case p.opTick == 7:
	p.ram.Write(p.opAddr, p.opVal)
	return true, nil
}

// addrIndirectY implements indirect-indexed mode - (d),y.
func (p *Chip) addrIndirectY(mode instructionMode) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 7:
		return true, InvalidCPUState{fmt.Sprintf("addrIndirectY invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		p.opAddr = uint16(0x00FF & p.opVal)
		p.PC++
		return false, nil
	case p.opTick == 3:
		p.opVal = p.ram.Read(p.opAddr)
		p.opAddr = uint16(uint8(p.opAddr&0x00FF) + 1)
		return false, nil
	case p.opTick == 4:
		p.opAddr = (uint16(p.ram.Read(p.opAddr)) << 8) + uint16(p.opVal)
		a := (p.opAddr & 0xFF00) + uint16(uint8(p.opAddr&0xFF)+p.Y)
		p.opVal = 0
		if a != p.opAddr+uint16(p.Y) {
			p.opVal = 1 // Signal the low-byte add carried; tick 5 must fix up the high byte.
		}
		p.opAddr = a
		return false, nil
	case p.opTick == 5:
		crossed := p.opVal
		p.opVal = p.ram.Read(p.opAddr)
		done := true
		if crossed != 0 {
			p.opAddr += 0x0100
			if mode == loadInstructionMode {
				done = false
			}
		}
		if mode == rmwInstructionMode {
			done = false
		}
		return done, nil
	case p.opTick == 6:
		p.opVal = p.ram.Read(p.opAddr)
		return mode != rmwInstructionMode, nil
	}
	// case p.opTick == 7:
	p.ram.Write(p.opAddr, p.opVal)
	return true, nil
}

// addrAbsolute implements absolute mode - a.
func (p *Chip) addrAbsolute(mode instructionMode) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 5:
		return true, InvalidCPUState{fmt.Sprintf("addrAbsolute invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		p.opAddr = 0x00FF & uint16(p.opVal)
		p.PC++
		return false, nil
	case p.opTick == 3:
		p.opVal = p.ram.Read(p.PC)
		p.PC++
		p.opAddr |= uint16(p.opVal) << 8
		return mode == storeInstructionMode, nil
	case p.opTick == 4:
		p.opVal = p.ram.Read(p.opAddr)
		return mode != rmwInstructionMode, nil
	}
	// case p.opTick == 5:
	p.ram.Write(p.opAddr, p.opVal)
	return true, nil
}

// addrAbsoluteX implements absolute,X mode - a,x.
func (p *Chip) addrAbsoluteX(mode instructionMode) (bool, error) {
	return p.addrAbsoluteXY(mode, p.X)
}

// addrAbsoluteY implements absolute,Y mode - a,y.
func (p *Chip) addrAbsoluteY(mode instructionMode) (bool, error) {
	return p.addrAbsoluteXY(mode, p.Y)
}

// addrAbsoluteXY is the shared implementation behind addrAbsoluteX/addrAbsoluteY.
// Store and RMW instructions always take the fix-up tick (a store must
// always re-address even without a page cross); loads skip it unless the
// low-byte add actually carried.
func (p *Chip) addrAbsoluteXY(mode instructionMode, reg uint8) (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 6:
		return true, InvalidCPUState{fmt.Sprintf("addrAbsoluteXY invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		p.opAddr = 0x00FF & uint16(p.opVal)
		p.PC++
		return false, nil
	case p.opTick == 3:
		p.opVal = p.ram.Read(p.PC)
		p.PC++
		p.opAddr |= uint16(p.opVal) << 8
		a := (p.opAddr & 0xFF00) + uint16(uint8(p.opAddr&0x00FF)+reg)
		p.opVal = 0
		if a != p.opAddr+uint16(reg) {
			p.opVal = 1
		}
		p.opAddr = a
		return false, nil
	case p.opTick == 4:
		crossed := p.opVal
		p.opVal = p.ram.Read(p.opAddr)
		done := true
		if crossed != 0 {
			p.opAddr += 0x0100
			if mode == loadInstructionMode {
				done = false
			}
		}
		if mode == rmwInstructionMode {
			done = false
		}
		return done, nil
	case p.opTick == 5:
		p.opVal = p.ram.Read(p.opAddr)
		return mode != rmwInstructionMode, nil
	}
	// case p.opTick == 6:
	p.ram.Write(p.opAddr, p.opVal)
	return true, nil
}
