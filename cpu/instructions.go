package cpu

import "fmt"

// processOpcode dispatches the current opcode (p.op) to its instruction
// implementation. Only the 151 documented 6502/65C02 opcodes are decoded;
// any other byte is a DecodeError, which Tick turns into a sticky
// HaltOpcode. Cycle counts and behaviour per
// http://obelisk.me.uk/6502/reference.html and the NMOS/CMOS deltas in
// the variant dispatch table.
func (p *Chip) processOpcode() (bool, error) {
	switch p.op {
	case 0x00: // BRK
		return p.iBRK()
	case 0x01: // ORA (d,x)
		return p.loadInstruction(p.addrIndirectX, p.iORA)
	case 0x05: // ORA d
		return p.loadInstruction(p.addrZP, p.iORA)
	case 0x06: // ASL d
		return p.rmwInstruction(p.addrZP, p.iASL)
	case 0x08: // PHP
		return p.iPHP()
	case 0x09: // ORA #i
		return p.loadInstruction(p.addrImmediate, p.iORA)
	case 0x0A: // ASL
		return p.iASLAcc()
	case 0x0D: // ORA a
		return p.loadInstruction(p.addrAbsolute, p.iORA)
	case 0x0E: // ASL a
		return p.rmwInstruction(p.addrAbsolute, p.iASL)
	case 0x10: // BPL *+r
		return p.iBPL()
	case 0x11: // ORA (d),y
		return p.loadInstruction(p.addrIndirectY, p.iORA)
	case 0x15: // ORA d,x
		return p.loadInstruction(p.addrZPX, p.iORA)
	case 0x16: // ASL d,x
		return p.rmwInstruction(p.addrZPX, p.iASL)
	case 0x18: // CLC
		return p.iCLC()
	case 0x19: // ORA a,y
		return p.loadInstruction(p.addrAbsoluteY, p.iORA)
	case 0x1D: // ORA a,x
		return p.loadInstruction(p.addrAbsoluteX, p.iORA)
	case 0x1E: // ASL a,x
		return p.rmwInstruction(p.addrAbsoluteX, p.iASL)
	case 0x20: // JSR a
		return p.iJSR()
	case 0x21: // AND (d,x)
		return p.loadInstruction(p.addrIndirectX, p.iAND)
	case 0x24: // BIT d
		return p.loadInstruction(p.addrZP, p.iBIT)
	case 0x25: // AND d
		return p.loadInstruction(p.addrZP, p.iAND)
	case 0x26: // ROL d
		return p.rmwInstruction(p.addrZP, p.iROL)
	case 0x28: // PLP
		return p.iPLP()
	case 0x29: // AND #i
		return p.loadInstruction(p.addrImmediate, p.iAND)
	case 0x2A: // ROL
		return p.iROLAcc()
	case 0x2C: // BIT a
		return p.loadInstruction(p.addrAbsolute, p.iBIT)
	case 0x2D: // AND a
		return p.loadInstruction(p.addrAbsolute, p.iAND)
	case 0x2E: // ROL a
		return p.rmwInstruction(p.addrAbsolute, p.iROL)
	case 0x30: // BMI *+r
		return p.iBMI()
	case 0x31: // AND (d),y
		return p.loadInstruction(p.addrIndirectY, p.iAND)
	case 0x35: // AND d,x
		return p.loadInstruction(p.addrZPX, p.iAND)
	case 0x36: // ROL d,x
		return p.rmwInstruction(p.addrZPX, p.iROL)
	case 0x38: // SEC
		return p.iSEC()
	case 0x39: // AND a,y
		return p.loadInstruction(p.addrAbsoluteY, p.iAND)
	case 0x3D: // AND a,x
		return p.loadInstruction(p.addrAbsoluteX, p.iAND)
	case 0x3E: // ROL a,x
		return p.rmwInstruction(p.addrAbsoluteX, p.iROL)
	case 0x40: // RTI
		return p.iRTI()
	case 0x41: // EOR (d,x)
		return p.loadInstruction(p.addrIndirectX, p.iEOR)
	case 0x45: // EOR d
		return p.loadInstruction(p.addrZP, p.iEOR)
	case 0x46: // LSR d
		return p.rmwInstruction(p.addrZP, p.iLSR)
	case 0x48: // PHA
		return p.iPHA()
	case 0x49: // EOR #i
		return p.loadInstruction(p.addrImmediate, p.iEOR)
	case 0x4A: // LSR
		return p.iLSRAcc()
	case 0x4C: // JMP a
		return p.iJMP()
	case 0x4D: // EOR a
		return p.loadInstruction(p.addrAbsolute, p.iEOR)
	case 0x4E: // LSR a
		return p.rmwInstruction(p.addrAbsolute, p.iLSR)
	case 0x50: // BVC *+r
		return p.iBVC()
	case 0x51: // EOR (d),y
		return p.loadInstruction(p.addrIndirectY, p.iEOR)
	case 0x55: // EOR d,x
		return p.loadInstruction(p.addrZPX, p.iEOR)
	case 0x56: // LSR d,x
		return p.rmwInstruction(p.addrZPX, p.iLSR)
	case 0x58: // CLI
		return p.iCLI()
	case 0x59: // EOR a,y
		return p.loadInstruction(p.addrAbsoluteY, p.iEOR)
	case 0x5D: // EOR a,x
		return p.loadInstruction(p.addrAbsoluteX, p.iEOR)
	case 0x5E: // LSR a,x
		return p.rmwInstruction(p.addrAbsoluteX, p.iLSR)
	case 0x60: // RTS
		return p.iRTS()
	case 0x61: // ADC (d,x)
		return p.loadInstruction(p.addrIndirectX, p.iADC)
	case 0x65: // ADC d
		return p.loadInstruction(p.addrZP, p.iADC)
	case 0x66: // ROR d
		return p.rmwInstruction(p.addrZP, p.iROR)
	case 0x68: // PLA
		return p.iPLA()
	case 0x69: // ADC #i
		return p.loadInstruction(p.addrImmediate, p.iADC)
	case 0x6A: // ROR
		return p.iRORAcc()
	case 0x6C: // JMP (a)
		return p.iJMPIndirect()
	case 0x6D: // ADC a
		return p.loadInstruction(p.addrAbsolute, p.iADC)
	case 0x6E: // ROR a
		return p.rmwInstruction(p.addrAbsolute, p.iROR)
	case 0x70: // BVS *+r
		return p.iBVS()
	case 0x71: // ADC (d),y
		return p.loadInstruction(p.addrIndirectY, p.iADC)
	case 0x75: // ADC d,x
		return p.loadInstruction(p.addrZPX, p.iADC)
	case 0x76: // ROR d,x
		return p.rmwInstruction(p.addrZPX, p.iROR)
	case 0x78: // SEI
		return p.iSEI()
	case 0x79: // ADC a,y
		return p.loadInstruction(p.addrAbsoluteY, p.iADC)
	case 0x7D: // ADC a,x
		return p.loadInstruction(p.addrAbsoluteX, p.iADC)
	case 0x7E: // ROR a,x
		return p.rmwInstruction(p.addrAbsoluteX, p.iROR)
	case 0x81: // STA (d,x)
		return p.storeInstruction(p.addrIndirectX, p.A)
	case 0x84: // STY d
		return p.storeInstruction(p.addrZP, p.Y)
	case 0x85: // STA d
		return p.storeInstruction(p.addrZP, p.A)
	case 0x86: // STX d
		return p.storeInstruction(p.addrZP, p.X)
	case 0x88: // DEY
		return p.loadRegister(&p.Y, p.Y-1)
	case 0x8A: // TXA
		return p.loadRegister(&p.A, p.X)
	case 0x8C: // STY a
		return p.storeInstruction(p.addrAbsolute, p.Y)
	case 0x8D: // STA a
		return p.storeInstruction(p.addrAbsolute, p.A)
	case 0x8E: // STX a
		return p.storeInstruction(p.addrAbsolute, p.X)
	case 0x90: // BCC *+d
		return p.iBCC()
	case 0x91: // STA (d),y
		return p.storeInstruction(p.addrIndirectY, p.A)
	case 0x94: // STY d,x
		return p.storeInstruction(p.addrZPX, p.Y)
	case 0x95: // STA d,x
		return p.storeInstruction(p.addrZPX, p.A)
	case 0x96: // STX d,y
		return p.storeInstruction(p.addrZPY, p.X)
	case 0x98: // TYA
		return p.loadRegister(&p.A, p.Y)
	case 0x99: // STA a,y
		return p.storeInstruction(p.addrAbsoluteY, p.A)
	case 0x9A: // TXS (no flags affected)
		p.S = p.X
		return true, nil
	case 0x9D: // STA a,x
		return p.storeInstruction(p.addrAbsoluteX, p.A)
	case 0xA0: // LDY #i
		return p.loadInstruction(p.addrImmediate, p.loadRegisterY)
	case 0xA1: // LDA (d,x)
		return p.loadInstruction(p.addrIndirectX, p.loadRegisterA)
	case 0xA2: // LDX #i
		return p.loadInstruction(p.addrImmediate, p.loadRegisterX)
	case 0xA4: // LDY d
		return p.loadInstruction(p.addrZP, p.loadRegisterY)
	case 0xA5: // LDA d
		return p.loadInstruction(p.addrZP, p.loadRegisterA)
	case 0xA6: // LDX d
		return p.loadInstruction(p.addrZP, p.loadRegisterX)
	case 0xA8: // TAY
		return p.loadRegister(&p.Y, p.A)
	case 0xA9: // LDA #i
		return p.loadInstruction(p.addrImmediate, p.loadRegisterA)
	case 0xAA: // TAX
		return p.loadRegister(&p.X, p.A)
	case 0xAC: // LDY a
		return p.loadInstruction(p.addrAbsolute, p.loadRegisterY)
	case 0xAD: // LDA a
		return p.loadInstruction(p.addrAbsolute, p.loadRegisterA)
	case 0xAE: // LDX a
		return p.loadInstruction(p.addrAbsolute, p.loadRegisterX)
	case 0xB0: // BCS *+d
		return p.iBCS()
	case 0xB1: // LDA (d),y
		return p.loadInstruction(p.addrIndirectY, p.loadRegisterA)
	case 0xB4: // LDY d,x
		return p.loadInstruction(p.addrZPX, p.loadRegisterY)
	case 0xB5: // LDA d,x
		return p.loadInstruction(p.addrZPX, p.loadRegisterA)
	case 0xB6: // LDX d,y
		return p.loadInstruction(p.addrZPY, p.loadRegisterX)
	case 0xB8: // CLV
		return p.iCLV()
	case 0xB9: // LDA a,y
		return p.loadInstruction(p.addrAbsoluteY, p.loadRegisterA)
	case 0xBA: // TSX
		return p.loadRegister(&p.X, p.S)
	case 0xBC: // LDY a,x
		return p.loadInstruction(p.addrAbsoluteX, p.loadRegisterY)
	case 0xBD: // LDA a,x
		return p.loadInstruction(p.addrAbsoluteX, p.loadRegisterA)
	case 0xBE: // LDX a,y
		return p.loadInstruction(p.addrAbsoluteY, p.loadRegisterX)
	case 0xC0: // CPY #i
		return p.loadInstruction(p.addrImmediate, p.compareY)
	case 0xC1: // CMP (d,x)
		return p.loadInstruction(p.addrIndirectX, p.compareA)
	case 0xC4: // CPY d
		return p.loadInstruction(p.addrZP, p.compareY)
	case 0xC5: // CMP d
		return p.loadInstruction(p.addrZP, p.compareA)
	case 0xC6: // DEC d
		return p.rmwInstruction(p.addrZP, p.iDEC)
	case 0xC8: // INY
		return p.loadRegister(&p.Y, p.Y+1)
	case 0xC9: // CMP #i
		return p.loadInstruction(p.addrImmediate, p.compareA)
	case 0xCA: // DEX
		return p.loadRegister(&p.X, p.X-1)
	case 0xCC: // CPY a
		return p.loadInstruction(p.addrAbsolute, p.compareY)
	case 0xCD: // CMP a
		return p.loadInstruction(p.addrAbsolute, p.compareA)
	case 0xCE: // DEC a
		return p.rmwInstruction(p.addrAbsolute, p.iDEC)
	case 0xD0: // BNE *+r
		return p.iBNE()
	case 0xD1: // CMP (d),y
		return p.loadInstruction(p.addrIndirectY, p.compareA)
	case 0xD5: // CMP d,x
		return p.loadInstruction(p.addrZPX, p.compareA)
	case 0xD6: // DEC d,x
		return p.rmwInstruction(p.addrZPX, p.iDEC)
	case 0xD8: // CLD
		return p.iCLD()
	case 0xD9: // CMP a,y
		return p.loadInstruction(p.addrAbsoluteY, p.compareA)
	case 0xDD: // CMP a,x
		return p.loadInstruction(p.addrAbsoluteX, p.compareA)
	case 0xDE: // DEC a,x
		return p.rmwInstruction(p.addrAbsoluteX, p.iDEC)
	case 0xE0: // CPX #i
		return p.loadInstruction(p.addrImmediate, p.compareX)
	case 0xE1: // SBC (d,x)
		return p.loadInstruction(p.addrIndirectX, p.iSBC)
	case 0xE4: // CPX d
		return p.loadInstruction(p.addrZP, p.compareX)
	case 0xE5: // SBC d
		return p.loadInstruction(p.addrZP, p.iSBC)
	case 0xE6: // INC d
		return p.rmwInstruction(p.addrZP, p.iINC)
	case 0xE8: // INX
		return p.loadRegister(&p.X, p.X+1)
	case 0xE9: // SBC #i
		return p.loadInstruction(p.addrImmediate, p.iSBC)
	case 0xEA: // NOP
		return true, nil
	case 0xEC: // CPX a
		return p.loadInstruction(p.addrAbsolute, p.compareX)
	case 0xED: // SBC a
		return p.loadInstruction(p.addrAbsolute, p.iSBC)
	case 0xEE: // INC a
		return p.rmwInstruction(p.addrAbsolute, p.iINC)
	case 0xF0: // BEQ *+d
		return p.iBEQ()
	case 0xF1: // SBC (d),y
		return p.loadInstruction(p.addrIndirectY, p.iSBC)
	case 0xF5: // SBC d,x
		return p.loadInstruction(p.addrZPX, p.iSBC)
	case 0xF6: // INC d,x
		return p.rmwInstruction(p.addrZPX, p.iINC)
	case 0xF8: // SED
		return p.iSED()
	case 0xF9: // SBC a,y
		return p.loadInstruction(p.addrAbsoluteY, p.iSBC)
	case 0xFD: // SBC a,x
		return p.loadInstruction(p.addrAbsoluteX, p.iSBC)
	case 0xFE: // INC a,x
		return p.rmwInstruction(p.addrAbsoluteX, p.iINC)
	}
	return true, DecodeError{p.op}
}

// loadRegister stores val into reg and updates N/Z from the new value.
func (p *Chip) loadRegister(reg *uint8, val uint8) (bool, error) {
	*reg = val
	p.zeroCheck(*reg)
	p.negativeCheck(*reg)
	return true, nil
}

func (p *Chip) loadRegisterA() (bool, error) { return p.loadRegister(&p.A, p.opVal) }
func (p *Chip) loadRegisterX() (bool, error) { return p.loadRegister(&p.X, p.opVal) }
func (p *Chip) loadRegisterY() (bool, error) { return p.loadRegister(&p.Y, p.opVal) }

// pushStack writes val to the stack page and decrements S.
func (p *Chip) pushStack(val uint8) {
	p.ram.Write(0x0100+uint16(p.S), val)
	p.S--
}

// popStack increments S and reads from the stack page.
func (p *Chip) popStack() uint8 {
	p.S++
	return p.ram.Read(0x0100 + uint16(p.S))
}

// branchNOP consumes the branch-offset byte without branching.
func (p *Chip) branchNOP() (bool, error) {
	if p.opTick <= 1 || p.opTick > 3 {
		return true, InvalidCPUState{fmt.Sprintf("branchNOP invalid opTick %d", p.opTick)}
	}
	p.PC++
	return true, nil
}

// performBranch applies the signed offset in p.opVal to PC, adding the
// page-cross fix-up tick only when needed.
func (p *Chip) performBranch() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 4:
		return true, InvalidCPUState{fmt.Sprintf("performBranch invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		p.PC++
		return false, nil
	case p.opTick == 3:
		// A taken branch skips interrupt processing for one instruction,
		// same pipelining quirk as any other instruction, unless the
		// previous instruction already ate that skip.
		if !p.prevSkipInterrupt {
			p.skipInterrupt = true
		}
		p.opAddr = p.PC
		p.PC = (p.PC & 0xFF00) + uint16(uint8(p.PC&0x00FF)+p.opVal)
		_ = p.ram.Read(p.PC)
		if p.PC == p.opAddr+uint16(int16(int8(p.opVal))) {
			return true, nil
		}
		return false, nil
	}
	// case p.opTick == 4:
	p.PC = p.opAddr + uint16(int16(int8(p.opVal)))
	_ = p.ram.Read(p.PC)
	return true, nil
}

// runInterrupt drives the shared BRK/IRQ/NMI entry sequence: push PC.hi,
// PC.lo, P (with B set unless this is a true IRQ/NMI), then load PC from
// addr/addr+1.
func (p *Chip) runInterrupt(addr uint16, irqEntry bool) (bool, error) {
	switch {
	case p.opTick < 1 || p.opTick > 7:
		return true, InvalidCPUState{fmt.Sprintf("runInterrupt invalid opTick: %d", p.opTick)}
	case p.opTick == 2:
		if !irqEntry {
			p.PC++
		}
		return false, nil
	case p.opTick == 3:
		p.pushStack(uint8((p.PC & 0xFF00) >> 8))
		return false, nil
	case p.opTick == 4:
		p.pushStack(uint8(p.PC & 0xFF))
		return false, nil
	case p.opTick == 5:
		push := p.P | PS1 | PBreak
		if irqEntry {
			push &^= PBreak
		}
		if p.variant == CMOS {
			p.P &^= PDecimal
		}
		p.P |= PInterrupt
		p.pushStack(push)
		return false, nil
	case p.opTick == 6:
		p.opVal = p.ram.Read(addr)
		return false, nil
	}
	// case p.opTick == 7:
	p.PC = (uint16(p.ram.Read(addr+1)) << 8) + uint16(p.opVal)
	if irqEntry && !p.prevSkipInterrupt {
		p.skipInterrupt = true
	}
	return true, nil
}

// iADC implements ADC. SBC reuses this circuit by one's-complementing
// p.opVal first. On NMOS (not Ricoh), decimal mode computes the correct
// sum/carry/overflow but leaves N/Z derived from the binary intermediate —
// that's what the real part does. CMOS fixes up N/Z too, and burns one
// extra cycle doing it, which iADC/iSBC spend via decimalExtra before any
// of the arithmetic below runs.
func (p *Chip) iADC() (bool, error) {
	if p.variant == CMOS && p.P&PDecimal != 0x00 {
		if !p.decimalExtra {
			p.decimalExtra = true
			return false, nil
		}
		p.decimalExtra = false
	}

	carry := p.P & PCarry

	if p.P&PDecimal != 0x00 && p.variant != NMOSRicoh {
		aL := (p.A & 0x0F) + (p.opVal & 0x0F) + carry
		if aL >= 0x0A {
			aL = ((aL + 0x06) & 0x0F) + 0x10
		}
		sum := uint16(p.A&0xF0) + uint16(p.opVal&0xF0) + uint16(aL)
		if sum >= 0xA0 {
			sum += 0x60
		}
		res := uint8(sum & 0xFF)
		seq := (p.A & 0xF0) + (p.opVal & 0xF0) + aL
		bin := p.A + p.opVal + carry
		p.overflowCheck(p.A, p.opVal, seq)
		p.carryCheck(sum)
		p.negativeCheck(seq)
		p.zeroCheck(bin)
		if p.variant == CMOS {
			p.negativeCheck(res)
			p.zeroCheck(res)
		}
		p.A = res
		return true, nil
	}

	sum := p.A + p.opVal + carry
	p.overflowCheck(p.A, p.opVal, sum)
	p.carryCheck(uint16(p.A) + uint16(p.opVal) + uint16(carry))
	return p.loadRegister(&p.A, sum)
}

// iSBC implements SBC for both binary and BCD modes.
func (p *Chip) iSBC() (bool, error) {
	if p.P&PDecimal != 0x00 && p.variant != NMOSRicoh {
		if p.variant == CMOS {
			if !p.decimalExtra {
				p.decimalExtra = true
				return false, nil
			}
			p.decimalExtra = false
		}

		carry := p.P & PCarry

		aL := int8(p.A&0x0F) - int8(p.opVal&0x0F) + int8(carry) - 1
		if aL < 0 {
			aL = ((aL - 0x06) & 0x0F) - 0x10
		}
		sum := int16(p.A&0xF0) - int16(p.opVal&0xF0) + int16(aL)
		if sum < 0x0000 {
			sum -= 0x60
		}
		res := uint8(sum & 0xFF)

		b := p.A + ^p.opVal + carry
		p.overflowCheck(p.A, ^p.opVal, b)
		p.negativeCheck(b)
		p.carryCheck(uint16(p.A) + uint16(^p.opVal) + uint16(carry))
		p.zeroCheck(b)
		if p.variant == CMOS {
			p.negativeCheck(res)
			p.zeroCheck(res)
		}
		p.A = res
		return true, nil
	}

	p.opVal = ^p.opVal
	return p.iADC()
}

func (p *Chip) iASLAcc() (bool, error) {
	p.carryCheck(uint16(p.A) << 1)
	return p.loadRegister(&p.A, p.A<<1)
}

func (p *Chip) iASL() (bool, error) {
	newVal := p.opVal << 1
	p.ram.Write(p.opAddr, newVal)
	p.carryCheck(uint16(p.opVal) << 1)
	p.zeroCheck(newVal)
	p.negativeCheck(newVal)
	return true, nil
}

func (p *Chip) iBCC() (bool, error) {
	if p.P&PCarry == 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

func (p *Chip) iBCS() (bool, error) {
	if p.P&PCarry != 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

func (p *Chip) iBEQ() (bool, error) {
	if p.P&PZero != 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

// iBIT sets Z from A&M, and N/V directly from M's bit7/bit6.
func (p *Chip) iBIT() (bool, error) {
	p.zeroCheck(p.A & p.opVal)
	p.negativeCheck(p.opVal)
	p.P &^= POverflow
	if p.opVal&POverflow != 0x00 {
		p.P |= POverflow
	}
	return true, nil
}

func (p *Chip) iBMI() (bool, error) {
	if p.P&PNegative != 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

func (p *Chip) iBNE() (bool, error) {
	if p.P&PZero == 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

func (p *Chip) iBPL() (bool, error) {
	if p.P&PNegative == 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

// iBRK runs the shared interrupt-entry sequence, vectoring to the NMI
// vector instead if one arrived in the meantime, and always eats any
// pending interrupt once done since BRK already serviced one.
func (p *Chip) iBRK() (bool, error) {
	vec := IRQVector
	if p.irqRaised == irqNMI {
		vec = NMIVector
	}
	servicingLine := p.irqRaised != irqNone
	done, err := p.runInterrupt(vec, servicingLine)
	if done {
		p.irqRaised = irqNone
	}
	return done, err
}

func (p *Chip) iBVC() (bool, error) {
	if p.P&POverflow == 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

func (p *Chip) iBVS() (bool, error) {
	if p.P&POverflow != 0x00 {
		return p.performBranch()
	}
	return p.branchNOP()
}

// compare implements CMP/CPX/CPY: reg - val, with C set on reg >= val (unsigned).
func (p *Chip) compare(reg, val uint8) (bool, error) {
	p.zeroCheck(reg - val)
	p.negativeCheck(reg - val)
	p.carryCheck(uint16(reg) + uint16(^val) + uint16(1))
	return true, nil
}

func (p *Chip) compareA() (bool, error) { return p.compare(p.A, p.opVal) }
func (p *Chip) compareX() (bool, error) { return p.compare(p.X, p.opVal) }
func (p *Chip) compareY() (bool, error) { return p.compare(p.Y, p.opVal) }

// iJMP implements JMP absolute. Not built from the load/rmw/store
// combinators since it only ever sets PC, never a register or memory.
func (p *Chip) iJMP() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 3:
		return true, InvalidCPUState{fmt.Sprintf("JMP invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		p.PC++
		return false, nil
	}
	// case p.opTick == 3:
	hi := p.ram.Read(p.PC)
	p.opAddr = (uint16(hi) << 8) + uint16(p.opVal)
	p.PC = p.opAddr
	return true, nil
}

// iJMPIndirect implements JMP indirect. On NMOS the pointer's high-byte
// fetch wraps within the pointer's own page (the classic page-wrap bug);
// on CMOS it reads across the page boundary correctly, at the cost of one
// extra cycle.
func (p *Chip) iJMPIndirect() (bool, error) {
	if p.opTick < 4 {
		return p.addrAbsolute(loadInstructionMode)
	}
	switch {
	case (p.variant != CMOS && p.opTick > 5) || p.opTick > 6:
		return true, InvalidCPUState{fmt.Sprintf("iJMPIndirect invalid opTick: %d", p.opTick)}
	case p.opTick == 4:
		p.opVal = p.ram.Read(p.opAddr)
		return false, nil
	case p.opTick == 5:
		wrapped := (p.opAddr & 0xFF00) + uint16(uint8(p.opAddr&0xFF)+1)
		if p.variant == CMOS {
			// CMOS spends the extra cycle fixing the pointer up properly
			// instead of reading the wrapped (buggy) address.
			p.opAddr++
			return false, nil
		}
		hi := p.ram.Read(wrapped)
		p.opAddr = (uint16(hi) << 8) + uint16(p.opVal)
		p.PC = p.opAddr
		return true, nil
	}
	// case p.opTick == 6 (CMOS only):
	hi := p.ram.Read(p.opAddr)
	p.opAddr = (uint16(hi) << 8) + uint16(p.opVal)
	p.PC = p.opAddr
	return true, nil
}

// iJSR pushes PC-1 (pointing at the last byte of the JSR instruction) and
// jumps to the target address.
func (p *Chip) iJSR() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 6:
		return true, InvalidCPUState{fmt.Sprintf("JSR invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		p.PC++
		return false, nil
	case p.opTick == 3:
		// A real bus cycle happens here (reading the current stack value)
		// purely to make S's timing line up; the read result is unused.
		p.S--
		_ = p.popStack()
		return false, nil
	case p.opTick == 4:
		p.pushStack(uint8((p.PC & 0xFF00) >> 8))
		return false, nil
	case p.opTick == 5:
		p.pushStack(uint8(p.PC & 0xFF))
		return false, nil
	}
	// case p.opTick == 6:
	hi := p.ram.Read(p.PC)
	p.PC = (uint16(hi) << 8) + uint16(p.opVal)
	return true, nil
}

func (p *Chip) iLSRAcc() (bool, error) {
	p.carryCheck(uint16(p.A&0x01) << 8)
	return p.loadRegister(&p.A, p.A>>1)
}

func (p *Chip) iLSR() (bool, error) {
	newVal := p.opVal >> 1
	p.ram.Write(p.opAddr, newVal)
	p.carryCheck(uint16(p.opVal&0x01) << 8)
	p.zeroCheck(newVal)
	p.negativeCheck(newVal)
	return true, nil
}

func (p *Chip) iPHA() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 3:
		return true, InvalidCPUState{fmt.Sprintf("PHA invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		return false, nil
	}
	// case p.opTick == 3:
	p.pushStack(p.A)
	return true, nil
}

func (p *Chip) iPLA() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 4:
		return true, InvalidCPUState{fmt.Sprintf("PLA invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		return false, nil
	case p.opTick == 3:
		p.S--
		_ = p.popStack()
		return false, nil
	}
	// case p.opTick == 4:
	return p.loadRegister(&p.A, p.popStack())
}

func (p *Chip) iPHP() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 3:
		return true, InvalidCPUState{fmt.Sprintf("PHP invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		return false, nil
	}
	// case p.opTick == 3:
	p.pushStack(p.P | PS1 | PBreak)
	return true, nil
}

func (p *Chip) iPLP() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 4:
		return true, InvalidCPUState{fmt.Sprintf("PLP invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		return false, nil
	case p.opTick == 3:
		p.S--
		_ = p.popStack()
		return false, nil
	}
	// case p.opTick == 4:
	p.P = p.popStack()
	p.P |= PS1
	p.P &^= PBreak
	return true, nil
}

func (p *Chip) iROLAcc() (bool, error) {
	carry := p.P & PCarry
	p.carryCheck(uint16(p.A) << 1)
	return p.loadRegister(&p.A, (p.A<<1)|carry)
}

func (p *Chip) iROL() (bool, error) {
	carry := p.P & PCarry
	newVal := (p.opVal << 1) | carry
	p.ram.Write(p.opAddr, newVal)
	p.carryCheck(uint16(p.opVal) << 1)
	p.zeroCheck(newVal)
	p.negativeCheck(newVal)
	return true, nil
}

func (p *Chip) iRORAcc() (bool, error) {
	carry := (p.P & PCarry) << 7
	p.carryCheck((uint16(p.A) << 8) & 0x0100)
	return p.loadRegister(&p.A, (p.A>>1)|carry)
}

func (p *Chip) iROR() (bool, error) {
	carry := (p.P & PCarry) << 7
	newVal := (p.opVal >> 1) | carry
	p.ram.Write(p.opAddr, newVal)
	p.carryCheck((uint16(p.opVal) << 8) & 0x0100)
	p.zeroCheck(newVal)
	p.negativeCheck(newVal)
	return true, nil
}

// iRTI pops P then PC; unlike RTS, the popped PC is used as-is.
func (p *Chip) iRTI() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 6:
		return true, InvalidCPUState{fmt.Sprintf("RTI invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		return false, nil
	case p.opTick == 3:
		p.S--
		_ = p.popStack()
		return false, nil
	case p.opTick == 4:
		p.P = p.popStack()
		p.P |= PS1
		p.P &^= PBreak
		return false, nil
	case p.opTick == 5:
		p.opVal = p.popStack()
		return false, nil
	}
	// case p.opTick == 6:
	p.PC = (uint16(p.popStack()) << 8) + uint16(p.opVal)
	return true, nil
}

// iRTS pops PC and adds one, undoing JSR's PC-1 push.
func (p *Chip) iRTS() (bool, error) {
	switch {
	case p.opTick <= 1 || p.opTick > 6:
		return true, InvalidCPUState{fmt.Sprintf("RTS invalid opTick %d", p.opTick)}
	case p.opTick == 2:
		return false, nil
	case p.opTick == 3:
		p.S--
		_ = p.popStack()
		return false, nil
	case p.opTick == 4:
		p.opVal = p.popStack()
		return false, nil
	case p.opTick == 5:
		p.PC = (uint16(p.popStack()) << 8) + uint16(p.opVal)
		return false, nil
	}
	// case p.opTick == 6:
	_ = p.ram.Read(p.PC)
	p.PC++
	return true, nil
}

// store writes val to addr. The single tick every STA/STX/STY eventually
// reaches via storeInstruction.
func (p *Chip) store(val uint8, addr uint16) (bool, error) {
	p.ram.Write(addr, val)
	return true, nil
}

// storeWithFlags is store plus N/Z, used by INC/DEC on memory.
func (p *Chip) storeWithFlags(val uint8, addr uint16) (bool, error) {
	p.zeroCheck(val)
	p.negativeCheck(val)
	return p.store(val, addr)
}

func (p *Chip) iCLV() (bool, error) { p.P &^= POverflow; return true, nil }
func (p *Chip) iCLD() (bool, error) { p.P &^= PDecimal; return true, nil }
func (p *Chip) iCLC() (bool, error) { p.P &^= PCarry; return true, nil }
func (p *Chip) iCLI() (bool, error) { p.P &^= PInterrupt; return true, nil }
func (p *Chip) iSED() (bool, error) { p.P |= PDecimal; return true, nil }
func (p *Chip) iSEC() (bool, error) { p.P |= PCarry; return true, nil }
func (p *Chip) iSEI() (bool, error) { p.P |= PInterrupt; return true, nil }

func (p *Chip) iORA() (bool, error) { return p.loadRegister(&p.A, p.A|p.opVal) }
func (p *Chip) iAND() (bool, error) { return p.loadRegister(&p.A, p.A&p.opVal) }
func (p *Chip) iEOR() (bool, error) { return p.loadRegister(&p.A, p.A^p.opVal) }

func (p *Chip) iDEC() (bool, error) { return p.storeWithFlags(p.opVal-1, p.opAddr) }
func (p *Chip) iINC() (bool, error) { return p.storeWithFlags(p.opVal+1, p.opAddr) }

// loadInstruction abstracts LDA/ADC/AND/ORA/EOR/CMP/BIT/.../all the
// read-then-compute opcodes: drive the addressing task to completion, then
// invoke opFunc on the same tick it finishes.
func (p *Chip) loadInstruction(addrFunc func(instructionMode) (bool, error), opFunc func() (bool, error)) (bool, error) {
	var err error
	if !p.addrDone {
		p.addrDone, err = addrFunc(loadInstructionMode)
	}
	if err != nil {
		return true, err
	}
	if p.addrDone {
		return opFunc()
	}
	return false, nil
}

// rmwInstruction abstracts INC/DEC/ASL/LSR/ROL/ROR on memory: the
// addressing task itself performs the dummy write-back tick, so once it
// reports done the only thing left is opFunc's real write.
func (p *Chip) rmwInstruction(addrFunc func(instructionMode) (bool, error), opFunc func() (bool, error)) (bool, error) {
	var err error
	if !p.addrDone {
		p.addrDone, err = addrFunc(rmwInstructionMode)
		return false, err
	}
	return opFunc()
}

// storeInstruction abstracts STA/STX/STY: drive addressing to completion,
// then write val on the following tick.
func (p *Chip) storeInstruction(addrFunc func(instructionMode) (bool, error), val uint8) (bool, error) {
	var err error
	if !p.addrDone {
		p.addrDone, err = addrFunc(storeInstructionMode)
		return false, err
	}
	return p.store(val, p.opAddr)
}
