// Package disassemble renders a single 65xx instruction as a short trace
// line. It only covers the 151 documented opcodes this module's cpu
// package executes; anything else renders as "???" rather than guessing
// at undocumented behaviour.
package disassemble

import (
	"fmt"

	"github.com/kheston/mos6502/memory"
)

const (
	modeImmediate = iota
	modeZP
	modeZPX
	modeZPY
	modeIndirectX
	modeIndirectY
	modeAbsolute
	modeAbsoluteX
	modeAbsoluteY
	modeIndirect
	modeImplied
	modeRelative
)

// Step disassembles the instruction at pc and returns its trace-line
// operand rendering plus the number of bytes it occupies (for advancing
// past it without interpreting control flow). Always reads at least one
// byte past pc, so pc+1 must be a valid address.
func Step(pc uint16, r memory.Ram) (string, int) {
	pc1 := r.Read(pc + 1)
	pc116 := uint16(int16(int8(pc1)))
	pc2 := r.Read(pc + 2)

	var op string
	mode := modeImplied
	o := r.Read(pc)
	switch o {
	case 0x00:
		op, mode = "BRK", modeImmediate // The byte after BRK is read and skipped.
	case 0x01:
		op, mode = "ORA", modeIndirectX
	case 0x05:
		op, mode = "ORA", modeZP
	case 0x06:
		op, mode = "ASL", modeZP
	case 0x08:
		op = "PHP"
	case 0x09:
		op, mode = "ORA", modeImmediate
	case 0x0A:
		op = "ASL"
	case 0x0D:
		op, mode = "ORA", modeAbsolute
	case 0x0E:
		op, mode = "ASL", modeAbsolute
	case 0x10:
		op, mode = "BPL", modeRelative
	case 0x11:
		op, mode = "ORA", modeIndirectY
	case 0x15:
		op, mode = "ORA", modeZPX
	case 0x16:
		op, mode = "ASL", modeZPX
	case 0x18:
		op = "CLC"
	case 0x19:
		op, mode = "ORA", modeAbsoluteY
	case 0x1D:
		op, mode = "ORA", modeAbsoluteX
	case 0x1E:
		op, mode = "ASL", modeAbsoluteX
	case 0x20:
		op, mode = "JSR", modeAbsolute
	case 0x21:
		op, mode = "AND", modeIndirectX
	case 0x24:
		op, mode = "BIT", modeZP
	case 0x25:
		op, mode = "AND", modeZP
	case 0x26:
		op, mode = "ROL", modeZP
	case 0x28:
		op = "PLP"
	case 0x29:
		op, mode = "AND", modeImmediate
	case 0x2A:
		op = "ROL"
	case 0x2C:
		op, mode = "BIT", modeAbsolute
	case 0x2D:
		op, mode = "AND", modeAbsolute
	case 0x2E:
		op, mode = "ROL", modeAbsolute
	case 0x30:
		op, mode = "BMI", modeRelative
	case 0x31:
		op, mode = "AND", modeIndirectY
	case 0x35:
		op, mode = "AND", modeZPX
	case 0x36:
		op, mode = "ROL", modeZPX
	case 0x38:
		op = "SEC"
	case 0x39:
		op, mode = "AND", modeAbsoluteY
	case 0x3D:
		op, mode = "AND", modeAbsoluteX
	case 0x3E:
		op, mode = "ROL", modeAbsoluteX
	case 0x40:
		op = "RTI"
	case 0x41:
		op, mode = "EOR", modeIndirectX
	case 0x45:
		op, mode = "EOR", modeZP
	case 0x46:
		op, mode = "LSR", modeZP
	case 0x48:
		op = "PHA"
	case 0x49:
		op, mode = "EOR", modeImmediate
	case 0x4A:
		op = "LSR"
	case 0x4C:
		op, mode = "JMP", modeAbsolute
	case 0x4D:
		op, mode = "EOR", modeAbsolute
	case 0x4E:
		op, mode = "LSR", modeAbsolute
	case 0x50:
		op, mode = "BVC", modeRelative
	case 0x51:
		op, mode = "EOR", modeIndirectY
	case 0x55:
		op, mode = "EOR", modeZPX
	case 0x56:
		op, mode = "LSR", modeZPX
	case 0x58:
		op = "CLI"
	case 0x59:
		op, mode = "EOR", modeAbsoluteY
	case 0x5D:
		op, mode = "EOR", modeAbsoluteX
	case 0x5E:
		op, mode = "LSR", modeAbsoluteX
	case 0x60:
		op = "RTS"
	case 0x61:
		op, mode = "ADC", modeIndirectX
	case 0x65:
		op, mode = "ADC", modeZP
	case 0x66:
		op, mode = "ROR", modeZP
	case 0x68:
		op = "PLA"
	case 0x69:
		op, mode = "ADC", modeImmediate
	case 0x6A:
		op = "ROR"
	case 0x6C:
		op, mode = "JMP", modeIndirect
	case 0x6D:
		op, mode = "ADC", modeAbsolute
	case 0x6E:
		op, mode = "ROR", modeAbsolute
	case 0x70:
		op, mode = "BVS", modeRelative
	case 0x71:
		op, mode = "ADC", modeIndirectY
	case 0x75:
		op, mode = "ADC", modeZPX
	case 0x76:
		op, mode = "ROR", modeZPX
	case 0x78:
		op = "SEI"
	case 0x79:
		op, mode = "ADC", modeAbsoluteY
	case 0x7D:
		op, mode = "ADC", modeAbsoluteX
	case 0x7E:
		op, mode = "ROR", modeAbsoluteX
	case 0x81:
		op, mode = "STA", modeIndirectX
	case 0x84:
		op, mode = "STY", modeZP
	case 0x85:
		op, mode = "STA", modeZP
	case 0x86:
		op, mode = "STX", modeZP
	case 0x88:
		op = "DEY"
	case 0x8A:
		op = "TXA"
	case 0x8C:
		op, mode = "STY", modeAbsolute
	case 0x8D:
		op, mode = "STA", modeAbsolute
	case 0x8E:
		op, mode = "STX", modeAbsolute
	case 0x90:
		op, mode = "BCC", modeRelative
	case 0x91:
		op, mode = "STA", modeIndirectY
	case 0x94:
		op, mode = "STY", modeZPX
	case 0x95:
		op, mode = "STA", modeZPX
	case 0x96:
		op, mode = "STX", modeZPY
	case 0x98:
		op = "TYA"
	case 0x99:
		op, mode = "STA", modeAbsoluteY
	case 0x9A:
		op = "TXS"
	case 0x9D:
		op, mode = "STA", modeAbsoluteX
	case 0xA0:
		op, mode = "LDY", modeImmediate
	case 0xA1:
		op, mode = "LDA", modeIndirectX
	case 0xA2:
		op, mode = "LDX", modeImmediate
	case 0xA4:
		op, mode = "LDY", modeZP
	case 0xA5:
		op, mode = "LDA", modeZP
	case 0xA6:
		op, mode = "LDX", modeZP
	case 0xA8:
		op = "TAY"
	case 0xA9:
		op, mode = "LDA", modeImmediate
	case 0xAA:
		op = "TAX"
	case 0xAC:
		op, mode = "LDY", modeAbsolute
	case 0xAD:
		op, mode = "LDA", modeAbsolute
	case 0xAE:
		op, mode = "LDX", modeAbsolute
	case 0xB0:
		op, mode = "BCS", modeRelative
	case 0xB1:
		op, mode = "LDA", modeIndirectY
	case 0xB4:
		op, mode = "LDY", modeZPX
	case 0xB5:
		op, mode = "LDA", modeZPX
	case 0xB6:
		op, mode = "LDX", modeZPY
	case 0xB8:
		op = "CLV"
	case 0xB9:
		op, mode = "LDA", modeAbsoluteY
	case 0xBA:
		op = "TSX"
	case 0xBC:
		op, mode = "LDY", modeAbsoluteX
	case 0xBD:
		op, mode = "LDA", modeAbsoluteX
	case 0xBE:
		op, mode = "LDX", modeAbsoluteY
	case 0xC0:
		op, mode = "CPY", modeImmediate
	case 0xC1:
		op, mode = "CMP", modeIndirectX
	case 0xC4:
		op, mode = "CPY", modeZP
	case 0xC5:
		op, mode = "CMP", modeZP
	case 0xC6:
		op, mode = "DEC", modeZP
	case 0xC8:
		op = "INY"
	case 0xC9:
		op, mode = "CMP", modeImmediate
	case 0xCA:
		op = "DEX"
	case 0xCC:
		op, mode = "CPY", modeAbsolute
	case 0xCD:
		op, mode = "CMP", modeAbsolute
	case 0xCE:
		op, mode = "DEC", modeAbsolute
	case 0xD0:
		op, mode = "BNE", modeRelative
	case 0xD1:
		op, mode = "CMP", modeIndirectY
	case 0xD5:
		op, mode = "CMP", modeZPX
	case 0xD6:
		op, mode = "DEC", modeZPX
	case 0xD8:
		op = "CLD"
	case 0xD9:
		op, mode = "CMP", modeAbsoluteY
	case 0xDD:
		op, mode = "CMP", modeAbsoluteX
	case 0xDE:
		op, mode = "DEC", modeAbsoluteX
	case 0xE0:
		op, mode = "CPX", modeImmediate
	case 0xE1:
		op, mode = "SBC", modeIndirectX
	case 0xE4:
		op, mode = "CPX", modeZP
	case 0xE5:
		op, mode = "SBC", modeZP
	case 0xE6:
		op, mode = "INC", modeZP
	case 0xE8:
		op = "INX"
	case 0xE9:
		op, mode = "SBC", modeImmediate
	case 0xEA:
		op = "NOP"
	case 0xEC:
		op, mode = "CPX", modeAbsolute
	case 0xED:
		op, mode = "SBC", modeAbsolute
	case 0xEE:
		op, mode = "INC", modeAbsolute
	case 0xF0:
		op, mode = "BEQ", modeRelative
	case 0xF1:
		op, mode = "SBC", modeIndirectY
	case 0xF5:
		op, mode = "SBC", modeZPX
	case 0xF6:
		op, mode = "INC", modeZPX
	case 0xF8:
		op = "SED"
	case 0xF9:
		op, mode = "SBC", modeAbsoluteY
	case 0xFD:
		op, mode = "SBC", modeAbsoluteX
	case 0xFE:
		op, mode = "INC", modeAbsoluteX
	default:
		op = "???"
	}

	count := 2
	out := fmt.Sprintf("%.4X %.2X ", pc, o)
	switch mode {
	case modeImmediate:
		out += fmt.Sprintf("%.2X      %s #%.2X       ", pc1, op, pc1)
	case modeZP:
		out += fmt.Sprintf("%.2X      %s %.2X        ", pc1, op, pc1)
	case modeZPX:
		out += fmt.Sprintf("%.2X      %s %.2X,X      ", pc1, op, pc1)
	case modeZPY:
		out += fmt.Sprintf("%.2X      %s %.2X,Y      ", pc1, op, pc1)
	case modeIndirectX:
		out += fmt.Sprintf("%.2X      %s (%.2X,X)    ", pc1, op, pc1)
	case modeIndirectY:
		out += fmt.Sprintf("%.2X      %s (%.2X),Y    ", pc1, op, pc1)
	case modeAbsolute:
		out += fmt.Sprintf("%.2X %.2X   %s %.2X%.2X      ", pc1, pc2, op, pc2, pc1)
		count++
	case modeAbsoluteX:
		out += fmt.Sprintf("%.2X %.2X   %s %.2X%.2X,X    ", pc1, pc2, op, pc2, pc1)
		count++
	case modeAbsoluteY:
		out += fmt.Sprintf("%.2X %.2X   %s %.2X%.2X,Y    ", pc1, pc2, op, pc2, pc1)
		count++
	case modeIndirect:
		out += fmt.Sprintf("%.2X %.2X   %s (%.2X%.2X)    ", pc1, pc2, op, pc2, pc1)
		count++
	case modeImplied:
		out += fmt.Sprintf("        %s           ", op)
		count--
	case modeRelative:
		out += fmt.Sprintf("%.2X      %s %.2X (%.4X) ", pc1, op, pc1, pc+pc116+2)
	default:
		panic(fmt.Sprintf("invalid mode: %d", mode))
	}
	return out, count
}

// ModeName returns the short addressing-mode mnemonic used in the
// "<mode>-><eff_addr_hex>" portion of a debugger trace line for the given
// opcode: "A" for the accumulator forms of ASL/ROL/LSR/ROR, or "?" if the
// opcode has no addressing-mode target (implied or undecoded).
func ModeName(o uint8) string {
	switch o {
	case 0x0A, 0x2A, 0x4A, 0x6A: // ASL/ROL/LSR/ROR A
		return "A"
	case 0x00, 0x08, 0x18, 0x28, 0x38, 0x40, 0x48, 0x58, 0x60, 0x68,
		0x78, 0x88, 0x8A, 0x98, 0x9A, 0xA8, 0xAA, 0xB8, 0xBA, 0xC8,
		0xCA, 0xD8, 0xE8, 0xEA, 0xF8: // implied
		return "?"
	case 0xA9, 0x29, 0x09, 0x49, 0x69, 0xC9, 0xE0, 0xC0, 0xA2, 0xA0, 0xE9:
		return "#"
	case 0xA5, 0x25, 0x05, 0x45, 0x65, 0xC5, 0xE4, 0xC4, 0xA6, 0xA4, 0xE5,
		0x06, 0x26, 0x46, 0x66, 0x84, 0x85, 0x86, 0xC6, 0xE6, 0x24:
		return "d"
	case 0xB5, 0x35, 0x15, 0x55, 0x75, 0xD5, 0xB4, 0xF5, 0x16, 0x36, 0x56,
		0x76, 0x94, 0x95, 0xD6, 0xF6:
		return "d,x"
	case 0xB6, 0x96:
		return "d,y"
	case 0xA1, 0x21, 0x01, 0x41, 0x61, 0xC1, 0xE1, 0x81:
		return "(d,x)"
	case 0xB1, 0x31, 0x11, 0x51, 0x71, 0xD1, 0xF1, 0x91:
		return "(d),y"
	case 0xAD, 0x2D, 0x0D, 0x4D, 0x6D, 0xCD, 0xEC, 0xCC, 0xAE, 0xAC, 0xED,
		0x0E, 0x2E, 0x4E, 0x6E, 0x8C, 0x8D, 0x8E, 0xCE, 0xEE, 0x2C, 0x4C, 0x20:
		return "a"
	case 0xBD, 0x3D, 0x1D, 0x5D, 0x7D, 0xDD, 0xBC, 0xFD, 0x1E, 0x3E, 0x5E,
		0x7E, 0x9D, 0xDE, 0xFE:
		return "a,x"
	case 0xB9, 0x39, 0x19, 0x59, 0x79, 0xD9, 0xBE, 0xF9, 0x99:
		return "a,y"
	case 0x6C:
		return "(a)"
	case 0x10, 0x30, 0x50, 0x70, 0x90, 0xB0, 0xD0, 0xF0:
		return "r"
	default:
		return "?"
	}
}
