// Package cpu implements the 65xx family instruction execution engine: the
// register file, the per-cycle task scheduler and the opcode decode table.
// It advances exactly one bus cycle per call to Tick and never touches
// memory except through the Ram interface passed to it.
package cpu

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kheston/mos6502/irq"
	"github.com/kheston/mos6502/memory"
)

// Variant is an enumeration of the supported chip variants.
type Variant int

const (
	variantUnimplemented Variant = iota // Start of valid variant enumerations.
	NMOS                                // Basic NMOS 6502, documented opcodes only.
	NMOSRicoh                           // Ricoh 2A03/2A07 (NES/Famicom): identical to NMOS except BCD mode is unimplemented.
	CMOS                                // 65C02 (Rockwell/WDC): fixes the indirect-JMP page wrap and clears D on BRK/IRQ/NMI.
	variantMax                         // End of variant enumerations.
)

func (v Variant) String() string {
	switch v {
	case NMOS:
		return "NMOS"
	case NMOSRicoh:
		return "NMOSRicoh"
	case CMOS:
		return "CMOS"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// irqType tracks which interrupt source (if any) is being serviced.
type irqType int

const (
	irqUnimplemented irqType = iota
	irqNone
	irqIRQ
	irqNMI
	irqMax
)

const (
	NMIVector   = uint16(0xFFFA)
	ResetVector = uint16(0xFFFC)
	IRQVector   = uint16(0xFFFE)

	// Processor status bit positions, per the GLOSSARY (N V — B D I Z C).
	PNegative  = uint8(0x80)
	POverflow  = uint8(0x40)
	PS1        = uint8(0x20) // Unused bit; always reads back as 1.
	PBreak     = uint8(0x10) // Only set in the value pushed by BRK/PHP, never in the live register.
	PDecimal   = uint8(0x08)
	PInterrupt = uint8(0x04)
	PZero      = uint8(0x02)
	PCarry     = uint8(0x01)

	// BRK is opcode 0x00; it vectors through IRQVector.
	BRK = uint8(0x00)
)

// Chip is a single 65xx processor core. The zero value is not usable;
// construct one with NewNMOS, NewRockwellCMOS, NewWDCCMOS or Init.
type Chip struct {
	A uint8  // Accumulator register.
	X uint8  // X register.
	Y uint8  // Y register.
	S uint8  // Stack pointer.
	P uint8  // Status register.
	PC uint16 // Program counter.

	// Cycle is the monotonic bus-cycle counter. It increments by exactly one
	// on every call to Tick, including ticks spent on Reset.
	Cycle uint64

	variant Variant
	ram     memory.Ram
	irq     irq.Sender // Optional IRQ source.
	nmi     irq.Sender // Optional NMI source.

	resetting bool // True while a Reset sequence is in flight.

	op     uint8  // The opcode currently executing.
	opVal  uint8  // The byte immediately after the opcode (all instructions read this).
	opTick int    // Tick number within the current opcode/reset/interrupt sequence.
	opAddr uint16 // Effective address computed by the addressing-mode task.
	opDone bool   // True once the current opcode has completed all of its ticks.
	addrDone bool // True once the addressing-mode portion of the current opcode is done.

	decimalExtra bool // CMOS-only: one extra tick burned by ADC/SBC when D=1, before the add itself runs.

	fetchPC    uint16 // PC at the moment the current instruction's opcode byte was fetched.
	fetchCycle uint64 // Cycle value at the moment the current instruction's opcode byte was fetched.
	sync       bool   // True on the tick that fetched a new opcode (the SYNC pin).

	skipInterrupt     bool // Skip interrupt processing on the next instruction (branch pipeline quirk).
	prevSkipInterrupt bool // Previous instruction skipped interrupt processing.
	irqRaised         irqType
	runningInterrupt  bool // True while running the shared interrupt-entry sequence instead of an opcode.

	halted     bool // True once a decode error or an addressing-mode invariant violation has occurred.
	haltOpcode uint8
}

// InvalidCPUState represents an internal invariant violation — an opTick
// value outside the range a correctly decoded instruction can produce.
type InvalidCPUState struct {
	Reason string
}

func (e InvalidCPUState) Error() string {
	return fmt.Sprintf("invalid CPU state: %s", e.Reason)
}

// HaltOpcode represents an opcode that halted the CPU (a decode error turns
// into one of these so Tick keeps returning it on every subsequent call).
type HaltOpcode struct {
	Opcode uint8
}

func (e HaltOpcode) Error() string {
	return fmt.Sprintf("HALT(0x%.2X) executed", e.Opcode)
}

// DecodeError indicates an opcode byte with no entry in the documented
// 151-opcode decode table.
type DecodeError struct {
	Opcode uint8
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("no decode for opcode 0x%.2X", e.Opcode)
}

// MisuseError indicates an addressing mode was invoked for an instruction
// family that doesn't support it. Dead code under a correct decode table;
// reported as a fatal error rather than silently miscomputing state.
type MisuseError struct {
	Reason string
}

func (e MisuseError) Error() string {
	return fmt.Sprintf("addressing mode misuse: %s", e.Reason)
}

// ChipDef defines a 65xx processor to construct with Init.
type ChipDef struct {
	// Variant selects the chip behaviour at the three documented delta sites.
	Variant Variant
	// Ram is the bus this CPU talks to. Required.
	Ram memory.Ram
	// Irq is an optional IRQ source, checked on each Tick.
	Irq irq.Sender
	// Nmi is an optional NMI source, checked on each Tick. NMI always wins
	// over a pending IRQ.
	Nmi irq.Sender
}

// Init constructs a new Chip of the given definition and runs it through a
// full Reset sequence. The caller is responsible for powering on and
// loading def.Ram beforehand; Init never touches RAM contents itself.
func Init(def *ChipDef) (*Chip, error) {
	if def.Variant <= variantUnimplemented || def.Variant >= variantMax {
		return nil, InvalidCPUState{fmt.Sprintf("variant %d is invalid", def.Variant)}
	}
	if def.Ram == nil {
		return nil, InvalidCPUState{"Ram is required"}
	}
	p := &Chip{
		variant: def.Variant,
		ram:     def.Ram,
		irq:     def.Irq,
		nmi:     def.Nmi,
	}
	if err := p.PowerOn(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewNMOS returns a powered-on NMOS 6502.
func NewNMOS(ram memory.Ram) (*Chip, error) {
	return Init(&ChipDef{Variant: NMOS, Ram: ram})
}

// NewRicoh returns a powered-on Ricoh 2A03/2A07 (NES/Famicom): identical to
// NMOS except decimal-mode ADC/SBC is unimplemented.
func NewRicoh(ram memory.Ram) (*Chip, error) {
	return Init(&ChipDef{Variant: NMOSRicoh, Ram: ram})
}

// NewRockwellCMOS returns a powered-on Rockwell 65C02.
func NewRockwellCMOS(ram memory.Ram) (*Chip, error) {
	return Init(&ChipDef{Variant: CMOS, Ram: ram})
}

// NewWDCCMOS returns a powered-on WDC 65C02.
func NewWDCCMOS(ram memory.Ram) (*Chip, error) {
	return Init(&ChipDef{Variant: CMOS, Ram: ram})
}

// Variant returns this chip's variant tag.
func (p *Chip) Variant() Variant {
	return p.variant
}

// PowerOn randomizes the register file (as real silicon comes up in an
// unpredictable state) and then runs Reset to completion.
func (p *Chip) PowerOn() error {
	rand.Seed(time.Now().UnixNano())
	flags := PS1
	if p.variant == NMOS || p.variant == NMOSRicoh {
		if rand.Float32() > 0.5 {
			flags |= PDecimal
		}
	}
	p.A = uint8(rand.Intn(256))
	p.X = uint8(rand.Intn(256))
	p.Y = uint8(rand.Intn(256))
	p.S = uint8(rand.Intn(256))
	p.P = flags
	for {
		done, err := p.Reset()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Reset runs one tick of the 6-cycle reset sequence: disables interrupts,
// walks the stack pointer down by 3 as though PC/P had been pushed, and
// loads PC from the reset vector. Call it repeatedly (e.g. from PowerOn)
// until it reports done. The cycle counter is not reset by this operation.
func (p *Chip) Reset() (bool, error) {
	if !p.resetting {
		p.resetting = true
		p.opTick = 0
	}
	p.opTick++
	p.Cycle++
	switch {
	case p.opTick < 1 || p.opTick > 6:
		return true, InvalidCPUState{fmt.Sprintf("Reset: bad opTick: %d", p.opTick)}
	case p.opTick == 1:
		_ = p.ram.Read(p.PC)
		p.P |= PInterrupt
		p.halted = false
		p.haltOpcode = 0x00
		p.irqRaised = irqNone
		return false, nil
	case p.opTick >= 2 && p.opTick <= 4:
		p.S--
		return false, nil
	case p.opTick == 5:
		p.opVal = p.ram.Read(ResetVector)
		return false, nil
	}
	// case p.opTick == 6:
	p.PC = (uint16(p.ram.Read(ResetVector+1)) << 8) + uint16(p.opVal)
	p.resetting = false
	p.opTick = 0
	return true, nil
}

// Tick runs exactly one bus cycle: either the fetch cycle of a new
// instruction, a cycle of the instruction currently in flight, or a cycle
// of the interrupt-entry sequence. Returns nil when the cycle completed
// without incident. On the cycle where a decode or invariant failure halts
// the CPU it returns that failure (DecodeError or InvalidCPUState); every
// subsequent Tick call returns HaltOpcode.
func (p *Chip) Tick(mem memory.Ram) error {
	if mem != nil {
		p.ram = mem
	}
	if p.halted {
		p.Cycle++
		return HaltOpcode{p.haltOpcode}
	}

	p.opTick++
	p.Cycle++
	p.sync = false

	if p.irqRaised < irqNone || p.irqRaised >= irqMax {
		p.halted = true
		return InvalidCPUState{fmt.Sprintf("irqRaised is invalid: %d", p.irqRaised)}
	}

	var irqLine, nmiLine bool
	if p.irq != nil {
		irqLine = p.irq.Raised()
	}
	if p.nmi != nil {
		nmiLine = p.nmi.Raised()
	}
	if irqLine || nmiLine {
		switch p.irqRaised {
		case irqNone:
			p.irqRaised = irqIRQ
			if nmiLine {
				p.irqRaised = irqNMI
			}
		case irqIRQ:
			if nmiLine {
				p.irqRaised = irqNMI
			}
		}
	}

	switch {
	case p.opTick == 1:
		p.op = p.ram.Read(p.PC)
		p.opDone = false
		p.addrDone = false
		p.sync = true
		p.fetchPC = p.PC
		p.fetchCycle = p.Cycle

		if p.irqRaised == irqNone || p.skipInterrupt {
			p.PC++
			p.runningInterrupt = false
		}
		if p.irqRaised != irqNone && !p.skipInterrupt {
			p.runningInterrupt = true
		}
		return nil
	case p.opTick == 2:
		p.opVal = p.ram.Read(p.PC)
		p.prevSkipInterrupt = false
		if p.skipInterrupt {
			p.skipInterrupt = false
			p.prevSkipInterrupt = true
		}
	case p.opTick > 8:
		p.halted = true
		p.haltOpcode = p.op
		return InvalidCPUState{fmt.Sprintf("opTick %d too large (> 8)", p.opTick)}
	}

	var err error
	if p.runningInterrupt {
		addr := IRQVector
		if p.irqRaised == irqNMI {
			addr = NMIVector
		}
		p.opDone, err = p.runInterrupt(addr, true)
	} else {
		p.opDone, err = p.processOpcode()
	}

	if err != nil {
		p.haltOpcode = p.op
		p.halted = true
		p.opDone = true
		return err
	}
	if p.halted {
		p.haltOpcode = p.op
		p.opDone = true
		return HaltOpcode{p.op}
	}
	if p.opDone {
		p.opTick = 0
		if p.runningInterrupt {
			p.irqRaised = irqNone
		}
		p.runningInterrupt = false
	}
	return nil
}

// InstructionDone reports whether the instruction currently (or most
// recently) in flight has completed all of its ticks.
func (p *Chip) InstructionDone() bool {
	return p.opDone
}

// Sync reports whether the tick just performed was the fetch cycle of a new
// instruction (the hardware SYNC pin).
func (p *Chip) Sync() bool {
	return p.sync
}

// LastFetchPC returns the PC value at the start of the instruction
// currently in flight (the address of its opcode byte).
func (p *Chip) LastFetchPC() uint16 {
	return p.fetchPC
}

// LastFetchCycle returns the Cycle value at the start of the instruction
// currently in flight.
func (p *Chip) LastFetchCycle() uint64 {
	return p.fetchCycle
}

// Opcode returns the opcode byte of the instruction currently in flight.
func (p *Chip) Opcode() uint8 {
	return p.op
}

// EffectiveAddress returns the address computed by the current
// instruction's addressing-mode task and whether that computation has
// completed. Meaningless before addrDone and after the next fetch.
func (p *Chip) EffectiveAddress() (uint16, bool) {
	return p.opAddr, p.addrDone
}

// ExecuteNextInstruction ticks the CPU until the instruction in flight (or,
// if none is in flight, the next one fetched) completes. probe, if
// non-nil, is called after every tick — intended for a debugger collaborator
// such as the one in the debugger package.
func (p *Chip) ExecuteNextInstruction(mem memory.Ram, probe func(*Chip)) error {
	// Run at least one tick so a freshly-completed instruction doesn't cause
	// an immediate (incorrect) return.
	for first := true; first || !p.opDone; first = false {
		if err := p.Tick(mem); err != nil {
			if probe != nil {
				probe(p)
			}
			return err
		}
		if probe != nil {
			probe(p)
		}
	}
	return nil
}

// ExecuteUntilBreak ticks the CPU, one instruction at a time, until a BRK
// completes, returning the total number of cycles consumed. A program
// that never executes BRK directly still terminates this way in
// practice: an RTS with nothing genuine on the stack returns into
// whatever happens to be sitting at the popped address, and a
// freshly-powered or zeroed memory reads back as opcode 0x00 there.
func (p *Chip) ExecuteUntilBreak(mem memory.Ram, probe func(*Chip)) (uint64, error) {
	start := p.Cycle
	for {
		if err := p.ExecuteNextInstruction(mem, probe); err != nil {
			return p.Cycle - start, err
		}
		if p.op == BRK {
			return p.Cycle - start, nil
		}
	}
}

// zeroCheck sets the Z flag from the given result byte.
func (p *Chip) zeroCheck(reg uint8) {
	p.P &^= PZero
	if reg == 0 {
		p.P |= PZero
	}
}

// negativeCheck sets the N flag from the given result byte.
func (p *Chip) negativeCheck(reg uint8) {
	p.P &^= PNegative
	if reg&PNegative == PNegative {
		p.P |= PNegative
	}
}

// carryCheck sets the C flag if an 8-bit ALU result (passed widened to 16
// bits) carried out, i.e. is >= 0x100. BCD fixups can produce values as
// large as 0x255 here; that's still a carry.
func (p *Chip) carryCheck(res uint16) {
	p.P &^= PCarry
	if res >= 0x100 {
		p.P |= PCarry
	}
}

// overflowCheck sets the V flag if combining reg and arg into res crossed a
// two's-complement sign boundary. See
// http://www.righto.com/2012/12/the-6502-overflow-flag-explained.html
func (p *Chip) overflowCheck(reg, arg, res uint8) {
	p.P &^= POverflow
	if (reg^res)&(arg^res)&0x80 != 0x00 {
		p.P |= POverflow
	}
}
