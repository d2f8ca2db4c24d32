// Package debugger implements an optional collaborator that observes a
// Chip after every tick and keeps a fixed-capacity history of completed
// instructions. It never drives the CPU itself — the caller ticks, then
// calls Probe.
package debugger

import (
	"container/ring"
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"github.com/kheston/mos6502/cpu"
	"github.com/kheston/mos6502/disassemble"
)

// Entry is one completed instruction's trace record.
type Entry struct {
	Addr          uint16 // PC at the start of the instruction (the opcode's address).
	Opcode        uint8
	StartingCycle uint64
	TargetAddr    uint16 // Effective address computed by the addressing-mode task, if any.
	HasTarget     bool
}

// String renders e in the trace-line format
// "<starting_cycle>@<PC_hex>: <opcode_hex> [<mode>-><eff_addr_hex> | ?]".
func (e Entry) String() string {
	target := "?"
	if e.HasTarget {
		target = fmt.Sprintf("%s->%.4X", disassemble.ModeName(e.Opcode), e.TargetAddr)
	}
	return fmt.Sprintf("%d@%.4X: %.2X [%s]", e.StartingCycle, e.Addr, e.Opcode, target)
}

// Ring is a fixed-capacity ring buffer of completed-instruction Entry
// records, fed by Probe.
type Ring struct {
	buf     *ring.Ring
	len     int
	cap     int
	pending *Entry // the instruction currently in flight, not yet complete.
}

// NewRing returns a Ring that retains at most capacity entries.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: ring.New(capacity), cap: capacity}
}

// Probe observes one tick of c. It is meant to be passed directly as the
// probe argument to Chip.ExecuteNextInstruction/ExecuteUntilBreak, or
// called manually after each Chip.Tick.
func (r *Ring) Probe(c *cpu.Chip) {
	if c.Sync() {
		r.pending = &Entry{
			Addr:          c.LastFetchPC(),
			Opcode:        c.Opcode(),
			StartingCycle: c.LastFetchCycle(),
		}
	}
	if addr, done := c.EffectiveAddress(); done && r.pending != nil {
		r.pending.TargetAddr = addr
		r.pending.HasTarget = true
	}
	if c.InstructionDone() && r.pending != nil {
		r.buf.Value = *r.pending
		r.buf = r.buf.Next()
		if r.len < r.cap {
			r.len++
		}
		r.pending = nil
	}
}

// Last returns the n most recently completed entries, oldest first. If
// fewer than n are available, it returns all of them.
func (r *Ring) Last(n int) []Entry {
	if n > r.len {
		n = r.len
	}
	out := make([]Entry, 0, n)
	// r.buf always points one slot past the newest entry. Walking back n
	// slots from there lands on the oldest of the n entries we want.
	start := r.buf
	for i := 0; i < n; i++ {
		start = start.Prev()
	}
	cur := start
	for i := 0; i < n; i++ {
		out = append(out, cur.Value.(Entry))
		cur = cur.Next()
	}
	return out
}

// Dump returns a spew.Sdump of c's full state, for attaching to a trace
// or test failure.
func Dump(c *cpu.Chip) string {
	return spew.Sdump(c)
}
