package debugger

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kheston/mos6502/cpu"
	"github.com/kheston/mos6502/memory"
)

// model is the bubbletea model backing Interactive: a thin wrapper that
// steps one instruction per keypress and renders the register file plus
// the trailing trace ring.
type model struct {
	chip *cpu.Chip
	mem  memory.Ram
	ring *Ring
	err  error
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "n":
			if err := m.chip.ExecuteNextInstruction(m.mem, m.ring.Probe); err != nil {
				m.err = err
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

var statusStyle = lipgloss.NewStyle().Bold(true)

func (m model) status() string {
	return statusStyle.Render(fmt.Sprintf(
		"PC:%.4X A:%.2X X:%.2X Y:%.2X S:%.2X P:%.2X cycle:%d",
		m.chip.PC, m.chip.A, m.chip.X, m.chip.Y, m.chip.S, m.chip.P, m.chip.Cycle))
}

func (m model) trace() string {
	var lines []string
	for _, e := range m.ring.Last(m.ring.cap) {
		lines = append(lines, e.String())
	}
	if m.err != nil {
		lines = append(lines, fmt.Sprintf("error: %v", m.err))
	}
	return strings.Join(lines, "\n")
}

func (m model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.status(),
		"",
		m.trace(),
		"",
		"space/n: step one instruction   q: quit",
	)
}

// Interactive starts a bubbletea TUI driving chip over mem, one
// instruction per keypress, recording its trace into a ring of the given
// capacity. Blocks until the user quits.
func Interactive(chip *cpu.Chip, mem memory.Ram, capacity int) error {
	m := model{chip: chip, mem: mem, ring: NewRing(capacity)}
	_, err := tea.NewProgram(m).Run()
	return err
}
