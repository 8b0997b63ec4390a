// Package picker is a small terminal menu for choosing a serial port when
// none was given on the command line.
package picker

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	ErrNoPorts = errors.New("no serial ports found")
	ErrAborted = errors.New("port selection aborted")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type Model struct {
	title   string
	ports   []string
	cursor  int
	chosen  string
	aborted bool
}

func NewModel(title string, ports []string) Model {
	return Model{title: title, ports: ports}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.ports)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.ports) > 0 {
			m.chosen = m.ports[m.cursor]
		}
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		m.aborted = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	for i, p := range m.ports {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + p))
		} else {
			b.WriteString("  " + p)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ move • enter select • q quit"))
	b.WriteString("\n")
	return b.String()
}

// Choice returns the selected port, or ErrAborted if the user quit.
func (m Model) Choice() (string, error) {
	if m.aborted || m.chosen == "" {
		return "", ErrAborted
	}
	return m.chosen, nil
}

// Run asks the user to pick one of ports. A single port is returned without
// prompting.
func Run(title string, ports []string) (string, error) {
	switch len(ports) {
	case 0:
		return "", ErrNoPorts
	case 1:
		return ports[0], nil
	}
	final, err := tea.NewProgram(NewModel(title, ports)).Run()
	if err != nil {
		return "", fmt.Errorf("picker: %w", err)
	}
	return final.(Model).Choice()
}
