package picker

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func press(m Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(Model)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPickerSelects(t *testing.T) {
	m := NewModel("Pick", []string{"/dev/ttyACM0", "/dev/ttyACM1", "/dev/ttyUSB0"})
	m, cmd := press(m,
		tea.KeyMsg{Type: tea.KeyDown},
		runes("j"),
		runes("j"), // past the end stays put
		runes("k"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	if cmd == nil {
		t.Fatal("enter should quit")
	}
	got, err := m.Choice()
	if err != nil || got != "/dev/ttyACM1" {
		t.Fatalf("Choice = %q, %v", got, err)
	}
}

func TestPickerAbort(t *testing.T) {
	m := NewModel("Pick", []string{"a", "b"})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if _, err := m.Choice(); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestPickerView(t *testing.T) {
	m := NewModel("Pick a port", []string{"a", "b"})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	v := m.View()
	if !strings.Contains(v, "Pick a port") || !strings.Contains(v, "> b") {
		t.Fatalf("unexpected view:\n%s", v)
	}
}

func TestRunShortCircuits(t *testing.T) {
	if _, err := Run("Pick", nil); !errors.Is(err, ErrNoPorts) {
		t.Fatalf("expected ErrNoPorts, got %v", err)
	}
	got, err := Run("Pick", []string{"/dev/ttyACM0"})
	if err != nil || got != "/dev/ttyACM0" {
		t.Fatalf("Run single = %q, %v", got, err)
	}
}
