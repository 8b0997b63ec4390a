package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chase3718/tonedrive/score"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

// renderTracks formats the decoded tracks of seq for -list.
func renderTracks(path string, seq *score.Sequence) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(path))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s timing, %d ticks per beat, initial tick %v, %d tracks",
		seq.Timing, seq.TimeBase.TicksPerBeat, seq.TimeBase.Tick, seq.Total)))
	b.WriteString("\n\n")

	rows := [][]string{{"#", "name", "instrument", "notes", "tempos", "ticks"}}
	for _, tr := range seq.Tracks {
		rows = append(rows, []string{
			fmt.Sprint(tr.Index),
			tr.Label(),
			tr.Instrument,
			fmt.Sprint(tr.NoteCount()),
			fmt.Sprint(tr.TempoCount()),
			fmt.Sprint(tr.Ticks()),
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cellStyle.Width(widths[i] + 2).Render(cell)
		}
		line := lipgloss.JoinHorizontal(lipgloss.Top, cells...)
		if r == 0 {
			line = headerStyle.Render(line)
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
	return b.String()
}
