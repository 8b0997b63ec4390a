//go:build !cgo

package device

import "log/slog"

// MIDIOut is unavailable without cgo; OpenMIDIOut always fails.
type MIDIOut struct{}

func OpenMIDIOut(pattern string, logger *slog.Logger) (*MIDIOut, error) {
	return nil, ErrMIDIUnavailable
}

func (m *MIDIOut) SetTone(freq uint16, velocity uint8) error { return ErrMIDIUnavailable }
func (m *MIDIOut) Reset() error                              { return ErrMIDIUnavailable }
func (m *MIDIOut) Close() error                              { return nil }
