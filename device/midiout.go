//go:build cgo

package device

import (
	"fmt"
	"log/slog"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// MIDIOut plays tones as notes on a MIDI output port. Frequencies are mapped
// back to the nearest key, so pitch shifts land on the closest semitone.
type MIDIOut struct {
	drv     *rtmididrv.Driver
	out     drivers.Out
	send    func(midi.Message) error
	channel uint8
	logger  *slog.Logger
}

// OpenMIDIOut opens the first output port whose name contains pattern.
func OpenMIDIOut(pattern string, logger *slog.Logger) (*MIDIOut, error) {
	if logger == nil {
		logger = slog.Default()
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("midi: list outputs: %w", err)
	}
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.String()
	}
	logger.Debug("midi: outputs found", "count", len(names))

	name, err := pickPort(names, pattern)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("midi: %w", err)
	}
	var found drivers.Out
	for _, o := range outs {
		if o.String() == name {
			found = o
			break
		}
	}
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("midi: open %q: %w", name, err)
	}
	send, err := midi.SendTo(found)
	if err != nil {
		_ = found.Close()
		drv.Close()
		return nil, fmt.Errorf("midi: send to %q: %w", name, err)
	}
	logger.Info("midi: output connected", "device", name)
	return &MIDIOut{drv: drv, out: found, send: send, logger: logger}, nil
}

func (m *MIDIOut) SetTone(freq uint16, velocity uint8) error {
	key := FrequencyKey(freq)
	if velocity == 0 {
		return m.send(midi.NoteOff(m.channel, key))
	}
	return m.send(midi.NoteOn(m.channel, key, velocity))
}

// Reset sends All Notes Off.
func (m *MIDIOut) Reset() error {
	return m.send(midi.ControlChange(m.channel, 123, 0))
}

func (m *MIDIOut) Close() error {
	m.logger.Info("midi: closing output")
	err := m.out.Close()
	m.drv.Close()
	return err
}
