// Package device implements the tone generators tonedrive can drive: a
// serial-attached generator, a MIDI output port, and a dummy for dry runs.
package device

import (
	"errors"
	"log/slog"
	"math"
)

// ToneDevice accepts tone and reset commands. Implementations are not safe
// for concurrent use; callers serialise access.
type ToneDevice interface {
	SetTone(freq uint16, velocity uint8) error
	Reset() error
	Close() error
}

var (
	ErrBadID           = errors.New("device answered with incorrect ID")
	ErrNoReply         = errors.New("device did not answer")
	ErrMIDIUnavailable = errors.New("MIDI output needs a cgo build")
)

// Dummy accepts every command and does nothing.
type Dummy struct {
	logger *slog.Logger
}

func NewDummy(logger *slog.Logger) *Dummy {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("device: using dummy device")
	return &Dummy{logger: logger}
}

func (d *Dummy) SetTone(freq uint16, velocity uint8) error {
	d.logger.Debug("device: tone", "freq", freq, "vel", velocity)
	return nil
}

func (d *Dummy) Reset() error {
	d.logger.Debug("device: reset")
	return nil
}

func (d *Dummy) Close() error { return nil }

// FrequencyKey maps a tone frequency back to the nearest key of the
// playback key table, where key 69 sounds at 880 Hz.
func FrequencyKey(freq uint16) uint8 {
	if freq == 0 {
		return 0
	}
	k := math.Round(57 + 12*math.Log2(float64(freq)/440))
	switch {
	case k < 0:
		return 0
	case k > 127:
		return 127
	}
	return uint8(k)
}
