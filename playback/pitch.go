package playback

import (
	"fmt"
	"math"
)

// octave8 holds the frequencies in Hz of C8 through B8. Lower keys divide by
// a power of two per octave.
var octave8 = [12]float64{
	4186, 4434, 4699, 4978, 5274, 5588, 5920, 6272, 6645, 7040, 7459, 7902,
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// KeyFrequency returns the tone frequency for a MIDI key. Key 72 is C5.
func KeyFrequency(key uint8) float64 {
	note := int(key) % 12
	octave := int(key) / 12
	return octave8[note] / math.Pow(2, float64(8-octave))
}

// ToneFrequency scales the key frequency by pitch and rounds it to the
// device's integer Hz, clamped to the uint16 range.
func ToneFrequency(key uint8, pitch float64) uint16 {
	f := math.Round(KeyFrequency(key) * pitch)
	switch {
	case f <= 0 || math.IsNaN(f):
		return 0
	case f >= math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(f)
}

func pitchName(key uint8) string {
	return fmt.Sprintf("%s%d", noteNames[key%12], int(key)/12-1)
}
