package playback

import "math"

// SpeedConfig scales every emitted frequency by Pitch and divides every tick
// length by Tempo. A zero or negative multiplier means 1.
type SpeedConfig struct {
	Pitch float64
	Tempo float64
}

// NormalSpeed leaves pitch and tempo untouched.
var NormalSpeed = SpeedConfig{Pitch: 1, Tempo: 1}

// SemitoneRatio converts a shift in semitones to a frequency ratio.
func SemitoneRatio(delta int) float64 {
	return math.Pow(2, float64(delta)/12)
}

// NewSpeedConfig builds a SpeedConfig from separate semitone shifts.
func NewSpeedConfig(pitchShift, tempoShift int) SpeedConfig {
	return SpeedConfig{
		Pitch: SemitoneRatio(pitchShift),
		Tempo: SemitoneRatio(tempoShift),
	}
}

// TickForTempo converts a tempo event into the tick length to broadcast.
// It returns the unscaled microseconds per tick along with the scaled,
// rounded value. The result is never below one microsecond.
func (s SpeedConfig) TickForTempo(microsPerBeat, ticksPerBeat uint32) (float64, uint32) {
	if ticksPerBeat == 0 {
		ticksPerBeat = 1
	}
	usPerTick := float64(microsPerBeat) / float64(ticksPerBeat)
	adjusted := math.Round(usPerTick / s.tempo())
	if adjusted < 1 {
		adjusted = 1
	}
	if adjusted > math.MaxUint32 {
		adjusted = math.MaxUint32
	}
	return usPerTick, uint32(adjusted)
}

// ScaleTick applies the tempo multiplier to an initial tick length.
func (s SpeedConfig) ScaleTick(tickUS uint32) uint32 {
	scaled := math.Round(float64(tickUS) / s.tempo())
	if scaled < 1 {
		return 1
	}
	return uint32(scaled)
}

func (s SpeedConfig) tempo() float64 {
	if s.Tempo <= 0 || math.IsNaN(s.Tempo) {
		return 1
	}
	return s.Tempo
}

func (s SpeedConfig) pitch() float64 {
	if s.Pitch <= 0 || math.IsNaN(s.Pitch) {
		return 1
	}
	return s.Pitch
}
