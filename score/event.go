package score

import "time"

// TimeBase converts tick counts into wall-clock time. Tick is the duration of
// one tick at the start of playback; tempo events change it later on.
type TimeBase struct {
	TicksPerBeat uint32
	Tick         time.Duration
}

// TickMicros returns Tick in whole microseconds.
func (tb TimeBase) TickMicros() uint32 {
	return uint32(tb.Tick / time.Microsecond)
}

// Event is one entry of a track. Delta counts ticks since the previous event
// in the same track. A nil Kind carries timing only.
type Event struct {
	Delta uint32
	Kind  EventKind
}

// EventKind is implemented by NoteUpdate, TempoUpdate, TrackName and
// Instrument.
type EventKind interface {
	eventKind()
}

// NoteUpdate starts a note, or stops it when Velocity is 0.
type NoteUpdate struct {
	Key      uint8
	Velocity uint8
}

// TempoUpdate sets a new beat length in microseconds.
type TempoUpdate struct {
	MicrosPerBeat uint32
}

// TrackName and Instrument are metadata. Decode folds them into Track and
// never hands them to a player.
type TrackName struct {
	Name string
}

type Instrument struct {
	Name string
}

func (NoteUpdate) eventKind()  {}
func (TempoUpdate) eventKind() {}
func (TrackName) eventKind()   {}
func (Instrument) eventKind()  {}

// Track is the ordered event list of one score track.
type Track struct {
	Index      int // position in the source file
	Name       string
	Instrument string
	Events     []Event
}

// Label names the track for logs.
func (t Track) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return "track"
}

// NoteCount returns the number of note starts in the track.
func (t Track) NoteCount() int {
	n := 0
	for _, ev := range t.Events {
		if nu, ok := ev.Kind.(NoteUpdate); ok && nu.Velocity != 0 {
			n++
		}
	}
	return n
}

// TempoCount returns the number of tempo changes in the track.
func (t Track) TempoCount() int {
	n := 0
	for _, ev := range t.Events {
		if _, ok := ev.Kind.(TempoUpdate); ok {
			n++
		}
	}
	return n
}

// Ticks returns the total length of the track in ticks.
func (t Track) Ticks() uint64 {
	var total uint64
	for _, ev := range t.Events {
		total += uint64(ev.Delta)
	}
	return total
}
