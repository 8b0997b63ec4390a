package score

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

// defaultMicrosPerBeat is the SMF tempo assumed until the first tempo event
// (120 BPM).
const defaultMicrosPerBeat = 500000

var ErrTrackOutOfRange = errors.New("track index out of range")

// Sequence is a decoded score ready for playback.
type Sequence struct {
	TimeBase TimeBase
	Timing   string // "metrical" or "timecode"
	Tracks   []Track
	Total    int // tracks in the file, before selection
}

// Load reads a Standard MIDI File and decodes the selected tracks. An empty
// selection keeps every track in file order.
func Load(path string, selection []int) (*Sequence, error) {
	f, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(f, selection)
}

// Decode converts an already parsed SMF.
func Decode(f *smf.SMF, selection []int) (*Sequence, error) {
	tb, timing, err := DeduceTiming(f.TimeFormat)
	if err != nil {
		return nil, err
	}
	seq := &Sequence{TimeBase: tb, Timing: timing, Total: len(f.Tracks)}

	if len(selection) == 0 {
		selection = make([]int, len(f.Tracks))
		for i := range selection {
			selection[i] = i
		}
	}
	for _, idx := range selection {
		if idx < 0 || idx >= len(f.Tracks) {
			return nil, fmt.Errorf("%w: %d (file has %d tracks)", ErrTrackOutOfRange, idx, len(f.Tracks))
		}
		seq.Tracks = append(seq.Tracks, convertTrack(idx, f.Tracks[idx]))
	}
	return seq, nil
}

// DeduceTiming derives the initial time base from the SMF header.
//
// Metrical files get the tick length of the default 120 BPM tempo; timecode
// files have a fixed tick length of one subframe.
func DeduceTiming(tf smf.TimeFormat) (TimeBase, string, error) {
	switch v := tf.(type) {
	case smf.MetricTicks:
		res := uint32(v.Resolution())
		if res == 0 {
			return TimeBase{}, "", errors.New("metrical time format with zero resolution")
		}
		return TimeBase{
			TicksPerBeat: res,
			Tick:         time.Duration(defaultMicrosPerBeat/res) * time.Microsecond,
		}, "metrical", nil
	case smf.TimeCode:
		fps, sub := uint64(v.FramesPerSecond), uint64(v.SubFrames)
		if fps == 0 || sub == 0 {
			return TimeBase{}, "", fmt.Errorf("invalid timecode %d fps, %d subframes", fps, sub)
		}
		return TimeBase{
			TicksPerBeat: uint32(sub),
			Tick:         time.Duration(1000000/(fps*sub)) * time.Microsecond,
		}, "timecode", nil
	default:
		return TimeBase{}, "", fmt.Errorf("unsupported time format %v", tf)
	}
}

// convertTrack folds metadata into the Track header and strips it from the
// event stream. Deltas of every event are kept so timing is unchanged.
func convertTrack(index int, tr smf.Track) Track {
	t := Track{Index: index, Events: make([]Event, 0, len(tr))}
	for _, ev := range tr {
		kind := decodeMessage(ev.Message)
		switch k := kind.(type) {
		case TrackName:
			if t.Name == "" {
				t.Name = k.Name
			}
			kind = nil
		case Instrument:
			if t.Instrument == "" {
				t.Instrument = k.Name
			}
			kind = nil
		}
		t.Events = append(t.Events, Event{Delta: ev.Delta, Kind: kind})
	}
	return t
}

func decodeMessage(msg smf.Message) EventKind {
	var ch, key, vel uint8
	var bpm float64
	var text string

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return NoteUpdate{Key: key, Velocity: vel}
	case msg.GetNoteEnd(&ch, &key):
		return NoteUpdate{Key: key}
	case msg.GetMetaTempo(&bpm):
		if bpm <= 0 {
			return nil
		}
		return TempoUpdate{MicrosPerBeat: uint32(math.Round(60000000 / bpm))}
	case msg.GetMetaTrackName(&text):
		return TrackName{Name: text}
	case msg.GetMetaInstrument(&text):
		return Instrument{Name: text}
	}
	return nil
}
