package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// UnderflowPolicy decides what a note-off without a sounding note does.
type UnderflowPolicy int

const (
	// UnderflowClamp ignores the note-off and logs a warning.
	UnderflowClamp UnderflowPolicy = iota
	// UnderflowStrict fails the track with ErrUnmatchedNoteOff.
	UnderflowStrict
)

var ErrUnmatchedNoteOff = errors.New("note-off without matching note-on")

func (p UnderflowPolicy) String() string {
	switch p {
	case UnderflowClamp:
		return "clamp"
	case UnderflowStrict:
		return "strict"
	}
	return "unknown"
}

// ParseUnderflowPolicy accepts "clamp" or "strict". An empty string is clamp.
func ParseUnderflowPolicy(s string) (UnderflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp":
		return UnderflowClamp, nil
	case "strict":
		return UnderflowStrict, nil
	}
	return UnderflowClamp, fmt.Errorf("unknown underflow policy %q", s)
}

// InstrumentCount is a snapshot of the sounding-note counter.
type InstrumentCount struct {
	Current int
	Max     int
}

// InstrumentCounter counts sounding notes across all tracks and remembers the
// highest count seen. A note-off matches any sounding note of the same key,
// whichever track started it.
type InstrumentCounter struct {
	mu        sync.Mutex
	policy    UnderflowPolicy
	logger    *slog.Logger
	count     InstrumentCount
	active    map[uint8]int
	unmatched int
}

func NewInstrumentCounter(policy UnderflowPolicy, logger *slog.Logger) *InstrumentCounter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentCounter{
		policy: policy,
		logger: logger,
		active: make(map[uint8]int),
	}
}

// NoteOn records a note start. track is only used in log messages.
func (c *InstrumentCounter) NoteOn(track int, key uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[key]++
	c.count.Current++
	if c.count.Current > c.count.Max {
		c.count.Max = c.count.Current
		c.logger.Info("playback: new maximum notes", "max", c.count.Max, "track", track)
	}
}

// NoteOff ends one sounding note of key. Current never goes below zero.
func (c *InstrumentCounter) NoteOff(track int, key uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.active[key]
	if n == 0 {
		c.unmatched++
		if c.policy == UnderflowStrict {
			return fmt.Errorf("%w: track %d key %s", ErrUnmatchedNoteOff, track, pitchName(key))
		}
		c.logger.Warn("playback: note-off without note-on, ignoring", "track", track, "key", pitchName(key))
		return nil
	}
	if n == 1 {
		delete(c.active, key)
	} else {
		c.active[key] = n - 1
	}
	c.count.Current--
	return nil
}

// Snapshot returns the current and maximum counts.
func (c *InstrumentCounter) Snapshot() InstrumentCount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Unmatched returns how many note-offs had no sounding note.
func (c *InstrumentCounter) Unmatched() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unmatched
}
