package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/chase3718/tonedrive/score"
)

// ToneDevice is the output a Player drives.
type ToneDevice interface {
	SetTone(freq uint16, velocity uint8) error
}

// lockedDevice serialises commands to a ToneDevice shared by all tracks.
type lockedDevice struct {
	mu  sync.Mutex
	dev ToneDevice
}

func (d *lockedDevice) SetTone(freq uint16, velocity uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dev.SetTone(freq, velocity)
}

// Dispatch describes one event that reached its wake time.
type Dispatch struct {
	Track  int // position in the track list given to Play
	Event  int
	Origin time.Time // release time of the start barrier, as seen by the track
	Wake   time.Time // scheduled time
	At     time.Time // actual time
}

// trackPlayer plays a single track. All fields except tickUS and sub are
// shared with the other tracks of the same Play call.
type trackPlayer struct {
	index        int
	track        score.Track
	ticksPerBeat uint32
	speed        SpeedConfig

	device  *lockedDevice
	counter *InstrumentCounter
	barrier *Barrier
	bus     *TempoBus
	stats   *statsCollector
	logger  *slog.Logger
	trace   func(Dispatch)
	ready   func(track int)

	tickUS uint32
	sub    *Subscription
}

func (p *trackPlayer) run(ctx context.Context) error {
	defer func() { p.closeSub() }()

	if p.ready != nil {
		p.ready(p.index)
	}
	p.barrier.Wait()

	origin := time.Now()
	wake := origin
	p.logger.Debug("playback: track started", "track", p.index, "name", p.track.Label(), "events", len(p.track.Events))

	for i, ev := range p.track.Events {
		wake = wake.Add(ticksDuration(ev.Delta, p.tickUS))

		var err error
		wake, err = p.sleepUntil(ctx, wake, ev.Delta)
		if err != nil {
			return err
		}
		if p.trace != nil {
			p.trace(Dispatch{Track: p.index, Event: i, Origin: origin, Wake: wake, At: time.Now()})
		}
		if err := p.dispatch(ev.Kind); err != nil {
			return fmt.Errorf("track %d (%s) event %d: %w", p.index, p.track.Label(), i, err)
		}
	}
	p.logger.Debug("playback: track finished", "track", p.index, "name", p.track.Label())
	return nil
}

// sleepUntil waits for wake. Tick lengths arriving on the bus in the meantime
// reprice the ticks still owed and move wake accordingly; only the timer ends
// the wait.
func (p *trackPlayer) sleepUntil(ctx context.Context, wake time.Time, delta uint32) (time.Time, error) {
	remaining := delta
	segment := time.Now()

	timer := time.NewTimer(wake.Sub(segment))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return wake, nil
		case <-ctx.Done():
			return wake, ctx.Err()
		case tick := <-p.sub.C():
			now := time.Now()
			wake, remaining = reprice(wake, now.Sub(segment), remaining, p.tickUS, tick)
			p.logger.Debug("playback: tick changed mid-wait",
				"track", p.index,
				"old_us", p.tickUS,
				"new_us", tick,
				"remaining_ticks", remaining,
			)
			p.tickUS = tick
			segment = now
			timer.Reset(wake.Sub(now))
		}
	}
}

// reprice keeps the track's tick position continuous across a change of tick
// length. Ticks completed under oldTick during elapsed are kept; the ticks
// still owed move wake by the difference in tick length.
func reprice(wake time.Time, elapsed time.Duration, remaining, oldTick, newTick uint32) (time.Time, uint32) {
	if oldTick > 0 {
		completed := math.Round(float64(elapsed) / float64(time.Microsecond) / float64(oldTick))
		if completed >= float64(remaining) {
			remaining = 0
		} else if completed > 0 {
			remaining -= uint32(completed)
		}
	}
	shift := (int64(newTick) - int64(oldTick)) * int64(remaining)
	return wake.Add(time.Duration(shift) * time.Microsecond), remaining
}

func (p *trackPlayer) dispatch(kind score.EventKind) error {
	switch k := kind.(type) {
	case score.NoteUpdate:
		return p.playNote(k)
	case score.TempoUpdate:
		return p.changeTempo(k)
	}
	return nil
}

func (p *trackPlayer) playNote(n score.NoteUpdate) error {
	freq := ToneFrequency(n.Key, p.speed.pitch())
	if err := p.device.SetTone(freq, n.Velocity); err != nil {
		return fmt.Errorf("set tone %s: %w", pitchName(n.Key), err)
	}
	p.stats.notes.Add(1)

	if n.Velocity != 0 {
		p.counter.NoteOn(p.index, n.Key)
		return nil
	}
	return p.counter.NoteOff(p.index, n.Key)
}

// changeTempo adopts the new tick length, broadcasts it, and then swaps the
// subscription so this track never sees its own value.
func (p *trackPlayer) changeTempo(t score.TempoUpdate) error {
	raw, adjusted := p.speed.TickForTempo(t.MicrosPerBeat, p.ticksPerBeat)
	p.tickUS = adjusted

	if err := p.bus.Send(adjusted); err != nil {
		return fmt.Errorf("broadcast tick: %w", err)
	}
	p.closeSub()
	p.sub = p.bus.Subscribe()

	p.stats.tempoChanges.Add(1)
	p.logger.Info("playback: tick changed",
		"track", p.index,
		"tick_us", adjusted,
		"unadjusted_us", raw,
	)
	return nil
}

// closeSub ends the current subscription and accounts for tick lengths it
// had to drop.
func (p *trackPlayer) closeSub() {
	p.sub.Close()
	if n := p.sub.Dropped(); n > 0 {
		p.stats.droppedTicks.Add(int64(n))
		p.logger.Warn("playback: tick updates dropped", "track", p.index, "dropped", n)
	}
}

func ticksDuration(ticks, tickUS uint32) time.Duration {
	return time.Duration(uint64(ticks)*uint64(tickUS)) * time.Microsecond
}
