// Package playback plays decoded score tracks on a tone device, one goroutine
// per track, with a tempo shared between tracks.
//
// Tracks start together behind a Barrier. Each track sleeps until the wake
// time of its next event; a tempo event in any track is broadcast on a
// TempoBus and the other tracks reprice the remainder of their current wait.
// A failing track stops on its own. The others play to the end and Play
// reports the first error afterwards.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chase3718/tonedrive/score"
)

// Stats summarises a finished Play call.
type Stats struct {
	Tracks       int
	Notes        int64 // device commands sent for note events
	TempoChanges int64
	MaxNotes     int
	Unmatched    int   // note-offs without a sounding note
	DroppedTicks int64 // tick lengths lost to a full subscriber buffer
	Elapsed      time.Duration
}

type statsCollector struct {
	notes        atomic.Int64
	tempoChanges atomic.Int64
	droppedTicks atomic.Int64
}

// Player runs a score against a ToneDevice. The zero value is usable.
type Player struct {
	// Underflow selects how unmatched note-offs are handled.
	Underflow UnderflowPolicy
	Logger    *slog.Logger
	// OnDispatch, when set, is called by each track right before it
	// dispatches an event. It runs on the track's goroutine.
	OnDispatch func(Dispatch)

	// ready runs on each track goroutine right before the start barrier.
	ready func(track int)
	stats Stats
}

// Play blocks until every track has finished or failed, and returns the first
// error. Cancelling ctx ends all tracks at their next wait.
func (p *Player) Play(ctx context.Context, tb score.TimeBase, tracks []score.Track, speed SpeedConfig, dev ToneDevice) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if tb.TicksPerBeat == 0 {
		return errors.New("playback: zero ticks per beat")
	}
	tickUS := tb.TickMicros()
	if tickUS == 0 {
		return fmt.Errorf("playback: initial tick %v is below one microsecond", tb.Tick)
	}
	p.stats = Stats{Tracks: len(tracks)}
	if len(tracks) == 0 {
		return nil
	}

	barrier := NewBarrier(len(tracks))
	bus := NewTempoBus()
	counter := NewInstrumentCounter(p.Underflow, logger)
	shared := &lockedDevice{dev: dev}
	collector := &statsCollector{}

	logger.Info("playback: starting",
		"tracks", len(tracks),
		"ticks_per_beat", tb.TicksPerBeat,
		"tick_us", tickUS,
		"pitch", speed.pitch(),
		"tempo", speed.tempo(),
		"underflow", p.Underflow,
	)
	start := time.Now()

	// A plain Group: a failing track must not cancel its siblings.
	var g errgroup.Group
	for i, tr := range tracks {
		i, tr := i, tr
		tp := &trackPlayer{
			index:        i,
			track:        tr,
			ticksPerBeat: tb.TicksPerBeat,
			speed:        speed,
			device:       shared,
			counter:      counter,
			barrier:      barrier,
			bus:          bus,
			stats:        collector,
			logger:       logger,
			trace:        p.OnDispatch,
			ready:        p.ready,
			tickUS:       tickUS,
			sub:          bus.Subscribe(),
		}
		g.Go(func() error {
			err := tp.run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				logger.Error("playback: track failed", "track", i, "name", tr.Label(), "err", err)
			}
			return err
		})
	}
	err := g.Wait()

	count := counter.Snapshot()
	p.stats.Notes = collector.notes.Load()
	p.stats.TempoChanges = collector.tempoChanges.Load()
	p.stats.DroppedTicks = collector.droppedTicks.Load()
	p.stats.MaxNotes = count.Max
	p.stats.Unmatched = counter.Unmatched()
	p.stats.Elapsed = time.Since(start)

	logger.Info("playback: finished",
		"elapsed", p.stats.Elapsed.Round(time.Millisecond),
		"max_notes", p.stats.MaxNotes,
		"tempo_changes", p.stats.TempoChanges,
		"unmatched_note_offs", p.stats.Unmatched,
		"dropped_ticks", p.stats.DroppedTicks,
	)
	return err
}

// Stats returns the summary of the last Play call.
func (p *Player) Stats() Stats {
	return p.stats
}
