package playback

import (
	"testing"
	"time"

	"github.com/chase3718/tonedrive/score"
)

func TestRepriceFasterTempo(t *testing.T) {
	origin := time.Unix(0, 0)
	wake := origin.Add(ticksDuration(480, 500))
	if wake.Sub(origin) != 240000*time.Microsecond {
		t.Fatalf("initial wake = %v, expected 240ms", wake.Sub(origin))
	}

	got, remaining := reprice(wake, 100000*time.Microsecond, 480, 500, 250)
	if remaining != 280 {
		t.Fatalf("remaining = %d, expected 280", remaining)
	}
	if d := got.Sub(origin); d != 170000*time.Microsecond {
		t.Fatalf("wake = %v after origin, expected 170ms", d)
	}
}

func TestRepriceSlowerTempo(t *testing.T) {
	origin := time.Unix(0, 0)
	wake := origin.Add(ticksDuration(100, 1000))

	got, remaining := reprice(wake, 40*time.Millisecond, 100, 1000, 3000)
	if remaining != 60 {
		t.Fatalf("remaining = %d, expected 60", remaining)
	}
	// 100ms + 60 ticks * 2000µs
	if d := got.Sub(origin); d != 220*time.Millisecond {
		t.Fatalf("wake = %v after origin, expected 220ms", d)
	}
}

func TestRepriceRoundsCompletedTicks(t *testing.T) {
	origin := time.Unix(0, 0)
	wake := origin.Add(ticksDuration(10, 1000))
	// 2.6 ticks elapsed rounds to 3.
	_, remaining := reprice(wake, 2600*time.Microsecond, 10, 1000, 500)
	if remaining != 7 {
		t.Fatalf("remaining = %d, expected 7", remaining)
	}
}

func TestRepriceOverdueWait(t *testing.T) {
	origin := time.Unix(0, 0)
	wake := origin.Add(ticksDuration(4, 1000))
	got, remaining := reprice(wake, 10*time.Millisecond, 4, 1000, 10)
	if remaining != 0 || !got.Equal(wake) {
		t.Fatalf("overdue wait moved: remaining %d, wake %v", remaining, got.Sub(origin))
	}
}

func TestRepriceTwiceInOneWait(t *testing.T) {
	origin := time.Unix(0, 0)
	wake := origin.Add(ticksDuration(100, 1000)) // 100ms

	// 20 ticks at 1000µs, then the remaining 80 cost 500µs each: 20ms + 40ms.
	wake, remaining := reprice(wake, 20*time.Millisecond, 100, 1000, 500)
	if d := wake.Sub(origin); d != 60*time.Millisecond || remaining != 80 {
		t.Fatalf("after first change: wake %v, remaining %d", d, remaining)
	}
	// 40 more ticks at 500µs, then the last 40 cost 2000µs each: 40ms + 80ms.
	wake, remaining = reprice(wake, 20*time.Millisecond, remaining, 500, 2000)
	if d := wake.Sub(origin); d != 120*time.Millisecond || remaining != 40 {
		t.Fatalf("after second change: wake %v, remaining %d", d, remaining)
	}
}

func TestSleepUntilAppliesBusUpdate(t *testing.T) {
	bus := NewTempoBus()
	p := &trackPlayer{bus: bus, sub: bus.Subscribe(), tickUS: 2000, logger: testLogger(t)}
	defer p.sub.Close()

	start := time.Now()
	wake := start.Add(ticksDuration(50, 2000)) // 100ms
	if err := bus.Send(500); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	got, err := p.sleepUntil(testContext(t), wake, 50)
	if err != nil {
		t.Fatalf("sleepUntil failed: %v", err)
	}
	if p.tickUS != 500 {
		t.Fatalf("tickUS = %d, expected 500", p.tickUS)
	}
	// The update is picked up within a tick of starting, so at most one
	// tick at the old rate is kept.
	d := got.Sub(start)
	if d < 25*time.Millisecond || d > 27*time.Millisecond {
		t.Fatalf("wake moved to %v after start, expected about 25ms", d)
	}
	if elapsed := time.Since(start); elapsed > 80*time.Millisecond {
		t.Fatalf("wait took %v, the old wake time was used", elapsed)
	}
}

func TestChangeTempoSkipsOwnBroadcast(t *testing.T) {
	bus := NewTempoBus()
	other := bus.Subscribe()
	p := &trackPlayer{
		ticksPerBeat: 100,
		speed:        NormalSpeed,
		bus:          bus,
		sub:          bus.Subscribe(),
		tickUS:       1000,
		stats:        &statsCollector{},
		logger:       testLogger(t),
	}
	old := p.sub

	if err := p.changeTempo(score.TempoUpdate{MicrosPerBeat: 250000}); err != nil {
		t.Fatalf("changeTempo failed: %v", err)
	}
	if p.tickUS != 2500 {
		t.Fatalf("tickUS = %d, expected 2500", p.tickUS)
	}
	if p.sub == old {
		t.Fatal("subscription was not replaced")
	}
	if n := len(p.sub.C()); n != 0 {
		t.Fatalf("own subscription holds %d values after broadcasting", n)
	}
	if v := <-other.C(); v != 2500 {
		t.Fatalf("other track got %d, expected 2500", v)
	}
	if n := bus.Subscribers(); n != 2 {
		t.Fatalf("Subscribers = %d, expected 2", n)
	}
}

func TestCloseSubCountsDroppedTicks(t *testing.T) {
	bus := NewTempoBus()
	stats := &statsCollector{}
	p := &trackPlayer{bus: bus, sub: bus.Subscribe(), stats: stats, logger: testLogger(t)}
	for v := uint32(1); v <= TempoBusCapacity+3; v++ {
		if err := bus.Send(v); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
	p.closeSub()
	if n := stats.droppedTicks.Load(); n != 3 {
		t.Fatalf("droppedTicks = %d, expected 3", n)
	}
	if bus.Subscribers() != 0 {
		t.Fatalf("Subscribers = %d after close", bus.Subscribers())
	}
}
