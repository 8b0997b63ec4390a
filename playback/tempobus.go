package playback

import (
	"errors"
	"sync"
)

// TempoBusCapacity is the number of tick values a subscriber can hold before
// the oldest is dropped.
const TempoBusCapacity = 8

var ErrNoSubscribers = errors.New("tempo bus: no subscribers")

// TempoBus multicasts tick lengths in microseconds. A subscriber receives
// every value sent while it is subscribed and nothing sent before or after.
type TempoBus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is one listener on a TempoBus.
type Subscription struct {
	bus     *TempoBus
	ch      chan uint32
	dropped int
}

func NewTempoBus() *TempoBus {
	return &TempoBus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new listener.
func (b *TempoBus) Subscribe() *Subscription {
	s := &Subscription{bus: b, ch: make(chan uint32, TempoBusCapacity)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Subscribers returns the number of live subscriptions.
func (b *TempoBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Send delivers tickUS to every live subscriber without blocking. A
// subscriber with a full buffer loses its oldest pending value.
func (b *TempoBus) Send(tickUS uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.subs) == 0 {
		return ErrNoSubscribers
	}
	for s := range b.subs {
		s.offer(tickUS)
	}
	return nil
}

// offer is called with the bus lock held, so s has a single writer.
func (s *Subscription) offer(v uint32) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped++
		default:
		}
	}
}

// C returns the channel values arrive on. It is never closed.
func (s *Subscription) C() <-chan uint32 {
	return s.ch
}

// Dropped returns how many values were discarded because the buffer was full.
func (s *Subscription) Dropped() int {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.dropped
}

// Close unsubscribes. Values still buffered stay readable but nothing new
// arrives.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
}
