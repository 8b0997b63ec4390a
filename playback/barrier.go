package playback

import "sync"

// Barrier releases all parties at once, after the last of n has arrived.
type Barrier struct {
	mu      sync.Mutex
	parties int
	arrived int
	release chan struct{}
}

func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties, release: make(chan struct{})}
	if parties <= 0 {
		close(b.release)
	}
	return b
}

// Wait blocks until every party has called Wait. Each party calls it exactly
// once.
func (b *Barrier) Wait() {
	b.mu.Lock()
	b.arrived++
	if b.arrived == b.parties {
		close(b.release)
	}
	b.mu.Unlock()
	<-b.release
}
