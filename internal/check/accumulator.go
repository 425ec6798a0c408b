package check

import (
	"sync"

	"github.com/google/uuid"
)

// Accumulator is a keyed hysteresis counter. Suspicious samples raise a
// player's count by one, clean samples lower it by one with a floor of
// zero, so a single spike amid normal play decays instead of flagging.
type Accumulator struct {
	mu        sync.Mutex
	counts    map[uuid.UUID]int
	threshold int
}

// NewAccumulator creates an accumulator that trips at threshold.
func NewAccumulator(threshold int) *Accumulator {
	return &Accumulator{
		counts:    make(map[uuid.UUID]int),
		threshold: threshold,
	}
}

// Suspicious records a suspicious sample. It returns true when the count
// reaches the threshold, and resets the count to zero on trip.
func (a *Accumulator) Suspicious(id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.counts[id]++
	if a.counts[id] >= a.threshold {
		delete(a.counts, id)
		return true
	}
	return false
}

// Clean records a clean sample, decrementing toward zero.
func (a *Accumulator) Clean(id uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if c := a.counts[id]; c > 1 {
		a.counts[id] = c - 1
	} else {
		delete(a.counts, id)
	}
}

// Count returns the current count for a player.
func (a *Accumulator) Count(id uuid.UUID) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[id]
}

// Forget drops a player's count.
func (a *Accumulator) Forget(id uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.counts, id)
}
