package alerting

import (
	"sync"

	"github.com/google/uuid"

	"cheatguard/internal/check"
)

// RecentRing keeps the last N violations in memory for the admin API and
// dashboard. Oldest entries are overwritten.
type RecentRing struct {
	mu   sync.RWMutex
	buf  []check.Violation
	next int
	full bool
}

// NewRecentRing creates a ring holding up to capacity violations.
func NewRecentRing(capacity int) *RecentRing {
	if capacity <= 0 {
		capacity = 256
	}
	return &RecentRing{buf: make([]check.Violation, capacity)}
}

// Add records a violation.
func (r *RecentRing) Add(v check.Violation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns up to limit violations, newest first. limit <= 0
// returns everything held.
func (r *RecentRing) Snapshot(limit int) []check.Violation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.next
	if r.full {
		n = len(r.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]check.Violation, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (r.next - 1 - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

// ForPlayer returns held violations for one player, newest first.
func (r *RecentRing) ForPlayer(id uuid.UUID, limit int) []check.Violation {
	all := r.Snapshot(0)
	out := make([]check.Violation, 0)
	for _, v := range all {
		if v.PlayerID == id {
			out = append(out, v)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}
