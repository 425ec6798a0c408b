// Package player tracks per-player runtime state used by detectors.
package player

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/geom"
)

// State holds everything the detectors need to know about one connected
// player. Fields are guarded by mu; detectors run on the dispatch goroutine
// while the latency sampler writes ping from its own goroutine.
type State struct {
	mu sync.Mutex

	ID   uuid.UUID
	Name string

	// Motion.
	Position     geom.Vec3
	LastPosition geom.Vec3
	LastMoveTime time.Time
	OnGround     bool
	Sprinting    bool
	AirTicks     int

	// Combat.
	LastAttackTime time.Time
	LastTargetID   uuid.UUID
	LastLookAngle  float64
	InCombatUntil  time.Time

	// Network.
	PingMillis int

	// Escalation state, keyed by check name.
	violations map[string]int

	ConnectedAt time.Time
}

// NewState creates state for a freshly connected player.
func NewState(id uuid.UUID, name string, defaultPing int) *State {
	return &State{
		ID:          id,
		Name:        name,
		PingMillis:  defaultPing,
		violations:  make(map[string]int),
		ConnectedAt: time.Now(),
	}
}

// UpdateMovement records a movement sample and maintains air tick counting.
func (s *State) UpdateMovement(to geom.Vec3, onGround, sprinting bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastPosition = s.Position
	s.Position = to
	s.LastMoveTime = at
	s.OnGround = onGround
	s.Sprinting = sprinting

	if onGround {
		s.AirTicks = 0
	} else {
		s.AirTicks++
	}
}

// UpdateCombat records an attack and marks the player in combat for the
// given window.
func (s *State) UpdateCombat(targetID uuid.UUID, lookAngle float64, at time.Time, combatWindow time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastAttackTime = at
	s.LastTargetID = targetID
	s.LastLookAngle = lookAngle
	s.InCombatUntil = at.Add(combatWindow)
}

// InCombat reports whether the player attacked recently.
func (s *State) InCombat(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Before(s.InCombatUntil)
}

// UpdatePing overwrites the current ping sample.
func (s *State) UpdatePing(millis int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PingMillis = millis
}

// Ping returns the most recent ping sample in milliseconds.
func (s *State) Ping() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PingMillis
}

// Snapshot returns a consistent copy of the motion and combat fields for a
// detector to read without holding the lock across its whole evaluation.
func (s *State) Snapshot() MotionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MotionSnapshot{
		Position:       s.Position,
		LastPosition:   s.LastPosition,
		LastMoveTime:   s.LastMoveTime,
		OnGround:       s.OnGround,
		Sprinting:      s.Sprinting,
		AirTicks:       s.AirTicks,
		LastAttackTime: s.LastAttackTime,
		LastTargetID:   s.LastTargetID,
		LastLookAngle:  s.LastLookAngle,
		PingMillis:     s.PingMillis,
	}
}

// MotionSnapshot is a point-in-time copy of the fields detectors read.
type MotionSnapshot struct {
	Position       geom.Vec3
	LastPosition   geom.Vec3
	LastMoveTime   time.Time
	OnGround       bool
	Sprinting      bool
	AirTicks       int
	LastAttackTime time.Time
	LastTargetID   uuid.UUID
	LastLookAngle  float64
	PingMillis     int
}

// AddViolation increments the violation level for a check and returns the
// new level.
func (s *State) AddViolation(check string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations[check]++
	return s.violations[check]
}

// ViolationLevel returns the current violation level for a check.
func (s *State) ViolationLevel(check string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violations[check]
}

// ResetViolations clears the violation level for a check after punishment.
func (s *State) ResetViolations(check string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.violations, check)
}

// Violations returns a copy of all nonzero violation levels.
func (s *State) Violations() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.violations))
	for k, v := range s.violations {
		out[k] = v
	}
	return out
}
