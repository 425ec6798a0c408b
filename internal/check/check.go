// Package check defines the detector abstraction shared by all heuristics.
package check

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Category groups detectors by the kind of behavior they watch.
type Category string

const (
	CategoryCombat   Category = "combat"
	CategoryMovement Category = "movement"
	CategoryPlayer   Category = "player"
)

// Check is a single behavioral detector. Detectors are invoked from the
// dispatch goroutine only; Enabled and SetEnabled may be called from the
// admin API concurrently.
type Check interface {
	Name() string
	Category() Category
	Enabled() bool
	SetEnabled(bool)
	// Forget drops any per-player state held by the detector.
	Forget(playerID uuid.UUID)
}

// Violation is one confirmed detection emitted by a check.
type Violation struct {
	ID         uuid.UUID `json:"id"`
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	CheckName  string    `json:"check_name"`
	Category   Category  `json:"category"`
	Level      int       `json:"level"`
	Detail     string    `json:"detail"`
	PingMillis int       `json:"ping_millis"`
	Timestamp  time.Time `json:"timestamp"`
	Punished   bool      `json:"punished"`
}

// ViolationSink receives confirmed detections. The registry implements it.
type ViolationSink interface {
	HandleViolation(playerID uuid.UUID, playerName, checkName string, category Category, pingMillis int, detail string)
}

// BypassFunc reports whether a player is exempt from flagging entirely,
// such as staff with a bypass permission.
type BypassFunc func(playerID uuid.UUID) bool

// Base carries the pieces every detector embeds.
type Base struct {
	name     string
	category Category
	enabled  atomic.Bool
	sink     ViolationSink
}

// NewBase creates the embedded core of a detector.
func NewBase(name string, category Category, enabled bool, sink ViolationSink) Base {
	b := Base{name: name, category: category, sink: sink}
	b.enabled.Store(enabled)
	return b
}

func (b *Base) Name() string       { return b.name }
func (b *Base) Category() Category { return b.category }
func (b *Base) Enabled() bool      { return b.enabled.Load() }
func (b *Base) SetEnabled(v bool)  { b.enabled.Store(v) }

// Flag reports a confirmed detection to the sink.
func (b *Base) Flag(playerID uuid.UUID, playerName string, pingMillis int, detail string) {
	if b.sink != nil {
		b.sink.HandleViolation(playerID, playerName, b.name, b.category, pingMillis, detail)
	}
}
