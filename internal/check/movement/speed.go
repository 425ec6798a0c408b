// Package movement holds the detectors that watch player motion.
package movement

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
	"cheatguard/internal/geom"
	"cheatguard/internal/player"
	"cheatguard/internal/schema"
)

// tickMillis is the engine tick length the speed limits are expressed in.
const tickMillis = 50.0

// Speed flags horizontal movement faster than the engine allows for the
// player's current attributes. Sampled on a fixed cadence so bursts of
// movement packets average out.
type Speed struct {
	check.Base
	cfg config.SpeedConfig

	mu      sync.Mutex
	anchors map[uuid.UUID]speedAnchor

	acc *check.Accumulator
}

type speedAnchor struct {
	pos geom.Vec3
	at  time.Time
}

// NewSpeed creates the horizontal speed detector.
func NewSpeed(cfg config.SpeedConfig, sink check.ViolationSink) *Speed {
	return &Speed{
		Base:    check.NewBase("speed", check.CategoryMovement, cfg.Enabled, sink),
		cfg:     cfg,
		anchors: make(map[uuid.UUID]speedAnchor),
		acc:     check.NewAccumulator(cfg.Trigger),
	}
}

// maxSpeed returns the per-tick horizontal distance limit for the sample.
func (s *Speed) maxSpeed(ev *schema.MovementEvent, pingMillis int) float64 {
	base := s.cfg.BaseSpeed
	switch {
	case ev.Sneaking:
		base = s.cfg.SneakSpeed
	case ev.Sprinting:
		base = s.cfg.SprintSpeed
	}
	base *= 1 + s.cfg.SpeedPerLevel*float64(ev.Effects.Speed)
	base *= 1 - s.cfg.SlowPerLevel*float64(ev.Effects.Slowness)
	base *= s.cfg.Buffer
	return base + check.PingDistanceLeniency(pingMillis, s.cfg.PingDivisor, s.cfg.PingCap)
}

// OnMove evaluates one movement event.
func (s *Speed) OnMove(st *player.State, ev *schema.MovementEvent, now time.Time) {
	if !s.Enabled() {
		return
	}
	if ev.Exempt.Any() {
		// Exempt motion invalidates the anchor; vehicle speed is not
		// player speed.
		s.mu.Lock()
		delete(s.anchors, st.ID)
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	anchor, ok := s.anchors[st.ID]
	if !ok {
		s.anchors[st.ID] = speedAnchor{pos: ev.To, at: now}
		s.mu.Unlock()
		return
	}
	elapsed := now.Sub(anchor.at)
	if elapsed < s.cfg.CheckInterval {
		s.mu.Unlock()
		return
	}
	s.anchors[st.ID] = speedAnchor{pos: ev.To, at: now}
	s.mu.Unlock()

	dist := math.Sqrt(ev.To.HorizontalDistanceSq(anchor.pos))
	ticks := float64(elapsed.Milliseconds()) / tickMillis
	if ticks <= 0 {
		return
	}
	perTick := dist / ticks

	ping := st.Ping()
	limit := s.maxSpeed(ev, ping)

	if perTick > limit {
		if s.acc.Suspicious(st.ID) {
			s.Flag(st.ID, st.Name, ping, fmt.Sprintf("speed=%.3f limit=%.3f over %s", perTick, limit, elapsed))
		}
		return
	}
	s.acc.Clean(st.ID)
}

// Forget drops accumulated state for a player.
func (s *Speed) Forget(id uuid.UUID) {
	s.mu.Lock()
	delete(s.anchors, id)
	s.mu.Unlock()
	s.acc.Forget(id)
}
