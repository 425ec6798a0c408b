// Package combat holds the detectors that watch attack behavior.
package combat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
	"cheatguard/internal/player"
	"cheatguard/internal/schema"
)

// Reach flags attacks landed from beyond the melee range the engine
// allows. Threshold widens with ping, capped at one block.
type Reach struct {
	check.Base
	cfg config.ReachConfig
	acc *check.Accumulator
}

// NewReach creates the attack distance detector.
func NewReach(cfg config.ReachConfig, sink check.ViolationSink) *Reach {
	return &Reach{
		Base: check.NewBase("reach", check.CategoryCombat, cfg.Enabled, sink),
		cfg:  cfg,
		acc:  check.NewAccumulator(cfg.Trigger),
	}
}

// OnAttack evaluates one attack event.
func (r *Reach) OnAttack(st *player.State, ev *schema.AttackEvent, _ time.Time) {
	if !r.Enabled() {
		return
	}

	box := ev.TargetBox()
	dist := box.DistanceTo(ev.Eye)

	ping := st.Ping()
	limit := r.cfg.MaxDistance + check.PingDistanceLeniency(ping, r.cfg.PingDivisor, r.cfg.PingCap)

	if dist > limit {
		if r.acc.Suspicious(st.ID) {
			r.Flag(st.ID, st.Name, ping, fmt.Sprintf("distance=%.2f limit=%.2f", dist, limit))
		}
		return
	}
	r.acc.Clean(st.ID)
}

// Forget drops accumulated state for a player.
func (r *Reach) Forget(id uuid.UUID) {
	r.acc.Forget(id)
}
