package combat

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
	"cheatguard/internal/geom"
	"cheatguard/internal/player"
	"cheatguard/internal/schema"
)

// Hitbox flags attacks whose aim ray never crosses the target's bounding
// box even after a generous expansion for latency.
type Hitbox struct {
	check.Base
	cfg config.HitboxConfig
	acc *check.Accumulator
}

// NewHitbox creates the aim ray detector.
func NewHitbox(cfg config.HitboxConfig, sink check.ViolationSink) *Hitbox {
	return &Hitbox{
		Base: check.NewBase("hitbox", check.CategoryCombat, cfg.Enabled, sink),
		cfg:  cfg,
		acc:  check.NewAccumulator(cfg.Trigger),
	}
}

// OnAttack evaluates one attack event.
func (h *Hitbox) OnAttack(st *player.State, ev *schema.AttackEvent, _ time.Time) {
	if !h.Enabled() {
		return
	}

	ping := st.Ping()
	expansion := h.cfg.Expansion + check.PingDistanceLeniency(ping, h.cfg.PingDivisor, h.cfg.PingCap)
	box := ev.TargetBox().Expand(expansion)

	if !box.IntersectsRay(ev.Eye, ev.Look, h.cfg.MaxDistance) {
		if h.acc.Suspicious(st.ID) {
			angle := geom.ViewAngle(ev.Eye, ev.Look, ev.TargetCenter())
			h.Flag(st.ID, st.Name, ping, fmt.Sprintf("aim ray missed expanded hitbox, angle=%.1f expansion=%.2f", angle, expansion))
		}
		return
	}
	h.acc.Clean(st.ID)
}

// Forget drops accumulated state for a player.
func (h *Hitbox) Forget(id uuid.UUID) {
	h.acc.Forget(id)
}
