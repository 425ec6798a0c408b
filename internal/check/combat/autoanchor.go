package combat

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
	"cheatguard/internal/player"
	"cheatguard/internal/schema"
)

// AutoAnchor flags automated respawn anchor combat. The full cycle is
// place, charge, detonate, each gated by human-speed interaction times,
// plus the hotbar switch to glowstone in between.
type AutoAnchor struct {
	check.Base
	cfg config.AutoAnchorConfig

	mu   sync.Mutex
	seen map[uuid.UUID]*anchorTimes

	acc *check.Accumulator
}

type anchorTimes struct {
	lastSwitch   time.Time
	lastPlace    time.Time
	lastCharge   time.Time
	lastDetonate time.Time
}

// NewAutoAnchor creates the anchor automation detector.
func NewAutoAnchor(cfg config.AutoAnchorConfig, sink check.ViolationSink) *AutoAnchor {
	return &AutoAnchor{
		Base: check.NewBase("autoanchor", check.CategoryCombat, cfg.Enabled, sink),
		cfg:  cfg,
		seen: make(map[uuid.UUID]*anchorTimes),
		acc:  check.NewAccumulator(cfg.Threshold),
	}
}

// OnItemSwitch records a hotbar switch for switch-to-action timing.
func (aa *AutoAnchor) OnItemSwitch(st *player.State, _ *schema.ItemSwitchEvent, now time.Time) {
	if !aa.Enabled() {
		return
	}
	aa.mu.Lock()
	at, ok := aa.seen[st.ID]
	if !ok {
		at = &anchorTimes{}
		aa.seen[st.ID] = at
	}
	at.lastSwitch = now
	aa.mu.Unlock()
}

// OnBlock evaluates anchor place, charge and detonate actions.
func (aa *AutoAnchor) OnBlock(st *player.State, ev *schema.BlockEvent, now time.Time) {
	if !aa.Enabled() {
		return
	}
	switch ev.Action {
	case schema.AnchorPlace, schema.AnchorCharge, schema.AnchorDetonate:
	default:
		return
	}

	ping := st.Ping()
	lenience := check.PingTimeLeniency(ping, aa.cfg.PingDivisor, aa.cfg.PingCapMillis)

	aa.mu.Lock()
	at, ok := aa.seen[st.ID]
	if !ok {
		at = &anchorTimes{}
		aa.seen[st.ID] = at
	}

	var suspicious []string
	tooFast := func(since time.Time, min time.Duration, label string) {
		if since.IsZero() {
			return
		}
		if gap := now.Sub(since); gap < min-lenience {
			suspicious = append(suspicious, fmt.Sprintf("%s=%s", label, gap))
		}
	}

	switch ev.Action {
	case schema.AnchorPlace:
		tooFast(at.lastSwitch, aa.cfg.MinSwitchTime, "switch-to-place")
		tooFast(at.lastPlace, aa.cfg.MinPlaceTime, "place-interval")
		at.lastPlace = now
	case schema.AnchorCharge:
		tooFast(at.lastPlace, aa.cfg.MinPlaceCharge, "place-to-charge")
		tooFast(at.lastCharge, aa.cfg.MinChargeTime, "charge-interval")
		at.lastCharge = now
	case schema.AnchorDetonate:
		tooFast(at.lastCharge, aa.cfg.MinChargeDetonate, "charge-to-detonate")
		tooFast(at.lastDetonate, aa.cfg.MinDetonateTime, "detonate-interval")
		at.lastDetonate = now
	}
	aa.mu.Unlock()

	if ev.Eye != nil {
		if dist := ev.Eye.Distance(ev.Position); dist > aa.cfg.MaxDistance {
			suspicious = append(suspicious, fmt.Sprintf("distance=%.1f", dist))
		}
	}

	if len(suspicious) == 0 {
		aa.acc.Clean(st.ID)
		return
	}
	if aa.acc.Suspicious(st.ID) {
		aa.Flag(st.ID, st.Name, ping, fmt.Sprintf("%s: %v", ev.Action, suspicious))
	}
}

// Forget drops accumulated state for a player.
func (aa *AutoAnchor) Forget(id uuid.UUID) {
	aa.mu.Lock()
	delete(aa.seen, id)
	aa.mu.Unlock()
	aa.acc.Forget(id)
}
