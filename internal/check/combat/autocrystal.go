package combat

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
	"cheatguard/internal/geom"
	"cheatguard/internal/player"
	"cheatguard/internal/schema"
)

// AutoCrystal flags automated end crystal placement. It watches the gaps
// between hotbar switch, placement, and break, placement reach, and
// whether the player was even looking at the spot they placed on.
type AutoCrystal struct {
	check.Base
	cfg config.AutoCrystalConfig

	mu   sync.Mutex
	seen map[uuid.UUID]*crystalTimes

	acc *check.Accumulator
}

type crystalTimes struct {
	lastSwitch time.Time
	lastPlace  time.Time
	lastBreak  time.Time
}

// NewAutoCrystal creates the crystal automation detector.
func NewAutoCrystal(cfg config.AutoCrystalConfig, sink check.ViolationSink) *AutoCrystal {
	return &AutoCrystal{
		Base: check.NewBase("autocrystal", check.CategoryCombat, cfg.Enabled, sink),
		cfg:  cfg,
		seen: make(map[uuid.UUID]*crystalTimes),
		acc:  check.NewAccumulator(cfg.Threshold),
	}
}

func (ac *AutoCrystal) times(id uuid.UUID) *crystalTimes {
	ct, ok := ac.seen[id]
	if !ok {
		ct = &crystalTimes{}
		ac.seen[id] = ct
	}
	return ct
}

// OnItemSwitch records a hotbar switch for switch-to-place timing.
func (ac *AutoCrystal) OnItemSwitch(st *player.State, _ *schema.ItemSwitchEvent, now time.Time) {
	if !ac.Enabled() {
		return
	}
	ac.mu.Lock()
	ac.times(st.ID).lastSwitch = now
	ac.mu.Unlock()
}

// OnBlock evaluates crystal place and break actions.
func (ac *AutoCrystal) OnBlock(st *player.State, ev *schema.BlockEvent, now time.Time) {
	if !ac.Enabled() {
		return
	}
	if ev.Action != schema.CrystalPlace && ev.Action != schema.CrystalBreak {
		return
	}

	ping := st.Ping()
	lenience := check.PingTimeLeniency(ping, ac.cfg.PingDivisor, ac.cfg.PingCapMillis)

	ac.mu.Lock()
	ct := ac.times(st.ID)
	var suspicious []string

	switch ev.Action {
	case schema.CrystalPlace:
		if !ct.lastSwitch.IsZero() {
			if gap := now.Sub(ct.lastSwitch); gap < ac.cfg.MinSwitchTime-lenience {
				suspicious = append(suspicious, fmt.Sprintf("switch-to-place=%s", gap))
			}
		}
		if !ct.lastPlace.IsZero() {
			if gap := now.Sub(ct.lastPlace); gap < ac.cfg.MinPlaceTime-lenience {
				suspicious = append(suspicious, fmt.Sprintf("place-interval=%s", gap))
			}
		}
		ct.lastPlace = now
	case schema.CrystalBreak:
		if !ct.lastBreak.IsZero() {
			if gap := now.Sub(ct.lastBreak); gap < ac.cfg.MinBreakTime-lenience {
				suspicious = append(suspicious, fmt.Sprintf("break-interval=%s", gap))
			}
		}
		ct.lastBreak = now
	}
	ac.mu.Unlock()

	if ev.Eye != nil {
		if dist := ev.Eye.Distance(ev.Position); dist > ac.cfg.MaxDistance {
			suspicious = append(suspicious, fmt.Sprintf("distance=%.1f", dist))
		}
		if ev.Look != nil {
			if angle := geom.ViewAngle(*ev.Eye, *ev.Look, ev.Position); angle > ac.cfg.MaxAngle {
				suspicious = append(suspicious, fmt.Sprintf("look-angle=%.1f", angle))
			}
		}
	}

	if len(suspicious) == 0 {
		ac.acc.Clean(st.ID)
		return
	}
	if ac.acc.Suspicious(st.ID) {
		ac.Flag(st.ID, st.Name, ping, fmt.Sprintf("%s: %v", ev.Action, suspicious))
	}
}

// Forget drops accumulated state for a player.
func (ac *AutoCrystal) Forget(id uuid.UUID) {
	ac.mu.Lock()
	delete(ac.seen, id)
	ac.mu.Unlock()
	ac.acc.Forget(id)
}
