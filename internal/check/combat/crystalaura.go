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

// CrystalAura flags the place-then-break loop of crystal combat clients.
// The tell is the same crystal being placed and broken faster than a
// client round trip allows, repeatedly.
type CrystalAura struct {
	check.Base
	cfg config.CrystalAuraConfig

	mu   sync.Mutex
	seen map[uuid.UUID]*auraTimes

	acc *check.Accumulator
}

type auraTimes struct {
	lastPlace time.Time
	lastBreak time.Time
	sequences int
}

// NewCrystalAura creates the place-break sequence detector.
func NewCrystalAura(cfg config.CrystalAuraConfig, sink check.ViolationSink) *CrystalAura {
	return &CrystalAura{
		Base: check.NewBase("crystalaura", check.CategoryCombat, cfg.Enabled, sink),
		cfg:  cfg,
		seen: make(map[uuid.UUID]*auraTimes),
		acc:  check.NewAccumulator(cfg.Threshold),
	}
}

// OnBlock evaluates crystal place and break actions.
func (ca *CrystalAura) OnBlock(st *player.State, ev *schema.BlockEvent, now time.Time) {
	if !ca.Enabled() {
		return
	}
	if ev.Action != schema.CrystalPlace && ev.Action != schema.CrystalBreak {
		return
	}

	ping := st.Ping()
	lenience := check.PingTimeLeniency(ping, ca.cfg.PingDivisor, ca.cfg.PingCapMillis)

	ca.mu.Lock()
	at, ok := ca.seen[st.ID]
	if !ok {
		at = &auraTimes{}
		ca.seen[st.ID] = at
	}

	var suspicious []string
	switch ev.Action {
	case schema.CrystalPlace:
		if !at.lastPlace.IsZero() {
			if gap := now.Sub(at.lastPlace); gap < ca.cfg.MinPlaceTime-lenience {
				suspicious = append(suspicious, fmt.Sprintf("place-interval=%s", gap))
			}
		}
		at.lastPlace = now
	case schema.CrystalBreak:
		if !at.lastBreak.IsZero() {
			if gap := now.Sub(at.lastBreak); gap < ca.cfg.MinBreakTime-lenience {
				suspicious = append(suspicious, fmt.Sprintf("break-interval=%s", gap))
			}
		}
		// A break right on the heels of a place is the aura loop.
		if !at.lastPlace.IsZero() && now.Sub(at.lastPlace) < ca.cfg.MinSequence {
			at.sequences++
			if at.sequences >= ca.cfg.SequenceTrig {
				suspicious = append(suspicious, fmt.Sprintf("place-break sequences=%d", at.sequences))
				at.sequences = 0
			}
		} else if at.sequences > 0 {
			at.sequences--
		}
		at.lastBreak = now
	}
	ca.mu.Unlock()

	if ev.Eye != nil && ev.Look != nil {
		if angle := geom.ViewAngle(*ev.Eye, *ev.Look, ev.Position); angle > ca.cfg.MaxAngle {
			suspicious = append(suspicious, fmt.Sprintf("look-angle=%.1f", angle))
		}
	}

	if len(suspicious) == 0 {
		ca.acc.Clean(st.ID)
		return
	}
	if ca.acc.Suspicious(st.ID) {
		ca.Flag(st.ID, st.Name, ping, fmt.Sprintf("%s: %v", ev.Action, suspicious))
	}
}

// Forget drops accumulated state for a player.
func (ca *CrystalAura) Forget(id uuid.UUID) {
	ca.mu.Lock()
	delete(ca.seen, id)
	ca.mu.Unlock()
	ca.acc.Forget(id)
}
