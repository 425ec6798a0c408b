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

// TriggerBot flags attack streams where every hit lands with near perfect
// crosshair placement at machine cadence. Human aim drifts; a trigger bot
// fires the instant the crosshair crosses the target.
type TriggerBot struct {
	check.Base
	cfg config.TriggerBotConfig

	mu   sync.Mutex
	last map[uuid.UUID]time.Time

	acc *check.Accumulator
}

// NewTriggerBot creates the instant-fire detector.
func NewTriggerBot(cfg config.TriggerBotConfig, sink check.ViolationSink) *TriggerBot {
	return &TriggerBot{
		Base: check.NewBase("triggerbot", check.CategoryCombat, cfg.Enabled, sink),
		cfg:  cfg,
		last: make(map[uuid.UUID]time.Time),
		acc:  check.NewAccumulator(cfg.Trigger),
	}
}

// OnAttack evaluates one attack event.
func (tb *TriggerBot) OnAttack(st *player.State, ev *schema.AttackEvent, now time.Time) {
	if !tb.Enabled() {
		return
	}

	tb.mu.Lock()
	prev, seen := tb.last[st.ID]
	tb.last[st.ID] = now
	tb.mu.Unlock()

	if !seen {
		return
	}

	angle := geom.ViewAngle(ev.Eye, ev.Look, ev.TargetCenter())
	interval := now.Sub(prev)

	if angle < tb.cfg.MaxAngle && interval < tb.cfg.MinInterval {
		if tb.acc.Suspicious(st.ID) {
			tb.Flag(st.ID, st.Name, st.Ping(), fmt.Sprintf("angle=%.2f interval=%s", angle, interval))
		}
		return
	}
	tb.acc.Clean(st.ID)
}

// Forget drops accumulated state for a player.
func (tb *TriggerBot) Forget(id uuid.UUID) {
	tb.mu.Lock()
	delete(tb.last, id)
	tb.mu.Unlock()
	tb.acc.Forget(id)
}
