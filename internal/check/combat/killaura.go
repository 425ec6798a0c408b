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

// KillAura flags inhumanly fast attack cadence and impossible head
// rotation between consecutive attacks.
type KillAura struct {
	check.Base
	cfg config.KillAuraConfig

	mu   sync.Mutex
	last map[uuid.UUID]killAuraSample

	speedAcc *check.Accumulator
	angleAcc *check.Accumulator
}

type killAuraSample struct {
	at   time.Time
	look geom.Vec3
}

// NewKillAura creates the attack cadence detector.
func NewKillAura(cfg config.KillAuraConfig, sink check.ViolationSink) *KillAura {
	return &KillAura{
		Base:     check.NewBase("killaura", check.CategoryCombat, cfg.Enabled, sink),
		cfg:      cfg,
		last:     make(map[uuid.UUID]killAuraSample),
		speedAcc: check.NewAccumulator(cfg.SpeedTrigger),
		angleAcc: check.NewAccumulator(cfg.AngleTrigger),
	}
}

// OnAttack evaluates one attack event.
func (k *KillAura) OnAttack(st *player.State, ev *schema.AttackEvent, now time.Time) {
	if !k.Enabled() {
		return
	}

	k.mu.Lock()
	prev, seen := k.last[st.ID]
	k.last[st.ID] = killAuraSample{at: now, look: ev.Look}
	k.mu.Unlock()

	if !seen {
		return
	}

	ping := st.Ping()

	interval := now.Sub(prev.at)
	if interval < k.cfg.MinInterval {
		if k.speedAcc.Suspicious(st.ID) {
			k.Flag(st.ID, st.Name, ping, fmt.Sprintf("interval=%s min=%s", interval, k.cfg.MinInterval))
		}
	} else {
		k.speedAcc.Clean(st.ID)
	}

	// Head snapping: huge look rotation between two attacks in close
	// succession is beyond human mouse movement.
	rotation := geom.AngleDegrees(prev.look, ev.Look)
	if rotation > k.cfg.MaxAngleChange && interval < 2*k.cfg.MinInterval {
		if k.angleAcc.Suspicious(st.ID) {
			k.Flag(st.ID, st.Name, ping, fmt.Sprintf("rotation=%.1f max=%.1f interval=%s", rotation, k.cfg.MaxAngleChange, interval))
		}
	} else {
		k.angleAcc.Clean(st.ID)
	}
}

// Forget drops accumulated state for a player.
func (k *KillAura) Forget(id uuid.UUID) {
	k.mu.Lock()
	delete(k.last, id)
	k.mu.Unlock()
	k.speedAcc.Forget(id)
	k.angleAcc.Forget(id)
}
