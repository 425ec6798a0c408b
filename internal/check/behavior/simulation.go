package behavior

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

// Simulation flags clients that compute server physics locally instead of
// waiting for the server. The host pushes knockback, velocity and teleport
// updates; a vanilla client needs a round trip plus human reaction before
// its next movement reflects them.
type Simulation struct {
	check.Base
	cfg config.SimulationConfig

	mu      sync.Mutex
	pending map[uuid.UUID]pendingResponse

	acc *check.Accumulator
}

type pendingResponse struct {
	kind schema.ResponseKind
	pos  geom.Vec3
	at   time.Time
}

// NewSimulation creates the server response reaction detector.
func NewSimulation(cfg config.SimulationConfig, sink check.ViolationSink) *Simulation {
	return &Simulation{
		Base:    check.NewBase("simulation", check.CategoryPlayer, cfg.Enabled, sink),
		cfg:     cfg,
		pending: make(map[uuid.UUID]pendingResponse),
		acc:     check.NewAccumulator(cfg.Threshold),
	}
}

// minReaction returns the floor for a legitimate reaction to a push.
func (sm *Simulation) minReaction(kind schema.ResponseKind) time.Duration {
	switch kind {
	case schema.ResponseKnockback:
		return sm.cfg.MinKnockback
	case schema.ResponseVelocity:
		return sm.cfg.MinVelocity
	case schema.ResponseTeleport:
		return sm.cfg.MinTeleport
	default:
		return sm.cfg.MinResponse
	}
}

// OnResponse records a server push the player must now react to.
func (sm *Simulation) OnResponse(st *player.State, ev *schema.ResponseEvent, now time.Time) {
	if !sm.Enabled() {
		return
	}
	sm.mu.Lock()
	sm.pending[st.ID] = pendingResponse{kind: ev.Kind, pos: ev.Position, at: now}
	sm.mu.Unlock()
}

// OnMove evaluates the first movement after a pending push.
func (sm *Simulation) OnMove(st *player.State, ev *schema.MovementEvent, now time.Time) {
	if !sm.Enabled() {
		return
	}

	sm.mu.Lock()
	p, ok := sm.pending[st.ID]
	if ok {
		delete(sm.pending, st.ID)
	}
	sm.mu.Unlock()

	if !ok {
		return
	}

	ping := st.Ping()
	lenience := check.PingTimeLeniency(ping, sm.cfg.PingDivisor, sm.cfg.PingCapMillis)

	suspicious := ""
	if reaction := now.Sub(p.at); reaction < sm.minReaction(p.kind)-lenience {
		// Moved before the push could have reached the client.
		if drift := ev.To.Distance(p.pos); drift > sm.cfg.MaxPredictDistance {
			suspicious = fmt.Sprintf("%s reaction=%s drift=%.2f", p.kind, reaction, drift)
		}
	}

	if suspicious != "" {
		if sm.acc.Suspicious(st.ID) {
			sm.Flag(st.ID, st.Name, ping, suspicious)
		}
		return
	}
	sm.acc.Clean(st.ID)
}

// Forget drops accumulated state for a player.
func (sm *Simulation) Forget(id uuid.UUID) {
	sm.mu.Lock()
	delete(sm.pending, id)
	sm.mu.Unlock()
	sm.acc.Forget(id)
}
