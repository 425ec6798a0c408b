package movement

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

// Fly flags players who gain more height than a jump allows or hang in
// the air without ever descending. Elytra, climbing, water and flight
// mode are exempt; the host reports those per movement event.
type Fly struct {
	check.Base
	cfg config.FlyConfig

	mu   sync.Mutex
	seen map[uuid.UUID]*flyState

	heightAcc *check.Accumulator
	hoverAcc  *check.Accumulator
}

type flyState struct {
	groundY     float64
	haveTakeoff bool
	lastCheck   time.Time
}

// NewFly creates the airborne movement detector.
func NewFly(cfg config.FlyConfig, sink check.ViolationSink) *Fly {
	return &Fly{
		Base:      check.NewBase("fly", check.CategoryMovement, cfg.Enabled, sink),
		cfg:       cfg,
		seen:      make(map[uuid.UUID]*flyState),
		heightAcc: check.NewAccumulator(cfg.HeightTrigger),
		hoverAcc:  check.NewAccumulator(cfg.HoverTrigger),
	}
}

// maxJump returns the height a legitimate jump can gain.
func (f *Fly) maxJump(effects schema.StatusEffects) float64 {
	return f.cfg.MaxJumpHeight + f.cfg.JumpBoostBonus*float64(effects.JumpBoost) + f.cfg.Buffer
}

// OnMove evaluates one movement event.
func (f *Fly) OnMove(st *player.State, ev *schema.MovementEvent, now time.Time) {
	if !f.Enabled() {
		return
	}
	if ev.Exempt.Any() {
		f.mu.Lock()
		delete(f.seen, st.ID)
		f.mu.Unlock()
		return
	}

	f.mu.Lock()
	fs, ok := f.seen[st.ID]
	if !ok {
		fs = &flyState{}
		f.seen[st.ID] = fs
	}

	if ev.OnGround {
		fs.groundY = ev.To.Y
		fs.haveTakeoff = true
		f.mu.Unlock()
		f.heightAcc.Clean(st.ID)
		f.hoverAcc.Clean(st.ID)
		return
	}

	gain := 0.0
	if fs.haveTakeoff {
		gain = ev.To.Y - fs.groundY
	}

	// Cadence gate: evaluate about once a second per player.
	if !fs.lastCheck.IsZero() && now.Sub(fs.lastCheck) < f.cfg.CheckInterval {
		f.mu.Unlock()
		return
	}
	fs.lastCheck = now
	sample := *fs
	f.mu.Unlock()

	ping := st.Ping()
	snap := st.Snapshot()

	if sample.haveTakeoff && gain > f.maxJump(ev.Effects) {
		if f.heightAcc.Suspicious(st.ID) {
			f.Flag(st.ID, st.Name, ping, fmt.Sprintf("height gain=%.2f max=%.2f", gain, f.maxJump(ev.Effects)))
		}
	} else {
		f.heightAcc.Clean(st.ID)
	}

	// Hovering: a long airtime while not falling. Gravity always wins
	// eventually for a legitimate player.
	deltaY := ev.To.Y - ev.From.Y
	if snap.AirTicks > f.cfg.MaxAirTicks && deltaY >= 0 {
		if f.hoverAcc.Suspicious(st.ID) {
			f.Flag(st.ID, st.Name, ping, fmt.Sprintf("air ticks=%d deltaY=%.3f", snap.AirTicks, deltaY))
		}
	} else if deltaY < 0 {
		f.hoverAcc.Clean(st.ID)
	}
}

// Forget drops accumulated state for a player.
func (f *Fly) Forget(id uuid.UUID) {
	f.mu.Lock()
	delete(f.seen, id)
	f.mu.Unlock()
	f.heightAcc.Forget(id)
	f.hoverAcc.Forget(id)
}
