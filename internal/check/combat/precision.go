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

const precisionWindow = 20

// Precision is the statistical aim detector. It watches four independent
// signals over a rolling window of attacks: reaction time after a target
// change, crosshair placement angle, variance of the attack cadence, and
// how often the player fights from the damage-optimal distance band.
// Humans are sloppy on all four; aim assistance is consistent.
type Precision struct {
	check.Base
	cfg config.PrecisionConfig

	mu      sync.Mutex
	players map[uuid.UUID]*precisionState

	reactionAcc *check.Accumulator
	angleAcc    *check.Accumulator
	varianceAcc *check.Accumulator
}

type precisionState struct {
	lastTargetID uuid.UUID
	lastAttack   time.Time

	intervals []float64 // milliseconds, rolling
	optimal   int
	total     int
}

// NewPrecision creates the statistical aim detector.
func NewPrecision(cfg config.PrecisionConfig, sink check.ViolationSink) *Precision {
	return &Precision{
		Base:        check.NewBase("precision", check.CategoryCombat, cfg.Enabled, sink),
		cfg:         cfg,
		players:     make(map[uuid.UUID]*precisionState),
		reactionAcc: check.NewAccumulator(cfg.ReactionTrigger),
		angleAcc:    check.NewAccumulator(cfg.AngleTrigger),
		varianceAcc: check.NewAccumulator(cfg.VarianceTrigger),
	}
}

// OnAttack evaluates one attack event.
func (p *Precision) OnAttack(st *player.State, ev *schema.AttackEvent, now time.Time) {
	if !p.Enabled() {
		return
	}

	p.mu.Lock()
	ps, ok := p.players[st.ID]
	if !ok {
		ps = &precisionState{}
		p.players[st.ID] = ps
	}

	targetChanged := ps.lastTargetID != uuid.Nil && ps.lastTargetID != ev.TargetID
	ps.lastTargetID = ev.TargetID

	var interval time.Duration
	if !ps.lastAttack.IsZero() {
		interval = now.Sub(ps.lastAttack)
		ps.intervals = append(ps.intervals, float64(interval.Milliseconds()))
		if len(ps.intervals) > precisionWindow {
			ps.intervals = ps.intervals[1:]
		}
	}
	ps.lastAttack = now

	dist := ev.TargetBox().DistanceTo(ev.Eye)
	ps.total++
	if dist >= p.cfg.OptimalMin && dist <= p.cfg.OptimalMax {
		ps.optimal++
	}
	if ps.total > precisionWindow*2 {
		// Keep the ratio rolling rather than lifetime.
		ps.total /= 2
		ps.optimal /= 2
	}

	variance, haveVariance := intervalVariance(ps.intervals, p.cfg.MinSamples)
	optimalRatio := 0.0
	if ps.total > 0 {
		optimalRatio = float64(ps.optimal) / float64(ps.total)
	}
	total := ps.total
	p.mu.Unlock()

	ping := st.Ping()

	// Landing a hit almost instantly after switching targets.
	if targetChanged {
		if interval > 0 && interval < p.cfg.MinReaction {
			if p.reactionAcc.Suspicious(st.ID) {
				p.Flag(st.ID, st.Name, ping, fmt.Sprintf("target switch reaction=%s min=%s", interval, p.cfg.MinReaction))
			}
		} else {
			p.reactionAcc.Clean(st.ID)
		}
	}

	// Crosshair pinned to the target center.
	angle := geom.ViewAngle(ev.Eye, ev.Look, ev.TargetCenter())
	if angle < p.cfg.MaxAngle {
		if p.angleAcc.Suspicious(st.ID) {
			p.Flag(st.ID, st.Name, ping, fmt.Sprintf("aim angle=%.3f max=%.3f", angle, p.cfg.MaxAngle))
		}
	} else {
		p.angleAcc.Clean(st.ID)
	}

	// Metronome cadence: human click intervals have high variance.
	if haveVariance && variance < p.cfg.MinVariance {
		if p.varianceAcc.Suspicious(st.ID) {
			p.Flag(st.ID, st.Name, ping, fmt.Sprintf("cadence variance=%.0f min=%.0f", variance, p.cfg.MinVariance))
		}
	} else if haveVariance {
		p.varianceAcc.Clean(st.ID)
	}

	// Permanently holding the optimal range is a pathing tell.
	if total >= p.cfg.MinSamples && optimalRatio > p.cfg.OptimalRatio {
		p.Flag(st.ID, st.Name, ping, fmt.Sprintf("optimal distance ratio=%.2f over %d attacks", optimalRatio, total))
		p.mu.Lock()
		if ps, ok := p.players[st.ID]; ok {
			ps.optimal = 0
			ps.total = 0
		}
		p.mu.Unlock()
	}
}

func intervalVariance(samples []float64, minSamples int) (float64, bool) {
	if len(samples) < minSamples {
		return 0, false
	}
	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	variance := 0.0
	for _, s := range samples {
		d := s - mean
		variance += d * d
	}
	return variance / float64(len(samples)), true
}

// Forget drops accumulated state for a player.
func (p *Precision) Forget(id uuid.UUID) {
	p.mu.Lock()
	delete(p.players, id)
	p.mu.Unlock()
	p.reactionAcc.Forget(id)
	p.angleAcc.Forget(id)
	p.varianceAcc.Forget(id)
}
