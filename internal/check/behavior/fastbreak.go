// Package behavior holds the detectors that watch inventory and block
// interaction patterns.
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

// FastBreak flags blocks broken faster than their hardness allows with
// the tool in hand. Instant-break blocks and creative mode are skipped,
// and re-breaking the same block position is forgiven because the host
// re-sends breaks on desync.
type FastBreak struct {
	check.Base
	cfg config.FastBreakConfig

	mu   sync.Mutex
	last map[uuid.UUID]breakSample

	acc *check.Accumulator
}

type breakSample struct {
	at  time.Time
	pos geom.Vec3
}

// NewFastBreak creates the block break timing detector.
func NewFastBreak(cfg config.FastBreakConfig, sink check.ViolationSink) *FastBreak {
	return &FastBreak{
		Base: check.NewBase("fastbreak", check.CategoryPlayer, cfg.Enabled, sink),
		cfg:  cfg,
		last: make(map[uuid.UUID]breakSample),
		acc:  check.NewAccumulator(cfg.Trigger),
	}
}

// expectedBreakTime returns the minimum legal interval before this block
// could have been broken.
func (fb *FastBreak) expectedBreakTime(ev *schema.BlockEvent) time.Duration {
	expected := time.Duration(ev.Hardness * float64(fb.cfg.HardnessMultiplier))
	if ev.CorrectTool && ev.ToolEfficiency > 0 {
		expected = time.Duration(float64(expected) / (1 + fb.cfg.EfficiencyFactor*float64(ev.ToolEfficiency)))
	}
	if expected < fb.cfg.MinBreakTime {
		expected = fb.cfg.MinBreakTime
	}
	return expected
}

// OnBlock evaluates one block break.
func (fb *FastBreak) OnBlock(st *player.State, ev *schema.BlockEvent, now time.Time) {
	if !fb.Enabled() {
		return
	}
	if ev.Action != schema.BlockBreak || ev.InstantBreak || ev.CreativeMode {
		return
	}

	fb.mu.Lock()
	prev, seen := fb.last[st.ID]
	fb.last[st.ID] = breakSample{at: now, pos: ev.Position}
	fb.mu.Unlock()

	if !seen {
		return
	}
	if prev.pos == ev.Position {
		// Desync re-break of the same block.
		return
	}

	ping := st.Ping()
	lenience := check.PingTimeLeniency(ping, fb.cfg.PingDivisor, fb.cfg.PingCapMillis)
	expected := fb.expectedBreakTime(ev) - lenience

	if interval := now.Sub(prev.at); interval < expected {
		if fb.acc.Suspicious(st.ID) {
			fb.Flag(st.ID, st.Name, ping, fmt.Sprintf("break interval=%s expected=%s block=%s", interval, expected, ev.BlockType))
		}
		return
	}
	fb.acc.Clean(st.ID)
}

// Forget drops accumulated state for a player.
func (fb *FastBreak) Forget(id uuid.UUID) {
	fb.mu.Lock()
	delete(fb.last, id)
	fb.mu.Unlock()
	fb.acc.Forget(id)
}
