package behavior

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
	"cheatguard/internal/player"
	"cheatguard/internal/schema"
)

// FastPlace flags block placement faster than a human can click. Combat
// blocks like crystals and anchors get a stricter minimum because scaffold
// and crystal clients abuse exactly those.
type FastPlace struct {
	check.Base
	cfg config.FastPlaceConfig

	mu   sync.Mutex
	last map[uuid.UUID]time.Time

	acc *check.Accumulator
}

// NewFastPlace creates the block place timing detector.
func NewFastPlace(cfg config.FastPlaceConfig, sink check.ViolationSink) *FastPlace {
	return &FastPlace{
		Base: check.NewBase("fastplace", check.CategoryPlayer, cfg.Enabled, sink),
		cfg:  cfg,
		last: make(map[uuid.UUID]time.Time),
		acc:  check.NewAccumulator(cfg.Trigger),
	}
}

func isSpecialBlock(blockType string) bool {
	t := strings.ToLower(blockType)
	return strings.Contains(t, "crystal") || strings.Contains(t, "anchor") ||
		strings.Contains(t, "obsidian") || strings.Contains(t, "tnt")
}

// OnBlock evaluates one block placement.
func (fp *FastPlace) OnBlock(st *player.State, ev *schema.BlockEvent, now time.Time) {
	if !fp.Enabled() {
		return
	}
	if ev.Action != schema.BlockPlace || ev.CreativeMode {
		return
	}

	fp.mu.Lock()
	prev, seen := fp.last[st.ID]
	fp.last[st.ID] = now
	fp.mu.Unlock()

	if !seen {
		return
	}

	min := fp.cfg.MinPlaceTime
	if isSpecialBlock(ev.BlockType) {
		min = fp.cfg.MinSpecialTime
	}

	ping := st.Ping()
	min -= check.PingTimeLeniency(ping, fp.cfg.PingDivisor, fp.cfg.PingCapMillis)

	if interval := now.Sub(prev); interval < min {
		if fp.acc.Suspicious(st.ID) {
			fp.Flag(st.ID, st.Name, ping, fmt.Sprintf("place interval=%s min=%s block=%s", interval, min, ev.BlockType))
		}
		return
	}
	fp.acc.Clean(st.ID)
}

// Forget drops accumulated state for a player.
func (fp *FastPlace) Forget(id uuid.UUID) {
	fp.mu.Lock()
	delete(fp.last, id)
	fp.mu.Unlock()
	fp.acc.Forget(id)
}
