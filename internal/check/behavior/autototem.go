package behavior

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

// AutoTotem flags scripted totem management: re-equipping a totem faster
// than a human can open the inventory after a pop, pops where the offhand
// is already refilled, and inventory traffic mid-combat.
type AutoTotem struct {
	check.Base
	cfg config.AutoTotemConfig

	mu   sync.Mutex
	pops map[uuid.UUID]time.Time

	acc *check.Accumulator
}

// NewAutoTotem creates the totem swap detector.
func NewAutoTotem(cfg config.AutoTotemConfig, sink check.ViolationSink) *AutoTotem {
	return &AutoTotem{
		Base: check.NewBase("autototem", check.CategoryPlayer, cfg.Enabled, sink),
		cfg:  cfg,
		pops: make(map[uuid.UUID]time.Time),
		acc:  check.NewAccumulator(cfg.Threshold),
	}
}

// OnTotem evaluates a totem equip or pop.
func (at *AutoTotem) OnTotem(st *player.State, ev *schema.TotemEvent, now time.Time) {
	if !at.Enabled() {
		return
	}

	ping := st.Ping()

	switch ev.Action {
	case schema.TotemPop:
		at.mu.Lock()
		prevPop, seen := at.pops[st.ID]
		at.pops[st.ID] = now
		at.mu.Unlock()

		// Offhand already holding the next totem at pop time means the
		// swap happened before the pop finished resolving. A pop with
		// an empty offhand says nothing either way.
		if !ev.OffhandRefilled {
			return
		}
		if !seen {
			if at.acc.Suspicious(st.ID) {
				at.Flag(st.ID, st.Name, ping, "first pop with offhand already refilled")
			}
			return
		}
		lenience := check.PingTimeLeniency(ping, at.cfg.PingDivisor, at.cfg.PopPingCap)
		if gap := now.Sub(prevPop); gap < at.cfg.MinPopRefill-lenience {
			if at.acc.Suspicious(st.ID) {
				at.Flag(st.ID, st.Name, ping, fmt.Sprintf("pop with refilled offhand, gap=%s", gap))
			}
			return
		}
		at.acc.Clean(st.ID)

	case schema.TotemEquip:
		at.mu.Lock()
		prevPop, seen := at.pops[st.ID]
		at.mu.Unlock()

		// An equip with no pop on record is ordinary preparation.
		if !seen {
			return
		}
		lenience := check.PingTimeLeniency(ping, at.cfg.PingDivisor, at.cfg.ReactionPingCap)
		if reaction := now.Sub(prevPop); reaction < at.cfg.MinReaction-lenience {
			if at.acc.Suspicious(st.ID) {
				at.Flag(st.ID, st.Name, ping, fmt.Sprintf("re-equip reaction=%s min=%s", reaction, at.cfg.MinReaction))
			}
			return
		}
		at.acc.Clean(st.ID)
	}
}

// OnInventory flags inventory traffic while the player is actively
// fighting. Humans do not sort chests mid-crystal-fight.
func (at *AutoTotem) OnInventory(st *player.State, _ *schema.InventoryEvent, now time.Time) {
	if !at.Enabled() {
		return
	}
	if !st.InCombat(now) {
		return
	}
	if at.acc.Suspicious(st.ID) {
		at.Flag(st.ID, st.Name, st.Ping(), "inventory action during combat")
	}
}

// Forget drops accumulated state for a player.
func (at *AutoTotem) Forget(id uuid.UUID) {
	at.mu.Lock()
	delete(at.pops, id)
	at.mu.Unlock()
	at.acc.Forget(id)
}
