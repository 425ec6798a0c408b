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

// Inventory flags inventory interaction that the vanilla client cannot
// produce: clicking through an open inventory while moving at speed, and
// clicks landing impossibly fast after an attack swing.
type Inventory struct {
	check.Base
	cfg config.InventoryConfig

	mu      sync.Mutex
	attacks map[uuid.UUID]time.Time

	acc *check.Accumulator
}

// NewInventory creates the inventory interaction detector.
func NewInventory(cfg config.InventoryConfig, sink check.ViolationSink) *Inventory {
	return &Inventory{
		Base:    check.NewBase("inventory", check.CategoryPlayer, cfg.Enabled, sink),
		cfg:     cfg,
		attacks: make(map[uuid.UUID]time.Time),
		acc:     check.NewAccumulator(cfg.Trigger),
	}
}

// OnAttack records the attack time for attack-to-click correlation.
func (iv *Inventory) OnAttack(st *player.State, _ *schema.AttackEvent, now time.Time) {
	if !iv.Enabled() {
		return
	}
	iv.mu.Lock()
	iv.attacks[st.ID] = now
	iv.mu.Unlock()
}

// OnInventory evaluates one inventory click.
func (iv *Inventory) OnInventory(st *player.State, ev *schema.InventoryEvent, now time.Time) {
	if !iv.Enabled() {
		return
	}

	ping := st.Ping()
	suspicious := ""

	// The vanilla client stops the player while a container is open.
	if ev.VelocitySq > iv.cfg.MaxVelocitySq && ev.InventoryKind != "" && ev.InventoryKind != "player" {
		suspicious = fmt.Sprintf("moving during %s inventory, velocity_sq=%.3f", ev.InventoryKind, ev.VelocitySq)
	}

	iv.mu.Lock()
	lastAttack, attacked := iv.attacks[st.ID]
	iv.mu.Unlock()

	if suspicious == "" && attacked {
		if gap := now.Sub(lastAttack); gap >= 0 && gap < iv.cfg.MinAttackClick {
			suspicious = fmt.Sprintf("attack-to-click=%s min=%s", gap, iv.cfg.MinAttackClick)
		}
	}

	if suspicious != "" {
		if iv.acc.Suspicious(st.ID) {
			iv.Flag(st.ID, st.Name, ping, suspicious)
		}
		return
	}
	iv.acc.Clean(st.ID)
}

// Forget drops accumulated state for a player.
func (iv *Inventory) Forget(id uuid.UUID) {
	iv.mu.Lock()
	delete(iv.attacks, id)
	iv.mu.Unlock()
	iv.acc.Forget(id)
}
