// Package engine routes player action events through the detector set.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"cheatguard/internal/check"
	"cheatguard/internal/geom"
	"cheatguard/internal/player"
	"cheatguard/internal/queue"
	"cheatguard/internal/registry"
	"cheatguard/internal/schema"
)

// Detector capability interfaces. A detector implements the subset of
// hooks it needs; Attach wires it to the matching event types.
type (
	MovementCheck interface {
		check.Check
		OnMove(*player.State, *schema.MovementEvent, time.Time)
	}
	AttackCheck interface {
		check.Check
		OnAttack(*player.State, *schema.AttackEvent, time.Time)
	}
	BlockCheck interface {
		check.Check
		OnBlock(*player.State, *schema.BlockEvent, time.Time)
	}
	InventoryCheck interface {
		check.Check
		OnInventory(*player.State, *schema.InventoryEvent, time.Time)
	}
	ItemSwitchCheck interface {
		check.Check
		OnItemSwitch(*player.State, *schema.ItemSwitchEvent, time.Time)
	}
	TotemCheck interface {
		check.Check
		OnTotem(*player.State, *schema.TotemEvent, time.Time)
	}
	ResponseCheck interface {
		check.Check
		OnResponse(*player.State, *schema.ResponseEvent, time.Time)
	}
)

// Engine consumes the intake queue on a single goroutine so every
// player's events are evaluated in arrival order.
type Engine struct {
	queue    *queue.EventQueue
	store    *player.Store
	registry *registry.Registry
	logger   *slog.Logger

	combatWindow time.Duration

	moveChecks      []MovementCheck
	attackChecks    []AttackCheck
	blockChecks     []BlockCheck
	inventoryChecks []InventoryCheck
	switchChecks    []ItemSwitchCheck
	totemChecks     []TotemCheck
	responseChecks  []ResponseCheck

	stopCh chan struct{}
	wg     sync.WaitGroup

	processed atomic.Uint64
	panics    atomic.Uint64
}

// New creates an engine. combatWindow is how long an attack keeps a
// player "in combat" for the detectors that care.
func New(q *queue.EventQueue, store *player.Store, reg *registry.Registry, combatWindow time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		queue:        q,
		store:        store,
		registry:     reg,
		logger:       logger,
		combatWindow: combatWindow,
		stopCh:       make(chan struct{}),
	}
}

// Attach registers a detector with the registry and wires it to every
// event hook it implements.
func (e *Engine) Attach(c check.Check) {
	e.registry.Register(c)
	if mc, ok := c.(MovementCheck); ok {
		e.moveChecks = append(e.moveChecks, mc)
	}
	if ac, ok := c.(AttackCheck); ok {
		e.attackChecks = append(e.attackChecks, ac)
	}
	if bc, ok := c.(BlockCheck); ok {
		e.blockChecks = append(e.blockChecks, bc)
	}
	if ic, ok := c.(InventoryCheck); ok {
		e.inventoryChecks = append(e.inventoryChecks, ic)
	}
	if sc, ok := c.(ItemSwitchCheck); ok {
		e.switchChecks = append(e.switchChecks, sc)
	}
	if tc, ok := c.(TotemCheck); ok {
		e.totemChecks = append(e.totemChecks, tc)
	}
	if rc, ok := c.(ResponseCheck); ok {
		e.responseChecks = append(e.responseChecks, rc)
	}
}

// Start launches the dispatch goroutine.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		default:
		}

		ev, err := e.queue.PopBlocking()
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				return
			}
			continue
		}
		e.Process(ev)
	}
}

// Process evaluates one event. Exported so tests and synchronous intake
// paths can drive the engine directly.
func (e *Engine) Process(ev *schema.Event) {
	now := ev.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	switch ev.Type {
	case schema.EventConnect:
		e.store.Connect(ev.PlayerID, ev.PlayerName)
		e.processed.Add(1)
		return
	case schema.EventDisconnect:
		if e.store.Disconnect(ev.PlayerID) != nil {
			e.registry.ForgetPlayer(ev.PlayerID)
		}
		e.processed.Add(1)
		return
	}

	st := e.store.GetOrConnect(ev.PlayerID, ev.PlayerName)

	switch ev.Type {
	case schema.EventMovement:
		if ev.Movement == nil {
			return
		}
		st.UpdateMovement(ev.Movement.To, ev.Movement.OnGround, ev.Movement.Sprinting, now)
		for _, c := range e.moveChecks {
			e.invoke(c, func() { c.OnMove(st, ev.Movement, now) })
		}
	case schema.EventAttack:
		if ev.Attack == nil {
			return
		}
		angle := geom.ViewAngle(ev.Attack.Eye, ev.Attack.Look, ev.Attack.TargetCenter())
		st.UpdateCombat(ev.Attack.TargetID, angle, now, e.combatWindow)
		for _, c := range e.attackChecks {
			e.invoke(c, func() { c.OnAttack(st, ev.Attack, now) })
		}
	case schema.EventBlock:
		if ev.Block == nil {
			return
		}
		for _, c := range e.blockChecks {
			e.invoke(c, func() { c.OnBlock(st, ev.Block, now) })
		}
	case schema.EventInventory:
		if ev.Inventory == nil {
			return
		}
		for _, c := range e.inventoryChecks {
			e.invoke(c, func() { c.OnInventory(st, ev.Inventory, now) })
		}
	case schema.EventItemSwitch:
		if ev.ItemSwitch == nil {
			return
		}
		for _, c := range e.switchChecks {
			e.invoke(c, func() { c.OnItemSwitch(st, ev.ItemSwitch, now) })
		}
	case schema.EventTotem:
		if ev.Totem == nil {
			return
		}
		for _, c := range e.totemChecks {
			e.invoke(c, func() { c.OnTotem(st, ev.Totem, now) })
		}
	case schema.EventResponse:
		if ev.Response == nil {
			return
		}
		for _, c := range e.responseChecks {
			e.invoke(c, func() { c.OnResponse(st, ev.Response, now) })
		}
	case schema.EventDamage:
		// Informational; no detector consumes raw damage yet.
	}

	e.processed.Add(1)
}

// invoke runs one detector hook with panic isolation. A crashing
// detector must not take the dispatch loop down with it.
func (e *Engine) invoke(c check.Check, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			e.panics.Add(1)
			e.logger.Error("detector panicked",
				"check", c.Name(),
				"panic", rec)
		}
	}()
	fn()
}

// Stop halts the dispatch goroutine after the current event.
func (e *Engine) Stop() {
	close(e.stopCh)
	e.queue.Close()
	e.wg.Wait()
}

// Stats returns processed event and detector panic counts.
func (e *Engine) Stats() (processed, panics uint64) {
	return e.processed.Load(), e.panics.Load()
}
