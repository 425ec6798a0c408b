package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
	"cheatguard/internal/geom"
	"cheatguard/internal/player"
	"cheatguard/internal/queue"
	"cheatguard/internal/registry"
	"cheatguard/internal/schema"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type spyCheck struct {
	check.Base
	moves     int
	attacks   int
	forgotten int
	panicNow  bool
}

func newSpyCheck() *spyCheck {
	return &spyCheck{Base: check.NewBase("spy", check.CategoryCombat, true, nil)}
}

func (s *spyCheck) OnMove(*player.State, *schema.MovementEvent, time.Time) {
	if s.panicNow {
		panic("boom")
	}
	s.moves++
}

func (s *spyCheck) OnAttack(*player.State, *schema.AttackEvent, time.Time) {
	s.attacks++
}

func (s *spyCheck) Forget(uuid.UUID) { s.forgotten++ }

func newTestEngine() (*Engine, *player.Store, *registry.Registry) {
	checks := config.DefaultChecksConfig()
	store := player.NewStore(100)
	reg := registry.New(&checks, store, nil, testLogger())
	eng := New(queue.New(64), store, reg, 500*time.Millisecond, testLogger())
	return eng, store, reg
}

func event(id uuid.UUID, typ schema.EventType) *schema.Event {
	return &schema.Event{
		EventID:    uuid.New(),
		Timestamp:  time.Now(),
		PlayerID:   id,
		PlayerName: "steve",
		Type:       typ,
	}
}

func TestEngine_ConnectDisconnectLifecycle(t *testing.T) {
	eng, store, _ := newTestEngine()
	spy := newSpyCheck()
	eng.Attach(spy)

	id := uuid.New()
	eng.Process(event(id, schema.EventConnect))
	if store.Count() != 1 {
		t.Fatalf("expected 1 tracked player, got %d", store.Count())
	}

	eng.Process(event(id, schema.EventDisconnect))
	if store.Count() != 0 {
		t.Errorf("expected 0 tracked players, got %d", store.Count())
	}
	if spy.forgotten != 1 {
		t.Errorf("disconnect should purge detector state, forgotten=%d", spy.forgotten)
	}
}

func TestEngine_RoutesByEventType(t *testing.T) {
	eng, _, _ := newTestEngine()
	spy := newSpyCheck()
	eng.Attach(spy)

	id := uuid.New()
	ev := event(id, schema.EventMovement)
	ev.Movement = &schema.MovementEvent{To: geom.Vec3{Y: 64}, OnGround: true}
	eng.Process(ev)

	atk := event(id, schema.EventAttack)
	atk.Attack = &schema.AttackEvent{
		TargetID:     uuid.New(),
		Eye:          geom.Vec3{Y: 1.62},
		Look:         geom.Vec3{Z: 1},
		TargetBase:   geom.Vec3{Z: 3},
		TargetHeight: 1.8,
		TargetWidth:  0.6,
	}
	eng.Process(atk)

	if spy.moves != 1 || spy.attacks != 1 {
		t.Errorf("moves=%d attacks=%d, want 1 and 1", spy.moves, spy.attacks)
	}
}

func TestEngine_MovementUpdatesStateBeforeChecks(t *testing.T) {
	eng, store, _ := newTestEngine()

	var seenAirTicks int
	probe := &airProbe{Base: check.NewBase("probe", check.CategoryMovement, true, nil), out: &seenAirTicks}
	eng.Attach(probe)

	id := uuid.New()
	ev := event(id, schema.EventMovement)
	ev.Movement = &schema.MovementEvent{To: geom.Vec3{Y: 65}, OnGround: false}
	eng.Process(ev)

	st, _ := store.Get(id)
	if st.Snapshot().AirTicks != 1 {
		t.Fatalf("air ticks = %d, want 1", st.Snapshot().AirTicks)
	}
	if seenAirTicks != 1 {
		t.Errorf("detector saw air ticks %d, want the updated value 1", seenAirTicks)
	}
}

type airProbe struct {
	check.Base
	out  *int
	runs int
}

func (a *airProbe) OnMove(st *player.State, _ *schema.MovementEvent, _ time.Time) {
	a.runs++
	*a.out = st.Snapshot().AirTicks
}

func (a *airProbe) Forget(uuid.UUID) {}

func TestEngine_AttackMarksCombat(t *testing.T) {
	eng, store, _ := newTestEngine()

	id := uuid.New()
	atk := event(id, schema.EventAttack)
	atk.Attack = &schema.AttackEvent{
		TargetID:     uuid.New(),
		Eye:          geom.Vec3{Y: 1.62},
		Look:         geom.Vec3{Z: 1},
		TargetBase:   geom.Vec3{Z: 3},
		TargetHeight: 1.8,
		TargetWidth:  0.6,
	}
	eng.Process(atk)

	st, _ := store.Get(id)
	if !st.InCombat(atk.Timestamp.Add(400 * time.Millisecond)) {
		t.Error("player should be in combat after an attack")
	}
	if st.InCombat(atk.Timestamp.Add(time.Second)) {
		t.Error("combat window should expire")
	}
}

func TestEngine_PanicIsolation(t *testing.T) {
	eng, _, _ := newTestEngine()
	bad := newSpyCheck()
	bad.panicNow = true
	eng.Attach(bad)

	good := &airProbe{Base: check.NewBase("good", check.CategoryMovement, true, nil), out: new(int)}
	eng.Attach(good)

	id := uuid.New()
	ev := event(id, schema.EventMovement)
	ev.Movement = &schema.MovementEvent{To: geom.Vec3{Y: 64}, OnGround: true}
	eng.Process(ev)

	if _, panics := eng.Stats(); panics != 1 {
		t.Errorf("expected 1 recorded panic, got %d", panics)
	}
	if good.runs != 1 {
		t.Errorf("detector after the panicking one should still run, runs=%d", good.runs)
	}
}

func TestEngine_MissingPayloadIgnored(t *testing.T) {
	eng, _, _ := newTestEngine()
	spy := newSpyCheck()
	eng.Attach(spy)

	ev := event(uuid.New(), schema.EventMovement)
	// No movement payload.
	eng.Process(ev)

	if spy.moves != 0 {
		t.Errorf("payloadless event must not reach detectors, got %d", spy.moves)
	}
}

func TestEngine_QueueDriven(t *testing.T) {
	checks := config.DefaultChecksConfig()
	store := player.NewStore(100)
	reg := registry.New(&checks, store, nil, testLogger())
	q := queue.New(64)
	eng := New(q, store, reg, 500*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	id := uuid.New()
	q.Push(event(id, schema.EventConnect))

	deadline := time.After(2 * time.Second)
	for store.Count() != 1 {
		select {
		case <-deadline:
			t.Fatal("engine never consumed the queued event")
		case <-time.After(5 * time.Millisecond):
		}
	}
	eng.Stop()
}
