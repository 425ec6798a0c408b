package player

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/geom"
)

func TestState_UpdateMovementAirTicks(t *testing.T) {
	st := NewState(uuid.New(), "steve", 100)

	now := time.Now()
	st.UpdateMovement(geom.Vec3{X: 0, Y: 64, Z: 0}, true, false, now)
	if st.Snapshot().AirTicks != 0 {
		t.Errorf("on ground should zero air ticks, got %d", st.Snapshot().AirTicks)
	}

	for i := 0; i < 5; i++ {
		st.UpdateMovement(geom.Vec3{X: 0, Y: 65 + float64(i), Z: 0}, false, false, now)
	}
	if got := st.Snapshot().AirTicks; got != 5 {
		t.Errorf("expected 5 air ticks, got %d", got)
	}

	st.UpdateMovement(geom.Vec3{X: 0, Y: 64, Z: 0}, true, false, now)
	if got := st.Snapshot().AirTicks; got != 0 {
		t.Errorf("landing should reset air ticks, got %d", got)
	}
}

func TestState_Violations(t *testing.T) {
	st := NewState(uuid.New(), "alex", 100)

	if lvl := st.AddViolation("reach"); lvl != 1 {
		t.Errorf("expected level 1, got %d", lvl)
	}
	if lvl := st.AddViolation("reach"); lvl != 2 {
		t.Errorf("expected level 2, got %d", lvl)
	}
	if lvl := st.AddViolation("speed"); lvl != 1 {
		t.Errorf("independent check should start at 1, got %d", lvl)
	}

	st.ResetViolations("reach")
	if lvl := st.ViolationLevel("reach"); lvl != 0 {
		t.Errorf("reset should zero level, got %d", lvl)
	}
	if lvl := st.ViolationLevel("speed"); lvl != 1 {
		t.Errorf("reset must not touch other checks, got %d", lvl)
	}

	if lvl := st.AddViolation("reach"); lvl != 1 {
		t.Errorf("level after reset should count from 1, got %d", lvl)
	}
}

func TestState_InCombat(t *testing.T) {
	st := NewState(uuid.New(), "steve", 100)
	now := time.Now()

	if st.InCombat(now) {
		t.Error("fresh state should not be in combat")
	}

	st.UpdateCombat(uuid.New(), 1.5, now, 500*time.Millisecond)
	if !st.InCombat(now.Add(400 * time.Millisecond)) {
		t.Error("should be in combat within window")
	}
	if st.InCombat(now.Add(600 * time.Millisecond)) {
		t.Error("combat window should have expired")
	}
}

func TestStore_ConnectDisconnect(t *testing.T) {
	store := NewStore(100)
	id := uuid.New()

	st := store.Connect(id, "steve")
	if st.Ping() != 100 {
		t.Errorf("expected default ping seed, got %d", st.Ping())
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 player, got %d", store.Count())
	}

	// Reconnect returns the same state.
	again := store.Connect(id, "steve")
	if again != st {
		t.Error("reconnect should return existing state")
	}
	if store.Count() != 1 {
		t.Errorf("reconnect must not duplicate, got %d", store.Count())
	}

	gone := store.Disconnect(id)
	if gone != st {
		t.Error("disconnect should return the removed state")
	}
	if store.Count() != 0 {
		t.Errorf("expected empty store, got %d", store.Count())
	}
	if store.Disconnect(id) != nil {
		t.Error("double disconnect should return nil")
	}
}

func TestStore_GetOrConnect(t *testing.T) {
	store := NewStore(100)
	id := uuid.New()

	st := store.GetOrConnect(id, "alex")
	if st == nil {
		t.Fatal("expected state")
	}
	if got, ok := store.Get(id); !ok || got != st {
		t.Error("player should be tracked after GetOrConnect")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore(100)
	ids := make([]uuid.UUID, 50)
	for i := range ids {
		ids[i] = uuid.New()
		store.Connect(ids[i], "p")
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func(id uuid.UUID) {
			defer wg.Done()
			if st, ok := store.Get(id); ok {
				st.UpdatePing(50)
			}
		}(id)
		go func(id uuid.UUID) {
			defer wg.Done()
			if st, ok := store.Get(id); ok {
				st.AddViolation("reach")
			}
		}(id)
	}
	wg.Wait()

	if store.Count() != 50 {
		t.Errorf("expected 50 players, got %d", store.Count())
	}
	seen := 0
	store.ForEach(func(st *State) { seen++ })
	if seen != 50 {
		t.Errorf("ForEach visited %d, want 50", seen)
	}
}
