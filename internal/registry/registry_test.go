package registry

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
	"cheatguard/internal/player"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type stubCheck struct {
	check.Base
	forgotten []uuid.UUID
}

func newStubCheck(name string, cat check.Category) *stubCheck {
	return &stubCheck{Base: check.NewBase(name, cat, true, nil)}
}

func (s *stubCheck) Forget(id uuid.UUID) {
	s.forgotten = append(s.forgotten, id)
}

type recordingExecutor struct {
	mu       sync.Mutex
	commands []string
}

func (r *recordingExecutor) Execute(_ context.Context, command string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, command)
	return nil
}

func (r *recordingExecutor) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

type recordingObserver struct {
	violations []check.Violation
}

func (r *recordingObserver) ObserveViolation(v check.Violation) {
	r.violations = append(r.violations, v)
}

func newTestRegistry(t *testing.T) (*Registry, *player.Store, *recordingExecutor) {
	t.Helper()
	checks := config.DefaultChecksConfig()
	store := player.NewStore(100)
	exec := &recordingExecutor{}
	disp := NewDispatcher(exec, 16, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	disp.Start(ctx)
	t.Cleanup(func() {
		cancel()
		disp.Stop()
	})

	return New(&checks, store, disp, testLogger()), store, exec
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	r.Register(newStubCheck("reach", check.CategoryCombat))
	r.Register(newStubCheck("speed", check.CategoryMovement))

	if _, ok := r.ByName("reach"); !ok {
		t.Error("reach should be registered")
	}
	if _, ok := r.ByName("nope"); ok {
		t.Error("unknown name should not resolve")
	}
	if got := len(r.ByCategory(check.CategoryCombat)); got != 1 {
		t.Errorf("expected 1 combat check, got %d", got)
	}
	if got := len(r.All()); got != 2 {
		t.Errorf("expected 2 checks, got %d", got)
	}
}

func TestRegistry_EscalationToPunishment(t *testing.T) {
	r, store, exec := newTestRegistry(t)
	obs := &recordingObserver{}
	r.AddObserver(obs)

	id := uuid.New()
	store.Connect(id, "steve")

	// killaura has max_violations 3: two flags record, the third punishes
	// and resets.
	for i := 0; i < 3; i++ {
		r.HandleViolation(id, "steve", "killaura", check.CategoryCombat, 42, "test")
	}

	if len(obs.violations) != 3 {
		t.Fatalf("expected 3 violation records, got %d", len(obs.violations))
	}
	for i, v := range obs.violations {
		if v.Level != i+1 {
			t.Errorf("violation %d level = %d, want %d", i, v.Level, i+1)
		}
	}
	if !obs.violations[2].Punished {
		t.Error("third violation should be marked punished")
	}

	// Punishment resets the level, so the next flag starts at 1 again.
	r.HandleViolation(id, "steve", "killaura", check.CategoryCombat, 42, "test")
	if got := obs.violations[3].Level; got != 1 {
		t.Errorf("level after punishment = %d, want 1", got)
	}

	// Command template had %player% substituted.
	deadline := time.After(2 * time.Second)
	for {
		cmds := exec.snapshot()
		if len(cmds) == 1 {
			if cmds[0] != "kick steve [CheatGuard] Unfair advantage detected" {
				t.Errorf("unexpected command %q", cmds[0])
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("punishment command never delivered, have %v", cmds)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRegistry_BypassSuppressesEverything(t *testing.T) {
	r, store, exec := newTestRegistry(t)
	obs := &recordingObserver{}
	r.AddObserver(obs)
	r.SetBypass(func(uuid.UUID) bool { return true })

	id := uuid.New()
	store.Connect(id, "admin")

	for i := 0; i < 10; i++ {
		r.HandleViolation(id, "admin", "killaura", check.CategoryCombat, 0, "test")
	}

	if len(obs.violations) != 0 {
		t.Errorf("bypassed player must produce no records, got %d", len(obs.violations))
	}
	time.Sleep(50 * time.Millisecond)
	if cmds := exec.snapshot(); len(cmds) != 0 {
		t.Errorf("bypassed player must not be punished, got %v", cmds)
	}
}

func TestRegistry_UnknownCheckSafeDefaults(t *testing.T) {
	r, store, exec := newTestRegistry(t)
	obs := &recordingObserver{}
	r.AddObserver(obs)

	id := uuid.New()
	store.Connect(id, "steve")

	// No config entry: records accumulate but never punish.
	for i := 0; i < 20; i++ {
		r.HandleViolation(id, "steve", "experimental", check.CategoryPlayer, 0, "test")
	}
	if len(obs.violations) != 20 {
		t.Errorf("expected 20 records, got %d", len(obs.violations))
	}
	for _, v := range obs.violations {
		if v.Punished {
			t.Fatal("unconfigured check must never punish")
		}
	}
	time.Sleep(50 * time.Millisecond)
	if cmds := exec.snapshot(); len(cmds) != 0 {
		t.Errorf("expected no commands, got %v", cmds)
	}
}

func TestRegistry_DisconnectedPlayerIgnored(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	obs := &recordingObserver{}
	r.AddObserver(obs)

	r.HandleViolation(uuid.New(), "ghost", "reach", check.CategoryCombat, 0, "test")
	if len(obs.violations) != 0 {
		t.Errorf("untracked player must not record, got %d", len(obs.violations))
	}
}

func TestRegistry_ForgetPlayer(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	a := newStubCheck("reach", check.CategoryCombat)
	b := newStubCheck("speed", check.CategoryMovement)
	r.Register(a)
	r.Register(b)

	id := uuid.New()
	r.ForgetPlayer(id)

	if len(a.forgotten) != 1 || a.forgotten[0] != id {
		t.Errorf("reach not forgotten: %v", a.forgotten)
	}
	if len(b.forgotten) != 1 {
		t.Errorf("speed not forgotten: %v", b.forgotten)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	exec := ExecutorFunc(func(ctx context.Context, _ string) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	})
	disp := NewDispatcher(exec, 1, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	disp.Start(ctx)
	defer func() {
		close(block)
		disp.Stop()
	}()

	// One in flight, one queued, the rest dropped.
	for i := 0; i < 10; i++ {
		disp.Dispatch("cmd")
	}
	time.Sleep(50 * time.Millisecond)
	_, dropped, _ := disp.Stats()
	if dropped == 0 {
		t.Error("expected drops with a full queue")
	}
}

func TestRegistry_StaticBypassFromList(t *testing.T) {
	r, store, exec := newTestRegistry(t)
	obs := &recordingObserver{}
	r.AddObserver(obs)

	exempt := uuid.New()
	other := uuid.New()
	r.SetBypass(StaticBypass([]string{exempt.String()}))
	store.Connect(exempt, "admin")
	store.Connect(other, "steve")

	for i := 0; i < 5; i++ {
		r.HandleViolation(exempt, "admin", "killaura", check.CategoryCombat, 0, "test")
	}
	r.HandleViolation(other, "steve", "killaura", check.CategoryCombat, 0, "test")

	if len(obs.violations) != 1 {
		t.Fatalf("only the unlisted player should record, got %d records", len(obs.violations))
	}
	if obs.violations[0].PlayerID != other {
		t.Errorf("recorded violation for %s, want %s", obs.violations[0].PlayerID, other)
	}
	time.Sleep(50 * time.Millisecond)
	if cmds := exec.snapshot(); len(cmds) != 0 {
		t.Errorf("no punishment expected, got %v", cmds)
	}
}

func TestStaticBypass_EmptyList(t *testing.T) {
	if StaticBypass(nil) != nil {
		t.Error("empty list should yield no predicate")
	}
	if StaticBypass([]string{"garbage"}) != nil {
		t.Error("list with no parseable ids should yield no predicate")
	}
}
