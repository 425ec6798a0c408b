package combat

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
	"cheatguard/internal/geom"
	"cheatguard/internal/player"
	"cheatguard/internal/schema"
)

type capturedFlag struct {
	checkName string
	detail    string
}

type captureSink struct {
	flags []capturedFlag
}

func (c *captureSink) HandleViolation(_ uuid.UUID, _ string, checkName string, _ check.Category, _ int, detail string) {
	c.flags = append(c.flags, capturedFlag{checkName: checkName, detail: detail})
}

func newTestPlayer(ping int) *player.State {
	return player.NewState(uuid.New(), "steve", ping)
}

var victimID = uuid.New()

// attackAt builds an attack on a player-sized target standing dist blocks
// down the z axis, with the attacker looking straight at it.
func attackAt(dist float64) *schema.AttackEvent {
	return &schema.AttackEvent{
		TargetID:     victimID,
		TargetKind:   schema.TargetPlayer,
		Eye:          geom.Vec3{X: 0, Y: 1.62, Z: 0},
		Look:         geom.Vec3{X: 0, Y: 0, Z: 1},
		TargetBase:   geom.Vec3{X: 0, Y: 0, Z: dist},
		TargetHeight: 1.8,
		TargetWidth:  0.6,
	}
}

func TestReach_FlagsAfterTrigger(t *testing.T) {
	sink := &captureSink{}
	r := NewReach(config.DefaultChecksConfig().Combat.Reach, sink)
	st := newTestPlayer(0)
	now := time.Now()

	// 6 blocks is past 4.5 even with full leniency. Three in a row trips.
	for i := 0; i < 2; i++ {
		r.OnAttack(st, attackAt(6), now)
	}
	if len(sink.flags) != 0 {
		t.Fatalf("should not flag before trigger, got %d", len(sink.flags))
	}
	r.OnAttack(st, attackAt(6), now)
	if len(sink.flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(sink.flags))
	}
	if sink.flags[0].checkName != "reach" {
		t.Errorf("unexpected check name %q", sink.flags[0].checkName)
	}
}

func TestReach_CleanSamplesDecay(t *testing.T) {
	sink := &captureSink{}
	r := NewReach(config.DefaultChecksConfig().Combat.Reach, sink)
	st := newTestPlayer(0)
	now := time.Now()

	r.OnAttack(st, attackAt(6), now)
	r.OnAttack(st, attackAt(6), now)
	r.OnAttack(st, attackAt(3), now) // clean, decays
	r.OnAttack(st, attackAt(6), now)
	r.OnAttack(st, attackAt(6), now)
	if len(sink.flags) != 0 {
		t.Errorf("decay should prevent flag, got %d", len(sink.flags))
	}
}

func TestReach_PingLeniency(t *testing.T) {
	sink := &captureSink{}
	r := NewReach(config.DefaultChecksConfig().Combat.Reach, sink)
	st := newTestPlayer(100) // grants a full extra block
	now := time.Now()

	// 5.2 blocks reach; box front face at 4.9 so distance ~4.9 < 4.5+1.0.
	for i := 0; i < 5; i++ {
		r.OnAttack(st, attackAt(5.2), now)
	}
	if len(sink.flags) != 0 {
		t.Errorf("laggy player within widened limit should not flag, got %d", len(sink.flags))
	}
}

func TestReach_Disabled(t *testing.T) {
	sink := &captureSink{}
	r := NewReach(config.DefaultChecksConfig().Combat.Reach, sink)
	r.SetEnabled(false)
	st := newTestPlayer(0)

	for i := 0; i < 10; i++ {
		r.OnAttack(st, attackAt(10), time.Now())
	}
	if len(sink.flags) != 0 {
		t.Errorf("disabled check must not flag, got %d", len(sink.flags))
	}
}

func TestKillAura_AttackSpeed(t *testing.T) {
	sink := &captureSink{}
	k := NewKillAura(config.DefaultChecksConfig().Combat.KillAura, sink)
	st := newTestPlayer(0)
	now := time.Now()

	// 6 attacks 10ms apart: 5 sub-minimum intervals trip the speed trigger.
	for i := 0; i < 6; i++ {
		k.OnAttack(st, attackAt(3), now.Add(time.Duration(i)*10*time.Millisecond))
	}
	if len(sink.flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(sink.flags))
	}
	if !strings.Contains(sink.flags[0].detail, "interval") {
		t.Errorf("expected interval detail, got %q", sink.flags[0].detail)
	}
}

func TestKillAura_NormalCadenceClean(t *testing.T) {
	sink := &captureSink{}
	k := NewKillAura(config.DefaultChecksConfig().Combat.KillAura, sink)
	st := newTestPlayer(0)
	now := time.Now()

	for i := 0; i < 20; i++ {
		k.OnAttack(st, attackAt(3), now.Add(time.Duration(i)*600*time.Millisecond))
	}
	if len(sink.flags) != 0 {
		t.Errorf("normal cadence should not flag, got %d", len(sink.flags))
	}
}

func TestKillAura_HeadSnap(t *testing.T) {
	sink := &captureSink{}
	k := NewKillAura(config.DefaultChecksConfig().Combat.KillAura, sink)
	st := newTestPlayer(0)
	now := time.Now()

	// Alternate between looking forward and backward on every attack, with
	// intervals slow enough to dodge the speed trigger but inside the snap
	// window. 180 degree snaps trip the angle trigger at 3.
	for i := 0; i < 6; i++ {
		ev := attackAt(3)
		if i%2 == 1 {
			ev.Look = geom.Vec3{X: 0, Y: 0, Z: -1}
		}
		k.OnAttack(st, ev, now.Add(time.Duration(i)*70*time.Millisecond))
	}
	found := false
	for _, f := range sink.flags {
		if strings.Contains(f.detail, "rotation") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected rotation flag, got %+v", sink.flags)
	}
}

func TestHitbox_MissedRay(t *testing.T) {
	sink := &captureSink{}
	h := NewHitbox(config.DefaultChecksConfig().Combat.Hitbox, sink)
	st := newTestPlayer(0)
	now := time.Now()

	// Looking straight up while landing hits on a target 3 blocks ahead.
	for i := 0; i < 3; i++ {
		ev := attackAt(3)
		ev.Look = geom.Vec3{X: 0, Y: 1, Z: 0}
		h.OnAttack(st, ev, now)
	}
	if len(sink.flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(sink.flags))
	}
}

func TestHitbox_OnTargetClean(t *testing.T) {
	sink := &captureSink{}
	h := NewHitbox(config.DefaultChecksConfig().Combat.Hitbox, sink)
	st := newTestPlayer(50)
	now := time.Now()

	for i := 0; i < 10; i++ {
		h.OnAttack(st, attackAt(3), now)
	}
	if len(sink.flags) != 0 {
		t.Errorf("aimed attacks should not flag, got %d", len(sink.flags))
	}
}

func TestTriggerBot_InstantFire(t *testing.T) {
	sink := &captureSink{}
	tb := NewTriggerBot(config.DefaultChecksConfig().Combat.TriggerBot, sink)
	st := newTestPlayer(0)
	now := time.Now()

	// Perfect center aim at machine cadence. Trigger is 5 suspicious
	// intervals, so 6 attacks flag once.
	for i := 0; i < 6; i++ {
		ev := attackAt(3)
		// Aim exactly at the target center.
		ev.Look = ev.TargetCenter().Sub(ev.Eye)
		tb.OnAttack(st, ev, now.Add(time.Duration(i)*20*time.Millisecond))
	}
	if len(sink.flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(sink.flags))
	}
}

func TestTriggerBot_HumanAimClean(t *testing.T) {
	sink := &captureSink{}
	tb := NewTriggerBot(config.DefaultChecksConfig().Combat.TriggerBot, sink)
	st := newTestPlayer(0)
	now := time.Now()

	// Slightly off-center aim, ordinary cadence.
	for i := 0; i < 10; i++ {
		ev := attackAt(3)
		ev.Look = geom.Vec3{X: 0.2, Y: 0, Z: 1}
		tb.OnAttack(st, ev, now.Add(time.Duration(i)*400*time.Millisecond))
	}
	if len(sink.flags) != 0 {
		t.Errorf("human aim should not flag, got %d", len(sink.flags))
	}
}

func TestPrecision_LowVariance(t *testing.T) {
	cfg := config.DefaultChecksConfig().Combat.Precision
	sink := &captureSink{}
	p := NewPrecision(cfg, sink)
	st := newTestPlayer(0)
	now := time.Now()

	// Identical 500ms intervals: variance 0. Target at 5 blocks keeps the
	// optimal-distance signal quiet, and off-center aim keeps angle quiet.
	for i := 0; i < 20; i++ {
		ev := attackAt(5)
		ev.Look = geom.Vec3{X: 0.3, Y: 0, Z: 1}
		p.OnAttack(st, ev, now.Add(time.Duration(i)*500*time.Millisecond))
	}
	found := false
	for _, f := range sink.flags {
		if strings.Contains(f.detail, "variance") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected variance flag, got %+v", sink.flags)
	}
}

func TestPrecision_OptimalDistanceRatio(t *testing.T) {
	cfg := config.DefaultChecksConfig().Combat.Precision
	sink := &captureSink{}
	p := NewPrecision(cfg, sink)
	st := newTestPlayer(0)
	now := time.Now()

	// Every attack from inside the 2.5-3.5 band. attackAt(3.3) puts the
	// box face at 3.0 from the eye. Jittered intervals and off-center aim
	// keep the other signals quiet.
	for i := 0; i < 12; i++ {
		ev := attackAt(3.3)
		ev.Look = geom.Vec3{X: 0.3, Y: 0, Z: 1}
		jitter := time.Duration(i%5) * 130 * time.Millisecond
		p.OnAttack(st, ev, now.Add(time.Duration(i)*600*time.Millisecond+jitter))
	}
	found := false
	for _, f := range sink.flags {
		if strings.Contains(f.detail, "optimal distance") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected optimal distance flag, got %+v", sink.flags)
	}
}

func crystalEvent(action schema.BlockAction, eye, look geom.Vec3, pos geom.Vec3) *schema.BlockEvent {
	return &schema.BlockEvent{
		Action:   action,
		Position: pos,
		Eye:      &eye,
		Look:     &look,
	}
}

func TestAutoCrystal_FastPlacement(t *testing.T) {
	sink := &captureSink{}
	ac := NewAutoCrystal(config.DefaultChecksConfig().Combat.AutoCrystal, sink)
	st := newTestPlayer(0)
	now := time.Now()

	eye := geom.Vec3{X: 0, Y: 1.62, Z: 0}
	look := geom.Vec3{X: 0, Y: 0, Z: 1}
	pos := geom.Vec3{X: 0, Y: 1, Z: 3}

	// Placements 20ms apart: each after the first is suspicious, threshold
	// 3 trips on the fourth event.
	for i := 0; i < 4; i++ {
		ac.OnBlock(st, crystalEvent(schema.CrystalPlace, eye, look, pos), now.Add(time.Duration(i)*20*time.Millisecond))
	}
	if len(sink.flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(sink.flags))
	}
}

func TestAutoCrystal_PlacementBeyondReach(t *testing.T) {
	sink := &captureSink{}
	ac := NewAutoCrystal(config.DefaultChecksConfig().Combat.AutoCrystal, sink)
	st := newTestPlayer(0)
	now := time.Now()

	eye := geom.Vec3{X: 0, Y: 1.62, Z: 0}
	pos := geom.Vec3{X: 0, Y: 1, Z: 15} // past the 10 block limit
	look := pos.Sub(eye)

	for i := 0; i < 3; i++ {
		ac.OnBlock(st, crystalEvent(schema.CrystalPlace, eye, look, pos), now.Add(time.Duration(i)*time.Second))
	}
	if len(sink.flags) != 1 {
		t.Fatalf("expected 1 flag for distant placement, got %d", len(sink.flags))
	}
	if !strings.Contains(sink.flags[0].detail, "distance") {
		t.Errorf("expected distance detail, got %q", sink.flags[0].detail)
	}
}

func TestAutoCrystal_NormalPaceClean(t *testing.T) {
	sink := &captureSink{}
	ac := NewAutoCrystal(config.DefaultChecksConfig().Combat.AutoCrystal, sink)
	st := newTestPlayer(0)
	now := time.Now()

	eye := geom.Vec3{X: 0, Y: 1.62, Z: 0}
	pos := geom.Vec3{X: 0, Y: 1, Z: 3}
	look := pos.Sub(eye)

	for i := 0; i < 10; i++ {
		ac.OnBlock(st, crystalEvent(schema.CrystalPlace, eye, look, pos), now.Add(time.Duration(i)*400*time.Millisecond))
	}
	if len(sink.flags) != 0 {
		t.Errorf("normal placement should not flag, got %+v", sink.flags)
	}
}

func TestCrystalAura_PlaceBreakSequence(t *testing.T) {
	sink := &captureSink{}
	ca := NewCrystalAura(config.DefaultChecksConfig().Combat.CrystalAura, sink)
	st := newTestPlayer(0)
	now := time.Now()

	eye := geom.Vec3{X: 0, Y: 1.62, Z: 0}
	pos := geom.Vec3{X: 0, Y: 1, Z: 3}
	look := pos.Sub(eye)

	// The aura loop: place, break 10ms later, next cycle 40ms on. Place
	// and break intervals are both sub-minimum and every break trails a
	// place inside the sequence window.
	ts := now
	for i := 0; i < 8; i++ {
		ca.OnBlock(st, crystalEvent(schema.CrystalPlace, eye, look, pos), ts)
		ca.OnBlock(st, crystalEvent(schema.CrystalBreak, eye, look, pos), ts.Add(10*time.Millisecond))
		ts = ts.Add(40 * time.Millisecond)
	}
	if len(sink.flags) == 0 {
		t.Fatal("expected aura loop to flag")
	}
}

func TestAutoAnchor_FullCycleTooFast(t *testing.T) {
	sink := &captureSink{}
	aa := NewAutoAnchor(config.DefaultChecksConfig().Combat.AutoAnchor, sink)
	st := newTestPlayer(0)
	now := time.Now()

	eye := geom.Vec3{X: 0, Y: 1.62, Z: 0}
	pos := geom.Vec3{X: 0, Y: 1, Z: 3}
	look := pos.Sub(eye)

	// place -> charge -> detonate inside 30ms, repeated. Each cycle has
	// suspicious gaps, threshold 3 trips quickly.
	ts := now
	for i := 0; i < 3; i++ {
		aa.OnBlock(st, crystalEvent(schema.AnchorPlace, eye, look, pos), ts)
		aa.OnBlock(st, crystalEvent(schema.AnchorCharge, eye, look, pos), ts.Add(10*time.Millisecond))
		aa.OnBlock(st, crystalEvent(schema.AnchorDetonate, eye, look, pos), ts.Add(20*time.Millisecond))
		ts = ts.Add(2 * time.Second)
	}
	if len(sink.flags) == 0 {
		t.Fatal("expected anchor cycle to flag")
	}
}

func TestAutoAnchor_HumanCycleClean(t *testing.T) {
	sink := &captureSink{}
	aa := NewAutoAnchor(config.DefaultChecksConfig().Combat.AutoAnchor, sink)
	st := newTestPlayer(0)
	now := time.Now()

	eye := geom.Vec3{X: 0, Y: 1.62, Z: 0}
	pos := geom.Vec3{X: 0, Y: 1, Z: 3}
	look := pos.Sub(eye)

	ts := now
	for i := 0; i < 5; i++ {
		aa.OnBlock(st, crystalEvent(schema.AnchorPlace, eye, look, pos), ts)
		aa.OnBlock(st, crystalEvent(schema.AnchorCharge, eye, look, pos), ts.Add(300*time.Millisecond))
		aa.OnBlock(st, crystalEvent(schema.AnchorDetonate, eye, look, pos), ts.Add(700*time.Millisecond))
		ts = ts.Add(3 * time.Second)
	}
	if len(sink.flags) != 0 {
		t.Errorf("human pace should not flag, got %+v", sink.flags)
	}
}

func TestForgetClearsState(t *testing.T) {
	sink := &captureSink{}
	r := NewReach(config.DefaultChecksConfig().Combat.Reach, sink)
	st := newTestPlayer(0)
	now := time.Now()

	r.OnAttack(st, attackAt(6), now)
	r.OnAttack(st, attackAt(6), now)
	r.Forget(st.ID)
	r.OnAttack(st, attackAt(6), now)
	r.OnAttack(st, attackAt(6), now)
	if len(sink.flags) != 0 {
		t.Errorf("forget should reset the accumulator, got %d flags", len(sink.flags))
	}
}

func TestHitbox_TriggerConfigurable(t *testing.T) {
	sink := &captureSink{}
	cfg := config.DefaultChecksConfig().Combat.Hitbox
	cfg.Trigger = 1
	h := NewHitbox(cfg, sink)
	st := newTestPlayer(0)

	ev := attackAt(3)
	ev.Look = geom.Vec3{X: 0, Y: 1, Z: 0}
	h.OnAttack(st, ev, time.Now())
	if len(sink.flags) != 1 {
		t.Fatalf("expected 1 flag with trigger 1, got %d", len(sink.flags))
	}
}
