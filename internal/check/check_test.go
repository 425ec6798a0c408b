package check

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

type sinkRecord struct {
	playerID  uuid.UUID
	checkName string
	detail    string
}

type recordingSink struct {
	records []sinkRecord
}

func (r *recordingSink) HandleViolation(playerID uuid.UUID, playerName, checkName string, category Category, pingMillis int, detail string) {
	r.records = append(r.records, sinkRecord{playerID: playerID, checkName: checkName, detail: detail})
}

func TestBase_Flag(t *testing.T) {
	sink := &recordingSink{}
	b := NewBase("reach", CategoryCombat, true, sink)
	id := uuid.New()

	b.Flag(id, "steve", 80, "distance=4.9")

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if sink.records[0].checkName != "reach" || sink.records[0].playerID != id {
		t.Errorf("unexpected record: %+v", sink.records[0])
	}
}

func TestBase_EnabledToggle(t *testing.T) {
	b := NewBase("speed", CategoryMovement, true, nil)
	if !b.Enabled() {
		t.Error("should start enabled")
	}
	b.SetEnabled(false)
	if b.Enabled() {
		t.Error("should be disabled after toggle")
	}
}

func TestAccumulator_TripAndReset(t *testing.T) {
	acc := NewAccumulator(3)
	id := uuid.New()

	if acc.Suspicious(id) {
		t.Error("count 1 should not trip")
	}
	if acc.Suspicious(id) {
		t.Error("count 2 should not trip")
	}
	if !acc.Suspicious(id) {
		t.Error("count 3 should trip")
	}
	if acc.Count(id) != 0 {
		t.Errorf("trip should reset count, got %d", acc.Count(id))
	}
	if acc.Suspicious(id) {
		t.Error("count after trip should restart from 1")
	}
}

func TestAccumulator_CleanDecay(t *testing.T) {
	acc := NewAccumulator(3)
	id := uuid.New()

	acc.Suspicious(id)
	acc.Suspicious(id)
	acc.Clean(id)
	if acc.Count(id) != 1 {
		t.Errorf("expected count 1 after decay, got %d", acc.Count(id))
	}

	// Decay floors at zero.
	acc.Clean(id)
	acc.Clean(id)
	if acc.Count(id) != 0 {
		t.Errorf("count should floor at 0, got %d", acc.Count(id))
	}

	// Two more suspicious samples should not trip after the decay.
	acc.Suspicious(id)
	if acc.Suspicious(id) {
		t.Error("decayed player should need full threshold again")
	}
}

func TestAccumulator_IndependentPlayers(t *testing.T) {
	acc := NewAccumulator(2)
	a, b := uuid.New(), uuid.New()

	acc.Suspicious(a)
	if acc.Suspicious(b) {
		t.Error("players must accumulate independently")
	}
	if !acc.Suspicious(a) {
		t.Error("player a should trip at 2")
	}
}

func TestAccumulator_Forget(t *testing.T) {
	acc := NewAccumulator(3)
	id := uuid.New()

	acc.Suspicious(id)
	acc.Suspicious(id)
	acc.Forget(id)
	if acc.Count(id) != 0 {
		t.Errorf("forget should clear count, got %d", acc.Count(id))
	}
}

func TestPingTimeLeniency(t *testing.T) {
	tests := []struct {
		name      string
		ping      int
		divisor   float64
		capMillis float64
		want      time.Duration
	}{
		{"zero ping", 0, 2, 100, 0},
		{"under cap", 100, 2, 100, 50 * time.Millisecond},
		{"at cap", 200, 2, 100, 100 * time.Millisecond},
		{"over cap clamps", 1000, 2, 100, 100 * time.Millisecond},
		{"negative ping", -5, 2, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PingTimeLeniency(tt.ping, tt.divisor, tt.capMillis); got != tt.want {
				t.Errorf("PingTimeLeniency(%d) = %v, want %v", tt.ping, got, tt.want)
			}
		})
	}
}

func TestPingDistanceLeniency(t *testing.T) {
	tests := []struct {
		name      string
		ping      int
		divisor   float64
		capBlocks float64
		want      float64
	}{
		{"zero ping", 0, 100, 1.0, 0},
		{"50ms", 50, 100, 1.0, 0.5},
		{"caps at one block", 500, 100, 1.0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PingDistanceLeniency(tt.ping, tt.divisor, tt.capBlocks); got != tt.want {
				t.Errorf("PingDistanceLeniency(%d) = %v, want %v", tt.ping, got, tt.want)
			}
		})
	}
}
