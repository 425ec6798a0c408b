package schema

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/geom"
)

func validEvent(t EventType) *Event {
	ev := &Event{
		EventID:    uuid.New(),
		Timestamp:  time.Now().UTC(),
		PlayerID:   uuid.New(),
		PlayerName: "steve",
		Type:       t,
	}
	switch t {
	case EventMovement:
		ev.Movement = &MovementEvent{
			From:     geom.Vec3{X: 0, Y: 64, Z: 0},
			To:       geom.Vec3{X: 0.2, Y: 64, Z: 0},
			OnGround: true,
		}
	case EventAttack:
		ev.Attack = &AttackEvent{
			TargetID:     uuid.New(),
			TargetKind:   TargetPlayer,
			Eye:          geom.Vec3{X: 0, Y: 65.6, Z: 0},
			Look:         geom.Vec3{X: 1, Y: 0, Z: 0},
			TargetBase:   geom.Vec3{X: 3, Y: 64, Z: 0},
			TargetHeight: 1.8,
			TargetWidth:  0.6,
		}
	case EventBlock:
		ev.Block = &BlockEvent{
			Action:   BlockBreak,
			Position: geom.Vec3{X: 1, Y: 64, Z: 1},
			Hardness: 1.5,
		}
	case EventResponse:
		ev.Response = &ResponseEvent{Kind: ResponseKnockback}
	}
	return ev
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		mutate  func(*Event)
		event   EventType
		wantErr string
	}{
		{
			name:   "valid movement event",
			event:  EventMovement,
			mutate: func(*Event) {},
		},
		{
			name:   "valid attack event",
			event:  EventAttack,
			mutate: func(*Event) {},
		},
		{
			name:    "missing player id",
			event:   EventMovement,
			mutate:  func(e *Event) { e.PlayerID = uuid.Nil },
			wantErr: "player_id",
		},
		{
			name:    "missing player name",
			event:   EventMovement,
			mutate:  func(e *Event) { e.PlayerName = "" },
			wantErr: "validation failed",
		},
		{
			name:    "unknown event type",
			event:   EventMovement,
			mutate:  func(e *Event) { e.Type = "teleport_hack" },
			wantErr: "validation failed",
		},
		{
			name:    "stale timestamp",
			event:   EventMovement,
			mutate:  func(e *Event) { e.Timestamp = time.Now().UTC().Add(-2 * time.Minute) },
			wantErr: "too old",
		},
		{
			name:    "future timestamp",
			event:   EventMovement,
			mutate:  func(e *Event) { e.Timestamp = time.Now().UTC().Add(time.Minute) },
			wantErr: "in future",
		},
		{
			name:    "movement event without payload",
			event:   EventMovement,
			mutate:  func(e *Event) { e.Movement = nil },
			wantErr: "movement payload",
		},
		{
			name:    "attack event without payload",
			event:   EventAttack,
			mutate:  func(e *Event) { e.Attack = nil },
			wantErr: "attack payload",
		},
		{
			name:   "connect event needs no payload",
			event:  EventConnect,
			mutate: func(*Event) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := validEvent(tt.event)
			tt.mutate(ev)
			err := v.Validate(ev)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestAttackEvent_TargetCenter(t *testing.T) {
	a := &AttackEvent{TargetBase: geom.Vec3{X: 10, Y: 64, Z: -5}, TargetHeight: 1.8}
	c := a.TargetCenter()
	if c != (geom.Vec3{X: 10, Y: 64.9, Z: -5}) {
		t.Errorf("TargetCenter() = %v, want {10 64.9 -5}", c)
	}
}

func TestEventType_IsValid(t *testing.T) {
	for _, et := range []EventType{EventConnect, EventDisconnect, EventMovement,
		EventAttack, EventBlock, EventInventory, EventItemSwitch, EventDamage,
		EventTotem, EventResponse} {
		if !et.IsValid() {
			t.Errorf("%q should be valid", et)
		}
	}
	if EventType("speed_hack").IsValid() {
		t.Error("unknown type should be invalid")
	}
}
