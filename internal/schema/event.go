// Package schema defines the canonical action event format for cheatguard.
// Game-server agents report per-player actions in this structure; every
// intake path (HTTP, DTLS, Kafka) normalizes to it before the detection
// engine sees the event.
package schema

import (
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/geom"
)

// EventType identifies the kind of player action an event carries.
type EventType string

const (
	EventConnect    EventType = "connect"
	EventDisconnect EventType = "disconnect"
	EventMovement   EventType = "movement"
	EventAttack     EventType = "attack"
	EventBlock      EventType = "block"
	EventInventory  EventType = "inventory"
	EventItemSwitch EventType = "item_switch"
	EventDamage     EventType = "damage"
	EventTotem      EventType = "totem"
	EventResponse   EventType = "response"
)

// IsValid reports whether t is a known event type.
func (t EventType) IsValid() bool {
	switch t {
	case EventConnect, EventDisconnect, EventMovement, EventAttack,
		EventBlock, EventInventory, EventItemSwitch, EventDamage,
		EventTotem, EventResponse:
		return true
	}
	return false
}

// Event is one player action as reported by the host game server.
// At most one of the payload pointers is set, matching Type.
type Event struct {
	EventID   uuid.UUID `json:"event_id" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	ServerID  string    `json:"server_id,omitempty" validate:"max=128"`

	PlayerID   uuid.UUID `json:"player_id" validate:"required"`
	PlayerName string    `json:"player_name" validate:"required,max=64"`

	Type EventType `json:"type" validate:"required,event_type"`

	Movement   *MovementEvent   `json:"movement,omitempty"`
	Attack     *AttackEvent     `json:"attack,omitempty"`
	Block      *BlockEvent      `json:"block,omitempty"`
	Inventory  *InventoryEvent  `json:"inventory,omitempty"`
	ItemSwitch *ItemSwitchEvent `json:"item_switch,omitempty"`
	Totem      *TotemEvent      `json:"totem,omitempty"`
	Response   *ResponseEvent   `json:"response,omitempty"`

	// Set by the intake path, not by the reporting agent.
	ReceivedAt time.Time `json:"received_at"`
}

// Exemptions are host states that make movement checks inapplicable.
// An exempt movement produces no signal at all, clean or suspicious.
type Exemptions struct {
	InVehicle           bool `json:"in_vehicle,omitempty"`
	InWater             bool `json:"in_water,omitempty"`
	Climbing            bool `json:"climbing,omitempty"`
	Gliding             bool `json:"gliding,omitempty"`
	FlightMode          bool `json:"flight_mode,omitempty"`
	CreativeOrSpectator bool `json:"creative_or_spectator,omitempty"`
}

// Any reports whether any exemption applies.
func (e Exemptions) Any() bool {
	return e.InVehicle || e.InWater || e.Climbing || e.Gliding ||
		e.FlightMode || e.CreativeOrSpectator
}

// StatusEffects carries the movement-modifying effect levels active on the
// player at event time. Zero means the effect is absent.
type StatusEffects struct {
	Speed     int `json:"speed,omitempty"`
	Slowness  int `json:"slowness,omitempty"`
	JumpBoost int `json:"jump_boost,omitempty"`
}

// MovementEvent is one discrete movement update.
type MovementEvent struct {
	From      geom.Vec3 `json:"from"`
	To        geom.Vec3 `json:"to"`
	OnGround  bool      `json:"on_ground"`
	Sprinting bool      `json:"sprinting,omitempty"`
	Sneaking  bool      `json:"sneaking,omitempty"`

	Exempt  Exemptions    `json:"exempt,omitempty"`
	Effects StatusEffects `json:"effects,omitempty"`
}

// TargetKind classifies what an attack landed on.
type TargetKind string

const (
	TargetPlayer  TargetKind = "player"
	TargetCrystal TargetKind = "end_crystal"
	TargetOther   TargetKind = "other"
)

// AttackEvent is one melee attack and the geometry the host observed at the
// moment of the hit. Eye and Look describe the attacker; the Target fields
// describe the victim.
type AttackEvent struct {
	TargetID     uuid.UUID  `json:"target_id"`
	TargetKind   TargetKind `json:"target_kind" validate:"omitempty,oneof=player end_crystal other"`
	Eye          geom.Vec3  `json:"eye"`
	Look         geom.Vec3  `json:"look"`
	TargetBase   geom.Vec3  `json:"target_base"`
	TargetHeight float64    `json:"target_height" validate:"min=0"`
	TargetWidth  float64    `json:"target_width" validate:"min=0"`
}

// TargetCenter returns the victim's effective center: the base position
// raised by half the height. All angle and reach math aims at this point.
func (a *AttackEvent) TargetCenter() geom.Vec3 {
	return a.TargetBase.Add(geom.Vec3{Y: a.TargetHeight / 2})
}

// TargetBox returns the victim's hitbox.
func (a *AttackEvent) TargetBox() geom.AABB {
	return geom.AABBAround(a.TargetBase, a.TargetWidth, a.TargetHeight)
}

// BlockAction distinguishes the block interactions the detectors care about.
type BlockAction string

const (
	BlockBreak     BlockAction = "break"
	BlockPlace     BlockAction = "place"
	CrystalPlace   BlockAction = "crystal_place"
	CrystalBreak   BlockAction = "crystal_break"
	AnchorPlace    BlockAction = "anchor_place"
	AnchorCharge   BlockAction = "anchor_charge"
	AnchorDetonate BlockAction = "anchor_detonate"
)

// BlockEvent is one block interaction.
type BlockEvent struct {
	Action    BlockAction `json:"action" validate:"required,oneof=break place crystal_place crystal_break anchor_place anchor_charge anchor_detonate"`
	Position  geom.Vec3   `json:"position"`
	BlockType string      `json:"block_type,omitempty" validate:"max=64"`

	// Break-only fields, used to derive the legal minimum break interval.
	Hardness       float64 `json:"hardness,omitempty" validate:"min=0"`
	ToolEfficiency int     `json:"tool_efficiency,omitempty" validate:"min=0"`
	CorrectTool    bool    `json:"correct_tool,omitempty"`
	InstantBreak   bool    `json:"instant_break,omitempty"`

	// Aim geometry at the moment of the interaction, when the host has it.
	Eye  *geom.Vec3 `json:"eye,omitempty"`
	Look *geom.Vec3 `json:"look,omitempty"`

	CreativeMode bool `json:"creative_mode,omitempty"`
}

// InventoryEvent is one inventory click.
type InventoryEvent struct {
	Slot          int     `json:"slot"`
	CursorItem    string  `json:"cursor_item,omitempty" validate:"max=64"`
	ClickedItem   string  `json:"clicked_item,omitempty" validate:"max=64"`
	InventoryKind string  `json:"inventory_kind,omitempty" validate:"max=32"`
	VelocitySq    float64 `json:"velocity_sq,omitempty" validate:"min=0"`
}

// ItemSwitchEvent is a hotbar or offhand item change.
type ItemSwitchEvent struct {
	NewItem string `json:"new_item" validate:"required,max=64"`
}

// TotemAction distinguishes totem lifecycle moments.
type TotemAction string

const (
	TotemEquip TotemAction = "equip"
	TotemPop   TotemAction = "pop"
)

// TotemEvent is a totem equip or pop, plus whether a replacement is already
// in the offhand at pop time.
type TotemEvent struct {
	Action          TotemAction `json:"action" validate:"required,oneof=equip pop"`
	OffhandRefilled bool        `json:"offhand_refilled,omitempty"`
}

// ResponseKind classifies which server-initiated push the client responded to.
type ResponseKind string

const (
	ResponseKnockback ResponseKind = "knockback"
	ResponseVelocity  ResponseKind = "velocity"
	ResponseTeleport  ResponseKind = "teleport"
	ResponseGeneric   ResponseKind = "generic"
)

// ResponseEvent records the client's reaction to a server push, used to
// catch clients that simulate server physics instead of experiencing them.
type ResponseEvent struct {
	Kind     ResponseKind `json:"kind" validate:"required,oneof=knockback velocity teleport generic"`
	Position geom.Vec3    `json:"position"`
}
