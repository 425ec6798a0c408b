package schema

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Validator checks incoming events against the canonical schema before they
// reach the detection engine.
type Validator struct {
	validate  *validator.Validate
	maxAge    time.Duration
	maxFuture time.Duration
}

// ValidatorConfig holds configuration for the validator.
type ValidatorConfig struct {
	MaxAge    time.Duration
	MaxFuture time.Duration
}

// DefaultValidatorConfig returns the default validator configuration.
// Action events are only useful fresh; anything older than a minute is
// stale for real-time detection.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MaxAge:    time.Minute,
		MaxFuture: 5 * time.Second,
	}
}

// NewValidator creates a new Validator with default configuration.
func NewValidator() *Validator {
	return NewValidatorWithConfig(DefaultValidatorConfig())
}

// NewValidatorWithConfig creates a new Validator with the specified configuration.
func NewValidatorWithConfig(cfg ValidatorConfig) *Validator {
	v := validator.New()

	v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return EventType(fl.Field().String()).IsValid()
	})

	return &Validator{
		validate:  v,
		maxAge:    cfg.MaxAge,
		maxFuture: cfg.MaxFuture,
	}
}

// Validate validates an event. Returns an error describing the first
// problem found, or nil if the event is acceptable.
func (v *Validator) Validate(event *Event) error {
	if err := v.validate.Struct(event); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if event.PlayerID == uuid.Nil {
		return fmt.Errorf("player_id is required")
	}

	now := time.Now().UTC()
	if event.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if event.Timestamp.Before(now.Add(-v.maxAge)) {
		return fmt.Errorf("timestamp too old: %v (max age: %v)", event.Timestamp, v.maxAge)
	}
	if event.Timestamp.After(now.Add(v.maxFuture)) {
		return fmt.Errorf("timestamp in future: %v (max future: %v)", event.Timestamp, v.maxFuture)
	}

	if err := v.validatePayload(event); err != nil {
		return err
	}

	return nil
}

// validatePayload checks that the payload pointer matching the event type
// is present. Types without a payload struct (connect, disconnect, damage)
// are valid with none.
func (v *Validator) validatePayload(event *Event) error {
	switch event.Type {
	case EventMovement:
		if event.Movement == nil {
			return fmt.Errorf("movement payload is required for movement events")
		}
	case EventAttack:
		if event.Attack == nil {
			return fmt.Errorf("attack payload is required for attack events")
		}
	case EventBlock:
		if event.Block == nil {
			return fmt.Errorf("block payload is required for block events")
		}
	case EventInventory:
		if event.Inventory == nil {
			return fmt.Errorf("inventory payload is required for inventory events")
		}
	case EventItemSwitch:
		if event.ItemSwitch == nil {
			return fmt.Errorf("item_switch payload is required for item_switch events")
		}
	case EventTotem:
		if event.Totem == nil {
			return fmt.Errorf("totem payload is required for totem events")
		}
	case EventResponse:
		if event.Response == nil {
			return fmt.Errorf("response payload is required for response events")
		}
	}
	return nil
}
