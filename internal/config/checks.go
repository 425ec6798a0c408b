package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CheckSettings holds the knobs every detector shares. Punishment is a
// command template; %player% is replaced with the player name at dispatch.
type CheckSettings struct {
	Enabled       bool   `yaml:"enabled"`
	MaxViolations int    `yaml:"max_violations"`
	Punishment    string `yaml:"punishment"`
}

// ChecksConfig holds per-detector tuning grouped by category, plus the
// exemption list applied before any detector runs.
type ChecksConfig struct {
	Combat   CombatChecksConfig   `yaml:"combat"`
	Movement MovementChecksConfig `yaml:"movement"`
	Player   PlayerChecksConfig   `yaml:"player"`

	// BypassPlayerIDs lists player UUIDs never flagged or punished,
	// such as staff accounts.
	BypassPlayerIDs []string `yaml:"bypass_player_ids,omitempty"`
}

// CombatChecksConfig groups the combat detectors.
type CombatChecksConfig struct {
	Reach       ReachConfig       `yaml:"reach"`
	KillAura    KillAuraConfig    `yaml:"killaura"`
	Hitbox      HitboxConfig      `yaml:"hitbox"`
	TriggerBot  TriggerBotConfig  `yaml:"triggerbot"`
	Precision   PrecisionConfig   `yaml:"precision"`
	AutoCrystal AutoCrystalConfig `yaml:"autocrystal"`
	CrystalAura CrystalAuraConfig `yaml:"crystalaura"`
	AutoAnchor  AutoAnchorConfig  `yaml:"autoanchor"`
}

// MovementChecksConfig groups the movement detectors.
type MovementChecksConfig struct {
	Speed SpeedConfig `yaml:"speed"`
	Fly   FlyConfig   `yaml:"fly"`
}

// PlayerChecksConfig groups the player-behavior detectors.
type PlayerChecksConfig struct {
	FastBreak  FastBreakConfig  `yaml:"fastbreak"`
	FastPlace  FastPlaceConfig  `yaml:"fastplace"`
	AutoTotem  AutoTotemConfig  `yaml:"autototem"`
	Inventory  InventoryConfig  `yaml:"inventory"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// ReachConfig tunes the attack distance detector.
type ReachConfig struct {
	CheckSettings `yaml:",inline"`
	MaxDistance   float64 `yaml:"max_distance"`
	PingDivisor   float64 `yaml:"ping_divisor"`
	PingCap       float64 `yaml:"ping_cap"`
	Trigger       int     `yaml:"trigger"`
}

// KillAuraConfig tunes the attack cadence and head rotation detector.
type KillAuraConfig struct {
	CheckSettings  `yaml:",inline"`
	MinInterval    time.Duration `yaml:"min_interval"`
	MaxAngleChange float64       `yaml:"max_angle_change"`
	SpeedTrigger   int           `yaml:"speed_trigger"`
	AngleTrigger   int           `yaml:"angle_trigger"`
}

// HitboxConfig tunes the target bounding box detector.
type HitboxConfig struct {
	CheckSettings `yaml:",inline"`
	Expansion     float64 `yaml:"expansion"`
	MaxDistance   float64 `yaml:"max_distance"`
	PingDivisor   float64 `yaml:"ping_divisor"`
	PingCap       float64 `yaml:"ping_cap"`
	Trigger       int     `yaml:"trigger"`
}

// TriggerBotConfig tunes the aim-then-instant-attack detector.
type TriggerBotConfig struct {
	CheckSettings `yaml:",inline"`
	MaxAngle      float64       `yaml:"max_angle"`
	MinInterval   time.Duration `yaml:"min_interval"`
	Trigger       int           `yaml:"trigger"`
}

// PrecisionConfig tunes the statistical aim consistency detector.
type PrecisionConfig struct {
	CheckSettings   `yaml:",inline"`
	MinReaction     time.Duration `yaml:"min_reaction"`
	ReactionTrigger int           `yaml:"reaction_trigger"`
	MaxAngle        float64       `yaml:"max_angle"`
	AngleTrigger    int           `yaml:"angle_trigger"`
	MinVariance     float64       `yaml:"min_variance"`
	VarianceTrigger int           `yaml:"variance_trigger"`
	OptimalMin      float64       `yaml:"optimal_min"`
	OptimalMax      float64       `yaml:"optimal_max"`
	OptimalRatio    float64       `yaml:"optimal_ratio"`
	MinSamples      int           `yaml:"min_samples"`
}

// AutoCrystalConfig tunes the end crystal automation detector.
type AutoCrystalConfig struct {
	CheckSettings `yaml:",inline"`
	MinPlaceTime  time.Duration `yaml:"min_place_time"`
	MinBreakTime  time.Duration `yaml:"min_break_time"`
	MinSwitchTime time.Duration `yaml:"min_switch_time"`
	MaxAngle      float64       `yaml:"max_angle"`
	MaxDistance   float64       `yaml:"max_distance"`
	PingDivisor   float64       `yaml:"ping_divisor"`
	PingCapMillis float64       `yaml:"ping_cap_millis"`
	Threshold     int           `yaml:"threshold"`
}

// CrystalAuraConfig tunes the crystal place-break sequence detector.
type CrystalAuraConfig struct {
	CheckSettings  `yaml:",inline"`
	MinPlaceTime   time.Duration `yaml:"min_place_time"`
	MinBreakTime   time.Duration `yaml:"min_break_time"`
	MinSequence    time.Duration `yaml:"min_sequence"`
	SequenceTrig   int           `yaml:"sequence_trigger"`
	MaxAngle       float64       `yaml:"max_angle"`
	PingDivisor    float64       `yaml:"ping_divisor"`
	PingCapMillis  float64       `yaml:"ping_cap_millis"`
	Threshold      int           `yaml:"threshold"`
}

// AutoAnchorConfig tunes the respawn anchor automation detector.
type AutoAnchorConfig struct {
	CheckSettings     `yaml:",inline"`
	MinPlaceTime      time.Duration `yaml:"min_place_time"`
	MinChargeTime     time.Duration `yaml:"min_charge_time"`
	MinDetonateTime   time.Duration `yaml:"min_detonate_time"`
	MinSwitchTime     time.Duration `yaml:"min_switch_time"`
	MinPlaceCharge    time.Duration `yaml:"min_place_charge"`
	MinChargeDetonate time.Duration `yaml:"min_charge_detonate"`
	MaxDistance       float64       `yaml:"max_distance"`
	PingDivisor       float64       `yaml:"ping_divisor"`
	PingCapMillis     float64       `yaml:"ping_cap_millis"`
	Threshold         int           `yaml:"threshold"`
}

// SpeedConfig tunes the horizontal movement speed detector.
type SpeedConfig struct {
	CheckSettings  `yaml:",inline"`
	CheckInterval  time.Duration `yaml:"check_interval"`
	BaseSpeed      float64       `yaml:"base_speed"`
	SprintSpeed    float64       `yaml:"sprint_speed"`
	SneakSpeed     float64       `yaml:"sneak_speed"`
	SpeedPerLevel  float64       `yaml:"speed_per_level"`
	SlowPerLevel   float64       `yaml:"slow_per_level"`
	Buffer         float64       `yaml:"buffer"`
	PingDivisor    float64       `yaml:"ping_divisor"`
	PingCap        float64       `yaml:"ping_cap"`
	Trigger        int           `yaml:"trigger"`
}

// FlyConfig tunes the sustained-air-time detector.
type FlyConfig struct {
	CheckSettings  `yaml:",inline"`
	CheckInterval  time.Duration `yaml:"check_interval"`
	MaxJumpHeight  float64       `yaml:"max_jump_height"`
	JumpBoostBonus float64       `yaml:"jump_boost_bonus"`
	Buffer         float64       `yaml:"buffer"`
	MaxAirTicks    int           `yaml:"max_air_ticks"`
	HeightTrigger  int           `yaml:"height_trigger"`
	HoverTrigger   int           `yaml:"hover_trigger"`
}

// FastBreakConfig tunes the block break timing detector.
type FastBreakConfig struct {
	CheckSettings      `yaml:",inline"`
	MinBreakTime       time.Duration `yaml:"min_break_time"`
	HardnessMultiplier time.Duration `yaml:"hardness_multiplier"`
	EfficiencyFactor   float64       `yaml:"efficiency_factor"`
	PingDivisor        float64       `yaml:"ping_divisor"`
	PingCapMillis      float64       `yaml:"ping_cap_millis"`
	Trigger            int           `yaml:"trigger"`
}

// FastPlaceConfig tunes the block place timing detector.
type FastPlaceConfig struct {
	CheckSettings   `yaml:",inline"`
	MinPlaceTime    time.Duration `yaml:"min_place_time"`
	MinSpecialTime  time.Duration `yaml:"min_special_time"`
	PingDivisor     float64       `yaml:"ping_divisor"`
	PingCapMillis   float64       `yaml:"ping_cap_millis"`
	Trigger         int           `yaml:"trigger"`
}

// AutoTotemConfig tunes the totem swap timing detector.
type AutoTotemConfig struct {
	CheckSettings      `yaml:",inline"`
	MinReaction        time.Duration `yaml:"min_reaction"`
	ReactionPingCap    float64       `yaml:"reaction_ping_cap"`
	MinPopRefill       time.Duration `yaml:"min_pop_refill"`
	PopPingCap         float64       `yaml:"pop_ping_cap"`
	CombatActionWindow time.Duration `yaml:"combat_action_window"`
	PingDivisor        float64       `yaml:"ping_divisor"`
	Threshold          int           `yaml:"threshold"`
}

// InventoryConfig tunes the inventory interaction detector.
type InventoryConfig struct {
	CheckSettings  `yaml:",inline"`
	MaxVelocitySq  float64       `yaml:"max_velocity_sq"`
	MinAttackClick time.Duration `yaml:"min_attack_click"`
	Trigger        int           `yaml:"trigger"`
}

// SimulationConfig tunes the server response reaction detector.
type SimulationConfig struct {
	CheckSettings       `yaml:",inline"`
	MinResponse         time.Duration `yaml:"min_response"`
	MinKnockback        time.Duration `yaml:"min_knockback"`
	MinVelocity         time.Duration `yaml:"min_velocity"`
	MinTeleport         time.Duration `yaml:"min_teleport"`
	MaxPredictDistance  float64       `yaml:"max_predict_distance"`
	PingDivisor         float64       `yaml:"ping_divisor"`
	PingCapMillis       float64       `yaml:"ping_cap_millis"`
	Threshold           int           `yaml:"threshold"`
}

const defaultPunishment = "kick %player% [CheatGuard] Unfair advantage detected"

// DefaultChecksConfig returns detector tuning matched to vanilla survival
// movement and combat timings.
func DefaultChecksConfig() ChecksConfig {
	return ChecksConfig{
		Combat: CombatChecksConfig{
			Reach: ReachConfig{
				CheckSettings: CheckSettings{Enabled: true, MaxViolations: 5, Punishment: defaultPunishment},
				MaxDistance:   4.5,
				PingDivisor:   100,
				PingCap:       1.0,
				Trigger:       3,
			},
			KillAura: KillAuraConfig{
				CheckSettings:  CheckSettings{Enabled: true, MaxViolations: 3, Punishment: defaultPunishment},
				MinInterval:    50 * time.Millisecond,
				MaxAngleChange: 60,
				SpeedTrigger:   5,
				AngleTrigger:   3,
			},
			Hitbox: HitboxConfig{
				CheckSettings: CheckSettings{Enabled: true, MaxViolations: 5, Punishment: defaultPunishment},
				Expansion:     0.3,
				MaxDistance:   4.5,
				PingDivisor:   100,
				PingCap:       0.5,
				Trigger:       3,
			},
			TriggerBot: TriggerBotConfig{
				CheckSettings: CheckSettings{Enabled: true, MaxViolations: 3, Punishment: defaultPunishment},
				MaxAngle:      2.0,
				MinInterval:   50 * time.Millisecond,
				Trigger:       5,
			},
			Precision: PrecisionConfig{
				CheckSettings:   CheckSettings{Enabled: true, MaxViolations: 3, Punishment: defaultPunishment},
				MinReaction:     50 * time.Millisecond,
				ReactionTrigger: 3,
				MaxAngle:        1.0,
				AngleTrigger:    5,
				MinVariance:     1000,
				VarianceTrigger: 3,
				OptimalMin:      2.5,
				OptimalMax:      3.5,
				OptimalRatio:    0.8,
				MinSamples:      10,
			},
			AutoCrystal: AutoCrystalConfig{
				CheckSettings: CheckSettings{Enabled: true, MaxViolations: 5, Punishment: defaultPunishment},
				MinPlaceTime:  100 * time.Millisecond,
				MinBreakTime:  100 * time.Millisecond,
				MinSwitchTime: 150 * time.Millisecond,
				MaxAngle:      45,
				MaxDistance:   10.0,
				PingDivisor:   2,
				PingCapMillis: 100,
				Threshold:     3,
			},
			CrystalAura: CrystalAuraConfig{
				CheckSettings: CheckSettings{Enabled: true, MaxViolations: 5, Punishment: defaultPunishment},
				MinPlaceTime:  100 * time.Millisecond,
				MinBreakTime:  100 * time.Millisecond,
				MinSequence:   50 * time.Millisecond,
				SequenceTrig:  3,
				MaxAngle:      60,
				PingDivisor:   2,
				PingCapMillis: 100,
				Threshold:     5,
			},
			AutoAnchor: AutoAnchorConfig{
				CheckSettings:     CheckSettings{Enabled: true, MaxViolations: 5, Punishment: defaultPunishment},
				MinPlaceTime:      100 * time.Millisecond,
				MinChargeTime:     100 * time.Millisecond,
				MinDetonateTime:   100 * time.Millisecond,
				MinSwitchTime:     150 * time.Millisecond,
				MinPlaceCharge:    100 * time.Millisecond,
				MinChargeDetonate: 150 * time.Millisecond,
				MaxDistance:       10.0,
				PingDivisor:       2,
				PingCapMillis:     100,
				Threshold:         3,
			},
		},
		Movement: MovementChecksConfig{
			Speed: SpeedConfig{
				CheckSettings: CheckSettings{Enabled: true, MaxViolations: 5, Punishment: defaultPunishment},
				CheckInterval: 500 * time.Millisecond,
				BaseSpeed:     0.35,
				SprintSpeed:   0.45,
				SneakSpeed:    0.15,
				SpeedPerLevel: 0.3,
				SlowPerLevel:  0.1,
				Buffer:        1.2,
				PingDivisor:   200,
				PingCap:       0.5,
				Trigger:       3,
			},
			Fly: FlyConfig{
				CheckSettings:  CheckSettings{Enabled: true, MaxViolations: 3, Punishment: defaultPunishment},
				CheckInterval:  time.Second,
				MaxJumpHeight:  0.6,
				JumpBoostBonus: 0.15,
				Buffer:         0.2,
				MaxAirTicks:    60,
				HeightTrigger:  3,
				HoverTrigger:   5,
			},
		},
		Player: PlayerChecksConfig{
			FastBreak: FastBreakConfig{
				CheckSettings:      CheckSettings{Enabled: true, MaxViolations: 5, Punishment: defaultPunishment},
				MinBreakTime:       150 * time.Millisecond,
				HardnessMultiplier: 1500 * time.Millisecond,
				EfficiencyFactor:   0.25,
				PingDivisor:        2,
				PingCapMillis:      300,
				Trigger:            3,
			},
			FastPlace: FastPlaceConfig{
				CheckSettings:  CheckSettings{Enabled: true, MaxViolations: 5, Punishment: defaultPunishment},
				MinPlaceTime:   50 * time.Millisecond,
				MinSpecialTime: 100 * time.Millisecond,
				PingDivisor:    2,
				PingCapMillis:  100,
				Trigger:        3,
			},
			AutoTotem: AutoTotemConfig{
				CheckSettings:      CheckSettings{Enabled: true, MaxViolations: 5, Punishment: defaultPunishment},
				MinReaction:        150 * time.Millisecond,
				ReactionPingCap:    200,
				MinPopRefill:       100 * time.Millisecond,
				PopPingCap:         100,
				CombatActionWindow: 500 * time.Millisecond,
				PingDivisor:        2,
				Threshold:          3,
			},
			Inventory: InventoryConfig{
				CheckSettings:  CheckSettings{Enabled: true, MaxViolations: 5, Punishment: defaultPunishment},
				MaxVelocitySq:  0.01,
				MinAttackClick: 100 * time.Millisecond,
				Trigger:        3,
			},
			Simulation: SimulationConfig{
				CheckSettings:      CheckSettings{Enabled: true, MaxViolations: 5, Punishment: defaultPunishment},
				MinResponse:        100 * time.Millisecond,
				MinKnockback:       100 * time.Millisecond,
				MinVelocity:        80 * time.Millisecond,
				MinTeleport:        150 * time.Millisecond,
				MaxPredictDistance: 0.5,
				PingDivisor:        2,
				PingCapMillis:      100,
				Threshold:          5,
			},
		},
	}
}

// Settings returns the shared settings for a check by its registered name.
func (c *ChecksConfig) Settings(name string) (CheckSettings, bool) {
	switch name {
	case "reach":
		return c.Combat.Reach.CheckSettings, true
	case "killaura":
		return c.Combat.KillAura.CheckSettings, true
	case "hitbox":
		return c.Combat.Hitbox.CheckSettings, true
	case "triggerbot":
		return c.Combat.TriggerBot.CheckSettings, true
	case "precision":
		return c.Combat.Precision.CheckSettings, true
	case "autocrystal":
		return c.Combat.AutoCrystal.CheckSettings, true
	case "crystalaura":
		return c.Combat.CrystalAura.CheckSettings, true
	case "autoanchor":
		return c.Combat.AutoAnchor.CheckSettings, true
	case "speed":
		return c.Movement.Speed.CheckSettings, true
	case "fly":
		return c.Movement.Fly.CheckSettings, true
	case "fastbreak":
		return c.Player.FastBreak.CheckSettings, true
	case "fastplace":
		return c.Player.FastPlace.CheckSettings, true
	case "autototem":
		return c.Player.AutoTotem.CheckSettings, true
	case "inventory":
		return c.Player.Inventory.CheckSettings, true
	case "simulation":
		return c.Player.Simulation.CheckSettings, true
	}
	return CheckSettings{}, false
}

// Validate checks detector tuning for obvious mistakes.
func (c *ChecksConfig) Validate() error {
	if c.Combat.Reach.MaxDistance <= 0 {
		return fmt.Errorf("checks.combat.reach.max_distance must be positive")
	}
	if c.Movement.Speed.BaseSpeed <= 0 || c.Movement.Speed.SprintSpeed <= 0 || c.Movement.Speed.SneakSpeed <= 0 {
		return fmt.Errorf("checks.movement.speed base speeds must be positive")
	}
	if c.Movement.Speed.Buffer < 1.0 {
		return fmt.Errorf("checks.movement.speed.buffer must be at least 1.0")
	}
	if c.Movement.Fly.MaxAirTicks <= 0 {
		return fmt.Errorf("checks.movement.fly.max_air_ticks must be positive")
	}
	if c.Player.FastBreak.MinBreakTime <= 0 {
		return fmt.Errorf("checks.player.fastbreak.min_break_time must be positive")
	}
	if c.Combat.Precision.MinSamples < 2 {
		return fmt.Errorf("checks.combat.precision.min_samples must be at least 2")
	}
	for _, raw := range c.BypassPlayerIDs {
		if _, err := uuid.Parse(raw); err != nil {
			return fmt.Errorf("checks.bypass_player_ids: %q is not a player UUID", raw)
		}
	}
	return nil
}
