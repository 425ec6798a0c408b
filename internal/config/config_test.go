package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Queue.Size != 100000 {
		t.Errorf("expected queue size 100000, got %d", cfg.Queue.Size)
	}
	if cfg.Latency.DefaultPing != 100 {
		t.Errorf("expected default ping 100, got %d", cfg.Latency.DefaultPing)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDefaultChecksConfig(t *testing.T) {
	checks := DefaultChecksConfig()

	if checks.Combat.Reach.MaxDistance != 4.5 {
		t.Errorf("expected reach max distance 4.5, got %f", checks.Combat.Reach.MaxDistance)
	}
	if checks.Movement.Speed.SprintSpeed != 0.45 {
		t.Errorf("expected sprint speed 0.45, got %f", checks.Movement.Speed.SprintSpeed)
	}
	if checks.Movement.Fly.MaxAirTicks != 60 {
		t.Errorf("expected max air ticks 60, got %d", checks.Movement.Fly.MaxAirTicks)
	}
	if checks.Combat.KillAura.MinInterval != 50*time.Millisecond {
		t.Errorf("expected killaura min interval 50ms, got %v", checks.Combat.KillAura.MinInterval)
	}
	if !checks.Player.AutoTotem.Enabled {
		t.Error("autototem should be enabled by default")
	}
}

func TestChecksConfig_Settings(t *testing.T) {
	checks := DefaultChecksConfig()

	tests := []struct {
		name  string
		found bool
		maxVl int
	}{
		{"reach", true, 5},
		{"killaura", true, 3},
		{"speed", true, 5},
		{"fly", true, 3},
		{"fastbreak", true, 5},
		{"simulation", true, 5},
		{"unknown", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := checks.Settings(tt.name)
			if ok != tt.found {
				t.Fatalf("Settings(%q) found = %v, want %v", tt.name, ok, tt.found)
			}
			if ok && s.MaxViolations != tt.maxVl {
				t.Errorf("Settings(%q) max violations = %d, want %d", tt.name, s.MaxViolations, tt.maxVl)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  http_port: 9090
checks:
  combat:
    reach:
      enabled: false
      max_distance: 3.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CHEATGUARD_CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Checks.Combat.Reach.Enabled {
		t.Error("reach should be disabled by file override")
	}
	if cfg.Checks.Combat.Reach.MaxDistance != 3.5 {
		t.Errorf("expected reach max distance 3.5, got %f", cfg.Checks.Combat.Reach.MaxDistance)
	}
	// Sections absent from the file keep defaults.
	if cfg.Checks.Movement.Speed.BaseSpeed != 0.35 {
		t.Errorf("expected base speed default 0.35, got %f", cfg.Checks.Movement.Speed.BaseSpeed)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CHEATGUARD_CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.HTTPPort)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHEATGUARD_CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
	t.Setenv("CHEATGUARD_HTTP_PORT", "7000")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.HTTPPort != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.HTTPPort)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("expected kafka enabled with 2 brokers, got %v %v", cfg.Kafka.Enabled, cfg.Kafka.Brokers)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("expected redis enabled at redis:6379, got %v %s", cfg.Redis.Enabled, cfg.Redis.Addr)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.HTTPPort = 0 }},
		{"bad queue", func(c *Config) { c.Queue.Size = -1 }},
		{"kafka no brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }},
		{"s3 no bucket", func(c *Config) { c.Storage.S3.Enabled = true; c.Storage.S3.Bucket = "" }},
		{"webhook no url", func(c *Config) { c.Alerting.WebhookEnabled = true }},
		{"speed buffer below one", func(c *Config) { c.Checks.Movement.Speed.Buffer = 0.5 }},
		{"sneak speed zero", func(c *Config) { c.Checks.Movement.Speed.SneakSpeed = 0 }},
		{"precision samples", func(c *Config) { c.Checks.Combat.Precision.MinSamples = 1 }},
		{"bad bypass id", func(c *Config) { c.Checks.BypassPlayerIDs = []string{"not-a-uuid"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateBypassPlayerIDs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Checks.BypassPlayerIDs = []string{uuid.NewString(), uuid.NewString()}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid bypass ids rejected: %v", err)
	}
}
