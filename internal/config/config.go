// Package config handles configuration loading for cheatguard.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Queue     QueueConfig     `yaml:"queue"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Alerting  AlertingConfig  `yaml:"alerting"`
	Latency   LatencyConfig   `yaml:"latency"`
	Engine    EngineConfig    `yaml:"engine"`
	Punish    PunishConfig    `yaml:"punish"`
	Logging   LoggingConfig   `yaml:"logging"`
	Checks    ChecksConfig    `yaml:"checks"`
}

// ServerConfig holds HTTP server configuration for the ingest and admin API.
type ServerConfig struct {
	HTTPPort     int           `yaml:"http_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AuthConfig holds API key authentication settings for the ingest and
// admin endpoints.
type AuthConfig struct {
	Enabled      bool     `yaml:"enabled"`
	APIKeyHeader string   `yaml:"api_key_header"`
	APIKeys      []string `yaml:"api_keys"`
}

// RateLimitConfig holds per-IP rate limiting settings for the HTTP intake.
type RateLimitConfig struct {
	Enabled       bool          `yaml:"enabled"`
	RequestsPerIP int           `yaml:"requests_per_ip"`
	BurstSize     int           `yaml:"burst_size"`
	WindowSize    time.Duration `yaml:"window_size"`
	CleanupPeriod time.Duration `yaml:"cleanup_period"`
	TrustProxy    bool          `yaml:"trust_proxy"`
	ExemptPaths   []string      `yaml:"exempt_paths"`
}

// IngestConfig holds event intake settings.
type IngestConfig struct {
	MaxBatchSize   int        `yaml:"max_batch_size"`
	MaxPayloadSize int        `yaml:"max_payload_size"`
	DTLS           DTLSConfig `yaml:"dtls"`
}

// DTLSConfig holds the secure datagram listener settings for game-server
// agents that report over UDP.
type DTLSConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Address           string        `yaml:"address"`
	CertFile          string        `yaml:"cert_file"`
	KeyFile           string        `yaml:"key_file"`
	MaxMessageSize    int           `yaml:"max_message_size"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
}

// QueueConfig holds the intake queue settings.
type QueueConfig struct {
	Size int `yaml:"size"`
}

// KafkaConfig holds settings for the optional Kafka event source and the
// violations topic producer.
type KafkaConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Brokers         []string      `yaml:"brokers"`
	EventsTopic     string        `yaml:"events_topic"`
	ViolationsTopic string        `yaml:"violations_topic"`
	ConsumerGroup   string        `yaml:"consumer_group"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
}

// StorageConfig holds violation audit storage settings.
type StorageConfig struct {
	Enabled     bool              `yaml:"enabled"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	BatchWriter BatchWriterConfig `yaml:"batch_writer"`
	S3          S3Config          `yaml:"s3"`
}

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Hosts           []string      `yaml:"hosts"`
	Database        string        `yaml:"database"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	TLSEnabled      bool          `yaml:"tls_enabled"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// BatchWriterConfig holds batch writer settings.
type BatchWriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// S3Config holds violation archive settings.
type S3Config struct {
	Enabled         bool          `yaml:"enabled"`
	Region          string        `yaml:"region"`
	Bucket          string        `yaml:"bucket"`
	Prefix          string        `yaml:"prefix"`
	Endpoint        string        `yaml:"endpoint,omitempty"`
	AccessKeyID     string        `yaml:"access_key_id,omitempty"`
	SecretAccessKey string        `yaml:"secret_access_key,omitempty"`
	UsePathStyle    bool          `yaml:"use_path_style"`
	FlushInterval   time.Duration `yaml:"flush_interval"`
	MaxBatch        int           `yaml:"max_batch"`
}

// RedisConfig holds settings for the optional cross-instance violation feed.
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	ListKey      string        `yaml:"list_key"`
	ListMaxLen   int64         `yaml:"list_max_len"`
	PubSubTopic  string        `yaml:"pubsub_topic"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AlertingConfig holds violation notification settings.
type AlertingConfig struct {
	LogViolations  bool              `yaml:"log_violations"`
	WebhookEnabled bool              `yaml:"webhook_enabled"`
	WebhookURL     string            `yaml:"webhook_url"`
	WebhookHeaders map[string]string `yaml:"webhook_headers,omitempty"`
	DiscordEnabled bool              `yaml:"discord_enabled"`
	DiscordURL     string            `yaml:"discord_url"`
	QueueSize      int               `yaml:"queue_size"`
	SendTimeout    time.Duration     `yaml:"send_timeout"`
}

// LatencyConfig holds ping sampling settings. PingURL points at the game
// server agent's per-player ping endpoint; empty means every player keeps
// the default ping.
type LatencyConfig struct {
	SampleInterval time.Duration `yaml:"sample_interval"`
	DefaultPing    int           `yaml:"default_ping"`
	PingURL        string        `yaml:"ping_url,omitempty"`
}

// EngineConfig holds dispatch loop settings.
type EngineConfig struct {
	CombatWindow time.Duration `yaml:"combat_window"`
}

// PunishConfig holds punishment command delivery settings. CommandURL is
// the game server's command endpoint; empty means commands are only logged.
type PunishConfig struct {
	QueueSize  int           `yaml:"queue_size"`
	CommandURL string        `yaml:"command_url,omitempty"`
	AuthToken  string        `yaml:"auth_token,omitempty"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:     8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Enabled:      false,
			APIKeyHeader: "X-API-Key",
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			RequestsPerIP: 1000,
			BurstSize:     200,
			WindowSize:    time.Minute,
			CleanupPeriod: 5 * time.Minute,
			ExemptPaths:   []string{"/health", "/metrics"},
		},
		Ingest: IngestConfig{
			MaxBatchSize:   1000,
			MaxPayloadSize: 4 * 1024 * 1024, // 4MB
			DTLS: DTLSConfig{
				Enabled:           false, // enable when certificates are configured
				Address:           ":5517",
				MaxMessageSize:    65535,
				ConnectionTimeout: 30 * time.Second,
				IdleTimeout:       5 * time.Minute,
			},
		},
		Queue: QueueConfig{
			Size: 100000,
		},
		Kafka: KafkaConfig{
			Enabled:         false,
			Brokers:         []string{"localhost:9092"},
			EventsTopic:     "player-actions",
			ViolationsTopic: "cheatguard-violations",
			ConsumerGroup:   "cheatguard",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
		},
		Storage: StorageConfig{
			Enabled: false,
			ClickHouse: ClickHouseConfig{
				Hosts:           []string{"localhost:9000"},
				Database:        "cheatguard",
				Username:        "default",
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: time.Hour,
				DialTimeout:     10 * time.Second,
			},
			BatchWriter: BatchWriterConfig{
				BatchSize:     500,
				FlushInterval: 5 * time.Second,
				MaxRetries:    3,
				RetryDelay:    time.Second,
			},
			S3: S3Config{
				Enabled:       false,
				Region:        "us-east-1",
				Prefix:        "violations/",
				FlushInterval: time.Minute,
				MaxBatch:      5000,
			},
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			ListKey:      "cheatguard:violations",
			ListMaxLen:   10000,
			PubSubTopic:  "cheatguard.violations",
			DialTimeout:  5 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Alerting: AlertingConfig{
			LogViolations: true,
			QueueSize:     1000,
			SendTimeout:   10 * time.Second,
		},
		Latency: LatencyConfig{
			SampleInterval: time.Second,
			DefaultPing:    100,
		},
		Engine: EngineConfig{
			CombatWindow: 5 * time.Second,
		},
		Punish: PunishConfig{
			QueueSize: 256,
			Timeout:   5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Checks: DefaultChecksConfig(),
	}
}

// Load loads configuration from a file or returns defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := os.Getenv("CHEATGUARD_CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No file, run on defaults.
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("CHEATGUARD_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.HTTPPort = p
		}
	}

	if level := os.Getenv("CHEATGUARD_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
		c.Kafka.Enabled = true
	}

	if host := os.Getenv("CLICKHOUSE_HOST"); host != "" {
		c.Storage.ClickHouse.Hosts = []string{host}
		c.Storage.Enabled = true
	}
	if db := os.Getenv("CLICKHOUSE_DATABASE"); db != "" {
		c.Storage.ClickHouse.Database = db
	}
	if user := os.Getenv("CLICKHOUSE_USER"); user != "" {
		c.Storage.ClickHouse.Username = user
	}
	if pass := os.Getenv("CLICKHOUSE_PASSWORD"); pass != "" {
		c.Storage.ClickHouse.Password = pass
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
		c.Redis.Enabled = true
	}

	if keys := os.Getenv("CHEATGUARD_API_KEYS"); keys != "" {
		c.Auth.APIKeys = strings.Split(keys, ",")
		c.Auth.Enabled = true
	}

	if url := os.Getenv("CHEATGUARD_WEBHOOK_URL"); url != "" {
		c.Alerting.WebhookURL = url
		c.Alerting.WebhookEnabled = true
	}

	if url := os.Getenv("CHEATGUARD_COMMAND_URL"); url != "" {
		c.Punish.CommandURL = url
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort)
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth.api_keys required when auth is enabled")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerIP <= 0 {
		return fmt.Errorf("rate_limit.requests_per_ip must be positive")
	}
	if c.Queue.Size <= 0 {
		return fmt.Errorf("queue.size must be positive: %d", c.Queue.Size)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.Storage.Enabled && len(c.Storage.ClickHouse.Hosts) == 0 {
		return fmt.Errorf("storage.clickhouse.hosts required when storage is enabled")
	}
	if c.Storage.S3.Enabled && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket required when s3 archive is enabled")
	}
	if c.Alerting.WebhookEnabled && c.Alerting.WebhookURL == "" {
		return fmt.Errorf("alerting.webhook_url required when webhook is enabled")
	}
	if c.Latency.SampleInterval <= 0 {
		return fmt.Errorf("latency.sample_interval must be positive")
	}
	if c.Latency.DefaultPing < 0 {
		return fmt.Errorf("latency.default_ping must be non-negative")
	}
	if c.Engine.CombatWindow <= 0 {
		return fmt.Errorf("engine.combat_window must be positive")
	}
	if c.Punish.QueueSize <= 0 {
		return fmt.Errorf("punish.queue_size must be positive")
	}
	return c.Checks.Validate()
}
