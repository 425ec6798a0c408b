// Package main is the entry point for the cheatguard detection service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cheatguard/internal/alerting"
	"cheatguard/internal/api"
	"cheatguard/internal/check"
	"cheatguard/internal/check/behavior"
	"cheatguard/internal/check/combat"
	"cheatguard/internal/check/movement"
	"cheatguard/internal/config"
	"cheatguard/internal/engine"
	"cheatguard/internal/ingest"
	"cheatguard/internal/kafka"
	"cheatguard/internal/latency"
	"cheatguard/internal/player"
	"cheatguard/internal/queue"
	"cheatguard/internal/registry"
	"cheatguard/internal/schema"
	"cheatguard/internal/storage"
	"cheatguard/internal/storage/s3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"http_port", cfg.Server.HTTPPort,
		"queue_size", cfg.Queue.Size,
		"auth_enabled", cfg.Auth.Enabled,
		"kafka_enabled", cfg.Kafka.Enabled,
		"storage_enabled", cfg.Storage.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core pipeline: queue -> engine -> registry -> dispatcher.
	validator := schema.NewValidator()
	eventQueue := queue.New(cfg.Queue.Size)
	store := player.NewStore(cfg.Latency.DefaultPing)

	var executor registry.CommandExecutor
	if cfg.Punish.CommandURL != "" {
		executor = registry.NewWebhookExecutor(cfg.Punish)
	} else {
		executor = registry.NewLogExecutor(logger)
	}
	dispatcher := registry.NewDispatcher(executor, cfg.Punish.QueueSize, logger)
	dispatcher.Start(ctx)

	reg := registry.New(&cfg.Checks, store, dispatcher, logger)
	if fn := registry.StaticBypass(cfg.Checks.BypassPlayerIDs); fn != nil {
		reg.SetBypass(fn)
		slog.Info("bypass list loaded", "players", len(cfg.Checks.BypassPlayerIDs))
	}
	eng := engine.New(eventQueue, store, reg, cfg.Engine.CombatWindow, logger)

	registerChecks(eng, reg, &cfg.Checks)

	// Latency sampler keeps detector leniency honest for laggy players.
	var pingSource latency.Source
	if cfg.Latency.PingURL != "" {
		pingSource = latency.NewHTTPSource(cfg.Latency.PingURL)
	}
	sampler := latency.NewSampler(store, pingSource, cfg.Latency, logger)
	sampler.Start(ctx)

	// Alerting fan-out.
	alerts := alerting.NewManager(cfg.Alerting, logger)
	if cfg.Alerting.WebhookEnabled {
		alerts.AddChannel(alerting.NewWebhookChannel("webhook", cfg.Alerting.WebhookURL, cfg.Alerting.WebhookHeaders))
	}
	if cfg.Alerting.DiscordEnabled {
		alerts.AddChannel(alerting.NewDiscordChannel(cfg.Alerting.DiscordURL))
	}
	if cfg.Redis.Enabled {
		alerts.AddChannel(alerting.NewRedisChannel(cfg.Redis))
	}
	alerts.Start(ctx)
	reg.AddObserver(alerts)

	// Violation persistence.
	var chClient *storage.Client
	var writer *storage.ViolationWriter
	var archiver *s3.Archiver
	var history api.ViolationStore

	if cfg.Storage.Enabled {
		slog.Info("initializing ClickHouse storage",
			"hosts", cfg.Storage.ClickHouse.Hosts,
			"database", cfg.Storage.ClickHouse.Database,
		)

		chClient, err = storage.NewClient(cfg.Storage.ClickHouse)
		if err != nil {
			slog.Error("failed to connect to ClickHouse", "error", err)
			os.Exit(1)
		}

		slog.Info("running database migrations")
		if err := storage.NewMigrator(chClient).Run(ctx); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		writer = storage.NewViolationWriter(chClient, cfg.Storage.BatchWriter)
		reg.AddObserver(writer)
		history = chClient

		if cfg.Storage.S3.Enabled {
			s3Client, err := s3.NewClient(ctx, &s3.Config{
				Region:           cfg.Storage.S3.Region,
				Bucket:           cfg.Storage.S3.Bucket,
				Prefix:           cfg.Storage.S3.Prefix,
				Endpoint:         cfg.Storage.S3.Endpoint,
				AccessKeyID:      cfg.Storage.S3.AccessKeyID,
				SecretAccessKey:  cfg.Storage.S3.SecretAccessKey,
				UsePathStyle:     cfg.Storage.S3.UsePathStyle,
				StorageClass:     "INTELLIGENT_TIERING",
				RetryMaxAttempts: 3,
			}, logger)
			if err != nil {
				slog.Error("failed to initialize S3 archive", "error", err)
				os.Exit(1)
			}
			archiver = s3.NewArchiver(s3Client, cfg.Storage.S3, logger)
			archiver.Start(ctx)
			reg.AddObserver(archiver)
		}
	}

	// Kafka intake and violation feed.
	var eventSource *kafka.EventSource
	var violationPub *kafka.ViolationPublisher
	var producer *kafka.Producer

	if cfg.Kafka.Enabled {
		eventSource, err = kafka.NewEventSource(kafka.FromConfig(cfg.Kafka, cfg.Kafka.EventsTopic), validator, eventQueue, logger)
		if err != nil {
			slog.Error("failed to create kafka event source", "error", err)
			os.Exit(1)
		}
		if err := eventSource.Start(); err != nil {
			slog.Error("failed to start kafka event source", "error", err)
			os.Exit(1)
		}

		producer, err = kafka.NewProducer(kafka.FromConfig(cfg.Kafka, cfg.Kafka.ViolationsTopic), logger)
		if err != nil {
			slog.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		violationPub = kafka.NewViolationPublisher(producer, logger)
		violationPub.Start(ctx)
		reg.AddObserver(violationPub)
	}

	// DTLS intake for game-server agents reporting over UDP.
	var dtlsServer *ingest.DTLSServer
	if cfg.Ingest.DTLS.Enabled {
		dtlsCfg := ingest.DefaultDTLSServerConfig()
		dtlsCfg.Address = cfg.Ingest.DTLS.Address
		dtlsCfg.CertFile = cfg.Ingest.DTLS.CertFile
		dtlsCfg.KeyFile = cfg.Ingest.DTLS.KeyFile
		dtlsCfg.MaxMessageSize = cfg.Ingest.DTLS.MaxMessageSize
		dtlsCfg.ConnectionTimeout = cfg.Ingest.DTLS.ConnectionTimeout
		dtlsCfg.IdleTimeout = cfg.Ingest.DTLS.IdleTimeout

		dtlsServer, err = ingest.NewDTLSServer(dtlsCfg, validator, eventQueue, logger)
		if err != nil {
			slog.Error("failed to create DTLS server", "error", err)
			os.Exit(1)
		}
		if err := dtlsServer.Start(ctx); err != nil {
			slog.Error("failed to start DTLS server", "error", err)
			os.Exit(1)
		}
	}

	// HTTP intake and admin API.
	handler := ingest.NewHandler(validator, eventQueue).
		WithMaxPayload(cfg.Ingest.MaxPayloadSize).
		WithMaxBatch(cfg.Ingest.MaxBatchSize)

	adminAPI := api.New(reg, eng, eventQueue, store, dispatcher, alerts, history, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/events", handler.HandleEvents)
	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.HandleFunc("GET /metrics", handler.Metrics)
	adminAPI.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      ingest.WithMiddleware(mux, cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	eng.Start(ctx)

	go func() {
		slog.Info("starting HTTP server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop intake first so the engine can drain what is already queued.
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if dtlsServer != nil {
		dtlsServer.Stop()
	}
	if eventSource != nil {
		if err := eventSource.Stop(); err != nil {
			slog.Error("kafka event source stop error", "error", err)
		}
	}

	eventQueue.Close()
	eng.Stop()
	sampler.Stop()
	cancel()

	dispatcher.Stop()
	alerts.Stop()

	if violationPub != nil {
		violationPub.Stop()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			slog.Error("kafka producer close error", "error", err)
		}
	}

	if archiver != nil {
		if err := archiver.Stop(shutdownCtx); err != nil {
			slog.Error("archive flush error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			slog.Error("violation writer close error", "error", err)
		}
	}
	if chClient != nil {
		if err := chClient.Close(); err != nil {
			slog.Error("clickhouse close error", "error", err)
		}
	}

	qm := eventQueue.Metrics()
	violations, punishments := reg.Stats()
	slog.Info("shutdown complete",
		"events_pushed", qm.Pushed,
		"events_popped", qm.Popped,
		"events_dropped", qm.Dropped,
		"violations", violations,
		"punishments", punishments,
	)
}

// setupLogging builds the root logger from config.
func setupLogging(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// registerChecks builds every detector and attaches it to the dispatch loop.
func registerChecks(eng *engine.Engine, reg *registry.Registry, cfg *config.ChecksConfig) {
	checks := []check.Check{
		combat.NewReach(cfg.Combat.Reach, reg),
		combat.NewKillAura(cfg.Combat.KillAura, reg),
		combat.NewHitbox(cfg.Combat.Hitbox, reg),
		combat.NewTriggerBot(cfg.Combat.TriggerBot, reg),
		combat.NewPrecision(cfg.Combat.Precision, reg),
		combat.NewAutoCrystal(cfg.Combat.AutoCrystal, reg),
		combat.NewCrystalAura(cfg.Combat.CrystalAura, reg),
		combat.NewAutoAnchor(cfg.Combat.AutoAnchor, reg),
		movement.NewSpeed(cfg.Movement.Speed, reg),
		movement.NewFly(cfg.Movement.Fly, reg),
		behavior.NewFastBreak(cfg.Player.FastBreak, reg),
		behavior.NewFastPlace(cfg.Player.FastPlace, reg),
		behavior.NewAutoTotem(cfg.Player.AutoTotem, reg),
		behavior.NewInventory(cfg.Player.Inventory, reg),
		behavior.NewSimulation(cfg.Player.Simulation, reg),
	}

	for _, c := range checks {
		reg.Register(c)
		eng.Attach(c)
	}

	slog.Info("detection checks registered", "count", len(checks))
}
