// Package alerting fans confirmed violations out to notification
// channels without blocking the detection path.
package alerting

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
)

// NotificationChannel delivers one violation notification.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, v check.Violation) error
}

// Manager queues violations and delivers them to every attached channel
// from a worker goroutine. It implements registry.Observer.
type Manager struct {
	cfg    config.AlertingConfig
	logger *slog.Logger

	mu       sync.RWMutex
	channels []NotificationChannel

	recent *RecentRing

	queue  chan check.Violation
	stopCh chan struct{}
	wg     sync.WaitGroup

	delivered atomic.Uint64
	dropped   atomic.Uint64
	failures  atomic.Uint64
}

// NewManager creates an alerting manager.
func NewManager(cfg config.AlertingConfig, logger *slog.Logger) *Manager {
	size := cfg.QueueSize
	if size <= 0 {
		size = 1000
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
		recent: NewRecentRing(256),
		queue:  make(chan check.Violation, size),
		stopCh: make(chan struct{}),
	}
}

// AddChannel attaches a notification channel.
func (m *Manager) AddChannel(ch NotificationChannel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
	m.logger.Info("notification channel attached", "channel", ch.Name())
}

// ObserveViolation enqueues a violation for delivery. Non-blocking; a
// full queue drops the notification, never the detection.
func (m *Manager) ObserveViolation(v check.Violation) {
	m.recent.Add(v)

	if m.cfg.LogViolations {
		// The registry already logs the violation itself; this is the
		// delivery-side record operators tail.
		m.logger.Info("violation queued for delivery",
			"player", v.PlayerName,
			"check", v.CheckName,
			"level", v.Level)
	}

	select {
	case m.queue <- v:
	default:
		m.dropped.Add(1)
	}
}

// Recent returns the most recent violations, newest first.
func (m *Manager) Recent(limit int) []check.Violation {
	return m.recent.Snapshot(limit)
}

// RecentForPlayer returns the most recent violations for one player, newest first.
func (m *Manager) RecentForPlayer(id uuid.UUID, limit int) []check.Violation {
	return m.recent.ForPlayer(id, limit)
}

// Start launches the delivery worker.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case v := <-m.queue:
			m.deliver(ctx, v)
		}
	}
}

func (m *Manager) deliver(ctx context.Context, v check.Violation) {
	m.mu.RLock()
	channels := make([]NotificationChannel, len(m.channels))
	copy(channels, m.channels)
	m.mu.RUnlock()

	timeout := m.cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	for _, ch := range channels {
		sendCtx, cancel := context.WithTimeout(ctx, timeout)
		err := ch.Send(sendCtx, v)
		cancel()
		if err != nil {
			m.failures.Add(1)
			m.logger.Error("notification delivery failed",
				"channel", ch.Name(),
				"check", v.CheckName,
				"error", err)
			continue
		}
		m.delivered.Add(1)
	}
}

// Stop halts the delivery worker. Queued notifications are abandoned.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

// Stats returns delivery counters.
func (m *Manager) Stats() (delivered, dropped, failures uint64) {
	return m.delivered.Load(), m.dropped.Load(), m.failures.Load()
}
