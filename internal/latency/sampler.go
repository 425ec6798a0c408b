// Package latency keeps per-player ping samples fresh so the detectors
// can widen their thresholds for laggy connections.
package latency

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/config"
	"cheatguard/internal/player"
)

// Source reports the current round-trip time for a player in
// milliseconds. The game server agent exposes this.
type Source interface {
	PingMillis(ctx context.Context, playerID uuid.UUID) (int, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, playerID uuid.UUID) (int, error)

func (f SourceFunc) PingMillis(ctx context.Context, playerID uuid.UUID) (int, error) {
	return f(ctx, playerID)
}

// Sampler polls the source for every tracked player on a fixed interval
// and writes the result into the player state. Runs on its own goroutine,
// concurrent with the dispatch loop.
type Sampler struct {
	store  *player.Store
	source Source
	cfg    config.LatencyConfig
	logger *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSampler creates a sampler. source may be nil, in which case every
// player keeps the default ping.
func NewSampler(store *player.Store, source Source, cfg config.LatencyConfig, logger *slog.Logger) *Sampler {
	return &Sampler{
		store:  store,
		source: source,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start launches the sampling loop.
func (s *Sampler) Start(ctx context.Context) {
	if s.source == nil {
		return
	}
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Sampler) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.SampleAll(ctx)
		}
	}
}

// SampleAll refreshes the ping of every tracked player once. A failed
// sample falls back to the default rather than keeping a stale reading.
func (s *Sampler) SampleAll(ctx context.Context) {
	s.store.ForEach(func(st *player.State) {
		ping, err := s.source.PingMillis(ctx, st.ID)
		if err != nil {
			s.logger.Debug("ping sample failed", "player", st.Name, "error", err)
			st.UpdatePing(s.cfg.DefaultPing)
			return
		}
		if ping < 0 {
			ping = 0
		}
		st.UpdatePing(ping)
	})
}

// Stop halts the sampling loop.
func (s *Sampler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}
