package s3

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
)

// uploader is the subset of Client the archiver needs.
type uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
}

// Archiver buffers violation records and periodically flushes them to object
// storage as gzipped JSONL, one object per flush, keyed by UTC date and hour.
// It implements registry.Observer and never blocks the detection pipeline.
type Archiver struct {
	uploader uploader
	logger   *slog.Logger

	flushInterval time.Duration
	maxBatch      int

	mu     sync.Mutex
	buffer []check.Violation
	closed bool

	stopCh chan struct{}
	wg     sync.WaitGroup

	archived atomic.Uint64
	objects  atomic.Uint64
	failures atomic.Uint64
	dropped  atomic.Uint64
}

// NewArchiver creates an archiver writing through the given client.
func NewArchiver(client *Client, cfg config.S3Config, logger *slog.Logger) *Archiver {
	return newArchiver(client, cfg, logger)
}

func newArchiver(up uploader, cfg config.S3Config, logger *slog.Logger) *Archiver {
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = time.Minute
	}
	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 5000
	}
	return &Archiver{
		uploader:      up,
		logger:        logger,
		flushInterval: flushInterval,
		maxBatch:      maxBatch,
		buffer:        make([]check.Violation, 0, maxBatch),
		stopCh:        make(chan struct{}),
	}
}

// Start launches the periodic flush loop.
func (a *Archiver) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-a.stopCh:
				return
			case <-ticker.C:
				if err := a.Flush(ctx); err != nil {
					a.logger.Error("archive flush failed", "error", err)
				}
			}
		}
	}()
}

// ObserveViolation implements registry.Observer. Records accepted after Stop
// are counted as dropped.
func (a *Archiver) ObserveViolation(v check.Violation) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.dropped.Add(1)
		return
	}
	a.buffer = append(a.buffer, v)
	full := len(a.buffer) >= a.maxBatch
	a.mu.Unlock()

	if full {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.Flush(ctx); err != nil {
				a.logger.Error("archive flush failed", "error", err)
			}
		}()
	}
}

// Flush uploads all buffered violations as a single gzipped JSONL object.
func (a *Archiver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.buffer) == 0 {
		a.mu.Unlock()
		return nil
	}
	batch := a.buffer
	a.buffer = make([]check.Violation, 0, a.maxBatch)
	a.mu.Unlock()

	data, err := encodeJSONL(batch)
	if err != nil {
		a.failures.Add(1)
		a.dropped.Add(uint64(len(batch)))
		return fmt.Errorf("encode archive batch: %w", err)
	}

	key := archiveKey(time.Now().UTC())
	if err := a.uploader.Upload(ctx, key, "application/gzip", data); err != nil {
		a.failures.Add(1)
		a.dropped.Add(uint64(len(batch)))
		return err
	}

	a.archived.Add(uint64(len(batch)))
	a.objects.Add(1)

	a.logger.Debug("archived violations",
		"key", key,
		"count", len(batch),
		"compressed_bytes", len(data),
	)

	return nil
}

// Stop flushes remaining records and halts the flush loop.
func (a *Archiver) Stop(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.stopCh)
	a.wg.Wait()
	return a.Flush(ctx)
}

// ArchiverStats holds archive counters.
type ArchiverStats struct {
	Archived uint64 `json:"archived"`
	Objects  uint64 `json:"objects"`
	Failures uint64 `json:"failures"`
	Dropped  uint64 `json:"dropped"`
	Pending  int    `json:"pending"`
}

// Stats returns current counters.
func (a *Archiver) Stats() ArchiverStats {
	a.mu.Lock()
	pending := len(a.buffer)
	a.mu.Unlock()
	return ArchiverStats{
		Archived: a.archived.Load(),
		Objects:  a.objects.Load(),
		Failures: a.failures.Load(),
		Dropped:  a.dropped.Load(),
		Pending:  pending,
	}
}

// archiveKey builds an object key partitioned by UTC date and hour. The
// client's configured prefix is prepended at upload time.
func archiveKey(t time.Time) string {
	return fmt.Sprintf("%04d/%02d/%02d/%02d/violations-%s.jsonl.gz",
		t.Year(), t.Month(), t.Day(), t.Hour(), uuid.New().String())
}

// encodeJSONL serializes violations as gzip-compressed JSON lines.
func encodeJSONL(batch []check.Violation) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for i := range batch {
		if err := enc.Encode(&batch[i]); err != nil {
			gz.Close()
			return nil, err
		}
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
