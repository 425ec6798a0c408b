package storage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
)

// ViolationWriter batches violation records and inserts them into the
// violations table. It implements the registry observer interface so it can
// be attached directly to the escalation pipeline.
type ViolationWriter struct {
	client *Client
	config config.BatchWriterConfig

	buffer []check.Violation
	mu     sync.Mutex

	flushTimer *time.Timer
	closed     bool

	totalWritten uint64
	totalFailed  uint64
	batchCount   uint64
	dropped      uint64
}

// NewViolationWriter creates a new ViolationWriter.
func NewViolationWriter(client *Client, cfg config.BatchWriterConfig) *ViolationWriter {
	w := &ViolationWriter{
		client: client,
		config: cfg,
		buffer: make([]check.Violation, 0, cfg.BatchSize),
	}

	w.flushTimer = time.AfterFunc(cfg.FlushInterval, w.timerFlush)

	return w
}

// ObserveViolation adds a violation to the batch. A failed flush is logged
// and counted; the detection pipeline never blocks on storage.
func (w *ViolationWriter) ObserveViolation(v check.Violation) {
	if err := w.Write(v); err != nil {
		atomic.AddUint64(&w.dropped, 1)
		slog.Error("violation write failed", "error", err, "check", v.CheckName)
	}
}

// Write adds a violation to the batch, flushing when the batch is full.
func (w *ViolationWriter) Write(v check.Violation) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	w.buffer = append(w.buffer, v)

	if len(w.buffer) >= w.config.BatchSize {
		return w.flushLocked()
	}

	return nil
}

// timerFlush is called by the flush timer.
func (w *ViolationWriter) timerFlush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if len(w.buffer) > 0 {
		if err := w.flushLocked(); err != nil {
			slog.Error("timer flush failed", "error", err)
		}
	}

	w.flushTimer.Reset(w.config.FlushInterval)
}

// flushLocked flushes the buffer. Caller must hold the lock.
func (w *ViolationWriter) flushLocked() error {
	if len(w.buffer) == 0 {
		return nil
	}

	violations := w.buffer
	w.buffer = make([]check.Violation, 0, w.config.BatchSize)

	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(w.config.RetryDelay * time.Duration(attempt))
		}

		if err := w.insertBatch(violations); err != nil {
			lastErr = err
			slog.Warn("violation batch insert failed, retrying",
				"attempt", attempt+1,
				"max_retries", w.config.MaxRetries,
				"error", err,
			)
			continue
		}

		atomic.AddUint64(&w.totalWritten, uint64(len(violations)))
		atomic.AddUint64(&w.batchCount, 1)
		return nil
	}

	atomic.AddUint64(&w.totalFailed, uint64(len(violations)))
	return &StorageError{Op: "Insert", Table: "violations", Err: lastErr}
}

// insertBatch inserts a batch of violations into ClickHouse.
func (w *ViolationWriter) insertBatch(violations []check.Violation) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batch, err := w.client.PrepareBatch(ctx, `
		INSERT INTO violations (
			id, player_id, player_name, check_name, category,
			level, detail, ping_millis, punished, created_at
		)
	`)
	if err != nil {
		return WrapQueryError("PrepareBatch", "violations", err)
	}

	for _, v := range violations {
		err := batch.Append(
			v.ID,
			v.PlayerID,
			v.PlayerName,
			v.CheckName,
			string(v.Category),
			uint16(v.Level),
			v.Detail,
			uint16(v.PingMillis),
			v.Punished,
			v.Timestamp,
		)
		if err != nil {
			return WrapQueryError("Append", "violations", err)
		}
	}

	if err := batch.Send(); err != nil {
		return WrapQueryError("Send", "violations", err)
	}

	slog.Debug("violation batch inserted", "count", len(violations))
	return nil
}

// Flush forces a flush of the current buffer.
func (w *ViolationWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Close stops the timer and flushes remaining violations.
func (w *ViolationWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	err := w.flushLocked()
	w.closed = true
	w.mu.Unlock()

	w.flushTimer.Stop()
	return err
}

// Metrics returns writer statistics.
func (w *ViolationWriter) Metrics() ViolationWriterMetrics {
	return ViolationWriterMetrics{
		Written: atomic.LoadUint64(&w.totalWritten),
		Failed:  atomic.LoadUint64(&w.totalFailed),
		Batches: atomic.LoadUint64(&w.batchCount),
		Dropped: atomic.LoadUint64(&w.dropped),
		Pending: w.pendingCount(),
	}
}

func (w *ViolationWriter) pendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}

// ViolationWriterMetrics holds writer statistics.
type ViolationWriterMetrics struct {
	Written uint64 `json:"written"`
	Failed  uint64 `json:"failed"`
	Batches uint64 `json:"batches"`
	Dropped uint64 `json:"dropped"`
	Pending int    `json:"pending"`
}
