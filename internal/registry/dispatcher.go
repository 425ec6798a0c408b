package registry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// CommandExecutor delivers a punishment command to the game server.
type CommandExecutor interface {
	Execute(ctx context.Context, command string) error
}

// ExecutorFunc adapts a function to CommandExecutor.
type ExecutorFunc func(ctx context.Context, command string) error

func (f ExecutorFunc) Execute(ctx context.Context, command string) error {
	return f(ctx, command)
}

// Dispatcher serializes punishment commands through a single worker so
// they reach the game server in the order they were earned. Dispatch is
// fire-and-forget; a full queue drops the command rather than stalling
// the detection path.
type Dispatcher struct {
	executor CommandExecutor
	logger   *slog.Logger

	queue  chan string
	stopCh chan struct{}
	wg     sync.WaitGroup

	dispatched atomic.Uint64
	dropped    atomic.Uint64
	failed     atomic.Uint64
}

// NewDispatcher creates a dispatcher with the given queue depth.
func NewDispatcher(executor CommandExecutor, queueSize int, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		executor: executor,
		logger:   logger,
		queue:    make(chan string, queueSize),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go d.run(ctx)
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case cmd := <-d.queue:
			if err := d.executor.Execute(ctx, cmd); err != nil {
				d.failed.Add(1)
				d.logger.Error("punishment delivery failed", "command", cmd, "error", err)
				continue
			}
			d.dispatched.Add(1)
		}
	}
}

// Dispatch enqueues a command without blocking.
func (d *Dispatcher) Dispatch(command string) {
	select {
	case d.queue <- command:
	default:
		d.dropped.Add(1)
		d.logger.Error("punishment queue full, command dropped", "command", command)
	}
}

// Stop halts the worker. Queued commands are abandoned.
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

// Stats returns delivery counters.
func (d *Dispatcher) Stats() (dispatched, dropped, failed uint64) {
	return d.dispatched.Load(), d.dropped.Load(), d.failed.Load()
}
