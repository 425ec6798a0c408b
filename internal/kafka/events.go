package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/queue"
	"cheatguard/internal/schema"
)

// EventSource consumes action events from the events topic and feeds them
// into the intake queue, alongside the HTTP and DTLS paths.
type EventSource struct {
	consumer  *Consumer
	validator *schema.Validator
	queue     *queue.EventQueue
	logger    *slog.Logger

	decoded  atomic.Uint64
	rejected atomic.Uint64
	queued   atomic.Uint64
}

// NewEventSource creates an EventSource reading from the given topic config.
func NewEventSource(cfg *Config, validator *schema.Validator, q *queue.EventQueue, logger *slog.Logger) (*EventSource, error) {
	s := &EventSource{
		validator: validator,
		queue:     q,
		logger:    logger,
	}

	consumer, err := NewConsumer(cfg, s.handleMessage, logger)
	if err != nil {
		return nil, err
	}
	s.consumer = consumer

	return s, nil
}

// handleMessage decodes one message into an event and queues it. Undecodable
// and invalid messages are acknowledged and dropped; redelivery cannot fix
// them.
func (s *EventSource) handleMessage(_ context.Context, msg Message) error {
	var event schema.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		s.rejected.Add(1)
		s.logger.Debug("undecodable event message",
			"error", err,
			"offset", msg.Offset,
		)
		return nil
	}
	s.decoded.Add(1)

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	event.ReceivedAt = time.Now().UTC()

	if err := s.validator.Validate(&event); err != nil {
		s.rejected.Add(1)
		s.logger.Debug("invalid event message",
			"error", err,
			"offset", msg.Offset,
		)
		return nil
	}

	// A full queue is back-pressure; return the error so the offset stays
	// uncommitted and the message is redelivered.
	if err := s.queue.Push(&event); err != nil {
		return fmt.Errorf("queue push: %w", err)
	}

	s.queued.Add(1)
	return nil
}

// Start begins consuming.
func (s *EventSource) Start() error {
	return s.consumer.StartAsync()
}

// Stop stops the consumer.
func (s *EventSource) Stop() error {
	return s.consumer.Stop()
}

// Stats returns decode and queue counters.
func (s *EventSource) Stats() (decoded, rejected, queued uint64) {
	return s.decoded.Load(), s.rejected.Load(), s.queued.Load()
}

// jsonProducer is the producer surface the violation publisher needs.
type jsonProducer interface {
	ProduceJSON(ctx context.Context, key string, value interface{}) error
}

// ViolationPublisher forwards violation records to the violations topic.
// It implements the registry observer interface; publishing happens on its
// own goroutine so the detection loop never blocks on the broker.
type ViolationPublisher struct {
	producer jsonProducer
	logger   *slog.Logger
	pending  chan check.Violation
	stopCh   chan struct{}
	wg       sync.WaitGroup

	published atomic.Uint64
	dropped   atomic.Uint64
	failures  atomic.Uint64
}

// NewViolationPublisher creates a publisher over an existing producer.
func NewViolationPublisher(producer *Producer, logger *slog.Logger) *ViolationPublisher {
	return newViolationPublisher(producer, logger)
}

func newViolationPublisher(producer jsonProducer, logger *slog.Logger) *ViolationPublisher {
	return &ViolationPublisher{
		producer: producer,
		logger:   logger,
		pending:  make(chan check.Violation, 1024),
		stopCh:   make(chan struct{}),
	}
}

// ObserveViolation enqueues a violation for publishing. Never blocks; drops
// with a counter when the buffer is full.
func (p *ViolationPublisher) ObserveViolation(v check.Violation) {
	select {
	case p.pending <- v:
	default:
		p.dropped.Add(1)
	}
}

// Start launches the publishing worker.
func (p *ViolationPublisher) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case v := <-p.pending:
				p.publish(ctx, v)
			}
		}
	}()
}

func (p *ViolationPublisher) publish(ctx context.Context, v check.Violation) {
	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Keyed by player so one player's violations stay ordered per partition.
	if err := p.producer.ProduceJSON(sendCtx, v.PlayerID.String(), v); err != nil {
		p.failures.Add(1)
		p.logger.Warn("violation publish failed",
			"error", err,
			"check", v.CheckName,
			"player", v.PlayerName,
		)
		return
	}

	p.published.Add(1)
}

// Stop stops the worker.
func (p *ViolationPublisher) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

// Stats returns publish counters.
func (p *ViolationPublisher) Stats() (published, dropped, failures uint64) {
	return p.published.Load(), p.dropped.Load(), p.failures.Load()
}
