// Package queue provides the bounded intake buffer between the event
// receivers and the dispatch loop.
package queue

import (
	"errors"
	"sync"

	"cheatguard/internal/schema"
)

var (
	// ErrFull is returned when pushing to a queue at capacity.
	ErrFull = errors.New("queue is full")
	// ErrEmpty is returned when popping from an empty queue.
	ErrEmpty = errors.New("queue is empty")
	// ErrClosed is returned when the queue has been closed and drained.
	ErrClosed = errors.New("queue is closed")
)

// EventQueue is a fixed-capacity ring buffer of player action events.
// Producers (HTTP, DTLS, Kafka) push without blocking; the single
// dispatch goroutine pops, blocking while the queue is empty. A full
// queue sheds new events rather than stalling intake.
type EventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []*schema.Event
	head   int
	tail   int
	count  int
	closed bool

	pushed  uint64
	popped  uint64
	dropped uint64
}

// New creates a queue with the given capacity.
func New(capacity int) *EventQueue {
	if capacity <= 0 {
		capacity = 10000
	}
	q := &EventQueue{buf: make([]*schema.Event, capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues an event. Returns ErrFull when at capacity and ErrClosed
// after Close.
func (q *EventQueue) Push(ev *schema.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if q.count == len(q.buf) {
		q.dropped++
		return ErrFull
	}

	q.buf[q.tail] = ev
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	q.pushed++
	q.cond.Signal()
	return nil
}

// Pop dequeues an event without blocking.
func (q *EventQueue) Pop() (*schema.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		if q.closed {
			return nil, ErrClosed
		}
		return nil, ErrEmpty
	}
	return q.popLocked(), nil
}

// PopBlocking dequeues an event, waiting until one is available. Returns
// ErrClosed once the queue is closed and fully drained.
func (q *EventQueue) PopBlocking() (*schema.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.count == 0 {
		return nil, ErrClosed
	}
	return q.popLocked(), nil
}

func (q *EventQueue) popLocked() *schema.Event {
	ev := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.popped++
	return ev
}

// Close stops intake and wakes blocked consumers. Events already queued
// can still be popped.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the current depth.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the capacity.
func (q *EventQueue) Cap() int {
	return len(q.buf)
}

// Metrics is a snapshot of queue counters.
type Metrics struct {
	Pushed   uint64 `json:"pushed"`
	Popped   uint64 `json:"popped"`
	Dropped  uint64 `json:"dropped"`
	Depth    int    `json:"depth"`
	Capacity int    `json:"capacity"`
}

// Metrics returns a snapshot of the queue counters.
func (q *EventQueue) Metrics() Metrics {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Metrics{
		Pushed:   q.pushed,
		Popped:   q.popped,
		Dropped:  q.dropped,
		Depth:    q.count,
		Capacity: len(q.buf),
	}
}
