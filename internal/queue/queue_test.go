package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/schema"
)

func testEvent() *schema.Event {
	return &schema.Event{
		EventID:    uuid.New(),
		Timestamp:  time.Now(),
		PlayerID:   uuid.New(),
		PlayerName: "steve",
		Type:       schema.EventConnect,
	}
}

func TestQueue_PushPopOrder(t *testing.T) {
	q := New(8)

	events := make([]*schema.Event, 5)
	for i := range events {
		events[i] = testEvent()
		if err := q.Push(events[i]); err != nil {
			t.Fatalf("Push() error: %v", err)
		}
	}

	for i := range events {
		ev, err := q.Pop()
		if err != nil {
			t.Fatalf("Pop() error: %v", err)
		}
		if ev.EventID != events[i].EventID {
			t.Errorf("pop %d out of order", i)
		}
	}

	if _, err := q.Pop(); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestQueue_FullShedsNewEvents(t *testing.T) {
	q := New(2)

	if err := q.Push(testEvent()); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(testEvent()); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(testEvent()); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}

	m := q.Metrics()
	if m.Dropped != 1 || m.Pushed != 2 {
		t.Errorf("metrics = %+v, want dropped 1 pushed 2", m)
	}
}

func TestQueue_PopBlockingWakesOnPush(t *testing.T) {
	q := New(4)
	got := make(chan *schema.Event, 1)

	go func() {
		ev, err := q.PopBlocking()
		if err != nil {
			t.Errorf("PopBlocking() error: %v", err)
			return
		}
		got <- ev
	}()

	ev := testEvent()
	time.Sleep(10 * time.Millisecond)
	if err := q.Push(ev); err != nil {
		t.Fatal(err)
	}

	select {
	case popped := <-got:
		if popped.EventID != ev.EventID {
			t.Error("popped wrong event")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PopBlocking never woke")
	}
}

func TestQueue_CloseDrainsThenErrClosed(t *testing.T) {
	q := New(4)
	q.Push(testEvent())
	q.Close()

	if err := q.Push(testEvent()); !errors.Is(err, ErrClosed) {
		t.Errorf("push after close = %v, want ErrClosed", err)
	}
	if _, err := q.PopBlocking(); err != nil {
		t.Errorf("queued event should still pop, got %v", err)
	}
	if _, err := q.PopBlocking(); !errors.Is(err, ErrClosed) {
		t.Errorf("drained closed queue = %v, want ErrClosed", err)
	}
}

func TestQueue_CloseWakesBlockedConsumers(t *testing.T) {
	q := New(4)
	done := make(chan error, 1)

	go func() {
		_, err := q.PopBlocking()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked consumer never woke")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New(10000)
	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(testEvent())
			}
		}()
	}
	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Errorf("expected %d queued, got %d", producers*perProducer, q.Len())
	}
}
