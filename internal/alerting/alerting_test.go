package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/check"
	"cheatguard/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testViolation(name string, level int) check.Violation {
	return check.Violation{
		ID:         uuid.New(),
		PlayerID:   uuid.New(),
		PlayerName: name,
		CheckName:  "reach",
		Category:   check.CategoryCombat,
		Level:      level,
		Detail:     "distance=5.1",
		Timestamp:  time.Now(),
	}
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []check.Violation
	err  error
}

func (f *fakeChannel) Name() string { return "fake" }

func (f *fakeChannel) Send(_ context.Context, v check.Violation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestManager_DeliversToChannels(t *testing.T) {
	m := NewManager(config.AlertingConfig{QueueSize: 16, SendTimeout: time.Second}, testLogger())
	ch := &fakeChannel{}
	m.AddChannel(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	m.ObserveViolation(testViolation("steve", 1))
	m.ObserveViolation(testViolation("alex", 2))

	deadline := time.After(2 * time.Second)
	for ch.count() != 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 deliveries, got %d", ch.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManager_ChannelFailureCounted(t *testing.T) {
	m := NewManager(config.AlertingConfig{QueueSize: 16, SendTimeout: time.Second}, testLogger())
	m.AddChannel(&fakeChannel{err: errors.New("down")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	m.ObserveViolation(testViolation("steve", 1))

	deadline := time.After(2 * time.Second)
	for {
		_, _, failures := m.Stats()
		if failures == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("failure never counted")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManager_RecentNewestFirst(t *testing.T) {
	m := NewManager(config.AlertingConfig{QueueSize: 16}, testLogger())

	m.ObserveViolation(testViolation("first", 1))
	m.ObserveViolation(testViolation("second", 2))
	m.ObserveViolation(testViolation("third", 3))

	recent := m.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2, got %d", len(recent))
	}
	if recent[0].PlayerName != "third" || recent[1].PlayerName != "second" {
		t.Errorf("wrong order: %s, %s", recent[0].PlayerName, recent[1].PlayerName)
	}
}

func TestRecentRing_WrapAround(t *testing.T) {
	r := NewRecentRing(3)
	for i := 1; i <= 5; i++ {
		r.Add(testViolation("p", i))
	}

	all := r.Snapshot(0)
	if len(all) != 3 {
		t.Fatalf("expected 3 held, got %d", len(all))
	}
	if all[0].Level != 5 || all[2].Level != 3 {
		t.Errorf("expected levels 5..3, got %d..%d", all[0].Level, all[2].Level)
	}
}

func TestRecentRing_ForPlayer(t *testing.T) {
	r := NewRecentRing(10)
	target := uuid.New()

	for i := 0; i < 3; i++ {
		v := testViolation("other", i)
		r.Add(v)
	}
	v := testViolation("target", 9)
	v.PlayerID = target
	r.Add(v)

	got := r.ForPlayer(target, 0)
	if len(got) != 1 || got[0].Level != 9 {
		t.Errorf("ForPlayer = %+v, want single level-9 entry", got)
	}
}

func TestWebhookChannel_Send(t *testing.T) {
	var received check.Violation
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("X-Token")
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel("test", srv.URL, map[string]string{"X-Token": "secret"})
	v := testViolation("steve", 2)
	if err := ch.Send(context.Background(), v); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if received.PlayerName != "steve" || received.Level != 2 {
		t.Errorf("server received %+v", received)
	}
	if header != "secret" {
		t.Errorf("header not forwarded, got %q", header)
	}
}

func TestWebhookChannel_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ch := NewWebhookChannel("test", srv.URL, nil)
	if err := ch.Send(context.Background(), testViolation("steve", 1)); err == nil {
		t.Error("expected error on 500")
	}
}

func TestDiscordChannel_EmbedShape(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := NewDiscordChannel(srv.URL)
	v := testViolation("steve", 3)
	v.Punished = true
	if err := ch.Send(context.Background(), v); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	embeds, ok := payload["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("expected 1 embed, got %v", payload["embeds"])
	}
	embed := embeds[0].(map[string]any)
	if title := embed["title"].(string); title != "Punished: reach" {
		t.Errorf("title = %q", title)
	}
}
