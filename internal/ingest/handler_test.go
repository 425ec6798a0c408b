package ingest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/config"
	"cheatguard/internal/geom"
	"cheatguard/internal/queue"
	"cheatguard/internal/schema"
)

func newTestHandler(queueSize int) (*Handler, *queue.EventQueue) {
	q := queue.New(queueSize)
	return NewHandler(schema.NewValidator(), q), q
}

func movementInput() EventInput {
	return EventInput{
		Timestamp:  time.Now().UTC(),
		PlayerID:   uuid.New(),
		PlayerName: "steve",
		Type:       schema.EventMovement,
		Movement: &schema.MovementEvent{
			From:     geom.Vec3{X: 0, Y: 64, Z: 0},
			To:       geom.Vec3{X: 0.2, Y: 64, Z: 0},
			OnGround: true,
		},
	}
}

func postEvents(t *testing.T, h *Handler, req IngestRequest) (*httptest.ResponseRecorder, IngestResponse) {
	t.Helper()

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleEvents(w, r)

	var resp IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return w, resp
}

func TestHandleEvents_AcceptsBatch(t *testing.T) {
	h, q := newTestHandler(16)

	w, resp := postEvents(t, h, IngestRequest{
		Events: []EventInput{movementInput(), movementInput()},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	if !resp.Success || resp.Accepted != 2 || resp.Rejected != 0 {
		t.Errorf("resp = %+v, want 2 accepted", resp)
	}
	if q.Len() != 2 {
		t.Errorf("queue depth = %d, want 2", q.Len())
	}
	ev, err := q.Pop()
	if err != nil {
		t.Fatalf("Pop() error: %v", err)
	}
	if ev.EventID == uuid.Nil {
		t.Error("event ID not assigned")
	}
	if ev.ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}
}

func TestHandleEvents_RejectsInvalid(t *testing.T) {
	h, _ := newTestHandler(16)

	bad := movementInput()
	bad.Movement = nil // payload missing for declared type

	w, resp := postEvents(t, h, IngestRequest{
		Events: []EventInput{movementInput(), bad},
	})

	if w.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207", w.Code)
	}
	if resp.Accepted != 1 || resp.Rejected != 1 {
		t.Errorf("resp = %+v, want 1 accepted 1 rejected", resp)
	}
	if len(resp.Errors) != 1 {
		t.Errorf("expected 1 error, got %v", resp.Errors)
	}
}

func TestHandleEvents_AllInvalid(t *testing.T) {
	h, _ := newTestHandler(16)

	bad := movementInput()
	bad.PlayerName = ""

	w, _ := postEvents(t, h, IngestRequest{Events: []EventInput{bad}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleEvents_EmptyBatch(t *testing.T) {
	h, _ := newTestHandler(16)

	w, _ := postEvents(t, h, IngestRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleEvents_BatchTooLarge(t *testing.T) {
	h, _ := newTestHandler(16)
	h.WithMaxBatch(2)

	w, _ := postEvents(t, h, IngestRequest{
		Events: []EventInput{movementInput(), movementInput(), movementInput()},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleEvents_QueueFull(t *testing.T) {
	h, _ := newTestHandler(1)

	w, resp := postEvents(t, h, IngestRequest{
		Events: []EventInput{movementInput(), movementInput()},
	})

	if w.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207", w.Code)
	}
	if resp.Accepted != 1 || resp.Rejected != 1 {
		t.Errorf("resp = %+v, want 1 accepted 1 rejected", resp)
	}
}

func TestHandleEvents_InvalidJSON(t *testing.T) {
	h, _ := newTestHandler(16)

	r := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	h.HandleEvents(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestHandler(16)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.HealthCheck(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.AuthConfig{
		Enabled:      true,
		APIKeyHeader: "X-API-Key",
		APIKeys:      []string{"valid-key"},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := authMiddleware(next, cfg)

	tests := []struct {
		name string
		path string
		key  string
		want int
	}{
		{"valid key", "/v1/events", "valid-key", http.StatusOK},
		{"missing key", "/v1/events", "", http.StatusUnauthorized},
		{"wrong key", "/v1/events", "bogus", http.StatusUnauthorized},
		{"health exempt", "/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				r.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{
		RequestsPerIP: 2,
		BurstSize:     1,
		WindowSize:    time.Minute,
		CleanupPeriod: time.Minute,
	})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		allowed, _, _ := rl.Allow("10.0.0.1")
		if !allowed {
			t.Fatalf("request %d denied within limit", i)
		}
	}

	if allowed, _, _ := rl.Allow("10.0.0.1"); allowed {
		t.Error("request over limit allowed")
	}

	// Separate IPs have separate budgets.
	if allowed, _, _ := rl.Allow("10.0.0.2"); !allowed {
		t.Error("fresh IP denied")
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:5000"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if ip := getClientIP(r, false); ip != "192.0.2.1" {
		t.Errorf("untrusted proxy ip = %q", ip)
	}
	if ip := getClientIP(r, true); ip != "203.0.113.7" {
		t.Errorf("trusted proxy ip = %q", ip)
	}
}
