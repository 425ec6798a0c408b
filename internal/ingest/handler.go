// Package ingest handles intake of player action events over HTTP and DTLS.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/queue"
	"cheatguard/internal/schema"
)

// Handler handles HTTP event ingestion.
type Handler struct {
	validator   *schema.Validator
	queue       *queue.EventQueue
	maxPayload  int
	maxBatch    int
	startTime   time.Time
	eventsTotal uint64
}

// NewHandler creates a new ingest Handler.
func NewHandler(validator *schema.Validator, q *queue.EventQueue) *Handler {
	return &Handler{
		validator:  validator,
		queue:      q,
		maxPayload: 4 * 1024 * 1024,
		maxBatch:   1000,
		startTime:  time.Now(),
	}
}

// WithMaxPayload sets the maximum payload size.
func (h *Handler) WithMaxPayload(size int) *Handler {
	h.maxPayload = size
	return h
}

// WithMaxBatch sets the maximum batch size.
func (h *Handler) WithMaxBatch(size int) *Handler {
	h.maxBatch = size
	return h
}

// IngestRequest is the request body for event ingestion. Game-server agents
// batch per-tick action reports into a single POST.
type IngestRequest struct {
	Events []EventInput `json:"events"`
}

// EventInput is the input format for events. It mirrors schema.Event except
// that the event ID is optional; the intake assigns one when absent.
type EventInput struct {
	EventID    *uuid.UUID              `json:"event_id,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
	ServerID   string                  `json:"server_id,omitempty"`
	PlayerID   uuid.UUID               `json:"player_id"`
	PlayerName string                  `json:"player_name"`
	Type       schema.EventType        `json:"type"`
	Movement   *schema.MovementEvent   `json:"movement,omitempty"`
	Attack     *schema.AttackEvent     `json:"attack,omitempty"`
	Block      *schema.BlockEvent      `json:"block,omitempty"`
	Inventory  *schema.InventoryEvent  `json:"inventory,omitempty"`
	ItemSwitch *schema.ItemSwitchEvent `json:"item_switch,omitempty"`
	Totem      *schema.TotemEvent      `json:"totem,omitempty"`
	Response   *schema.ResponseEvent   `json:"response,omitempty"`
}

// IngestResponse is the response for event ingestion.
type IngestResponse struct {
	Success   bool     `json:"success"`
	Accepted  int      `json:"accepted"`
	Rejected  int      `json:"rejected"`
	Errors    []string `json:"errors,omitempty"`
	RequestID string   `json:"request_id"`
}

// HandleEvents handles POST /v1/events.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxPayload))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload too large", requestID)
			return
		}
		respondError(w, http.StatusBadRequest, "failed to read request body", requestID)
		return
	}

	var req IngestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err), requestID)
		return
	}

	if len(req.Events) == 0 {
		respondError(w, http.StatusBadRequest, "no events provided", requestID)
		return
	}

	if len(req.Events) > h.maxBatch {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("batch size exceeds maximum of %d", h.maxBatch), requestID)
		return
	}

	var accepted, rejected int
	var errs []string

	for i, input := range req.Events {
		event := h.convertInput(input)

		if err := h.validator.Validate(event); err != nil {
			rejected++
			errs = append(errs, fmt.Sprintf("event[%d]: %s", i, err.Error()))
			continue
		}

		if err := h.queue.Push(event); err != nil {
			rejected++
			if errors.Is(err, queue.ErrFull) {
				errs = append(errs, fmt.Sprintf("event[%d]: queue full", i))
			} else {
				errs = append(errs, fmt.Sprintf("event[%d]: %s", i, err.Error()))
			}
			continue
		}

		accepted++
		atomic.AddUint64(&h.eventsTotal, 1)
	}

	resp := IngestResponse{
		Success:   rejected == 0,
		Accepted:  accepted,
		Rejected:  rejected,
		RequestID: requestID,
	}

	if len(errs) > 0 {
		resp.Errors = errs
	}

	status := http.StatusOK
	if accepted == 0 && rejected > 0 {
		status = http.StatusBadRequest
	} else if rejected > 0 {
		status = http.StatusMultiStatus
	}

	respondJSON(w, status, resp)
}

// convertInput converts an EventInput to a canonical Event.
func (h *Handler) convertInput(input EventInput) *schema.Event {
	event := &schema.Event{
		Timestamp:  input.Timestamp,
		ServerID:   input.ServerID,
		PlayerID:   input.PlayerID,
		PlayerName: input.PlayerName,
		Type:       input.Type,
		Movement:   input.Movement,
		Attack:     input.Attack,
		Block:      input.Block,
		Inventory:  input.Inventory,
		ItemSwitch: input.ItemSwitch,
		Totem:      input.Totem,
		Response:   input.Response,
		ReceivedAt: time.Now().UTC(),
	}

	if input.EventID != nil {
		event.EventID = *input.EventID
	} else {
		event.EventID = uuid.New()
	}

	return event
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	metrics := h.queue.Metrics()

	status := "healthy"
	if metrics.Depth > int(float64(metrics.Capacity)*0.9) {
		status = "degraded"
	}

	resp := map[string]any{
		"status":         status,
		"queue_depth":    metrics.Depth,
		"queue_capacity": metrics.Capacity,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	}

	respondJSON(w, http.StatusOK, resp)
}

// Metrics handles GET /metrics (Prometheus format).
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics := h.queue.Metrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP cheatguard_events_total Total number of events ingested\n")
	fmt.Fprintf(w, "# TYPE cheatguard_events_total counter\n")
	fmt.Fprintf(w, "cheatguard_events_total %d\n\n", atomic.LoadUint64(&h.eventsTotal))

	fmt.Fprintf(w, "# HELP cheatguard_queue_pushed_total Total events pushed to queue\n")
	fmt.Fprintf(w, "# TYPE cheatguard_queue_pushed_total counter\n")
	fmt.Fprintf(w, "cheatguard_queue_pushed_total %d\n\n", metrics.Pushed)

	fmt.Fprintf(w, "# HELP cheatguard_queue_popped_total Total events popped from queue\n")
	fmt.Fprintf(w, "# TYPE cheatguard_queue_popped_total counter\n")
	fmt.Fprintf(w, "cheatguard_queue_popped_total %d\n\n", metrics.Popped)

	fmt.Fprintf(w, "# HELP cheatguard_queue_dropped_total Total events dropped due to full queue\n")
	fmt.Fprintf(w, "# TYPE cheatguard_queue_dropped_total counter\n")
	fmt.Fprintf(w, "cheatguard_queue_dropped_total %d\n\n", metrics.Dropped)

	fmt.Fprintf(w, "# HELP cheatguard_queue_depth Current queue depth\n")
	fmt.Fprintf(w, "# TYPE cheatguard_queue_depth gauge\n")
	fmt.Fprintf(w, "cheatguard_queue_depth %d\n\n", metrics.Depth)

	fmt.Fprintf(w, "# HELP cheatguard_queue_capacity Queue capacity\n")
	fmt.Fprintf(w, "# TYPE cheatguard_queue_capacity gauge\n")
	fmt.Fprintf(w, "cheatguard_queue_capacity %d\n\n", metrics.Capacity)

	fmt.Fprintf(w, "# HELP cheatguard_uptime_seconds Uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE cheatguard_uptime_seconds gauge\n")
	fmt.Fprintf(w, "cheatguard_uptime_seconds %d\n", int(time.Since(h.startTime).Seconds()))
}

// EventsTotal returns the number of events accepted over HTTP.
func (h *Handler) EventsTotal() uint64 {
	return atomic.LoadUint64(&h.eventsTotal)
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string, requestID string) {
	resp := map[string]any{
		"success":    false,
		"error":      message,
		"request_id": requestID,
	}
	respondJSON(w, status, resp)
}
