// Package api exposes the admin surface: check toggles, player violation
// lookups, and runtime statistics.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"cheatguard/internal/alerting"
	"cheatguard/internal/check"
	"cheatguard/internal/engine"
	"cheatguard/internal/player"
	"cheatguard/internal/queue"
	"cheatguard/internal/registry"
	"cheatguard/internal/storage"
)

// APIError is a structured error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, message, details string) {
	writeJSON(w, status, APIError{Code: code, Message: message, Details: details})
}

// ViolationStore is the persisted-history backend. Optional; lookups fall
// back to the in-memory recent ring when none is configured.
type ViolationStore interface {
	ViolationHistory(ctx context.Context, playerID uuid.UUID, limit int) ([]check.Violation, error)
	TopOffenders(ctx context.Context, since time.Time, limit int) ([]storage.Offender, error)
}

// AdminAPI serves the admin endpoints.
type AdminAPI struct {
	registry   *registry.Registry
	engine     *engine.Engine
	queue      *queue.EventQueue
	store      *player.Store
	dispatcher *registry.Dispatcher
	alerts     *alerting.Manager
	history    ViolationStore
	logger     *slog.Logger
	started    time.Time
}

// New creates the admin API. history may be nil when persistence is disabled.
func New(reg *registry.Registry, eng *engine.Engine, q *queue.EventQueue, store *player.Store, dispatcher *registry.Dispatcher, alerts *alerting.Manager, history ViolationStore, logger *slog.Logger) *AdminAPI {
	return &AdminAPI{
		registry:   reg,
		engine:     eng,
		queue:      q,
		store:      store,
		dispatcher: dispatcher,
		alerts:     alerts,
		history:    history,
		logger:     logger,
		started:    time.Now(),
	}
}

// RegisterRoutes registers the admin routes on the given mux.
func (a *AdminAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/checks", a.handleListChecks)
	mux.HandleFunc("POST /api/v1/checks/{name}/enable", a.handleEnableCheck)
	mux.HandleFunc("POST /api/v1/checks/{name}/disable", a.handleDisableCheck)
	mux.HandleFunc("GET /api/v1/players/{id}/violations", a.handlePlayerViolations)
	mux.HandleFunc("GET /api/v1/violations/recent", a.handleRecentViolations)
	mux.HandleFunc("GET /api/v1/offenders", a.handleTopOffenders)
	mux.HandleFunc("GET /api/v1/stats", a.handleStats)
}

// CheckInfo describes one registered check.
type CheckInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Enabled  bool   `json:"enabled"`
}

func (a *AdminAPI) handleListChecks(w http.ResponseWriter, r *http.Request) {
	checks := a.registry.All()
	infos := make([]CheckInfo, 0, len(checks))
	for _, c := range checks {
		infos = append(infos, CheckInfo{
			Name:     c.Name(),
			Category: string(c.Category()),
			Enabled:  c.Enabled(),
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (a *AdminAPI) handleEnableCheck(w http.ResponseWriter, r *http.Request) {
	a.setCheckEnabled(w, r, true)
}

func (a *AdminAPI) handleDisableCheck(w http.ResponseWriter, r *http.Request) {
	a.setCheckEnabled(w, r, false)
}

func (a *AdminAPI) setCheckEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	name := r.PathValue("name")
	c, ok := a.registry.ByName(name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "CHECK_NOT_FOUND", "unknown check", name)
		return
	}

	c.SetEnabled(enabled)
	a.logger.Info("check toggled", "check", name, "enabled", enabled)

	writeJSON(w, http.StatusOK, CheckInfo{
		Name:     c.Name(),
		Category: string(c.Category()),
		Enabled:  c.Enabled(),
	})
}

// PlayerViolationsResponse lists one player's violations.
type PlayerViolationsResponse struct {
	PlayerID   uuid.UUID         `json:"player_id"`
	Source     string            `json:"source"`
	Violations []check.Violation `json:"violations"`
}

func (a *AdminAPI) handlePlayerViolations(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_PLAYER_ID", "player id must be a UUID", err.Error())
		return
	}
	limit := queryInt(r, "limit", 50, 1000)

	// Persisted history covers the full retention window; the ring only
	// covers what this instance saw recently.
	if a.history != nil && r.URL.Query().Get("source") != "recent" {
		violations, err := a.history.ViolationHistory(r.Context(), id, limit)
		if err != nil {
			a.logger.Error("violation history query failed", "player_id", id, "error", err)
			writeJSONError(w, http.StatusBadGateway, "STORAGE_ERROR", "violation history unavailable", "")
			return
		}
		writeJSON(w, http.StatusOK, PlayerViolationsResponse{
			PlayerID:   id,
			Source:     "storage",
			Violations: violations,
		})
		return
	}

	writeJSON(w, http.StatusOK, PlayerViolationsResponse{
		PlayerID:   id,
		Source:     "recent",
		Violations: a.alerts.RecentForPlayer(id, limit),
	})
}

func (a *AdminAPI) handleRecentViolations(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 1000)
	writeJSON(w, http.StatusOK, a.alerts.Recent(limit))
}

func (a *AdminAPI) handleTopOffenders(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "STORAGE_DISABLED", "offender ranking requires persistence", "")
		return
	}

	window := 24 * time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeJSONError(w, http.StatusBadRequest, "INVALID_WINDOW", "window must be a positive duration", raw)
			return
		}
		window = d
	}
	limit := queryInt(r, "limit", 10, 100)

	offenders, err := a.history.TopOffenders(r.Context(), time.Now().Add(-window), limit)
	if err != nil {
		a.logger.Error("top offenders query failed", "error", err)
		writeJSONError(w, http.StatusBadGateway, "STORAGE_ERROR", "offender ranking unavailable", "")
		return
	}
	writeJSON(w, http.StatusOK, offenders)
}

// StatsResponse aggregates runtime counters across the pipeline.
type StatsResponse struct {
	UptimeSeconds float64         `json:"uptime_seconds"`
	Players       PlayerStats     `json:"players"`
	Queue         queue.Metrics   `json:"queue"`
	Engine        EngineStats     `json:"engine"`
	Registry      RegistryStats   `json:"registry"`
	Dispatcher    DispatcherStats `json:"dispatcher"`
	Alerting      AlertingStats   `json:"alerting"`
}

type PlayerStats struct {
	Online      int    `json:"online"`
	Connects    uint64 `json:"connects"`
	Disconnects uint64 `json:"disconnects"`
}

type EngineStats struct {
	Processed uint64 `json:"processed"`
	Panics    uint64 `json:"panics"`
}

type RegistryStats struct {
	Violations  uint64 `json:"violations"`
	Punishments uint64 `json:"punishments"`
}

type DispatcherStats struct {
	Dispatched uint64 `json:"dispatched"`
	Dropped    uint64 `json:"dropped"`
	Failed     uint64 `json:"failed"`
}

type AlertingStats struct {
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Failures  uint64 `json:"failures"`
}

func (a *AdminAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	connects, disconnects := a.store.Stats()
	processed, panics := a.engine.Stats()
	violations, punishments := a.registry.Stats()
	dispatched, dropped, failed := a.dispatcher.Stats()
	delivered, aDropped, aFailures := a.alerts.Stats()

	writeJSON(w, http.StatusOK, StatsResponse{
		UptimeSeconds: time.Since(a.started).Seconds(),
		Players: PlayerStats{
			Online:      a.store.Count(),
			Connects:    connects,
			Disconnects: disconnects,
		},
		Queue: a.queue.Metrics(),
		Engine: EngineStats{
			Processed: processed,
			Panics:    panics,
		},
		Registry: RegistryStats{
			Violations:  violations,
			Punishments: punishments,
		},
		Dispatcher: DispatcherStats{
			Dispatched: dispatched,
			Dropped:    dropped,
			Failed:     failed,
		},
		Alerting: AlertingStats{
			Delivered: delivered,
			Dropped:   aDropped,
			Failures:  aFailures,
		},
	})
}

func queryInt(r *http.Request, key string, def, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
