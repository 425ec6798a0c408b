// Package api provides the HTTP client the TUI uses to talk to the
// cheatguard backend.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client handles API communication with the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// HealthResponse mirrors the ingest health endpoint.
type HealthResponse struct {
	Status        string `json:"status"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	UptimeSeconds int    `json:"uptime_seconds"`
}

// Stats mirrors the admin stats endpoint.
type Stats struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	Players       struct {
		Online      int    `json:"online"`
		Connects    uint64 `json:"connects"`
		Disconnects uint64 `json:"disconnects"`
	} `json:"players"`
	Queue struct {
		Pushed   uint64 `json:"pushed"`
		Popped   uint64 `json:"popped"`
		Dropped  uint64 `json:"dropped"`
		Depth    int    `json:"depth"`
		Capacity int    `json:"capacity"`
	} `json:"queue"`
	Engine struct {
		Processed uint64 `json:"processed"`
		Panics    uint64 `json:"panics"`
	} `json:"engine"`
	Registry struct {
		Violations  uint64 `json:"violations"`
		Punishments uint64 `json:"punishments"`
	} `json:"registry"`
	Dispatcher struct {
		Dispatched uint64 `json:"dispatched"`
		Dropped    uint64 `json:"dropped"`
		Failed     uint64 `json:"failed"`
	} `json:"dispatcher"`
	Alerting struct {
		Delivered uint64 `json:"delivered"`
		Dropped   uint64 `json:"dropped"`
		Failures  uint64 `json:"failures"`
	} `json:"alerting"`
}

// Violation mirrors a confirmed detection record.
type Violation struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	CheckName  string    `json:"check_name"`
	Category   string    `json:"category"`
	Level      int       `json:"level"`
	Detail     string    `json:"detail"`
	PingMillis int       `json:"ping_millis"`
	Timestamp  time.Time `json:"timestamp"`
	Punished   bool      `json:"punished"`
}

// CheckInfo mirrors one registered detector.
type CheckInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Enabled  bool   `json:"enabled"`
}

// GetHealth fetches backend health.
func (c *Client) GetHealth() (*HealthResponse, error) {
	var health HealthResponse
	if err := c.getJSON("/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetStats fetches the runtime statistics.
func (c *Client) GetStats() (*Stats, error) {
	var stats Stats
	if err := c.getJSON("/api/v1/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetRecentViolations fetches the most recent violations, newest first.
func (c *Client) GetRecentViolations(limit int) ([]Violation, error) {
	var violations []Violation
	path := fmt.Sprintf("/api/v1/violations/recent?limit=%d", limit)
	if err := c.getJSON(path, &violations); err != nil {
		return nil, err
	}
	return violations, nil
}

// GetChecks fetches the registered detectors.
func (c *Client) GetChecks() ([]CheckInfo, error) {
	var checks []CheckInfo
	if err := c.getJSON("/api/v1/checks", &checks); err != nil {
		return nil, err
	}
	return checks, nil
}

// SetCheckEnabled toggles one detector and returns its new state.
func (c *Client) SetCheckEnabled(name string, enabled bool) (*CheckInfo, error) {
	action := "disable"
	if enabled {
		action = "enable"
	}

	url := fmt.Sprintf("%s/api/v1/checks/%s/%s", c.baseURL, name, action)
	resp, err := c.httpClient.Post(url, "application/json", bytes.NewReader(nil))
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, string(body))
	}

	var info CheckInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &info, nil
}

func (c *Client) getJSON(path string, out any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
