package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cheatguard/internal/config"
)

// LogExecutor records punishment commands without delivering them.
// Used when no command endpoint is configured.
type LogExecutor struct {
	logger *slog.Logger
}

// NewLogExecutor creates a log-only executor.
func NewLogExecutor(logger *slog.Logger) *LogExecutor {
	return &LogExecutor{logger: logger}
}

func (e *LogExecutor) Execute(_ context.Context, command string) error {
	e.logger.Warn("punishment command not delivered, no command endpoint configured",
		"command", command,
	)
	return nil
}

// WebhookExecutor POSTs punishment commands to the game server's command
// endpoint. The server runs the command with host authority.
type WebhookExecutor struct {
	url    string
	token  string
	client *http.Client
}

// NewWebhookExecutor creates an executor for the configured endpoint.
func NewWebhookExecutor(cfg config.PunishConfig) *WebhookExecutor {
	return &WebhookExecutor{
		url:   cfg.CommandURL,
		token: cfg.AuthToken,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (e *WebhookExecutor) Execute(ctx context.Context, command string) error {
	payload, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("command request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("command endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
