package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cheatguard/internal/check"
)

// WebhookChannel POSTs the violation record as JSON to an arbitrary
// endpoint.
type WebhookChannel struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookChannel creates a webhook channel.
func NewWebhookChannel(name, url string, headers map[string]string) *WebhookChannel {
	return &WebhookChannel{
		name:    name,
		url:     url,
		headers: headers,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookChannel) Name() string {
	return w.name
}

func (w *WebhookChannel) Send(ctx context.Context, v check.Violation) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal violation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, val := range w.headers {
		req.Header.Set(k, val)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// DiscordChannel posts violations to a Discord webhook as an embed, the
// format server staff usually watch.
type DiscordChannel struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordChannel creates a Discord webhook channel.
func NewDiscordChannel(webhookURL string) *DiscordChannel {
	return &DiscordChannel{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (d *DiscordChannel) Name() string {
	return "discord"
}

func (d *DiscordChannel) Send(ctx context.Context, v check.Violation) error {
	color := 0xFFA500 // orange
	title := fmt.Sprintf("Violation: %s", v.CheckName)
	if v.Punished {
		color = 0xFF0000
		title = fmt.Sprintf("Punished: %s", v.CheckName)
	}

	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       title,
				"description": v.Detail,
				"color":       color,
				"timestamp":   v.Timestamp.Format(time.RFC3339),
				"fields": []map[string]any{
					{"name": "Player", "value": v.PlayerName, "inline": true},
					{"name": "Category", "value": string(v.Category), "inline": true},
					{"name": "Level", "value": fmt.Sprintf("%d", v.Level), "inline": true},
					{"name": "Ping", "value": fmt.Sprintf("%dms", v.PingMillis), "inline": true},
				},
				"footer": map[string]any{
					"text": fmt.Sprintf("Violation %s", v.ID.String()[:8]),
				},
			},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
