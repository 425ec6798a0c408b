package latency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HTTPSource queries the game server agent's ping endpoint. The agent
// serves GET <base>/<player-uuid> with a JSON body carrying ping_millis.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source for the given base URL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

type pingResponse struct {
	PingMillis int `json:"ping_millis"`
}

func (h *HTTPSource) PingMillis(ctx context.Context, playerID uuid.UUID) (int, error) {
	url := h.baseURL + "/" + playerID.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ping request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ping endpoint returned %d", resp.StatusCode)
	}

	var pr pingResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return 0, fmt.Errorf("failed to decode ping response: %w", err)
	}
	return pr.PingMillis, nil
}
