package livediff

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AnuragBhanderi/StatusHub-sub001/pkg/status"
)

// Client polls the public read API over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a read API client for the given server base URL.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, client: client}
}

// Services fetches the current snapshot summaries.
func (c *Client) Services(ctx context.Context) ([]*status.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/services", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch services: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var payload struct {
		Services []struct {
			Slug   string        `json:"slug"`
			Status status.Status `json:"status"`
			Error  string        `json:"error"`
		} `json:"services"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode services response: %w", err)
	}

	snaps := make([]*status.Snapshot, 0, len(payload.Services))
	for _, svc := range payload.Services {
		snaps = append(snaps, &status.Snapshot{
			Slug:   svc.Slug,
			Status: svc.Status,
			Error:  svc.Error,
		})
	}
	return snaps, nil
}
