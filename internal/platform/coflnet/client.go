// Package coflnet reads item trading history from the Coflnet SkyBlock API.
package coflnet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client queries daily price history.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client, e.g. NewClient("https://sky.coflnet.com", 10*time.Second).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// historyPoint is one day of GET /api/item/price/{id}/history/day.
type historyPoint struct {
	Volume float64 `json:"volume"`
}

// AverageDailyVolume returns the mean of the per-day volumes for an item.
// An item with no history yields 0. Rate limiting, server errors and
// undecodable responses yield an error, since they say nothing about the
// item.
func (c *Client) AverageDailyVolume(ctx context.Context, identifier string) (*float64, error) {
	path := fmt.Sprintf("/api/item/price/%s/history/day", url.PathEscape(identifier))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("coflnet: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coflnet: history %s: %w", identifier, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coflnet: read history %s: %w", identifier, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("coflnet: history %s: HTTP %d", identifier, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		zero := 0.0
		return &zero, nil
	}

	var points []historyPoint
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, fmt.Errorf("coflnet: decode history %s: %w", identifier, err)
	}
	avg := 0.0
	if len(points) > 0 {
		sum := 0.0
		for _, p := range points {
			sum += p.Volume
		}
		avg = sum / float64(len(points))
	}
	return &avg, nil
}
