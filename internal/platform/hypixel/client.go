// Package hypixel fetches active auctions from the Hypixel public API.
package hypixel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	PageConcurrency   int
	MaxRetries        int
	RetryBackoff      time.Duration
	AllowedCategories []string
	Logger            *slog.Logger
}

// Client is the REST client for the auctions endpoint.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	concurrency int
	maxRetries  int
	backoff     time.Duration
	categories  map[string]struct{}
	logger      *slog.Logger
}

// NewClient creates a Client. An empty AllowedCategories admits every
// category.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	conc := cfg.PageConcurrency
	if conc <= 0 {
		conc = 15
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	cats := make(map[string]struct{}, len(cfg.AllowedCategories))
	for _, c := range cfg.AllowedCategories {
		cats[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		concurrency: conc,
		maxRetries:  cfg.MaxRetries,
		backoff:     backoff,
		categories:  cats,
		logger:      logger.With(slog.String("component", "hypixel_client")),
	}
}

// FetchAuctions returns every fixed-price listing in an allowed category.
// The first page must succeed since it carries the page count; later pages
// that fail are logged and skipped. Listings keep page order.
func (c *Client) FetchAuctions(ctx context.Context) ([]domain.RawListing, error) {
	first, err := c.fetchPage(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("hypixel: fetch first page: %w", err)
	}

	pages := make([][]APIAuction, max(first.TotalPages, 1))
	pages[0] = first.Auctions

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := 1; i < len(pages); i++ {
		g.Go(func() error {
			p, err := c.fetchPage(gctx, i)
			if err != nil {
				if gctx.Err() == nil {
					c.logger.Warn("page fetch failed",
						slog.Int("page", i),
						slog.String("error", err.Error()),
					)
				}
				return nil
			}
			pages[i] = p.Auctions
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("hypixel: fetch auctions: %w", err)
	}

	var out []domain.RawListing
	for _, page := range pages {
		for _, a := range page {
			if !c.admit(a) {
				continue
			}
			out = append(out, a.ToDomainListing())
		}
	}
	return out, nil
}

func (c *Client) admit(a APIAuction) bool {
	if !a.BIN {
		return false
	}
	if len(c.categories) == 0 {
		return true
	}
	_, ok := c.categories[strings.ToLower(a.Category)]
	return ok
}

// fetchPage GETs one page, retrying rate-limited responses with a fixed
// backoff up to maxRetries times.
func (c *Client) fetchPage(ctx context.Context, page int) (auctionsPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	path := "/v2/skyblock/auctions?" + params.Encode()

	for attempt := 0; ; attempt++ {
		body, err := c.doGet(ctx, path)
		if errors.Is(err, domain.ErrRateLimited) && attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return auctionsPage{}, ctx.Err()
			case <-time.After(c.backoff):
			}
			continue
		}
		if err != nil {
			return auctionsPage{}, fmt.Errorf("page %d: %w", page, err)
		}

		var p auctionsPage
		if err := json.Unmarshal(body, &p); err != nil {
			return auctionsPage{}, fmt.Errorf("decode page %d: %w", page, err)
		}
		if !p.Success {
			return auctionsPage{}, fmt.Errorf("page %d: %w", page, domain.ErrNoData)
		}
		return p, nil
	}
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, body)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, body)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
