// Package upstream fetches raw payloads from the public grid status endpoints.
package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/grid-status-etl/internal/domain"
	"github.com/couchcryptid/grid-status-etl/internal/observability"
)

// maxErrorBody caps how much of a failed response body ends up in the error.
const maxErrorBody = 512

// Client performs plain GET requests against the outage and generation endpoints.
// It does not retry or cache.
type Client struct {
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an upstream client with the given request timeout. A nil
// metrics disables the fetch histogram and a nil logger uses slog.Default().
func NewClient(timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch returns the full response body of a GET to rawURL as text.
// Connection failures, timeouts and non-2xx statuses wrap domain.ErrTransport.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", domain.ErrTransport, err)
	}

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.FetchDuration.WithLabelValues(hostOf(rawURL)).Observe(time.Since(start).Seconds())
		}
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: GET %s: %v", domain.ErrTransport, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: GET %s: status %d: %s", domain.ErrTransport, rawURL, resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body from %s: %v", domain.ErrTransport, rawURL, err)
	}

	c.logger.Debug("upstream fetched", "url", rawURL, "status", resp.StatusCode, "bytes", len(body))
	return string(body), nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
