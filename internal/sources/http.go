package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"votewallet/internal/logging"
	"votewallet/internal/ratelimit"
	"votewallet/internal/types"
	"votewallet/internal/usage"
)

// userAgent identifies the pipeline to the public APIs it queries.
const userAgent = "VoteWithYourWallet/1.0 (business data pipeline)"

// maxResponseBytes caps response bodies; Overpass in particular can return
// very large payloads for broad queries.
const maxResponseBytes = 10 << 20

// Client is the shared HTTP front for all adapters: it throttles per
// source, counts usage, and normalizes transport errors.
type Client struct {
	http    *http.Client
	limiter *ratelimit.Limiter
	usage   *usage.Tracker
}

// NewClient builds the shared adapter client. limiter and tracker may be
// nil, which disables throttling and accounting respectively.
func NewClient(timeout time.Duration, limiter *ratelimit.Limiter, tracker *usage.Tracker) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		usage:   tracker,
	}
}

// Get performs a throttled GET against rawURL on behalf of source and
// returns the body.
func (c *Client) Get(ctx context.Context, source, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(source, req)
}

// GetJSON performs a throttled GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, source, rawURL string, out any) error {
	body, err := c.Get(ctx, source, rawURL)
	if err != nil {
		return err
	}
	return decodeJSON(source, body, out)
}

// decodeJSON unmarshals a response body with a source-tagged error.
func decodeJSON(source string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", source, err)
	}
	return nil
}

// PostForm performs a throttled form POST on behalf of source.
func (c *Client) PostForm(ctx context.Context, source, rawURL string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(source, req)
}

func (c *Client) do(source string, req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Throttle(req.Context(), source); err != nil {
			return nil, err
		}
	}

	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure(source)
		return nil, fmt.Errorf("%s: %w: %v", source, types.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.recordFailure(source)
		return nil, fmt.Errorf("%s: %w (status 429)", source, types.ErrRateLimited)
	case resp.StatusCode >= 500:
		c.recordFailure(source)
		return nil, fmt.Errorf("%s: %w (status %d)", source, types.ErrSourceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		c.recordFailure(source)
		return nil, fmt.Errorf("%w: %s returned status %d", types.ErrSourceUnavailable, source, resp.StatusCode)
	}
	if readErr != nil {
		c.recordFailure(source)
		return nil, fmt.Errorf("%s: read response: %w", source, readErr)
	}

	if c.usage != nil {
		c.usage.RecordRequest(source, int64(len(body)))
	}
	logging.SourcesDebug("%s: %s %s -> %d bytes in %v",
		source, req.Method, req.URL.Host, len(body), time.Since(start).Round(time.Millisecond))
	return body, nil
}

func (c *Client) recordFailure(source string) {
	if c.usage != nil {
		c.usage.RecordFailure(source)
	}
}
