// Package klaviyo implements the provider aggregation client: authenticated
// transport against Klaviyo's JSON:API surface, single-purpose resource
// resolvers, the paginated aggregation engine, and best-effort event
// forwarding.
package klaviyo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"
)

// HTTPDoer is the interface for executing HTTP requests.
// *http.Client satisfies this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Pacer spaces successive provider requests so a multi-call aggregation stays
// under the provider's request-rate ceiling. Tests inject a zero-delay pacer.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelayPacer waits a fixed duration between requests.
type FixedDelayPacer struct {
	delay time.Duration
}

func NewFixedDelayPacer(delay time.Duration) *FixedDelayPacer {
	return &FixedDelayPacer{delay: delay}
}

func (p *FixedDelayPacer) Wait(ctx context.Context) error {
	if p.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Config holds provider connection settings and pacing policy.
type Config struct {
	BaseURL  string
	APIKey   string
	Revision string
	Timeout  time.Duration
	PageSize int
}

// Client is the Klaviyo API client. It is safe for concurrent use from
// independent requests.
type Client struct {
	baseURL    string
	apiKey     string
	revision   string
	pageSize   int
	httpClient HTTPDoer
	pacer      Pacer
	logger     *slog.Logger
	nowFn      func() time.Time

	catalogGroup singleflight.Group // dedupe concurrent metric catalog fetches
}

// NewClient creates a new Klaviyo API client. A nil pacer disables request
// spacing; a nil logger falls back to slog.Default().
func NewClient(cfg Config, pacer Pacer, logger *slog.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if pacer == nil {
		pacer = NewFixedDelayPacer(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		revision:   cfg.Revision,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		pacer:      pacer,
		logger:     logger,
		nowFn:      time.Now,
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client HTTPDoer) {
	c.httpClient = client
}

// do performs an authenticated request against a provider path. Query
// parameters are only attached here; doURL is used directly when following
// absolute pagination links, which already carry their own query.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, jsonAPI bool) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}
	return c.doURL(ctx, method, reqURL, body, jsonAPI)
}

// doURL performs an authenticated request against an absolute URL. Every call
// carries the API-key authorization header and the API-version header;
// jsonAPI additionally sets the JSON:API content and accept headers.
// No retry logic lives here; callers decide failure policy.
func (c *Client) doURL(ctx context.Context, method, reqURL string, body interface{}, jsonAPI bool) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Klaviyo-API-Key "+c.apiKey)
	req.Header.Set("revision", c.revision)
	if jsonAPI {
		req.Header.Set("Content-Type", "application/vnd.api+json")
		req.Header.Set("accept", "application/vnd.api+json")
	} else if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
