package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/aryankumar/taskpool/internal/executor"
)

// APIError is a non-2xx response from the admin server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("admin server returned %d: %s", e.StatusCode, e.Message)
}

// ClientOption configures a Client
type ClientOption func(*retryablehttp.Client)

// WithRetries sets the retry count and backoff bounds
func WithRetries(max int, waitMin, waitMax time.Duration) ClientOption {
	return func(c *retryablehttp.Client) {
		c.RetryMax = max
		c.RetryWaitMin = waitMin
		c.RetryWaitMax = waitMax
	}
}

// WithHTTPClient replaces the underlying transport client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *retryablehttp.Client) {
		c.HTTPClient = hc
	}
}

// Client talks to a running admin server. Connection errors and 5xx
// responses are retried with exponential backoff.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://127.0.0.1:9090". A bare host:port is accepted.
func NewClient(baseURL string, logger *slog.Logger, opts ...ClientOption) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if logger != nil {
		rc.Logger = logger
	}
	for _, opt := range opts {
		opt(rc)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
	}
}

// List returns the statistics of every pool
func (c *Client) List(ctx context.Context) ([]executor.Stats, error) {
	var stats []executor.Stats
	if err := c.do(ctx, http.MethodGet, "/debug/pools", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Get returns the statistics of one pool
func (c *Client) Get(ctx context.Context, name string) (executor.Stats, error) {
	var stats executor.Stats
	err := c.do(ctx, http.MethodGet, "/debug/pools/"+url.PathEscape(name), nil, &stats)
	return stats, err
}

// Update changes the tunables of one pool and returns its new statistics
func (c *Client) Update(ctx context.Context, name string, req UpdateRequest) (executor.Stats, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return executor.Stats{}, fmt.Errorf("encoding request: %w", err)
	}

	var stats executor.Stats
	err = c.do(ctx, http.MethodPut, "/debug/pools/"+url.PathEscape(name), body, &stats)
	return stats, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, rawBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var er ErrorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: er.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
}
