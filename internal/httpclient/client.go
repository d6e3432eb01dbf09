// Package httpclient provides the JSON-over-HTTP transport used to talk to the
// job application service.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is the default user agent string for HTTP requests
	UserAgent = "jobtracker/1.0"
)

// Client is an interface for HTTP operations
type Client interface {
	// Do sends a request with an optional JSON body. A response is returned for
	// every status code; errors are reserved for requests that got no response.
	Do(ctx context.Context, method, url string, body any) (*Response, error)
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a DefaultClient
type Option func(*clientConfig)

type clientConfig struct {
	userAgent   string
	tokenSource oauth2.TokenSource
	transport   http.RoundTripper
	tracing     bool
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTokenSource attaches a bearer token to every request when one is available
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *clientConfig) {
		c.tokenSource = ts
	}
}

// WithTransport sets the base round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *clientConfig) {
		c.transport = rt
	}
}

// WithTracing wraps the transport with OpenTelemetry instrumentation
func WithTracing(enabled bool) Option {
	return func(c *clientConfig) {
		c.tracing = enabled
	}
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration, opts ...Option) *DefaultClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	cfg := &clientConfig{userAgent: UserAgent}
	for _, opt := range opts {
		opt(cfg)
	}

	rt := cfg.transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	if cfg.tokenSource != nil {
		rt = &bearerTransport{base: rt, source: cfg.tokenSource}
	}
	if cfg.tracing {
		rt = otelhttp.NewTransport(rt)
	}

	return &DefaultClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: rt,
		},
		timeout:   timeout,
		userAgent: cfg.userAgent,
	}
}

// Do performs an HTTP request
func (c *DefaultClient) Do(ctx context.Context, method, url string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Execute request
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Check Content-Length header if available
	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	// Use LimitReader to prevent reading more than MaxResponseSize
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1) // +1 to detect if limit exceeded
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		URL:        url,
	}, nil
}
