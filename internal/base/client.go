// Package base provides shared HTTP client infrastructure for fetching
// documentation pages.
package base

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apierrors "github.com/olgasafonova/tmodloader-docs-mcp-server/internal/errors"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/infra"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/metrics"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// DefaultTimeout for page requests
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is one: failed fetches surface to the caller, who may re-invoke.
	DefaultMaxAttempts = 1

	// DefaultRateLimit is the per-host request rate (requests/second)
	DefaultRateLimit = 5.0

	// DefaultUserAgent identifies the server to the documentation host
	DefaultUserAgent = "tmodloader-docs-mcp-server/1.0 (github.com/olgasafonova/tmodloader-docs-mcp-server)"

	// MaxConcurrentRequests limits parallel page fetches
	MaxConcurrentRequests = 5

	// MaxResponseSize caps how much of a page body is read (16 MB)
	MaxResponseSize = 16 << 20
)

// Client provides common HTTP client infrastructure with rate limiting,
// concurrency slots, circuit breaking, and request deduplication.
type Client struct {
	HTTPClient     *http.Client
	Logger         *slog.Logger
	Dedup          *infra.RequestDeduplicator
	CircuitBreaker *infra.CircuitBreaker
	Limiter        *infra.HostLimiter
	Semaphore      chan struct{}
	UserAgent      string
	MaxAttempts    int
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.HTTPClient = c
	}
}

// WithTimeout replaces the HTTP client with one using the given timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.HTTPClient = newHTTPClient(d)
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.Logger = l
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		if ua != "" {
			client.UserAgent = ua
		}
	}
}

// WithMaxAttempts sets how many times a request is attempted before failing
func WithMaxAttempts(n int) ClientOption {
	return func(client *Client) {
		if n > 0 {
			client.MaxAttempts = n
		}
	}
}

// WithRateLimit sets the per-host request rate; zero disables limiting
func WithRateLimit(rps float64) ClientOption {
	return func(client *Client) {
		client.Limiter = infra.NewHostLimiter(rps, 1)
	}
}

// WithCircuitBreaker sets a custom circuit breaker
func WithCircuitBreaker(cb *infra.CircuitBreaker) ClientOption {
	return func(client *Client) {
		client.CircuitBreaker = cb
	}
}

// NewClient creates a new base client with default settings
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		HTTPClient:     newHTTPClient(DefaultTimeout),
		Logger:         slog.Default(),
		Dedup:          infra.NewRequestDeduplicator(),
		CircuitBreaker: infra.NewCircuitBreaker(),
		Limiter:        infra.NewHostLimiter(DefaultRateLimit, 1),
		Semaphore:      make(chan struct{}, MaxConcurrentRequests),
		UserAgent:      DefaultUserAgent,
		MaxAttempts:    DefaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close releases idle connections held by the client
func (c *Client) Close() {
	if c.HTTPClient != nil {
		c.HTTPClient.CloseIdleConnections()
	}
}

// CircuitBreakerStats returns the current circuit breaker state
func (c *Client) CircuitBreakerStats() infra.CircuitBreakerStats {
	return c.CircuitBreaker.Stats()
}

// DedupStats returns the number of in-flight deduplicated requests
func (c *Client) DedupStats() int {
	return c.Dedup.Stats()
}

// AcquireSlot blocks until a request slot is available or context is canceled
func (c *Client) AcquireSlot(ctx context.Context) error {
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	default:
	}

	metrics.RateLimitWaits.Inc()
	select {
	case c.Semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context canceled while waiting for request slot: %w", ctx.Err())
	}
}

// ReleaseSlot releases a request slot
func (c *Client) ReleaseSlot() {
	<-c.Semaphore
}

// CheckCircuitBreaker returns nil if requests are allowed, or an error if the circuit is open
func (c *Client) CheckCircuitBreaker() error {
	if !c.CircuitBreaker.Allow() {
		stats := c.CircuitBreaker.Stats()
		return &infra.ErrCircuitOpen{
			State:    stats.State,
			RetryAt:  stats.RetryAt,
			Failures: stats.ConsecutiveFails,
		}
	}
	return nil
}

// RequestConfig configures a single HTTP request
type RequestConfig struct {
	URL    string
	Action string // metrics/tracing label, e.g. "index" or "page"
}

// Fetch performs a GET request and returns the body of a 2xx response.
// Every failure is reported as a *errors.FetchError.
func (c *Client) Fetch(ctx context.Context, cfg RequestConfig) ([]byte, error) {
	action := cfg.Action
	if action == "" {
		action = "page"
	}

	ctx, span := tracing.StartSpan(ctx, "http.fetch."+action)
	defer span.End()
	tracing.AddDocsAttributes(span, action, cfg.URL)

	start := time.Now()
	body, status, err := c.doRequest(ctx, cfg.URL, action)
	duration := time.Since(start).Seconds()

	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordFetch(action, duration, statusLabel(status))
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	metrics.RecordFetch(action, duration, statusLabel(status))
	metrics.ContentSize.WithLabelValues(action).Observe(float64(len(body)))
	return body, nil
}

// doRequest runs the attempt loop and maps failures to FetchError.
func (c *Client) doRequest(ctx context.Context, rawURL, action string) ([]byte, int, error) {
	if err := c.CheckCircuitBreaker(); err != nil {
		return nil, 0, apierrors.NewTransportError(rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, apierrors.NewTransportError(rawURL, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("User-Agent", c.UserAgent)

	if err := c.AcquireSlot(ctx); err != nil {
		return nil, 0, apierrors.NewTransportError(rawURL, err)
	}
	defer c.ReleaseSlot()

	maxAttempts := c.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr *apierrors.FetchError
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			metrics.FetchRetries.WithLabelValues(action).Inc()
			backoff := time.Duration(attempt*attempt) * 100 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, 0, apierrors.NewTransportError(rawURL, fmt.Errorf("context canceled during backoff: %w", ctx.Err()))
			}
		}

		if err := c.Limiter.Wait(ctx, hostOf(req.URL)); err != nil {
			return nil, 0, apierrors.NewTransportError(rawURL, err)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = apierrors.NewTransportError(rawURL, err)
			c.Logger.Warn("Page request failed",
				"attempt", attempt+1,
				"url", rawURL,
				"error", err)
			continue
		}

		body, err := readAndClose(resp)
		if err != nil {
			lastErr = apierrors.NewTransportError(rawURL, fmt.Errorf("failed to read response: %w", err))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = apierrors.NewStatusError(rawURL, resp.StatusCode)
			if wait, ok := retryAfter(resp); ok && attempt+1 < maxAttempts {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, resp.StatusCode, apierrors.NewTransportError(rawURL, ctx.Err())
				}
			}
			continue
		case resp.StatusCode >= 500:
			lastErr = apierrors.NewStatusError(rawURL, resp.StatusCode)
			c.Logger.Warn("Documentation host returned server error",
				"attempt", attempt+1,
				"url", rawURL,
				"status", resp.StatusCode,
				"body", truncate(string(body), 200))
			continue
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			// Client errors don't indicate the host is unhealthy
			c.CircuitBreaker.RecordSuccess()
			return nil, resp.StatusCode, apierrors.NewStatusError(rawURL, resp.StatusCode)
		}

		c.CircuitBreaker.RecordSuccess()
		return body, resp.StatusCode, nil
	}

	c.CircuitBreaker.RecordFailure()
	return nil, lastErr.StatusCode, lastErr
}

// readAndClose reads the response body (up to MaxResponseSize) and closes it
func readAndClose(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeds %d bytes", MaxResponseSize)
	}
	return body, nil
}

// retryAfter parses a Retry-After header given in seconds
func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

func hostOf(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Host
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// newHTTPClient creates an HTTP client with optimized transport settings
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
