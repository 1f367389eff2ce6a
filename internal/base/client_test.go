package base

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apierrors "github.com/olgasafonova/tmodloader-docs-mcp-server/internal/errors"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/infra"
)

func TestNewClient(t *testing.T) {
	client := NewClient()
	if client == nil {
		t.Fatal("NewClient returned nil")
	}
	defer client.Close()

	if client.HTTPClient == nil {
		t.Error("HTTPClient is nil")
	}
	if client.Logger == nil {
		t.Error("Logger is nil")
	}
	if client.Dedup == nil {
		t.Error("Dedup is nil")
	}
	if client.CircuitBreaker == nil {
		t.Error("CircuitBreaker is nil")
	}
	if client.Limiter == nil {
		t.Error("Limiter is nil")
	}
	if client.Semaphore == nil {
		t.Error("Semaphore is nil")
	}
}

func TestNewClientWithOptions(t *testing.T) {
	customHTTP := &http.Client{Timeout: 60 * time.Second}
	customLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	breaker := infra.NewCircuitBreakerWithConfig(3, time.Second, 1)

	client := NewClient(
		WithHTTPClient(customHTTP),
		WithLogger(customLogger),
		WithUserAgent("test-agent/1.0"),
		WithMaxAttempts(3),
		WithCircuitBreaker(breaker),
	)
	defer client.Close()

	if client.HTTPClient != customHTTP {
		t.Error("custom HTTP client was not set")
	}
	if client.Logger != customLogger {
		t.Error("custom logger was not set")
	}
	if client.UserAgent != "test-agent/1.0" {
		t.Errorf("UserAgent = %q, want %q", client.UserAgent, "test-agent/1.0")
	}
	if client.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", client.MaxAttempts)
	}
	if client.CircuitBreaker != breaker {
		t.Error("custom circuit breaker was not set")
	}
}

func TestClient_DefaultValues(t *testing.T) {
	client := NewClient()
	defer client.Close()

	if client.HTTPClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.HTTPClient.Timeout, DefaultTimeout)
	}
	if cap(client.Semaphore) != MaxConcurrentRequests {
		t.Errorf("semaphore capacity = %d, want %d", cap(client.Semaphore), MaxConcurrentRequests)
	}
	if client.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", client.MaxAttempts, DefaultMaxAttempts)
	}
	if client.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want %q", client.UserAgent, DefaultUserAgent)
	}
}

func TestClient_OptionsIgnoreZeroValues(t *testing.T) {
	client := NewClient(WithUserAgent(""), WithMaxAttempts(0), WithTimeout(5*time.Second))
	defer client.Close()

	if client.UserAgent != DefaultUserAgent {
		t.Errorf("empty user agent should keep default, got %q", client.UserAgent)
	}
	if client.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("zero attempts should keep default, got %d", client.MaxAttempts)
	}
	if client.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", client.HTTPClient.Timeout)
	}
}

func TestClient_AcquireReleaseSlot(t *testing.T) {
	client := NewClient()
	defer client.Close()

	for i := 0; i < MaxConcurrentRequests; i++ {
		if err := client.AcquireSlot(context.Background()); err != nil {
			t.Fatalf("AcquireSlot %d failed: %v", i, err)
		}
	}
	for i := 0; i < MaxConcurrentRequests; i++ {
		client.ReleaseSlot()
	}
}

func TestClient_AcquireSlot_ContextCanceled(t *testing.T) {
	client := NewClient()
	defer client.Close()

	// Fill all slots
	for i := 0; i < MaxConcurrentRequests; i++ {
		_ = client.AcquireSlot(context.Background())
	}
	defer func() {
		for i := 0; i < MaxConcurrentRequests; i++ {
			client.ReleaseSlot()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := client.AcquireSlot(ctx); err == nil {
		t.Error("expected error when context expires while waiting for slot")
	}
}

func TestClient_CheckCircuitBreaker_Open(t *testing.T) {
	client := NewClient(WithCircuitBreaker(infra.NewCircuitBreakerWithConfig(2, time.Minute, 1)))
	defer client.Close()

	client.CircuitBreaker.RecordFailure()
	client.CircuitBreaker.RecordFailure()

	err := client.CheckCircuitBreaker()
	if err == nil {
		t.Fatal("expected error when circuit is open")
	}
	var open *infra.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %T", err)
	}
	if open.Failures != 2 {
		t.Errorf("Failures = %d, want 2", open.Failures)
	}
}

func TestClient_Stats(t *testing.T) {
	client := NewClient()
	defer client.Close()

	if client.DedupStats() != 0 {
		t.Errorf("DedupStats() = %d, want 0", client.DedupStats())
	}
	if client.CircuitBreakerStats().State != "closed" {
		t.Errorf("breaker state = %q, want closed", client.CircuitBreakerStats().State)
	}
}

// =============================================================================
// Fetch Tests
// =============================================================================

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if !strings.Contains(r.Header.Get("Accept"), "text/html") {
			t.Error("Accept header should request HTML")
		}
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	client := NewClient(WithRateLimit(0))
	defer client.Close()

	body, err := client.Fetch(context.Background(), RequestConfig{URL: server.URL, Action: "page"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != "<html><body>ok</body></html>" {
		t.Errorf("body = %q", string(body))
	}
}

func TestFetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithRateLimit(0))
	defer client.Close()

	_, err := client.Fetch(context.Background(), RequestConfig{URL: server.URL})

	var fe *apierrors.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T: %v", err, err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", fe.StatusCode)
	}
	if !strings.Contains(fe.Error(), "404 Not Found") {
		t.Errorf("error should carry status text, got %q", fe.Error())
	}
	if client.CircuitBreakerStats().ConsecutiveFails != 0 {
		t.Error("client errors should not count as host failures")
	}
}

func TestFetch_ServerError_SingleAttempt(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(WithRateLimit(0))
	defer client.Close()

	_, err := client.Fetch(context.Background(), RequestConfig{URL: server.URL})
	if !apierrors.IsFetch(err) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls)
	}
	if client.CircuitBreakerStats().ConsecutiveFails != 1 {
		t.Errorf("expected one recorded failure, got %d", client.CircuitBreakerStats().ConsecutiveFails)
	}
}

func TestFetch_ServerError_RetriesWhenConfigured(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer server.Close()

	client := NewClient(WithRateLimit(0), WithMaxAttempts(3))
	defer client.Close()

	body, err := client.Fetch(context.Background(), RequestConfig{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("body = %q, want recovered", string(body))
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestFetch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(WithRateLimit(0))
	defer client.Close()

	_, err := client.Fetch(context.Background(), RequestConfig{URL: url})

	var fe *apierrors.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T: %v", err, err)
	}
	if fe.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for transport failure", fe.StatusCode)
	}
	if fe.Err == nil {
		t.Error("transport failure should carry the underlying error")
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	client := NewClient(WithRateLimit(0))
	defer client.Close()

	_, err := client.Fetch(context.Background(), RequestConfig{URL: "://not a url"})
	if !apierrors.IsFetch(err) {
		t.Fatalf("expected FetchError for malformed URL, got %v", err)
	}
}

func TestFetch_CircuitOpen(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(
		WithRateLimit(0),
		WithCircuitBreaker(infra.NewCircuitBreakerWithConfig(1, time.Minute, 1)),
	)
	defer client.Close()
	client.CircuitBreaker.RecordFailure()

	_, err := client.Fetch(context.Background(), RequestConfig{URL: server.URL})
	if !apierrors.IsFetch(err) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("open circuit should not reach the server")
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(WithRateLimit(0))
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Fetch(ctx, RequestConfig{URL: server.URL})
	if !apierrors.IsFetch(err) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestFetch_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(WithRateLimit(0))
	defer client.Close()

	_, err := client.Fetch(context.Background(), RequestConfig{URL: server.URL})

	var fe *apierrors.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", fe.StatusCode)
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 7, "this is..."},
		{"", 5, ""},
	}

	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	if got := statusLabel(0); got != "error" {
		t.Errorf("statusLabel(0) = %q, want error", got)
	}
	if got := statusLabel(200); got != "200" {
		t.Errorf("statusLabel(200) = %q, want 200", got)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
		ok     bool
	}{
		{"", 0, false},
		{"2", 2 * time.Second, true},
		{"soon", 0, false},
		{"-1", 0, false},
	}

	for _, tt := range tests {
		resp := &http.Response{Header: http.Header{}}
		if tt.header != "" {
			resp.Header.Set("Retry-After", tt.header)
		}
		got, ok := retryAfter(resp)
		if got != tt.want || ok != tt.ok {
			t.Errorf("retryAfter(%q) = %v, %v; want %v, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestReadAndClose(t *testing.T) {
	t.Run("normal response", func(t *testing.T) {
		resp := &http.Response{Body: io.NopCloser(strings.NewReader("test response body"))}

		data, err := readAndClose(resp)
		if err != nil {
			t.Fatalf("readAndClose failed: %v", err)
		}
		if string(data) != "test response body" {
			t.Errorf("got %q, want 'test response body'", string(data))
		}
	})

	t.Run("empty response", func(t *testing.T) {
		resp := &http.Response{Body: io.NopCloser(strings.NewReader(""))}

		data, err := readAndClose(resp)
		if err != nil {
			t.Fatalf("readAndClose failed: %v", err)
		}
		if len(data) != 0 {
			t.Errorf("expected empty data, got %d bytes", len(data))
		}
	})
}

func TestReadAndClose_ResponseTooLarge(t *testing.T) {
	largeData := make([]byte, MaxResponseSize+100)
	resp := &http.Response{Body: io.NopCloser(bytes.NewReader(largeData))}

	if _, err := readAndClose(resp); err == nil {
		t.Error("expected error for oversized response")
	}
}

func TestReadAndClose_ReadError(t *testing.T) {
	resp := &http.Response{Body: io.NopCloser(&errorReader{})}

	if _, err := readAndClose(resp); err == nil {
		t.Error("expected error when read fails")
	}
}

// errorReader is a reader that always returns an error
type errorReader struct{}

func (e *errorReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
