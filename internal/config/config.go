// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/base"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/catalog"
	apierrors "github.com/olgasafonova/tmodloader-docs-mcp-server/internal/errors"
)

// Environment variable names
const (
	EnvBaseURL          = "TMODDOCS_BASE_URL"
	EnvIndexURL         = "TMODDOCS_INDEX_URL"
	EnvCacheTTL         = "TMODDOCS_CACHE_TTL"
	EnvLevelUnit        = "TMODDOCS_LEVEL_UNIT"
	EnvContentSelectors = "TMODDOCS_CONTENT_SELECTORS"
	EnvTimeout          = "TMODDOCS_TIMEOUT"
	EnvUserAgent        = "TMODDOCS_USER_AGENT"
	EnvMaxAttempts      = "TMODDOCS_MAX_ATTEMPTS"
	EnvRateLimit        = "TMODDOCS_RATE_LIMIT"
	EnvBreakerThreshold = "TMODDOCS_BREAKER_THRESHOLD"
	EnvMetricsAddr      = "TMODDOCS_METRICS_ADDR"
	EnvLogLevel         = "TMODDOCS_LOG_LEVEL"
)

// DefaultContentSelectors is the content region fallback chain.
const DefaultContentSelectors = ".contents,.textblock,body"

// Config holds documentation host and server settings
type Config struct {
	// BaseURL is the documentation root; relative class links resolve against it
	BaseURL string

	// IndexURL is the Doxygen annotated class list
	IndexURL string

	// CacheTTL is how long a parsed catalog is served before refetching
	CacheTTL time.Duration

	// LevelUnit is the indentation width in pixels of one nesting level
	LevelUnit int

	// ContentSelectors is the ordered region fallback chain for class pages
	ContentSelectors []string

	// Timeout for page requests
	Timeout time.Duration

	// UserAgent identifies the server to the documentation host
	UserAgent string

	// MaxAttempts per fetch; 1 means no retries
	MaxAttempts int

	// RateLimit is requests per second per host; 0 disables limiting
	RateLimit float64

	// BreakerThreshold is consecutive failures before the circuit opens; 0 disables it
	BreakerThreshold int

	// MetricsAddr, when set, serves Prometheus metrics at /metrics
	MetricsAddr string

	// LogLevel for the stderr logger
	LogLevel slog.Level
}

// Load reads the given .env files (".env" when none are named) into the
// process environment without overriding variables already set, then calls
// LoadConfig. Missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, apierrors.NewValidationError("env_file", f, err.Error())
		}
	}
	return LoadConfig()
}

// LoadConfig loads configuration from environment variables. Unset variables
// take their defaults; malformed ones are reported as a ValidationError.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		BaseURL:          catalog.DefaultBaseURL,
		CacheTTL:         catalog.DefaultTTL,
		LevelUnit:        catalog.DefaultLevelUnit,
		ContentSelectors: splitList(DefaultContentSelectors),
		Timeout:          base.DefaultTimeout,
		UserAgent:        base.DefaultUserAgent,
		MaxAttempts:      base.DefaultMaxAttempts,
		RateLimit:        base.DefaultRateLimit,
		LogLevel:         slog.LevelInfo,
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		u, err := parseHTTPURL(EnvBaseURL, v)
		if err != nil {
			return nil, err
		}
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		cfg.BaseURL = u
	}

	cfg.IndexURL = cfg.BaseURL + catalog.DefaultIndexPage
	if v := os.Getenv(EnvIndexURL); v != "" {
		u, err := parseHTTPURL(EnvIndexURL, v)
		if err != nil {
			return nil, err
		}
		cfg.IndexURL = u
	}

	var err error
	if cfg.CacheTTL, err = durationEnv(EnvCacheTTL, cfg.CacheTTL); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = durationEnv(EnvTimeout, cfg.Timeout); err != nil {
		return nil, err
	}
	if cfg.LevelUnit, err = intEnv(EnvLevelUnit, cfg.LevelUnit, 1); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts, err = intEnv(EnvMaxAttempts, cfg.MaxAttempts, 1); err != nil {
		return nil, err
	}
	if cfg.BreakerThreshold, err = intEnv(EnvBreakerThreshold, cfg.BreakerThreshold, 0); err != nil {
		return nil, err
	}

	if v := os.Getenv(EnvRateLimit); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return nil, apierrors.NewValidationError(EnvRateLimit, v, "must be a non-negative number of requests per second")
		}
		cfg.RateLimit = rps
	}

	if v := os.Getenv(EnvContentSelectors); v != "" {
		selectors := splitList(v)
		if len(selectors) == 0 {
			return nil, apierrors.NewValidationError(EnvContentSelectors, v, "must list at least one CSS selector")
		}
		cfg.ContentSelectors = selectors
	}

	if v := os.Getenv(EnvUserAgent); v != "" {
		cfg.UserAgent = v
	}
	cfg.MetricsAddr = os.Getenv(EnvMetricsAddr)

	if v := os.Getenv(EnvLogLevel); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, apierrors.NewValidationError(EnvLogLevel, v, "must be one of debug, info, warn, error")
		}
	}

	return cfg, nil
}

func parseHTTPURL(field, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apierrors.NewValidationError(field, raw, "must be an absolute http(s) URL")
	}
	return raw, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, apierrors.NewValidationError(key, v, "must be a positive duration such as 30s or 1h")
	}
	return d, nil
}

func intEnv(key string, def, minimum int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < minimum {
		return 0, apierrors.NewValidationError(key, v, "must be an integer >= "+strconv.Itoa(minimum))
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
