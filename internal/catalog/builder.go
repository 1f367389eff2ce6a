package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/base"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/infra"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/metrics"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultTTL is how long a parsed catalog is served before the index is fetched again.
const DefaultTTL = time.Hour

// Fetcher retrieves the raw body of a documentation page.
type Fetcher interface {
	Fetch(ctx context.Context, cfg base.RequestConfig) ([]byte, error)
}

// Builder produces the class catalog, fetching and parsing the index page
// only when no fresh snapshot is cached.
type Builder struct {
	fetcher  Fetcher
	dedup    *infra.RequestDeduplicator
	cache    *infra.TTLCache[*Catalog]
	logger   *slog.Logger
	now      func() time.Time
	ttl      time.Duration
	indexURL string
	opts     ParseOptions
}

// Option configures a Builder
type Option func(*Builder)

// WithIndexURL sets the index page URL
func WithIndexURL(u string) Option {
	return func(b *Builder) {
		if u != "" {
			b.indexURL = u
		}
	}
}

// WithParseOptions sets the selectors, base URL and level unit used by Parse
func WithParseOptions(opts ParseOptions) Option {
	return func(b *Builder) {
		b.opts = opts
	}
}

// WithTTL sets how long a catalog stays fresh
func WithTTL(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.ttl = d
		}
	}
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithDeduplicator shares a request deduplicator with other components
func WithDeduplicator(d *infra.RequestDeduplicator) Option {
	return func(b *Builder) {
		if d != nil {
			b.dedup = d
		}
	}
}

// NewBuilder creates a catalog builder that fetches through f.
func NewBuilder(f Fetcher, opts ...Option) *Builder {
	b := &Builder{
		fetcher: f,
		dedup:   infra.NewRequestDeduplicator(),
		logger:  slog.Default(),
		now:     time.Now,
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.opts = b.opts.withDefaults()
	if b.indexURL == "" {
		b.indexURL = b.opts.BaseURL + DefaultIndexPage
	}
	b.cache = infra.NewTTLCache[*Catalog](b.ttl, b.now)
	return b
}

// IndexURL returns the page the catalog is built from.
func (b *Builder) IndexURL() string {
	return b.indexURL
}

// TTL returns how long a catalog stays fresh.
func (b *Builder) TTL() time.Duration {
	return b.ttl
}

// Cached returns the last successfully built catalog, fresh or not.
func (b *Builder) Cached() (*Catalog, bool) {
	snap, ok := b.cache.Peek()
	if !ok {
		return nil, false
	}
	return snap.Value, true
}

// GetCatalog returns the cached catalog while it is younger than the TTL and
// otherwise fetches and parses the index again. A failed refresh returns the
// fetch error and leaves the previous snapshot and its timestamp in place, so
// the next call tries again. Concurrent refreshes share a single fetch.
func (b *Builder) GetCatalog(ctx context.Context) (*Catalog, error) {
	if snap, ok := b.cache.Get(); ok {
		metrics.RecordCacheAccess(true)
		return snap.Value, nil
	}
	metrics.RecordCacheAccess(false)

	// The refresh outlives any single caller that gives up waiting.
	refreshCtx := context.WithoutCancel(ctx)
	result, shared, err := b.dedup.Do(ctx, "catalog:"+b.indexURL, func() (interface{}, error) {
		return b.refresh(refreshCtx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		b.logger.Debug("Joined in-flight catalog refresh", "url", b.indexURL)
	}
	return result.(*Catalog), nil
}

func (b *Builder) refresh(ctx context.Context) (*Catalog, error) {
	// Another caller may have finished a refresh while we waited to start.
	if snap, ok := b.cache.Get(); ok {
		return snap.Value, nil
	}

	ctx, span := tracing.StartSpan(ctx, "catalog.refresh")
	defer span.End()
	span.SetAttributes(attribute.String("docs.index.url", b.indexURL))

	b.logger.Info("Fetching tModLoader documentation index", "url", b.indexURL)
	start := time.Now()

	body, err := b.fetcher.Fetch(ctx, base.RequestConfig{URL: b.indexURL, Action: "index"})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CatalogRefreshes.WithLabelValues("error").Inc()
		b.logger.Warn("Catalog refresh failed", "url", b.indexURL, "error", err)
		return nil, err
	}

	classes, err := Parse(bytes.NewReader(body), b.opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.CatalogRefreshes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("parsing class index: %w", err)
	}

	fetchedAt := b.now()
	cat := &Catalog{
		Classes:   classes,
		FetchedAt: fetchedAt,
	}
	b.cache.StoreAt(cat, fetchedAt)

	metrics.CatalogRefreshes.WithLabelValues("success").Inc()
	metrics.CatalogSize.Set(float64(len(classes)))
	span.SetAttributes(attribute.Int("docs.catalog.classes", len(classes)))
	span.SetStatus(codes.Ok, "")

	b.logger.Info("Parsed class index",
		"classes", len(classes),
		"duration", time.Since(start))
	return cat, nil
}
