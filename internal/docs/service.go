// Package docs implements class search over the catalog and retrieval of a
// single class page as markdown.
package docs

import (
	"context"
	"log/slog"
	"strings"

	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/base"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/catalog"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/content"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// MaxResults caps the number of classes a search returns.
const MaxResults = 20

// CatalogSource provides the current class catalog.
type CatalogSource interface {
	GetCatalog(ctx context.Context) (*catalog.Catalog, error)
}

// Service answers class searches and page reads. It owns the catalog source
// it is constructed with; there is no package-level state.
type Service struct {
	catalog    CatalogSource
	fetcher    catalog.Fetcher
	extractor  *content.Extractor
	converter  *content.Converter
	logger     *slog.Logger
	maxResults int
}

// Option configures a Service
type Option func(*Service)

// WithExtractor sets the content region extractor
func WithExtractor(e *content.Extractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithConverter sets the HTML to markdown converter
func WithConverter(c *content.Converter) Option {
	return func(s *Service) {
		if c != nil {
			s.converter = c
		}
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxResults overrides the search result cap
func WithMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// NewService creates a Service that searches src and fetches pages through f.
func NewService(src CatalogSource, f catalog.Fetcher, opts ...Option) *Service {
	s := &Service{
		catalog:    src,
		fetcher:    f,
		extractor:  content.NewExtractor(content.Options{}),
		converter:  content.NewConverter(),
		logger:     slog.Default(),
		maxResults: MaxResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns classes whose name or full name contains query, ignoring
// case, in catalog order and capped at the result limit. An empty query
// matches every class. Catalog fetch errors are returned unchanged.
func (s *Service) Search(ctx context.Context, query string) ([]catalog.ClassRecord, error) {
	cat, err := s.catalog.GetCatalog(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	matches := make([]catalog.ClassRecord, 0, min(s.maxResults, cat.Len()))
	for _, c := range cat.Classes {
		if len(matches) == s.maxResults {
			break
		}
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.FullName), q) {
			matches = append(matches, c)
		}
	}

	s.logger.Debug("Searched class catalog",
		"query", query,
		"catalog_size", cat.Len(),
		"results_count", len(matches))
	return matches, nil
}

// FetchDocs retrieves the page at url and returns its main content as
// markdown. The URL is fetched as given; it need not come from the catalog.
// A page with no content region converts to "".
func (s *Service) FetchDocs(ctx context.Context, url string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "docs.fetch_page")
	defer span.End()
	tracing.AddDocsAttributes(span, "class_page", url)

	s.logger.Debug("Fetching class docs", "url", url)

	body, err := s.fetcher.Fetch(ctx, base.RequestConfig{URL: url, Action: "class_page"})
	if err != nil {
		tracing.RecordError(span, err)
		return "", err
	}

	region, err := s.extractor.Extract(string(body))
	if err != nil {
		tracing.RecordError(span, err)
		return "", err
	}

	md, err := s.converter.Convert(region)
	if err != nil {
		tracing.RecordError(span, err)
		return "", err
	}

	span.SetAttributes(attribute.Int("docs.page.markdown_bytes", len(md)))
	return md, nil
}
