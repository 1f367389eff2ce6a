package docs

import (
	"context"

	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/catalog"
)

// MCP Tool wrapper methods
// These methods wrap the service methods with Args/Result types for MCP integration.

// SearchClassesMCP is the MCP wrapper for Search
func (s *Service) SearchClassesMCP(ctx context.Context, args SearchClassesArgs) (SearchClassesResult, error) {
	classes, err := s.Search(ctx, args.Query)
	if err != nil {
		return SearchClassesResult{}, err
	}
	if classes == nil {
		classes = []catalog.ClassRecord{}
	}

	return SearchClassesResult{
		Query:   args.Query,
		Count:   len(classes),
		Classes: classes,
	}, nil
}

// ReadClassDocsMCP is the MCP wrapper for FetchDocs
func (s *Service) ReadClassDocsMCP(ctx context.Context, args ReadClassDocsArgs) (ReadClassDocsResult, error) {
	md, err := s.FetchDocs(ctx, args.URL)
	if err != nil {
		return ReadClassDocsResult{}, err
	}
	return ReadClassDocsResult{URL: args.URL, Markdown: md}, nil
}
