// Package server assembles the documentation service and the MCP server from
// a Config, and runs the optional metrics listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/base"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/catalog"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/config"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/content"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/docs"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/infra"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/metrics"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/tools"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/tracing"
)

const (
	ServerName    = "tmodloader-docs"
	ServerVersion = "1.0.0"
)

// Instructions is sent to MCP clients on initialization.
const Instructions = `tModLoader Docs MCP Server searches the official tModLoader API documentation (docs.tmodloader.net).

Available tools:
- search_tmodloader_classes: Find classes, structs, interfaces and namespaces by name or dotted path
- read_class_docs: Read one class page as markdown, using a URL from the search results

Typical flow: search for a class, then read its docs URL.

Configure via environment variables (or a .env file):
- TMODDOCS_BASE_URL: Documentation root (default https://docs.tmodloader.net/docs/stable/)
- TMODDOCS_CACHE_TTL: How long the class index is cached (default 1h)`

// Components is the wired documentation stack.
type Components struct {
	Client  *base.Client
	Builder *catalog.Builder
	Service *docs.Service
}

// Close releases idle HTTP connections.
func (c *Components) Close() {
	c.Client.Close()
}

// NewComponents builds the HTTP client, catalog builder and service from cfg.
func NewComponents(cfg *config.Config, logger *slog.Logger) *Components {
	client := base.NewClient(
		base.WithLogger(logger),
		base.WithTimeout(cfg.Timeout),
		base.WithUserAgent(cfg.UserAgent),
		base.WithMaxAttempts(cfg.MaxAttempts),
		base.WithRateLimit(cfg.RateLimit),
		base.WithCircuitBreaker(infra.NewCircuitBreakerWithConfig(
			cfg.BreakerThreshold, infra.DefaultResetTimeout, infra.DefaultHalfOpenMax)),
	)

	builder := catalog.NewBuilder(client,
		catalog.WithIndexURL(cfg.IndexURL),
		catalog.WithParseOptions(catalog.ParseOptions{
			BaseURL:   cfg.BaseURL,
			LevelUnit: cfg.LevelUnit,
		}),
		catalog.WithTTL(cfg.CacheTTL),
		catalog.WithLogger(logger),
		catalog.WithDeduplicator(client.Dedup),
	)

	service := docs.NewService(builder, client,
		docs.WithExtractor(content.NewExtractor(content.Options{Selectors: cfg.ContentSelectors})),
		docs.WithLogger(logger),
	)

	return &Components{
		Client:  client,
		Builder: builder,
		Service: service,
	}
}

// NewMCPServer creates the MCP server with every tool registered.
func NewMCPServer(service *docs.Service, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: Instructions,
	})

	tools.NewHandlerRegistry(service, logger).RegisterAll(server)
	return server
}

// ServeMetrics exposes Prometheus metrics at /metrics on addr until ctx is
// done. It returns immediately when addr is empty.
func ServeMetrics(ctx context.Context, addr string, logger *slog.Logger) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", "addr", addr, "path", "/metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run wires everything from cfg and serves MCP on transport until the
// session ends or ctx is cancelled. Tracing follows the OTEL_* environment.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, transport mcp.Transport) error {
	traceCfg := tracing.DefaultConfig()
	traceCfg.ServiceVersion = ServerVersion
	shutdownTracing, err := tracing.Setup(ctx, traceCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	components := NewComponents(cfg, logger)
	defer components.Close()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := ServeMetrics(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("Metrics listener failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	srv := NewMCPServer(components.Service, logger)

	logger.Info("Starting tModLoader Docs MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"index_url", cfg.IndexURL,
		"cache_ttl", cfg.CacheTTL,
	)

	return srv.Run(ctx, transport)
}
