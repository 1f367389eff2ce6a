// tModLoader Docs MCP Server - A Model Context Protocol server for the tModLoader API documentation
// Provides tools for searching classes and reading class documentation as markdown
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/config"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/server"
)

func main() {
	// Configure logging to stderr (stdout is used for MCP protocol)
	logger := newLogger(os.Stderr, slog.LevelInfo)

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = newLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, logger, &mcp.StdioTransport{}); err != nil {
		logger.Error("Server error", "error", err)
		stop()
		os.Exit(1)
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
