package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/docs"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/metrics"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// textResult is a tool result that knows its human-readable rendering.
type textResult interface {
	Text() string
}

// HandlerRegistry provides type-safe tool registration by mapping
// tool names to their concrete handler implementations.
type HandlerRegistry struct {
	service *docs.Service
	logger  *slog.Logger
}

// NewHandlerRegistry creates a new handler registry.
func NewHandlerRegistry(service *docs.Service, logger *slog.Logger) *HandlerRegistry {
	return &HandlerRegistry{
		service: service,
		logger:  logger,
	}
}

// RegisterAll registers all tools with the MCP server.
func (h *HandlerRegistry) RegisterAll(server *mcp.Server) {
	for _, spec := range AllTools {
		h.registerByName(server, spec)
	}
	h.logger.Info("Registered all tools", "count", len(AllTools))
}

// registerByName dispatches to the correct typed registration function.
func (h *HandlerRegistry) registerByName(server *mcp.Server, spec ToolSpec) {
	tool := h.buildTool(spec)

	switch spec.Method {
	case "SearchClasses":
		register(h, server, tool, spec, h.service.SearchClassesMCP)
	case "ReadClassDocs":
		register(h, server, tool, spec, h.service.ReadClassDocsMCP)
	default:
		h.logger.Error("Unknown method, tool not registered", "method", spec.Method, "tool", spec.Name)
	}
}

// buildTool creates an mcp.Tool from a ToolSpec.
func (h *HandlerRegistry) buildTool(spec ToolSpec) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{
		Title:          spec.Title,
		ReadOnlyHint:   spec.ReadOnly,
		IdempotentHint: spec.Idempotent,
	}
	if spec.Destructive {
		annotations.DestructiveHint = ptr(true)
	}
	if spec.OpenWorld {
		annotations.OpenWorldHint = ptr(true)
	}

	return &mcp.Tool{
		Name:        spec.Name,
		Title:       spec.Title,
		Description: spec.Description,
		Annotations: annotations,
	}
}

// register is a generic helper that registers a tool with the MCP server.
// It wraps the service method with panic recovery, metrics, tracing, and logging.
// Method errors become tool-level errors (IsError) prefixed with spec.ErrorPrefix;
// argument shape errors never reach here because the SDK validates input first.
func register[Args any, Result textResult](
	h *HandlerRegistry,
	server *mcp.Server,
	tool *mcp.Tool,
	spec ToolSpec,
	method func(context.Context, Args) (Result, error),
) {
	mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, args Args) (res *mcp.CallToolResult, out Result, err error) {
		defer h.recoverPanic(spec, &err)

		// Start trace span
		ctx, span := tracing.StartSpan(ctx, "mcp.tool."+spec.Name)
		defer span.End()

		tracing.AddToolAttributes(span, spec.Name, spec.Category)
		span.SetAttributes(attribute.Bool("mcp.tool.readonly", spec.ReadOnly))

		// Track in-flight requests
		metrics.RequestInFlight.WithLabelValues(spec.Name).Inc()
		defer metrics.RequestInFlight.WithLabelValues(spec.Name).Dec()

		start := time.Now()
		result, err := method(ctx, args)
		duration := time.Since(start).Seconds()

		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", duration))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest(spec.Name, duration, false)
			h.logger.Warn("Tool failed", "tool", spec.Name, "error", err)
			var zero Result
			return nil, zero, toolError(spec, err)
		}

		span.SetStatus(codes.Ok, "")
		metrics.RecordRequest(spec.Name, duration, true)
		h.logExecution(spec, args, result)

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Text()}},
		}, result, nil
	})
}

// toolError formats a failed call the way clients display it.
func toolError(spec ToolSpec, err error) error {
	if spec.ErrorPrefix == "" {
		return fmt.Errorf("%s failed: %w", spec.Name, err)
	}
	return fmt.Errorf("%s: %w", spec.ErrorPrefix, err)
}

// recoverPanic recovers from panics in tool handlers and turns them into a
// tool error so the session stays up.
func (h *HandlerRegistry) recoverPanic(spec ToolSpec, errp *error) {
	if rec := recover(); rec != nil {
		metrics.PanicsRecovered.WithLabelValues(spec.Name).Inc()
		h.logger.Error("Panic recovered",
			"tool", spec.Name,
			"panic", rec,
			"stack", string(debug.Stack()))
		if errp != nil {
			*errp = toolError(spec, fmt.Errorf("internal error: %v", rec))
		}
	}
}

// logExecution logs tool execution details.
func (h *HandlerRegistry) logExecution(spec ToolSpec, args, result any) {
	attrs := []any{"tool", spec.Name}

	switch a := args.(type) {
	case docs.SearchClassesArgs:
		attrs = append(attrs, "query", a.Query)
	case docs.ReadClassDocsArgs:
		attrs = append(attrs, "url", a.URL)
	}

	switch r := result.(type) {
	case docs.SearchClassesResult:
		attrs = append(attrs, "results_count", r.Count)
	case docs.ReadClassDocsResult:
		attrs = append(attrs, "markdown_bytes", len(r.Markdown))
	}

	h.logger.Info("Tool executed", attrs...)
}
