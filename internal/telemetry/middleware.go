package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "k8s-mcp-server"

type ToolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// WithTracing runs handler inside an mcp.tool.<name> span. Results flagged
// IsError mark the span as failed even though the Go error is nil.
func WithTracing(toolName string, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tracer := otel.Tracer(tracerName + "/mcp")

		ctx, span := tracer.Start(ctx, fmt.Sprintf("mcp.tool.%s", toolName), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(attribute.String("mcp.tool.name", toolName))
		if args := request.GetArguments(); len(args) > 0 {
			if argsJSON, err := json.Marshal(args); err == nil {
				span.SetAttributes(attribute.String("mcp.request.arguments", string(argsJSON)))
			}
		}

		span.AddEvent("tool.execution.start")
		startTime := time.Now()

		result, err := handler(ctx, request)

		span.SetAttributes(attribute.Float64("mcp.tool.duration_seconds", time.Since(startTime).Seconds()))

		switch {
		case err != nil:
			RecordError(span, err, err.Error())
			span.AddEvent("tool.execution.error", trace.WithAttributes(
				attribute.String("error.message", err.Error()),
			))
		case result != nil && result.IsError:
			span.SetAttributes(attribute.Bool("mcp.result.is_error", true))
			span.SetStatus(codes.Error, "tool returned an error result")
			span.AddEvent("tool.execution.error")
		default:
			RecordSuccess(span, "tool execution completed successfully")
			span.AddEvent("tool.execution.success")
		}
		if result != nil {
			span.SetAttributes(attribute.Int("mcp.result.content_count", len(result.Content)))
		}

		return result, err
	}
}

func StartSpan(ctx context.Context, operationName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, operationName)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func RecordError(span trace.Span, err error, message string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, message)
}

func RecordSuccess(span trace.Span, message string) {
	span.SetStatus(codes.Ok, message)
}

func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AdaptToolHandler adapts a telemetry.ToolHandler to a server.ToolHandlerFunc.
func AdaptToolHandler(th ToolHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return th(ctx, req)
	}
}
