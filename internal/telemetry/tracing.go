package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/kagent-dev/k8s-mcp-server/internal/config"
)

// Protocol constants for OTLP exporters
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"
	ProtocolAuto = "auto"
)

// SetupOTelSDK installs the global tracer provider and propagators. Without an
// endpoint, spans go to stderr in development and nowhere otherwise.
func SetupOTelSDK(ctx context.Context, cfg config.Telemetry) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if cfg.Disabled {
		return noop, nil
	}
	if cfg.Endpoint == "" && cfg.Environment != "development" {
		return noop, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	prop := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(prop)

	tracerProvider, err := newTracerProvider(ctx, res, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	otel.SetTracerProvider(tracerProvider)

	return tracerProvider.Shutdown, nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, cfg config.Telemetry) (*trace.TracerProvider, error) {
	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	sampler := trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplingRatio))
	if cfg.Environment == "development" {
		sampler = trace.AlwaysSample()
	}

	batchTimeout := time.Second * 5
	maxExportBatchSize := 512
	maxQueueSize := 2048

	if cfg.Environment == "development" {
		batchTimeout = time.Second * 1
		maxExportBatchSize = 256
		maxQueueSize = 1024
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter,
			trace.WithBatchTimeout(batchTimeout),
			trace.WithMaxExportBatchSize(maxExportBatchSize),
			trace.WithMaxQueueSize(maxQueueSize),
		),
		trace.WithResource(res),
		trace.WithSampler(sampler),
	)

	return tp, nil
}

func createExporter(ctx context.Context, cfg config.Telemetry) (trace.SpanExporter, error) {
	// stdout carries the MCP protocol in stdio mode.
	if cfg.Endpoint == "" {
		return stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	}

	protocol := cfg.Protocol
	if protocol == ProtocolAuto || protocol == "" {
		protocol = detectProtocol(cfg.Endpoint)
	}

	switch strings.ToLower(protocol) {
	case ProtocolGRPC:
		return createGRPCExporter(ctx, cfg)
	case ProtocolHTTP:
		return createHTTPExporter(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported protocol: %s (supported: %s, %s)", protocol, ProtocolGRPC, ProtocolHTTP)
	}
}

// detectProtocol determines the protocol based on the endpoint URL
func detectProtocol(endpoint string) string {
	// Parse URL to extract port
	if parsedURL, err := url.Parse(endpoint); err == nil {
		port := parsedURL.Port()
		if port == "" {
			// Check for default ports in hostname
			if strings.Contains(parsedURL.Host, ":4317") {
				return ProtocolGRPC
			}
			if strings.Contains(parsedURL.Host, ":4318") {
				return ProtocolHTTP
			}
		} else {
			switch port {
			case "4317":
				return ProtocolGRPC
			case "4318":
				return ProtocolHTTP
			}
		}
	}

	// Check if endpoint contains port info directly
	if strings.Contains(endpoint, ":4317") {
		return ProtocolGRPC
	}
	if strings.Contains(endpoint, ":4318") {
		return ProtocolHTTP
	}

	// Default to HTTP for backward compatibility
	return ProtocolHTTP
}

// createGRPCExporter creates a gRPC OTLP exporter
func createGRPCExporter(ctx context.Context, cfg config.Telemetry) (trace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(normalizeGRPCEndpoint(cfg.Endpoint)),
		otlptracegrpc.WithTimeout(30 * time.Second),
	}

	// Use insecure connection if explicitly configured or for development/localhost
	if cfg.Insecure || cfg.Environment == "development" || strings.Contains(cfg.Endpoint, "localhost") || strings.Contains(cfg.Endpoint, "127.0.0.1") {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if authToken := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); authToken != "" {
		opts = append(opts, otlptracegrpc.WithHeaders(parseHeaders(authToken)))
	}

	return otlptracegrpc.New(ctx, opts...)
}

// createHTTPExporter creates an HTTP OTLP exporter
func createHTTPExporter(ctx context.Context, cfg config.Telemetry) (trace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(normalizeHTTPEndpoint(cfg.Endpoint, cfg.Insecure)),
		otlptracehttp.WithTimeout(30 * time.Second),
	}

	// Use insecure connection if explicitly configured
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	if authToken := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); authToken != "" {
		opts = append(opts, otlptracehttp.WithHeaders(parseHeaders(authToken)))
	}

	return otlptracehttp.New(ctx, opts...)
}

// normalizeGRPCEndpoint normalizes the endpoint for gRPC usage
func normalizeGRPCEndpoint(endpoint string) string {
	// Remove http:// or https:// prefix for gRPC
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	// Remove /v1/traces suffix if present
	endpoint = strings.TrimSuffix(endpoint, "/v1/traces")

	return endpoint
}

// normalizeHTTPEndpoint normalizes the endpoint for HTTP usage
func normalizeHTTPEndpoint(endpoint string, insecure bool) string {
	// Ensure we have a proper HTTP URL
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		// Use HTTP if insecure is true or if endpoint contains localhost/127.0.0.1/docker.internal
		if insecure || strings.Contains(endpoint, "localhost") || strings.Contains(endpoint, "127.0.0.1") || strings.Contains(endpoint, "docker.internal") {
			endpoint = "http://" + endpoint
		} else {
			endpoint = "https://" + endpoint
		}
	}

	// Add /v1/traces suffix if not present
	if !strings.HasSuffix(endpoint, "/v1/traces") {
		endpoint = strings.TrimSuffix(endpoint, "/") + "/v1/traces"
	}

	return endpoint
}

// parseHeaders parses header string into map
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}

	// Simple parsing - expect "key=value,key2=value2" format
	pairs := strings.Split(headerStr, ",")
	for _, pair := range pairs {
		if parts := strings.SplitN(strings.TrimSpace(pair), "=", 2); len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	return headers
}
