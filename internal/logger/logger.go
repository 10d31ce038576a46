package logger

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

var globalLogger *slog.Logger

// parseLogLevel converts a string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init initializes the global logger
// If useStderr is true, logs will be written to stderr (required in stdio mode, where stdout carries the protocol)
// If useStderr is false, logs will be written to stdout (for HTTP mode)
// logLevel can be "debug", "info", "warn", or "error"
func Init(useStderr bool, logLevel string) {
	level := parseLogLevel(logLevel)
	opts := &slog.HandlerOptions{
		Level: level,
	}

	output := os.Stdout
	if useStderr {
		output = os.Stderr
	}

	if os.Getenv("K8S_MCP_LOG_FORMAT") == "json" {
		globalLogger = slog.New(slog.NewJSONHandler(output, opts))
	} else {
		globalLogger = slog.New(slog.NewTextHandler(output, opts))
	}

	slog.SetDefault(globalLogger)
}

// InitWithEnv initializes the logger using environment variables.
// Logs go to stderr unless K8S_MCP_LOG_STDOUT is "true".
func InitWithEnv() {
	useStderr := os.Getenv("K8S_MCP_LOG_STDOUT") != "true"
	logLevel := os.Getenv("K8S_MCP_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	Init(useStderr, logLevel)
}

func Get() *slog.Logger {
	if globalLogger == nil {
		InitWithEnv()
	}
	return globalLogger
}

func WithContext(ctx context.Context) *slog.Logger {
	logger := Get()
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		logger = logger.With(
			"trace_id", span.SpanContext().TraceID().String(),
			"span_id", span.SpanContext().SpanID().String(),
		)
	}
	return logger
}

// StdLogger adapts the global logger for libraries that want a *log.Logger.
func StdLogger(level slog.Level) *log.Logger {
	return slog.NewLogLogger(Get().Handler(), level)
}

func LogExecCommand(ctx context.Context, logger *slog.Logger, command string, args []string, caller string) {
	logger.InfoContext(ctx, "executing command",
		"command", command,
		"args", args,
		"caller", caller,
	)
}

// LogExecCommandResult logs the outcome of a command. Output is summarized by size; the
// full text is returned to the caller, not logged.
func LogExecCommandResult(ctx context.Context, logger *slog.Logger, command string, args []string, output string, err error, duration float64, caller string) {
	if err != nil {
		logger.ErrorContext(ctx, "command execution failed",
			"command", command,
			"args", args,
			"error", err.Error(),
			"output_bytes", len(output),
			"duration_seconds", duration,
			"caller", caller,
		)
	} else {
		logger.InfoContext(ctx, "command execution successful",
			"command", command,
			"args", args,
			"output_bytes", len(output),
			"duration_seconds", duration,
			"caller", caller,
		)
	}
}
