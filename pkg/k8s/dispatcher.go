package k8s

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kagent-dev/k8s-mcp-server/internal/cmd"
	"github.com/kagent-dev/k8s-mcp-server/internal/logger"
	"github.com/kagent-dev/k8s-mcp-server/internal/metrics"
	"github.com/kagent-dev/k8s-mcp-server/internal/telemetry"
	"github.com/kagent-dev/k8s-mcp-server/pkg/common"
)

// ErrUnknownTool is returned for names outside the catalog.
var ErrUnknownTool = errors.New("unknown tool")

const (
	successFallback = "Command executed successfully"
	advisoryPrefix  = "Port forward command (run this manually in a terminal):\n"
	errorPrefix     = "Error executing kubectl command: "
)

// Options configures a Dispatcher.
type Options struct {
	Runner   *cmd.Runner
	TempDir  string
	ReadOnly bool
}

// Dispatcher turns tool calls into kubectl invocations.
type Dispatcher struct {
	catalog  *Catalog
	runner   *cmd.Runner
	stager   *Stager
	readOnly bool
}

// NewDispatcher returns a Dispatcher over the kubectl catalog.
func NewDispatcher(opts Options) *Dispatcher {
	runner := opts.Runner
	if runner == nil {
		runner = cmd.NewRunner("", "", 0, 0)
	}
	return &Dispatcher{
		catalog:  NewCatalog(),
		runner:   runner,
		stager:   NewStager(opts.TempDir),
		readOnly: opts.ReadOnly,
	}
}

// Catalog returns the tools the dispatcher serves.
func (d *Dispatcher) Catalog() *Catalog {
	return d.catalog
}

// ReadOnly reports whether mutating calls are rejected.
func (d *Dispatcher) ReadOnly() bool {
	return d.readOnly
}

// Handle runs one tool call. Every outcome, including internal faults, is
// reported as a tool result; the returned value is never nil.
func (d *Dispatcher) Handle(ctx context.Context, name string, args map[string]any) (result *mcp.CallToolResult) {
	callID := uuid.NewString()
	log := logger.WithContext(ctx).With("tool", name, "call_id", callID)
	span := trace.SpanFromContext(ctx)

	metrics.ToolInvocationsTotal.WithLabelValues(name).Inc()

	defer func() {
		if r := recover(); r != nil {
			log.Error("tool call panicked", "panic", r)
			metrics.ToolInvocationsFailureTotal.WithLabelValues(name, metrics.KindPanic).Inc()
			result = common.NewErrorResultf("%sinternal error: %v", errorPrefix, r)
		}
	}()

	def, ok := d.catalog.Lookup(name)
	if !ok {
		log.Warn("tool call rejected", "error", fmt.Errorf("%w: %s", ErrUnknownTool, name))
		metrics.ToolInvocationsFailureTotal.WithLabelValues(name, metrics.KindUnknownTool).Inc()
		return common.NewErrorResultf("%sUnknown tool: %s", errorPrefix, name)
	}

	logUnknownArgs(ctx, log, def, args)

	params, err := Validate(def, args)
	if err != nil {
		log.Info("invalid tool arguments", "error", err)
		metrics.ToolInvocationsFailureTotal.WithLabelValues(name, metrics.KindValidation).Inc()
		return common.NewErrorResult(errorPrefix + err.Error())
	}

	if d.readOnly && def.IsMutating(params) {
		log.Info("mutating call rejected in read-only mode")
		metrics.ToolInvocationsFailureTotal.WithLabelValues(name, metrics.KindReadOnly).Inc()
		return common.NewErrorResultf("%s%s is not allowed in read-only mode", errorPrefix, describeCall(def, params))
	}

	inv := Invocation{Params: params}

	if def.Advisory {
		line := ArgString(append([]string{d.runner.Binary}, def.Build(inv)...))
		telemetry.AddEvent(span, "tool.advisory", attribute.String("command", line))
		return common.NewTextResult(advisoryPrefix + line)
	}

	if def.StagesManifest {
		staged, err := d.stager.Stage(ctx, params.String("manifest"))
		if err != nil {
			log.Error("failed to stage manifest", "error", err)
			metrics.ToolInvocationsFailureTotal.WithLabelValues(name, metrics.KindStaging).Inc()
			return common.NewErrorResult(errorPrefix + err.Error())
		}
		defer staged.Release(ctx)
		inv.ManifestPath = staged.Path
	}

	cmdArgs := def.Build(inv)
	log.Debug("running kubectl", "args", ArgString(cmdArgs))

	execCtx, execSpan := telemetry.StartSpan(ctx, "kubectl.exec",
		attribute.String("kubectl.binary", d.runner.Binary),
		attribute.String("kubectl.args", ArgString(cmdArgs)),
	)
	res := d.runner.Run(execCtx, cmdArgs)
	metrics.KubectlDuration.WithLabelValues(name).Observe(res.Duration.Seconds())
	if res.Success {
		telemetry.RecordSuccess(execSpan, "kubectl exited 0")
	} else {
		execSpan.SetAttributes(attribute.String("kubectl.failure_kind", string(res.Kind)))
		telemetry.RecordError(execSpan, errors.New(res.Describe()), string(res.Kind))
	}
	execSpan.End()

	if !res.Success {
		log.Info("kubectl failed", "result", res.Describe())
		metrics.ToolInvocationsFailureTotal.WithLabelValues(name, string(res.Kind)).Inc()
		return common.NewErrorResult(failureText(res, d.runner))
	}

	out := res.Stdout
	if out != "" && def.Transform != nil {
		out = def.Transform(out, params)
	}
	return common.NewTextResult(successText(out, res.Stderr))
}

func successText(stdout, stderr string) string {
	switch {
	case stdout != "":
		return stdout
	case stderr != "":
		return stderr
	default:
		return successFallback
	}
}

func failureText(res cmd.ExecutionResult, runner *cmd.Runner) string {
	var b strings.Builder
	switch res.Kind {
	case cmd.FailureTimeout:
		fmt.Fprintf(&b, "Error: command timed out after %s", runner.Timeout)
	case cmd.FailureOutputLimit:
		fmt.Fprintf(&b, "Error: output exceeded %d bytes", runner.MaxOutputBytes)
	case cmd.FailureCanceled:
		b.WriteString("Error: command canceled")
	default:
		msg := res.Stderr
		if msg == "" && res.Err != nil {
			msg = res.Err.Error()
		}
		if msg == "" {
			msg = "Unknown error"
		}
		code := "N/A"
		if res.ExitCode != nil {
			code = fmt.Sprint(*res.ExitCode)
		}
		return fmt.Sprintf("Error: %s\nExit code: %s", msg, code)
	}
	if res.Stderr != "" {
		b.WriteString("\n")
		b.WriteString(res.Stderr)
	}
	return b.String()
}

func describeCall(def *ToolDefinition, p Params) string {
	if def.Mutating {
		return def.Name
	}
	return fmt.Sprintf("%s action %q", def.Name, p.String("action"))
}

func logUnknownArgs(ctx context.Context, log *slog.Logger, def *ToolDefinition, args map[string]any) {
	for key := range args {
		if _, ok := def.Param(key); !ok {
			log.DebugContext(ctx, "ignoring unknown argument", "argument", key)
		}
	}
}
