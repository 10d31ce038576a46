package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Kubernetes MCP server metrics definition
var (
	ServerInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "k8s_mcp_server_info",
			Help: "Information about the MCP server including version and build details",
		},
		[]string{
			"server_name",
			"version",
			"git_commit",
			"build_date",
			"server_mode", // "read-only" or "read-write"
		},
	)

	RegisteredTools = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "k8s_mcp_registered_tools",
			Help: "Set to 1 for each registered MCP tool",
		},
		[]string{
			"tool_name",
			"tool_provider",
		},
	)

	ToolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "k8s_mcp_tool_invocations_total",
			Help: "Total number of MCP tool invocations",
		},
		[]string{"tool_name"},
	)

	ToolInvocationsFailureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "k8s_mcp_tool_invocations_failure_total",
			Help: "Total number of failed MCP tool invocations by failure kind",
		},
		[]string{"tool_name", "kind"},
	)

	KubectlDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "k8s_mcp_kubectl_duration_seconds",
			Help:    "Duration of kubectl invocations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"tool_name"},
	)
)

// Failure kinds outside the process runner's classification.
const (
	KindValidation  = "validation"
	KindUnknownTool = "unknown_tool"
	KindReadOnly    = "read_only"
	KindStaging     = "staging"
	KindPanic       = "panic"
)

// InitServer returns a registry with runtime collectors and the server metrics.
func InitServer() *prometheus.Registry {
	// New registry for our custom metrics, separate from the default registry
	registry := prometheus.NewRegistry()

	// Add Go runtime metrics ( goroutines, GC stats, etc. )
	registry.MustRegister(collectors.NewGoCollector())

	// Add process metrics (CPU, memory, file descriptors, etc. )
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(ServerInfo)
	registry.MustRegister(RegisteredTools)
	registry.MustRegister(ToolInvocationsTotal)
	registry.MustRegister(ToolInvocationsFailureTotal)
	registry.MustRegister(KubectlDuration)

	return registry
}

// SetServerInfo publishes the build and mode labels.
func SetServerInfo(name, version, gitCommit, buildDate string, readOnly bool) {
	mode := "read-write"
	if readOnly {
		mode = "read-only"
	}
	ServerInfo.Reset()
	ServerInfo.WithLabelValues(name, version, gitCommit, buildDate, mode).Set(1)
}

// SetRegisteredTools marks each name as registered.
func SetRegisteredTools(provider string, names []string) {
	RegisteredTools.Reset()
	for _, name := range names {
		RegisteredTools.WithLabelValues(name, provider).Set(1)
	}
}
