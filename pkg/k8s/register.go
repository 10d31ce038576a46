package k8s

import (
	"context"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kagent-dev/k8s-mcp-server/internal/logger"
	"github.com/kagent-dev/k8s-mcp-server/internal/telemetry"
)

// RegisterTools adds the catalog tools to s and returns the registered names in
// catalog order. When enabled is non-empty only those names are registered.
// Mutating tools are skipped in read-only mode.
func RegisterTools(s *server.MCPServer, d *Dispatcher, enabled []string) []string {
	log := logger.Get()

	for _, name := range enabled {
		if _, ok := d.Catalog().Lookup(name); !ok {
			log.Warn("unknown tool in --tools, ignoring", "tool", name)
		}
	}

	var registered []string
	for _, def := range d.Catalog().List() {
		if len(enabled) > 0 && !slices.Contains(enabled, def.Name) {
			continue
		}
		if d.ReadOnly() && def.Mutating {
			continue
		}

		s.AddTool(def.MCPTool(), telemetry.AdaptToolHandler(telemetry.WithTracing(def.Name, d.toolHandler())))
		registered = append(registered, def.Name)
	}

	log.Info("registered Kubernetes tools", "count", len(registered), "read_only", d.ReadOnly())
	return registered
}

func (d *Dispatcher) toolHandler() telemetry.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return d.Handle(ctx, request.Params.Name, request.GetArguments()), nil
	}
}
