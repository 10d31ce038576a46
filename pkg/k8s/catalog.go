package k8s

import (
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
)

// ParamType is the semantic type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
)

// ParameterSpec describes one named tool parameter.
type ParameterSpec struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Enum        []string
	Default     any
	// Integer restricts numbers to whole values.
	Integer bool
	// Check runs after type coercion for domain-specific validation.
	Check func(Value) error
}

// Invocation is the input of a command builder: validated parameters plus any
// artifact staged on the caller's behalf.
type Invocation struct {
	Params       Params
	ManifestPath string
}

// ToolDefinition is an immutable catalog entry.
type ToolDefinition struct {
	Name        string
	Description string
	Params      []ParameterSpec

	// Mutating tools are hidden in read-only mode.
	Mutating bool
	// MutatingWhen flags individual calls of an otherwise read-only tool.
	MutatingWhen func(Params) bool
	// StagesManifest tools receive Invocation.ManifestPath for the "manifest" parameter.
	StagesManifest bool
	// Advisory tools return the built command as text and never execute it.
	Advisory bool

	Build func(Invocation) []string
	// Transform post-processes successful stdout.
	Transform func(stdout string, p Params) string
}

// IsMutating reports whether a call with p changes cluster state.
func (d *ToolDefinition) IsMutating(p Params) bool {
	if d.Mutating {
		return true
	}
	return d.MutatingWhen != nil && d.MutatingWhen(p)
}

// Param returns the spec for name.
func (d *ToolDefinition) Param(name string) (ParameterSpec, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// MCPTool renders the definition as an MCP tool schema.
func (d *ToolDefinition) MCPTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(d.Description),
		mcp.WithReadOnlyHintAnnotation(!d.Mutating && d.MutatingWhen == nil),
		mcp.WithDestructiveHintAnnotation(d.Mutating || d.MutatingWhen != nil),
	}

	for _, p := range d.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		if len(p.Enum) > 0 {
			props = append(props, mcp.Enum(p.Enum...))
		}

		switch p.Type {
		case TypeString:
			if def, ok := p.Default.(string); ok {
				props = append(props, mcp.DefaultString(def))
			}
			opts = append(opts, mcp.WithString(p.Name, props...))
		case TypeNumber:
			if def, ok := p.Default.(float64); ok {
				props = append(props, mcp.DefaultNumber(def))
			}
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case TypeBoolean:
			if def, ok := p.Default.(bool); ok {
				props = append(props, mcp.DefaultBool(def))
			}
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		}
	}

	return mcp.NewTool(d.Name, opts...)
}

// Catalog is the fixed, ordered set of tools.
type Catalog struct {
	tools []*ToolDefinition
	index map[string]*ToolDefinition
}

func newCatalog(defs ...*ToolDefinition) *Catalog {
	c := &Catalog{index: make(map[string]*ToolDefinition, len(defs))}
	for _, d := range defs {
		if _, dup := c.index[d.Name]; dup {
			panic("duplicate tool definition: " + d.Name)
		}
		c.tools = append(c.tools, d)
		c.index[d.Name] = d
	}
	return c
}

// List returns the tools in declaration order.
func (c *Catalog) List() []*ToolDefinition {
	return slices.Clone(c.tools)
}

// Lookup finds a tool by name.
func (c *Catalog) Lookup(name string) (*ToolDefinition, bool) {
	d, ok := c.index[name]
	return d, ok
}

// Names returns the tool names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.tools))
	for _, d := range c.tools {
		names = append(names, d.Name)
	}
	return names
}

// NewCatalog returns the kubectl tool catalog.
func NewCatalog() *Catalog {
	return newCatalog(
		&ToolDefinition{
			Name:        "kubectl_get",
			Description: "Get Kubernetes resources (pods, services, deployments, nodes, pv, pvc, ingress, etc.). Supports filtering by namespace, labels, and field selectors.",
			Params: []ParameterSpec{
				{Name: "resource", Type: TypeString, Required: true, Description: "Resource type (pods, services, deployments, nodes, pvc, pv, ingress, namespaces, events, all, etc.)"},
				namespaceParam(`Namespace (optional, use "all" or "-A" for all namespaces)`),
				{Name: "name", Type: TypeString, Description: "Specific resource name (optional)", Check: checkObjectName},
				{Name: "output", Type: TypeString, Description: "Output format: wide, yaml, json, name", Enum: []string{"wide", "yaml", "json", "name"}},
				{Name: "selector", Type: TypeString, Description: "Label selector (e.g., app=nginx, env=prod)", Check: checkLabelSelector},
				{Name: "fieldSelector", Type: TypeString, Description: "Field selector (e.g., status.phase=Running, status.phase=Failed)", Check: checkFieldSelector},
			},
			Build: buildGet,
		},
		&ToolDefinition{
			Name:        "kubectl_describe",
			Description: "Get detailed description of a Kubernetes resource including events, conditions, and metadata. Essential for debugging.",
			Params: []ParameterSpec{
				{Name: "resource", Type: TypeString, Required: true, Description: "Resource type (pod, service, deployment, node, pv, pvc, etc.)"},
				{Name: "name", Type: TypeString, Required: true, Description: "Resource name", Check: checkObjectName},
				namespaceParam("Namespace (optional for namespaced resources)"),
			},
			Build: buildDescribe,
		},
		&ToolDefinition{
			Name:        "kubectl_logs",
			Description: "Get container logs from a pod. Supports previous container logs, tail, and time-based filtering.",
			Params: []ParameterSpec{
				{Name: "pod", Type: TypeString, Required: true, Description: "Pod name", Check: checkPodRef},
				namespaceParam("Namespace (default: default)"),
				{Name: "container", Type: TypeString, Description: "Container name (required for multi-container pods)", Check: checkContainerName},
				{Name: "previous", Type: TypeBoolean, Description: "Get logs from previous crashed container instance"},
				{Name: "tail", Type: TypeNumber, Integer: true, Description: "Number of lines from end of logs (e.g., 100)"},
				{Name: "since", Type: TypeString, Description: "Show logs since duration (e.g., 1h, 30m, 10s)", Check: checkDuration},
			},
			Build: buildLogs,
		},
		&ToolDefinition{
			Name:        "kubectl_exec",
			Description: "Execute a command inside a running pod container. Use for debugging and inspection.",
			Params: []ParameterSpec{
				{Name: "pod", Type: TypeString, Required: true, Description: "Pod name", Check: checkPodRef},
				{Name: "command", Type: TypeString, Required: true, Description: `Command to execute (e.g., "ls /", "cat /etc/resolv.conf")`, Check: checkCommand},
				namespaceParam("Namespace (default: default)"),
				{Name: "container", Type: TypeString, Description: "Container name (for multi-container pods)", Check: checkContainerName},
			},
			Build: buildExec,
		},
		&ToolDefinition{
			Name:        "kubectl_get_events",
			Description: "Get cluster events sorted by timestamp. Critical for debugging issues - shows pod scheduling, image pulls, crashes, etc.",
			Params: []ParameterSpec{
				namespaceParam(`Namespace (use "all" or "-A" for all namespaces)`),
				{Name: "sort", Type: TypeBoolean, Default: true, Description: "Sort by last timestamp (default: true)"},
				{Name: "tail", Type: TypeNumber, Integer: true, Description: "Show only last N events"},
			},
			Build:     buildEvents,
			Transform: tailEvents,
		},
		&ToolDefinition{
			Name:        "kubectl_top",
			Description: "Get resource usage (CPU/Memory) for nodes or pods. Requires metrics-server to be installed.",
			Params: []ParameterSpec{
				{Name: "resource", Type: TypeString, Required: true, Description: "Resource type", Enum: []string{"nodes", "pods"}},
				namespaceParam("Namespace (for pods only)"),
				{Name: "sortBy", Type: TypeString, Description: "Sort by cpu or memory", Enum: []string{"cpu", "memory"}},
			},
			Build: buildTop,
		},
		&ToolDefinition{
			Name:        "kubectl_apply",
			Description: "Apply a Kubernetes manifest to create or update resources declaratively.",
			Params: []ParameterSpec{
				{Name: "manifest", Type: TypeString, Required: true, Description: "YAML manifest content"},
				namespaceParam("Namespace (optional, can be in manifest)"),
				{Name: "dryRun", Type: TypeBoolean, Description: "Perform dry-run without actually applying"},
			},
			Mutating:       true,
			StagesManifest: true,
			Build:          buildApply,
		},
		&ToolDefinition{
			Name:        "kubectl_delete",
			Description: "Delete a Kubernetes resource. Use with caution.",
			Params: []ParameterSpec{
				{Name: "resource", Type: TypeString, Required: true, Description: "Resource type (pod, service, deployment, etc.)"},
				{Name: "name", Type: TypeString, Required: true, Description: "Resource name", Check: checkObjectName},
				namespaceParam("Namespace (required for namespaced resources)"),
				{Name: "force", Type: TypeBoolean, Description: "Force deletion (immediate, no grace period)"},
			},
			Mutating: true,
			Build:    buildDelete,
		},
		&ToolDefinition{
			Name:        "kubectl_scale",
			Description: "Scale a deployment, replicaset, or statefulset to desired replica count.",
			Params: []ParameterSpec{
				{Name: "resource", Type: TypeString, Required: true, Description: "Resource type", Enum: []string{"deployment", "replicaset", "statefulset"}},
				{Name: "name", Type: TypeString, Required: true, Description: "Resource name", Check: checkObjectName},
				{Name: "replicas", Type: TypeNumber, Required: true, Integer: true, Description: "Desired number of replicas", Check: checkReplicas},
				namespaceParam("Namespace (optional)"),
			},
			Mutating: true,
			Build:    buildScale,
		},
		&ToolDefinition{
			Name:        "kubectl_rollout",
			Description: "Manage deployment rollouts - check status, restart, undo, or view history.",
			Params: []ParameterSpec{
				{Name: "action", Type: TypeString, Required: true, Description: "Rollout action to perform", Enum: []string{"status", "restart", "undo", "history"}},
				{Name: "resource", Type: TypeString, Required: true, Description: "Resource type (usually deployment)"},
				{Name: "name", Type: TypeString, Required: true, Description: "Resource name", Check: checkObjectName},
				namespaceParam("Namespace (optional)"),
			},
			MutatingWhen: func(p Params) bool {
				action := p.String("action")
				return action == "restart" || action == "undo"
			},
			Build: buildRollout,
		},
		&ToolDefinition{
			Name:        "kubectl_cluster_info",
			Description: "Get cluster information including control plane endpoints and cluster status.",
			Params: []ParameterSpec{
				{Name: "dump", Type: TypeBoolean, Description: "Get detailed cluster dump for debugging"},
			},
			Build: buildClusterInfo,
		},
		&ToolDefinition{
			Name:        "kubectl_port_forward",
			Description: "Forward local port to a pod port. Returns the command to run (not executed directly).",
			Params: []ParameterSpec{
				{Name: "resource", Type: TypeString, Required: true, Description: "Resource type/name (e.g., pod/nginx, service/web)"},
				{Name: "localPort", Type: TypeNumber, Required: true, Integer: true, Description: "Local port number", Check: checkPort},
				{Name: "remotePort", Type: TypeNumber, Required: true, Integer: true, Description: "Remote port number", Check: checkPort},
				namespaceParam("Namespace (optional)"),
			},
			Advisory: true,
			Build:    buildPortForward,
		},
	)
}

func namespaceParam(description string) ParameterSpec {
	return ParameterSpec{Name: "namespace", Type: TypeString, Description: description, Check: checkNamespace}
}
