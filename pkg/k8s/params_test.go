package k8s

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validate(tool string, args map[string]any) (Params, error) {
	def, _ := NewCatalog().Lookup(tool)
	return Validate(def, args)
}

func TestValidateMissingRequired(t *testing.T) {
	for _, def := range NewCatalog().List() {
		var required []string
		for _, p := range def.Params {
			if p.Required {
				required = append(required, p.Name)
			}
		}
		if len(required) == 0 {
			continue
		}

		t.Run(def.Name, func(t *testing.T) {
			_, err := Validate(def, map[string]any{})
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, def.Name, verr.Tool)
			assert.Len(t, verr.Problems, len(required))
			for _, name := range required {
				assert.Contains(t, err.Error(), name+" is required")
			}
		})
	}
}

func TestValidateBlankStringIsAbsent(t *testing.T) {
	_, err := validate("kubectl_get", map[string]any{"resource": "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource is required")

	params, err := validate("kubectl_get", map[string]any{"resource": "pods", "namespace": ""})
	require.NoError(t, err)
	assert.False(t, params.Has("namespace"))
}

func TestValidateDefaults(t *testing.T) {
	params, err := validate("kubectl_get_events", nil)
	require.NoError(t, err)
	assert.True(t, params.Has("sort"))
	assert.True(t, params.Bool("sort"))
	assert.False(t, params.Has("tail"))
}

func TestValidateIgnoresUnknownArguments(t *testing.T) {
	params, err := validate("kubectl_cluster_info", map[string]any{"verbose": true})
	require.NoError(t, err)
	assert.False(t, params.Has("verbose"))
}

func TestValidateManifestVerbatim(t *testing.T) {
	manifest := "  metadata:\n    name: it's\n"
	params, err := validate("kubectl_apply", map[string]any{"manifest": manifest})
	require.NoError(t, err)
	assert.Equal(t, manifest, params.String("manifest"))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		wantErr string
	}{
		{name: "enum", tool: "kubectl_get", args: map[string]any{"resource": "pods", "output": "xml"}, wantErr: "output: must be one of wide, yaml, json, name"},
		{name: "string type", tool: "kubectl_get", args: map[string]any{"resource": 3}, wantErr: "resource: expected string"},
		{name: "fractional tail", tool: "kubectl_logs", args: map[string]any{"pod": "web", "tail": 1.5}, wantErr: "tail: must be an integer"},
		{name: "number type", tool: "kubectl_logs", args: map[string]any{"pod": "web", "tail": "many"}, wantErr: "tail: expected number"},
		{name: "boolean type", tool: "kubectl_delete", args: map[string]any{"resource": "pod", "name": "web", "force": "yes"}, wantErr: "force: expected boolean"},
		{name: "negative replicas", tool: "kubectl_scale", args: map[string]any{"resource": "deployment", "name": "web", "replicas": -1}, wantErr: "replicas: must not be negative"},
		{name: "scale resource enum", tool: "kubectl_scale", args: map[string]any{"resource": "pod", "name": "web", "replicas": 1}, wantErr: "resource: must be one of"},
		{name: "namespace", tool: "kubectl_get", args: map[string]any{"resource": "pods", "namespace": "Bad_NS"}, wantErr: "namespace:"},
		{name: "namespace injection", tool: "kubectl_get", args: map[string]any{"resource": "pods", "namespace": "prod; rm -rf /"}, wantErr: "namespace:"},
		{name: "object name with slash", tool: "kubectl_describe", args: map[string]any{"resource": "pod", "name": "web/1"}, wantErr: "name: may not contain '/'"},
		{name: "object name as path", tool: "kubectl_get", args: map[string]any{"resource": "pods", "name": ".."}, wantErr: "name: may not be '..'"},
		{name: "object name as flag", tool: "kubectl_delete", args: map[string]any{"resource": "pods", "name": "--all"}, wantErr: "name: must not start with '-'"},
		{name: "pod reference without kind", tool: "kubectl_logs", args: map[string]any{"pod": "/web"}, wantErr: "missing resource kind"},
		{name: "label selector", tool: "kubectl_get", args: map[string]any{"resource": "pods", "selector": "app in (web"}, wantErr: "selector:"},
		{name: "field selector", tool: "kubectl_get", args: map[string]any{"resource": "pods", "fieldSelector": "status.phase"}, wantErr: "fieldSelector:"},
		{name: "since", tool: "kubectl_logs", args: map[string]any{"pod": "web", "since": "yesterday"}, wantErr: "since: invalid duration"},
		{name: "port range", tool: "kubectl_port_forward", args: map[string]any{"resource": "pod/web", "localPort": 70000, "remotePort": 80}, wantErr: "localPort:"},
		{name: "unterminated command quote", tool: "kubectl_exec", args: map[string]any{"pod": "web", "command": `echo "hi`}, wantErr: "command: cannot parse command"},
		{name: "rollout action", tool: "kubectl_rollout", args: map[string]any{"action": "pause", "resource": "deployment", "name": "web"}, wantErr: "action: must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validate(tt.tool, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{name: "pod reference with kind", tool: "kubectl_logs", args: map[string]any{"pod": "deploy/web"}},
		{name: "set based selector", tool: "kubectl_get", args: map[string]any{"resource": "pods", "selector": "env in (prod,staging),tier!=cache"}},
		{name: "all namespaces", tool: "kubectl_get_events", args: map[string]any{"namespace": "all", "tail": "20"}},
		{name: "dotted object name", tool: "kubectl_describe", args: map[string]any{"resource": "node", "name": "ip-10-0-0-1.ec2.internal"}},
		{name: "rbac object name", tool: "kubectl_describe", args: map[string]any{"resource": "clusterrole", "name": "system:aggregate-to-admin"}},
		{name: "mixed case object name", tool: "kubectl_get", args: map[string]any{"resource": "clusterrolebinding", "name": "system:node"}},
		{name: "integral float replicas", tool: "kubectl_scale", args: map[string]any{"resource": "statefulset", "name": "db", "replicas": 3.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validate(tt.tool, tt.args)
			assert.NoError(t, err)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	_, err := validate("kubectl_scale", map[string]any{"resource": "pod", "replicas": -2})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 3)
}
