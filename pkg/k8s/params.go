package k8s

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"
	"k8s.io/apimachinery/pkg/api/validation/path"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/kagent-dev/k8s-mcp-server/pkg/common"
)

// AllNamespaces are the namespace values that widen a query to every namespace.
var AllNamespaces = []string{"all", "-A"}

// Value is a validated parameter value.
type Value struct {
	Str  string
	Num  float64
	Bool bool
	Type ParamType
}

// Params holds the validated parameters of one call. Absent optional
// parameters without a default are not present.
type Params map[string]Value

// Has reports whether name is present.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// String returns the string value of name, or "".
func (p Params) String(name string) string {
	return p[name].Str
}

// Int returns the integral value of name, or 0.
func (p Params) Int(name string) int64 {
	return int64(p[name].Num)
}

// Bool returns the boolean value of name, or false.
func (p Params) Bool(name string) bool {
	return p[name].Bool
}

// ValidationError lists every problem found in one argument set.
type ValidationError struct {
	Tool     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Problems, "; "))
}

// Validate checks raw against the tool's parameter specs and returns the
// typed parameters. Blank strings count as absent; other strings are kept
// verbatim. Unknown keys are ignored.
func Validate(def *ToolDefinition, raw map[string]any) (Params, error) {
	params := make(Params, len(def.Params))
	var problems []string

	for _, spec := range def.Params {
		v, present := raw[spec.Name]
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			present = false
		}
		if v == nil {
			present = false
		}

		if !present {
			if spec.Required {
				problems = append(problems, fmt.Sprintf("%s is required", spec.Name))
				continue
			}
			if spec.Default != nil {
				params[spec.Name] = defaultValue(spec)
			}
			continue
		}

		val, err := coerce(spec, v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", spec.Name, err))
			continue
		}
		if spec.Check != nil {
			if err := spec.Check(val); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", spec.Name, err))
				continue
			}
		}
		params[spec.Name] = val
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ValidationError{Tool: def.Name, Problems: problems}
	}
	return params, nil
}

func defaultValue(spec ParameterSpec) Value {
	val := Value{Type: spec.Type}
	switch d := spec.Default.(type) {
	case string:
		val.Str = d
	case float64:
		val.Num = d
	case bool:
		val.Bool = d
	}
	return val
}

func coerce(spec ParameterSpec, v any) (Value, error) {
	val := Value{Type: spec.Type}
	switch spec.Type {
	case TypeString:
		s, ok := common.CoerceString(v)
		if !ok {
			return val, fmt.Errorf("expected string, got %T", v)
		}
		if len(spec.Enum) > 0 && !slices.Contains(spec.Enum, s) {
			return val, fmt.Errorf("must be one of %s, got %q", strings.Join(spec.Enum, ", "), s)
		}
		val.Str = s
	case TypeNumber:
		n, ok := common.CoerceNumber(v)
		if !ok {
			return val, fmt.Errorf("expected number, got %T", v)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return val, fmt.Errorf("must be a finite number")
		}
		if spec.Integer && n != math.Trunc(n) {
			return val, fmt.Errorf("must be an integer, got %v", n)
		}
		val.Num = n
	case TypeBoolean:
		b, ok := common.CoerceBool(v)
		if !ok {
			return val, fmt.Errorf("expected boolean, got %T", v)
		}
		val.Bool = b
	default:
		return val, fmt.Errorf("unsupported parameter type %q", spec.Type)
	}
	return val, nil
}

func isAllNamespaces(ns string) bool {
	return slices.Contains(AllNamespaces, ns)
}

func checkNamespace(v Value) error {
	if isAllNamespaces(v.Str) {
		return nil
	}
	return dnsError(validation.IsDNS1123Label(v.Str))
}

// checkObjectName accepts any name the API server can address, including
// RBAC names such as system:node. A leading dash would be read as a flag.
func checkObjectName(v Value) error {
	if strings.HasPrefix(v.Str, "-") {
		return fmt.Errorf("must not start with '-', got %q", v.Str)
	}
	return dnsError(path.IsValidPathSegmentName(v.Str))
}

// checkPodRef accepts a pod name or a kind/name reference such as deploy/web.
func checkPodRef(v Value) error {
	name := v.Str
	if i := strings.LastIndex(name, "/"); i >= 0 {
		if i == 0 {
			return fmt.Errorf("missing resource kind in %q", name)
		}
		name = name[i+1:]
	}
	return dnsError(validation.IsDNS1123Subdomain(name))
}

func checkContainerName(v Value) error {
	return dnsError(validation.IsDNS1123Label(v.Str))
}

func checkLabelSelector(v Value) error {
	_, err := labels.Parse(v.Str)
	return err
}

func checkFieldSelector(v Value) error {
	_, err := fields.ParseSelector(v.Str)
	return err
}

func checkDuration(v Value) error {
	d, err := time.ParseDuration(v.Str)
	if err != nil {
		return fmt.Errorf("invalid duration %q", v.Str)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %q", v.Str)
	}
	return nil
}

func checkCommand(v Value) error {
	argv, err := shlex.Split(v.Str)
	if err != nil {
		return fmt.Errorf("cannot parse command: %v", err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("command is empty")
	}
	return nil
}

func checkPort(v Value) error {
	return dnsError(validation.IsValidPortNum(int(v.Num)))
}

func checkReplicas(v Value) error {
	if v.Num < 0 {
		return fmt.Errorf("must not be negative, got %v", v.Num)
	}
	return nil
}

func dnsError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, ", "))
}
