package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/client-go/util/homedir"

	"github.com/kagent-dev/k8s-mcp-server/internal/cmd"
)

// Flag names shared by the command line and the environment (K8S_MCP_<FLAG>).
const (
	FlagKubeconfig     = "kubeconfig"
	FlagKubectl        = "kubectl"
	FlagTimeout        = "timeout"
	FlagMaxOutputBytes = "max-output-bytes"
	FlagTempDir        = "temp-dir"
	FlagReadOnly       = "read-only"
	FlagTools          = "tools"
	FlagStdio          = "stdio"
	FlagPort           = "port"
	FlagLogLevel       = "log-level"
)

const envPrefix = "K8S_MCP"

// Telemetry holds all telemetry-related configuration.
type Telemetry struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Protocol       string
	SamplingRatio  float64
	Insecure       bool
	Disabled       bool
}

// Config holds all application configuration. It is resolved once at startup and
// shared read-only afterwards.
type Config struct {
	Kubeconfig     string
	KubectlBinary  string
	Timeout        time.Duration
	MaxOutputBytes int64
	TempDir        string
	ReadOnly       bool
	Tools          []string
	Stdio          bool
	Port           int
	LogLevel       string
	Telemetry      Telemetry
}

// RegisterFlags adds every configuration flag to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagKubeconfig, "", "kubeconfig file path (falls back to $KUBECONFIG, then ~/.kube/config)")
	fs.String(FlagKubectl, cmd.DefaultBinary, "kubectl binary to invoke")
	fs.Duration(FlagTimeout, cmd.DefaultTimeout, "Maximum duration of a single kubectl invocation")
	fs.Int64(FlagMaxOutputBytes, cmd.DefaultMaxOutputBytes, "Maximum captured output of a single kubectl invocation, in bytes")
	fs.String(FlagTempDir, "", "Directory for staged manifests (default: system temp dir)")
	fs.Bool(FlagReadOnly, false, "Run in read-only mode (disable tools that perform write operations)")
	fs.StringSlice(FlagTools, []string{}, "List of tools to register. If empty, all tools are registered.")
	fs.Bool(FlagStdio, true, "Use stdio for communication instead of HTTP")
	fs.IntP(FlagPort, "p", 8084, "Port to run the HTTP server on (only when --stdio=false)")
	fs.String(FlagLogLevel, "info", "Log level: debug, info, warn or error")
}

// Load resolves the configuration with precedence flag > environment > default.
// The kubeconfig path additionally honours $KUBECONFIG before the home-directory default.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := v.BindEnv(FlagKubeconfig, envPrefix+"_KUBECONFIG", "KUBECONFIG"); err != nil {
		return nil, fmt.Errorf("failed to bind kubeconfig env: %w", err)
	}

	cfg := &Config{
		Kubeconfig:     resolveKubeconfig(v.GetString(FlagKubeconfig)),
		KubectlBinary:  v.GetString(FlagKubectl),
		Timeout:        v.GetDuration(FlagTimeout),
		MaxOutputBytes: v.GetInt64(FlagMaxOutputBytes),
		TempDir:        v.GetString(FlagTempDir),
		ReadOnly:       v.GetBool(FlagReadOnly),
		Tools:          splitList(v.GetStringSlice(FlagTools)),
		Stdio:          v.GetBool(FlagStdio),
		Port:           v.GetInt(FlagPort),
		LogLevel:       v.GetString(FlagLogLevel),
		Telemetry:      LoadTelemetry(),
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.KubectlBinary == "" {
		return fmt.Errorf("%s must not be empty", FlagKubectl)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", FlagTimeout, c.Timeout)
	}
	if c.MaxOutputBytes <= 0 {
		return fmt.Errorf("%s must be positive, got %d", FlagMaxOutputBytes, c.MaxOutputBytes)
	}
	if !c.Stdio && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("%s must be between 1-65535, got %d", FlagPort, c.Port)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s must be one of debug, info, warn, error; got %q", FlagLogLevel, c.LogLevel)
	}
	return nil
}

func resolveKubeconfig(path string) string {
	if path != "" {
		return path
	}
	return filepath.Join(homedir.HomeDir(), ".kube", "config")
}

// splitList flattens comma-separated entries. Environment values reach viper as one
// string that it only splits on whitespace.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// LoadTelemetry reads the standard OTEL_* variables.
func LoadTelemetry() Telemetry {
	t := Telemetry{
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "k8s-mcp-server"),
		ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		Environment:    getEnv("OTEL_ENVIRONMENT", "production"),
		Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Protocol:       getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "auto"),
		SamplingRatio:  getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		Insecure:       getEnvBool("OTEL_EXPORTER_OTLP_TRACES_INSECURE", false),
		Disabled:       getEnvBool("OTEL_SDK_DISABLED", false),
	}

	if t.Environment == "development" {
		t.SamplingRatio = 1.0
	}
	return t
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if valueStr, ok := os.LookupEnv(key); ok {
		if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if valueStr, ok := os.LookupEnv(key); ok {
		if value, err := strconv.ParseBool(strings.ToLower(valueStr)); err == nil {
			return value
		}
	}
	return fallback
}
