package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/kagent-dev/k8s-mcp-server/internal/cmd"
	"github.com/kagent-dev/k8s-mcp-server/internal/config"
	"github.com/kagent-dev/k8s-mcp-server/internal/logger"
	"github.com/kagent-dev/k8s-mcp-server/internal/mcp"
	"github.com/kagent-dev/k8s-mcp-server/internal/metrics"
	"github.com/kagent-dev/k8s-mcp-server/internal/telemetry"
	"github.com/kagent-dev/k8s-mcp-server/internal/version"
	"github.com/kagent-dev/k8s-mcp-server/pkg/k8s"
)

var (
	showVersion bool

	// These variables should be set during build time using -ldflags
	Name      = "k8s-mcp-server"
	Version   = version.Version
	GitCommit = version.GitCommit
	BuildDate = version.BuildDate
)

const stopTimeout = 5 * time.Second

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "k8s-mcp-server",
		Short:        "Kubernetes MCP server backed by kubectl",
		SilenceUsage: true,
		RunE:         run,
	}
	config.RegisterFlags(rootCmd.Flags())
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information and exit")
	return rootCmd
}

func init() {
	// if found .env file, load it
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printVersion displays version information in a formatted way
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s\n", Name)
	fmt.Fprintf(w, "Version:    %s\n", Version)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
	fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
	fmt.Fprintf(w, "OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func run(c *cobra.Command, _ []string) error {
	// Handle version flag early, before any initialization
	if showVersion {
		printVersion(c.OutOrStdout())
		return nil
	}

	cfg, err := config.Load(c.Flags())
	if err != nil {
		return err
	}

	logger.Init(cfg.Stdio, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupOTelSDK(ctx, cfg.Telemetry)
	if err != nil {
		logger.Get().Error("Failed to setup OpenTelemetry SDK", "error", err)
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Get().Warn("Failed to flush traces", "error", err)
		}
	}()

	// Start root span for server lifecycle
	ctx, rootSpan := otel.Tracer("k8s-mcp-server/server").Start(ctx, "server.lifecycle")
	defer rootSpan.End()
	rootSpan.SetAttributes(
		attribute.String("server.name", Name),
		attribute.String("server.version", Version),
		attribute.Bool("server.stdio_mode", cfg.Stdio),
		attribute.Bool("server.read_only", cfg.ReadOnly),
		attribute.StringSlice("server.tools", cfg.Tools),
	)

	logger.Get().Info("Starting "+Name, "version", Version, "git_commit", GitCommit, "build_date", BuildDate)
	logger.Get().Info("Using kubeconfig", "path", cfg.Kubeconfig, "kubectl", cfg.KubectlBinary)
	if cfg.ReadOnly {
		logger.Get().Info("Running in read-only mode - write operations are disabled")
	}

	registry := metrics.InitServer()
	mcpServer, registered := newMCPServer(cfg)
	metrics.SetServerInfo(Name, Version, GitCommit, BuildDate, cfg.ReadOnly)
	metrics.SetRegisteredTools("k8s", registered)

	transport, err := newTransport(cfg, mcpServer, registry)
	if err != nil {
		return err
	}

	if err := serve(ctx, transport); err != nil {
		telemetry.RecordError(rootSpan, err, "transport failed")
		logger.Get().Error("Server stopped with error", "transport", transport.GetName(), "error", err)
		return err
	}

	rootSpan.SetStatus(codes.Ok, "server shutdown completed")
	logger.Get().Info("Server shutdown complete")
	return nil
}

// newMCPServer builds the MCP server with the kubectl tools registered and
// returns the registered tool names.
func newMCPServer(cfg *config.Config) (*server.MCPServer, []string) {
	mcpServer := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	dispatcher := k8s.NewDispatcher(k8s.Options{
		Runner:   cmd.NewRunner(cfg.KubectlBinary, cfg.Kubeconfig, cfg.Timeout, cfg.MaxOutputBytes),
		TempDir:  cfg.TempDir,
		ReadOnly: cfg.ReadOnly,
	})
	return mcpServer, k8s.RegisterTools(mcpServer, dispatcher, cfg.Tools)
}

func newTransport(cfg *config.Config, mcpServer *server.MCPServer, registry *prometheus.Registry) (mcp.Transport, error) {
	if cfg.Stdio {
		return mcp.NewStdioTransport(mcpServer), nil
	}
	return mcp.NewHTTPTransport(mcpServer, mcp.HTTPTransportConfig{
		Port:     cfg.Port,
		Registry: registry,
	})
}

// serve runs transport until it stops on its own or ctx is cancelled. A
// cancelled context is a clean shutdown.
func serve(ctx context.Context, transport mcp.Transport) error {
	if err := transport.Start(ctx); err != nil {
		return fmt.Errorf("failed to start %s transport: %w", transport.GetName(), err)
	}

	stopped := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(stopped)
		return transport.Wait()
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			logger.Get().Info("Received termination signal, shutting down server...")
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			return transport.Stop(stopCtx)
		case <-stopped:
			return nil
		}
	})
	return g.Wait()
}
