package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kagent-dev/k8s-mcp-server/internal/logger"
)

const (
	defaultReadTimeout     = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// HTTPTransportConfig configures an HTTPTransport.
type HTTPTransportConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// Registry, when set, is served on /metrics.
	Registry *prometheus.Registry
}

// HTTPTransport serves the MCP streamable HTTP endpoint on /mcp alongside
// /health and /metrics.
type HTTPTransport struct {
	mcpServer       *server.MCPServer
	registry        *prometheus.Registry
	configuredPort  int
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration

	mu         sync.RWMutex
	httpServer *http.Server
	port       int
	running    bool
	started    time.Time
	done       chan error
}

// NewHTTPTransport validates cfg and returns an HTTP transport.
func NewHTTPTransport(mcpServer *server.MCPServer, cfg HTTPTransportConfig) (*HTTPTransport, error) {
	if mcpServer == nil {
		return nil, errors.New("mcp server must not be nil")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.WriteTimeout < 0 {
		return nil, fmt.Errorf("write timeout must not be negative, got %s", cfg.WriteTimeout)
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	return &HTTPTransport{
		mcpServer:       mcpServer,
		registry:        cfg.Registry,
		configuredPort:  cfg.Port,
		readTimeout:     readTimeout,
		writeTimeout:    cfg.WriteTimeout,
		idleTimeout:     readTimeout,
		shutdownTimeout: shutdownTimeout,
	}, nil
}

func (h *HTTPTransport) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", server.NewStreamableHTTPServer(h.mcpServer))
	mux.HandleFunc("/health", h.healthHandler)
	if h.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{Registry: h.registry}))
	}
	return mux
}

// Start binds the port and serves in the background.
func (h *HTTPTransport) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return fmt.Errorf("HTTP transport is already running")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", h.configuredPort))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", h.configuredPort, err)
	}

	h.httpServer = &http.Server{
		Handler:           h.handler(),
		ReadHeaderTimeout: h.readTimeout,
		ReadTimeout:       h.readTimeout,
		WriteTimeout:      h.writeTimeout,
		IdleTimeout:       h.idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	h.port = ln.Addr().(*net.TCPAddr).Port
	h.running = true
	h.started = time.Now()
	h.done = make(chan error, 1)

	srv, done := h.httpServer, h.done
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			logger.Get().Error("HTTP server error", "error", err)
			err = fmt.Errorf("HTTP server error: %w", err)
		}
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
		done <- err
		close(done)
	}()

	logger.Get().Info("HTTP transport started", "port", h.port, "endpoint", "/mcp")
	return nil
}

// Wait blocks until the server stops.
func (h *HTTPTransport) Wait() error {
	h.mu.RLock()
	done := h.done
	h.mu.RUnlock()
	if done == nil {
		return nil
	}
	return <-done
}

// Stop gracefully shuts down the HTTP server.
func (h *HTTPTransport) Stop(ctx context.Context) error {
	h.mu.RLock()
	srv, running := h.httpServer, h.running
	h.mu.RUnlock()
	if !running || srv == nil {
		return nil
	}

	logger.Get().Info("Stopping HTTP transport")

	shutdownCtx, cancel := context.WithTimeout(ctx, h.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Get().Error("Failed to stop HTTP server gracefully", "error", err)
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	h.mu.Lock()
	h.running = false
	h.mu.Unlock()
	logger.Get().Info("HTTP transport stopped")
	return nil
}

// IsRunning returns true if the HTTP server is serving.
func (h *HTTPTransport) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// GetName returns "http".
func (h *HTTPTransport) GetName() string {
	return "http"
}

// Port returns the bound port, which differs from the configured one when that was 0.
func (h *HTTPTransport) Port() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.port
}

func (h *HTTPTransport) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.mu.RLock()
	uptime := time.Since(h.started).Seconds()
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status":"ok","uptime_seconds":%.1f}`, uptime)
}
