package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kagent-dev/k8s-mcp-server/internal/logger"
)

// StdioTransport serves newline-delimited JSON-RPC over a reader/writer pair,
// normally the process's stdin and stdout.
type StdioTransport struct {
	stdio *server.StdioServer
	in    io.Reader
	out   io.Writer

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	done    chan error
}

// NewStdioTransport creates a stdio transport bound to os.Stdin and os.Stdout.
func NewStdioTransport(mcpServer *server.MCPServer) *StdioTransport {
	return NewStdioTransportWithIO(mcpServer, os.Stdin, os.Stdout)
}

// NewStdioTransportWithIO creates a stdio transport over arbitrary streams.
func NewStdioTransportWithIO(mcpServer *server.MCPServer, in io.Reader, out io.Writer) *StdioTransport {
	stdio := server.NewStdioServer(mcpServer)
	stdio.SetErrorLogger(logger.StdLogger(slog.LevelError))
	return &StdioTransport{stdio: stdio, in: in, out: out}
}

// Start begins reading requests in the background.
func (s *StdioTransport) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("stdio transport is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan error, 1)
	s.running = true

	logger.Get().Info("Starting stdio transport")
	go func() {
		err := s.stdio.Listen(runCtx, s.in, s.out)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			logger.Get().Error("Stdio transport error", "error", err)
			err = fmt.Errorf("stdio transport error: %w", err)
		} else {
			logger.Get().Info("Stdio transport finished")
		}

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.done <- err
		close(s.done)
	}()
	return nil
}

// Wait blocks until input ends or the transport is stopped.
func (s *StdioTransport) Wait() error {
	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()
	if done == nil {
		return nil
	}
	return <-done
}

// Stop cancels the read loop. Requests in flight are abandoned.
func (s *StdioTransport) Stop(ctx context.Context) error {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel == nil {
		return nil
	}

	logger.Get().Info("Stopping stdio transport")
	cancel()
	return nil
}

// IsRunning returns true while the read loop is active.
func (s *StdioTransport) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetName returns "stdio".
func (s *StdioTransport) GetName() string {
	return "stdio"
}
