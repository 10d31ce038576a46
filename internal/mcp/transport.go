package mcp

import (
	"context"
)

// Transport defines the interface that different MCP server transport implementations must implement.
// This enables clean separation between stdio and HTTP serving of the same MCP server.
type Transport interface {
	// Start begins serving in the background. It returns once the transport
	// is accepting requests, or an error if it cannot start.
	Start(ctx context.Context) error

	// Wait blocks until the transport stops and returns the fault that stopped
	// it, or nil after a clean shutdown or end of input.
	Wait() error

	// Stop gracefully shuts down the transport layer.
	Stop(ctx context.Context) error

	// IsRunning returns true if the transport is currently running.
	IsRunning() bool

	// GetName returns the human-readable name of this transport (e.g., "stdio", "http").
	GetName() string
}
