package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagent-dev/k8s-mcp-server/internal/config"
	"github.com/kagent-dev/k8s-mcp-server/internal/mcp"
)

type fakeTransport struct {
	mu       sync.Mutex
	startErr error
	done     chan error
	stopped  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{done: make(chan error, 1)}
}

func (f *fakeTransport) Start(context.Context) error { return f.startErr }

func (f *fakeTransport) Wait() error { return <-f.done }

func (f *fakeTransport) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		f.done <- nil
	}
	return nil
}

func (f *fakeTransport) IsRunning() bool { return true }

func (f *fakeTransport) GetName() string { return "fake" }

var _ mcp.Transport = (*fakeTransport)(nil)

func testConfig() *config.Config {
	return &config.Config{
		KubectlBinary:  "kubectl",
		Timeout:        time.Second,
		MaxOutputBytes: 1 << 20,
		Stdio:          true,
		LogLevel:       "info",
	}
}

func TestNewMCPServerRegistersCatalog(t *testing.T) {
	s, names := newMCPServer(testConfig())
	assert.Len(t, names, 12)
	assert.Len(t, s.ListTools(), 12)
}

func TestNewMCPServerReadOnlyAndFiltered(t *testing.T) {
	cfg := testConfig()
	cfg.ReadOnly = true
	cfg.Tools = []string{"kubectl_get", "kubectl_delete"}

	s, names := newMCPServer(cfg)
	assert.Equal(t, []string{"kubectl_get"}, names)
	assert.Len(t, s.ListTools(), 1)
}

func TestNewTransport(t *testing.T) {
	s, _ := newMCPServer(testConfig())

	tr, err := newTransport(testConfig(), s, nil)
	require.NoError(t, err)
	assert.Equal(t, "stdio", tr.GetName())

	cfg := testConfig()
	cfg.Stdio = false
	cfg.Port = 8084
	tr, err = newTransport(cfg, s, nil)
	require.NoError(t, err)
	assert.Equal(t, "http", tr.GetName())
}

func TestServeStopsOnCancel(t *testing.T) {
	transport := newFakeTransport()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, transport) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
	assert.True(t, transport.stopped)
}

func TestServeReturnsTransportFault(t *testing.T) {
	transport := newFakeTransport()
	transport.done <- errors.New("broken pipe")

	err := serve(context.Background(), transport)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestServeEndOfInput(t *testing.T) {
	transport := newFakeTransport()
	transport.done <- nil

	assert.NoError(t, serve(context.Background(), transport))
}

func TestServeStartFailure(t *testing.T) {
	transport := newFakeTransport()
	transport.startErr = errors.New("address already in use")

	err := serve(context.Background(), transport)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start fake transport")
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.Contains(t, buf.String(), "k8s-mcp-server")
	assert.Contains(t, buf.String(), "Version:")
}

func TestVersionFlag(t *testing.T) {
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetArgs([]string{"--version"})
	t.Cleanup(func() { showVersion = false })

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "Go Version:")
}
