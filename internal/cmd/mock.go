package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// CallLog records a single command invocation made through a MockShellExecutor.
type CallLog struct {
	Command string
	Args    []string
}

// MockResult is the canned outcome of a mocked command.
type MockResult struct {
	Stdout string
	Stderr string
	Err    error
}

// MockFunc computes a result at call time, e.g. to inspect files referenced by the arguments.
type MockFunc func(ctx context.Context, args []string) MockResult

// MockShellExecutor is a ShellExecutor for tests. Commands must be registered up front;
// unregistered commands fail with an error.
type MockShellExecutor struct {
	mu      sync.Mutex
	results map[string]MockFunc
	any     map[string]MockFunc
	calls   []CallLog
}

// NewMockShellExecutor creates an empty mock executor.
func NewMockShellExecutor() *MockShellExecutor {
	return &MockShellExecutor{
		results: make(map[string]MockFunc),
		any:     make(map[string]MockFunc),
	}
}

// AddCommandString registers stdout output and error for an exact command line.
func (m *MockShellExecutor) AddCommandString(command string, args []string, output string, err error) {
	m.AddCommandResult(command, args, MockResult{Stdout: output, Err: err})
}

// AddCommandResult registers a full result for an exact command line.
func (m *MockShellExecutor) AddCommandResult(command string, args []string, result MockResult) {
	m.AddCommandFunc(command, args, func(context.Context, []string) MockResult { return result })
}

// AddCommandFunc registers fn for an exact command line.
func (m *MockShellExecutor) AddCommandFunc(command string, args []string, fn MockFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[mockKey(command, args)] = fn
}

// AddAnyArgsFunc registers fn for every invocation of command regardless of arguments.
// Exact registrations take precedence.
func (m *MockShellExecutor) AddAnyArgsFunc(command string, fn MockFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.any[command] = fn
}

// Exec implements ShellExecutor.
func (m *MockShellExecutor) Exec(ctx context.Context, command string, args ...string) ([]byte, []byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CallLog{Command: command, Args: append([]string(nil), args...)})
	fn, ok := m.results[mockKey(command, args)]
	if !ok {
		fn, ok = m.any[command]
	}
	m.mu.Unlock()

	if !ok {
		return nil, nil, fmt.Errorf("no mock found for command: %s %s", command, strings.Join(args, " "))
	}

	res := fn(ctx, args)
	return []byte(res.Stdout), []byte(res.Stderr), res.Err
}

// GetCallLog returns a copy of every invocation seen so far.
func (m *MockShellExecutor) GetCallLog() []CallLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CallLog(nil), m.calls...)
}

// ExitCodeError mimics a process that exited with a non-zero status.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// ExitCode reports the process exit status.
func (e *ExitCodeError) ExitCode() int { return e.Code }

func mockKey(command string, args []string) string {
	return command + "\x00" + strings.Join(args, "\x00")
}
