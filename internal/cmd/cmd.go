package cmd

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"

	"github.com/kagent-dev/k8s-mcp-server/internal/logger"
)

// ErrOutputLimitExceeded is returned when a command writes more output than the executor allows.
var ErrOutputLimitExceeded = errors.New("command output exceeded capture limit")

// ShellExecutor defines the interface for executing external commands
type ShellExecutor interface {
	Exec(ctx context.Context, command string, args ...string) (stdout []byte, stderr []byte, err error)
}

// DefaultShellExecutor implements ShellExecutor using os/exec.
// MaxOutputBytes bounds the combined size of captured stdout and stderr; zero means unbounded.
type DefaultShellExecutor struct {
	MaxOutputBytes int64
}

// Exec runs command with args as an argument vector and captures stdout/stderr separately.
// When the capture limit is exceeded the process is killed and ErrOutputLimitExceeded is returned
// together with whatever output was captured up to the limit.
func (e *DefaultShellExecutor) Exec(ctx context.Context, command string, args ...string) ([]byte, []byte, error) {
	log := logger.WithContext(ctx)
	startTime := time.Now()

	logger.LogExecCommand(ctx, log, command, args, "cmd.DefaultShellExecutor")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limit := &captureLimit{max: e.MaxOutputBytes, onExceed: cancel}
	stdout := &limitedBuffer{limit: limit}
	stderr := &limitedBuffer{limit: limit}

	c := exec.CommandContext(ctx, command, args...)
	c.Stdout = stdout
	c.Stderr = stderr
	// Children that inherit the pipes must not hold Wait open after a kill.
	c.WaitDelay = waitDelay

	err := c.Run()
	if limit.hit() {
		err = ErrOutputLimitExceeded
	}

	logger.LogExecCommandResult(ctx, log, command, args, stdout.String(), err, time.Since(startTime).Seconds(), "cmd.DefaultShellExecutor")

	return stdout.Bytes(), stderr.Bytes(), err
}

// captureLimit is shared by the stdout and stderr buffers of a single process.
type captureLimit struct {
	mu       sync.Mutex
	max      int64
	used     int64
	exceeded bool
	onExceed func()
}

// reserve returns how many of n bytes may still be kept.
func (l *captureLimit) reserve(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max <= 0 {
		return n
	}
	remaining := l.max - l.used
	if int64(n) <= remaining {
		l.used += int64(n)
		return n
	}
	if remaining < 0 {
		remaining = 0
	}
	l.used = l.max
	if !l.exceeded {
		l.exceeded = true
		if l.onExceed != nil {
			l.onExceed()
		}
	}
	return int(remaining)
}

func (l *captureLimit) hit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exceeded
}

// limitedBuffer keeps bytes up to the shared limit and silently drops the rest, so the
// child never blocks on a full pipe while it is being killed.
type limitedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit *captureLimit
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	keep := b.limit.reserve(len(p))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p[:keep])
	return len(p), nil
}

func (b *limitedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}

func (b *limitedBuffer) String() string {
	return string(b.Bytes())
}

const waitDelay = 2 * time.Second

// Context key for shell executor injection
type contextKey string

const shellExecutorKey contextKey = "shellExecutor"

// WithShellExecutor returns a context with the given shell executor
func WithShellExecutor(ctx context.Context, executor ShellExecutor) context.Context {
	return context.WithValue(ctx, shellExecutorKey, executor)
}

// GetShellExecutor retrieves the shell executor from context, or returns fallback.
// A nil fallback yields an unbounded DefaultShellExecutor.
func GetShellExecutor(ctx context.Context, fallback ShellExecutor) ShellExecutor {
	if executor, ok := ctx.Value(shellExecutorKey).(ShellExecutor); ok {
		return executor
	}
	if fallback != nil {
		return fallback
	}
	return &DefaultShellExecutor{}
}
