package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// FailureKind classifies how a command invocation ended.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureExit        FailureKind = "exit"
	FailureTimeout     FailureKind = "timeout"
	FailureOutputLimit FailureKind = "output_limit"
	FailureLaunch      FailureKind = "launch"
	FailureCanceled    FailureKind = "canceled"
	FailureSignal      FailureKind = "signal"
)

const (
	DefaultTimeout        = 60 * time.Second
	DefaultMaxOutputBytes = 10 * 1024 * 1024
	DefaultBinary         = "kubectl"
)

// ExecutionResult is the normalized outcome of one external process invocation.
type ExecutionResult struct {
	Success  bool
	Stdout   string
	Stderr   string
	ExitCode *int
	Kind     FailureKind
	Err      error
	Duration time.Duration
}

// ResourceLimited reports whether the command never finished because of a timeout or the output cap.
func (r ExecutionResult) ResourceLimited() bool {
	return r.Kind == FailureTimeout || r.Kind == FailureOutputLimit
}

// Runner runs a single binary with a fixed kubeconfig, bounded by a timeout and an output cap.
type Runner struct {
	Binary         string
	Kubeconfig     string
	Timeout        time.Duration
	MaxOutputBytes int64
}

// NewRunner returns a Runner with defaults applied for zero values.
func NewRunner(binary, kubeconfig string, timeout time.Duration, maxOutputBytes int64) *Runner {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxOutputBytes <= 0 {
		maxOutputBytes = DefaultMaxOutputBytes
	}
	return &Runner{
		Binary:         binary,
		Kubeconfig:     kubeconfig,
		Timeout:        timeout,
		MaxOutputBytes: maxOutputBytes,
	}
}

// CommandArgs returns the full argument vector passed to the binary.
func (r *Runner) CommandArgs(args []string) []string {
	if r.Kubeconfig == "" {
		return args
	}
	return append([]string{"--kubeconfig=" + r.Kubeconfig}, args...)
}

// Run executes the binary exactly once. It never returns an error; every failure is
// described by the result's Kind.
func (r *Runner) Run(ctx context.Context, args []string) ExecutionResult {
	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	executor := GetShellExecutor(ctx, &DefaultShellExecutor{MaxOutputBytes: r.MaxOutputBytes})

	start := time.Now()
	stdout, stderr, err := executor.Exec(runCtx, r.Binary, r.CommandArgs(args)...)

	res := ExecutionResult{
		Stdout:   strings.TrimSpace(string(stdout)),
		Stderr:   strings.TrimSpace(string(stderr)),
		Err:      err,
		Duration: time.Since(start),
	}

	switch {
	case errors.Is(err, ErrOutputLimitExceeded):
		res.Kind = FailureOutputLimit
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.Kind = FailureTimeout
	case ctx.Err() != nil:
		res.Kind = FailureCanceled
	case err == nil:
		res.Success = true
		code := 0
		res.ExitCode = &code
	default:
		var exitErr *exec.ExitError
		var coder interface{ ExitCode() int }
		if errors.As(err, &exitErr) && exitErr.ExitCode() < 0 {
			// started but terminated by a signal from outside
			res.Kind = FailureSignal
		} else if errors.As(err, &coder) && coder.ExitCode() >= 0 {
			code := coder.ExitCode()
			res.ExitCode = &code
			res.Kind = FailureExit
		} else {
			res.Kind = FailureLaunch
			if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
				code := 127
				res.ExitCode = &code
			} else if errors.Is(err, fs.ErrPermission) {
				code := 126
				res.ExitCode = &code
			}
		}
	}

	return res
}

// Describe renders a one-line summary of a failed result for logs.
func (r ExecutionResult) Describe() string {
	switch r.Kind {
	case FailureNone:
		return "success"
	case FailureExit:
		return fmt.Sprintf("exited with code %d", *r.ExitCode)
	default:
		if r.Err != nil {
			return fmt.Sprintf("%s: %v", r.Kind, r.Err)
		}
		return string(r.Kind)
	}
}
