// Package exec runs external scanner toolkits as subprocesses. It wraps
// os/exec with context-aware execution, timeout enforcement, and full
// stdout/stderr capture so integrations can invoke adversarial-ML CLIs and
// decode their reports.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Config describes one toolkit invocation.
type Config struct {
	// Command is the binary name or path (required).
	Command string

	// Args are the command-line arguments.
	Args []string

	// WorkDir is the working directory; empty means inherit.
	WorkDir string

	// Env replaces the environment ("KEY=value" entries); nil means inherit.
	Env []string

	// Timeout bounds the run. Zero relies on the caller's context alone.
	Timeout time.Duration

	// StdinData is written to the process stdin when non-empty.
	StdinData []byte
}

// Result captures a finished invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Run executes the configured command. A non-zero exit is not an error: the
// Result carries the exit code and the caller decides what it means, since
// some toolkits exit non-zero when an attack succeeds. Only failures to run
// at all (binary missing, timeout, cancellation) return an error.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Command == "" {
		return nil, errors.New("command is required")
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = cfg.WorkDir
	if cfg.Env != nil {
		cmd.Env = cfg.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(cfg.StdinData) > 0 {
		cmd.Stdin = bytes.NewReader(cfg.StdinData)
	}

	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("command timed out after %v", cfg.Timeout)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return result, fmt.Errorf("command cancelled")
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("command execution failed: %w", err)
	}
	return result, nil
}

// BinaryExists reports whether name resolves to an executable on PATH.
func BinaryExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// BinaryPath resolves name on PATH.
func BinaryPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("binary %q not found in PATH: %w", name, err)
	}
	return path, nil
}
