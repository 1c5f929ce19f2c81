// Package runner executes external tools as child processes with bounded
// output capture and classified errors.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const (
	// maxLogOutputBytes limits the size of stderr quoted in errors and logs.
	maxLogOutputBytes = 1024
	// maxReadBytes sets a limit on captured stdout/stderr to prevent OOM from a runaway tool.
	maxReadBytes = 10 * 1024 * 1024
	// waitDelay bounds how long Run waits for output pipes after the tool is killed.
	waitDelay = 2 * time.Second
)

// Errors returned by Run. Callers check them with errors.Is.
var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrToolNonZeroExit  = errors.New("tool exited with non-zero status")
	ErrToolCancelled    = errors.New("tool execution cancelled")
	ErrToolOutputTooBig = errors.New("tool output exceeded limit")
	ErrEmptyCommand     = errors.New("tool command cannot be empty")
)

// Command describes one invocation.
type Command struct {
	Argv   []string  // Program followed by its arguments
	Stdin  io.Reader // Optional
	Stderr io.Writer // Optional passthrough; stderr is captured when nil
}

// Result holds the captured output of a successful invocation.
type Result struct {
	Stdout []byte
	Stderr string
}

// ExitError carries the exit code and stderr of a failed invocation.
// It wraps ErrToolNonZeroExit.
type ExitError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + truncate(e.Stderr)
	}
	return msg
}

// Unwrap lets errors.Is match ErrToolNonZeroExit.
func (e *ExitError) Unwrap() error { return ErrToolNonZeroExit }

// ExecRunner runs tools with os/exec.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner creates a runner that logs through loggerHandler.
func NewExecRunner(loggerHandler slog.Handler) *ExecRunner {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	return &ExecRunner{logger: slog.New(loggerHandler).With(slog.String("component", "runner"))}
}

// LookPath resolves the program of argv, returning an error wrapping ErrToolNotFound.
func LookPath(argv []string) (string, error) {
	if len(argv) == 0 || argv[0] == "" {
		return "", ErrEmptyCommand
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrToolNotFound, argv[0], err)
	}
	return path, nil
}

// Run executes cmd and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if _, err := LookPath(cmd.Argv); err != nil {
		return Result{}, err
	}
	tool := cmd.Argv[0]
	logArgs := []any{slog.String("tool", tool), slog.String("command", strings.Join(cmd.Argv, " "))}

	c := exec.CommandContext(ctx, tool, cmd.Argv[1:]...)
	c.WaitDelay = waitDelay
	c.Stdin = cmd.Stdin
	stdout := &limitedBuffer{limit: maxReadBytes}
	c.Stdout = stdout
	stderr := &limitedBuffer{limit: maxReadBytes}
	if cmd.Stderr != nil {
		c.Stderr = cmd.Stderr
	} else {
		c.Stderr = stderr
	}

	r.logger.Debug("Running tool", logArgs...)
	waitErr := c.Run()
	stderrString := strings.TrimSpace(stderr.String())

	if ctx.Err() != nil {
		r.logger.Debug("Tool cancelled", append(logArgs, slog.Any("error", ctx.Err()))...)
		return Result{}, fmt.Errorf("%w: %s: %w", ErrToolCancelled, tool, ctx.Err())
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			r.logger.Debug("Tool failed", append(logArgs, slog.Int("exitCode", exitErr.ExitCode()), slog.String("stderr", truncate(stderrString)))...)
			return Result{Stderr: stderrString}, &ExitError{Tool: tool, ExitCode: exitErr.ExitCode(), Stderr: stderrString}
		}
		return Result{}, fmt.Errorf("failed to run %s: %w", tool, waitErr)
	}
	if stdout.overflow {
		return Result{}, fmt.Errorf("%w: %s stdout over %d bytes", ErrToolOutputTooBig, tool, maxReadBytes)
	}
	if stderrString != "" {
		r.logger.Debug("Tool stderr output (on success)", append(logArgs, slog.String("stderr", truncate(stderrString)))...)
	}
	return Result{Stdout: stdout.Bytes(), Stderr: stderrString}, nil
}

// limitedBuffer keeps the first limit bytes and silently drops the rest so
// the child never blocks on a full pipe.
type limitedBuffer struct {
	bytes.Buffer
	limit    int
	overflow bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.Len()
	if room <= 0 {
		b.overflow = b.overflow || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		b.overflow = true
		b.Buffer.Write(p[:room])
		return len(p), nil
	}
	return b.Buffer.Write(p)
}

func truncate(s string) string {
	if len(s) > maxLogOutputBytes {
		return s[:maxLogOutputBytes] + "... (truncated)"
	}
	return s
}
