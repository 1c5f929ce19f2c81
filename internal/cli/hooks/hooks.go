// Package hooks bridges preview run events to the console: a per-file
// progress line on stderr, or structured log records in verbose mode.
package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

// CLIHooks implements preview.Hooks. It is safe for concurrent use.
type CLIHooks struct {
	logger         *slog.Logger
	progress       io.Writer // nil disables progress lines
	verboseEnabled bool

	mu    sync.Mutex
	total int
	done  int
}

var _ preview.Hooks = (*CLIHooks)(nil)

// NewCLIHooks creates hooks. Pass a nil progress writer to disable progress lines.
func NewCLIHooks(logger *slog.Logger, progress io.Writer, verboseEnabled bool) *CLIHooks {
	return &CLIHooks{logger: logger, progress: progress, verboseEnabled: verboseEnabled}
}

// OnRunStart records the number of files the run will process.
func (h *CLIHooks) OnRunStart(total int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.total, h.done = total, 0
	if h.verboseEnabled {
		h.logger.Debug("Run started", slog.Int("files", total))
	}
	return nil
}

// OnFileStatusUpdate prints "[current/total] pct% path" when a file finishes.
func (h *CLIHooks) OnFileStatusUpdate(path string, status preview.Status, message string, duration time.Duration) error {
	final := status == preview.StatusSuccess || status == preview.StatusSkipped

	if h.verboseEnabled {
		level := slog.LevelDebug
		attrs := []any{slog.String("path", path), slog.String("status", string(status))}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		if message != "" {
			attrs = append(attrs, slog.String("message", message))
		}
		if final {
			level = slog.LevelInfo
		}
		h.logger.Log(context.Background(), level, "File status updated", attrs...)
	}

	if !final {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done++
	if h.progress == nil || h.verboseEnabled {
		return nil
	}
	pct := 100
	if h.total > 0 {
		pct = h.done * 100 / h.total
	}
	line := fmt.Sprintf("[%d/%d] %3d%% %s", h.done, h.total, pct, path)
	if status == preview.StatusSkipped {
		line += " (skipped: " + message + ")"
	}
	_, _ = fmt.Fprintln(h.progress, line)
	return nil
}

// OnRunComplete logs the final counts.
func (h *CLIHooks) OnRunComplete(report preview.Report) error {
	if h.verboseEnabled {
		h.logger.Debug("Run complete",
			slog.Int("rendered", report.Summary.RenderedCount),
			slog.Int("skipped", report.Summary.SkippedCount),
			slog.Bool("fatal", report.Summary.FatalErrorOccurred),
		)
	}
	return nil
}
