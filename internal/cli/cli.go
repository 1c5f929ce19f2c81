// Package cli wires the command-line adapters into a preview run.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ValentinKt/utils-toolkit/internal/cli/hooks"
	"github.com/ValentinKt/utils-toolkit/internal/cli/runner"
	"github.com/ValentinKt/utils-toolkit/internal/cli/tools"
	"github.com/ValentinKt/utils-toolkit/internal/cli/ui"
	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

// loggedError marks a failure Run has already written to the log.
type loggedError struct{ err error }

func (e loggedError) Error() string { return e.err.Error() }
func (e loggedError) Unwrap() error { return e.err }

// Logged reports whether err was already logged by Run.
func Logged(err error) bool {
	var le loggedError
	return errors.As(err, &le)
}

// Run attaches the external tools the options ask for, executes the run and
// prints the summary. Every returned error is fatal for the process.
func Run(ctx context.Context, opts preview.Options, logger *slog.Logger) error {
	if err := attachTools(&opts, logger); err != nil {
		logger.Error("Required tool unavailable", slog.Any("error", err))
		return loggedError{err}
	}

	if opts.EventHooks == nil {
		var progress io.Writer
		if term.IsTerminal(int(os.Stderr.Fd())) {
			progress = os.Stderr
		}
		opts.EventHooks = hooks.NewCLIHooks(logger, progress, opts.Verbose)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	report, err := preview.Generate(ctx, opts)
	if err != nil {
		logger.Error("Preview run failed", slog.Any("error", err))
		return loggedError{err}
	}

	format := opts.SummaryFormat
	if format == "" {
		format = preview.DefaultSummaryFormat
	}
	if err := preview.WriteSummary(opts.Stdout, report, format); err != nil {
		return fmt.Errorf("failed to write run summary: %w", err)
	}
	return nil
}

// attachTools fills the injected tool dependencies that are still nil.
// Required tools are checked up front so a missing one fails before any work.
func attachTools(opts *preview.Options, logger *slog.Logger) error {
	exec := runner.NewExecRunner(opts.Logger)

	if opts.Table && opts.TableFormatter == nil {
		csvkit, err := tools.NewCsvkit(exec, opts.Tools.Csvcut, opts.Tools.Csvlook)
		if err != nil {
			return fmt.Errorf("%w: %w", preview.ErrConfigValidation, err)
		}
		if err := csvkit.Check(); err != nil {
			return fmt.Errorf("table formatting (-c) needs csvkit: %w", err)
		}
		opts.TableFormatter = csvkit
	}

	if needsConverter(opts) && opts.DocumentConverter == nil {
		pandoc, err := tools.NewPandoc(exec, opts.Tools.Pandoc)
		if err != nil {
			return fmt.Errorf("%w: %w", preview.ErrConfigValidation, err)
		}
		if err := pandoc.Check(); err != nil {
			return fmt.Errorf("%s output needs pandoc: %w", opts.FormatRaw, err)
		}
		opts.DocumentConverter = pandoc
	}

	if opts.Interactive && opts.Chooser == nil {
		fzf, err := tools.NewFzf(exec, opts.Tools.Fzf)
		if err != nil {
			return fmt.Errorf("%w: %w", preview.ErrConfigValidation, err)
		}
		switch checkErr := fzf.Check(); {
		case checkErr == nil:
			opts.Chooser = fzf
		case ui.IsTerminal():
			logger.Info("fzf not found, using the built-in picker")
			opts.Chooser = ui.NewPicker(nil, nil)
		default:
			return fmt.Errorf("interactive selection (-i) needs fzf or a terminal: %w", checkErr)
		}
	}

	if opts.Compress && opts.Compressor == nil && opts.Tools.Gzip != "" {
		gz, err := tools.NewGzipCommand(exec, opts.Tools.Gzip)
		if err != nil {
			return fmt.Errorf("%w: %w", preview.ErrConfigValidation, err)
		}
		opts.Compressor = gz
	}
	return nil
}

func needsConverter(opts *preview.Options) bool {
	if opts.Format != "" {
		return opts.Format != preview.FormatMarkdown
	}
	f, ok := preview.ParseFormat(strings.ToLower(strings.TrimSpace(opts.FormatRaw)))
	return ok && f != preview.FormatMarkdown
}
