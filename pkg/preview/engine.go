package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Engine runs validation, preprocessing and rendering for each candidate,
// either sequentially or on a bounded worker pool.
type Engine struct {
	opts         *Options
	logger       *slog.Logger
	preprocessor *Preprocessor
	renderer     *SectionRenderer
	concurrency  int
}

// FileResult is the outcome of one file's unit of work.
type FileResult struct {
	Section FileSection
	File    *FileInfo    // Set for rendered files
	Skipped *SkippedInfo // Set for placeholder sections
}

// NewEngine creates an Engine. The renderer is built from the embedded section template.
func NewEngine(opts *Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	renderer, err := NewSectionRenderer(opts, opts.Logger, nil)
	if err != nil {
		return nil, err
	}

	concurrency := 1
	if opts.Parallel {
		concurrency = opts.Concurrency
		if concurrency <= 0 {
			concurrency = runtime.NumCPU()
			logger.Debug("Concurrency auto-detected", "count", concurrency)
		}
	}

	return &Engine{
		opts:         opts,
		logger:       logger,
		preprocessor: NewPreprocessor(opts, opts.Logger),
		renderer:     renderer,
		concurrency:  concurrency,
	}, nil
}

// Concurrency returns the number of workers Run uses.
func (e *Engine) Concurrency() int { return e.concurrency }

// Run processes candidates and returns their sections in candidate order,
// regardless of the mode. Only cancellation or a rendering fault is fatal.
func (e *Engine) Run(ctx context.Context, candidates []FileCandidate) ([]FileResult, error) {
	results := make([]FileResult, len(candidates))

	if e.concurrency <= 1 {
		for i, cand := range candidates {
			res, err := e.processFile(ctx, cand)
			if err != nil {
				return results[:i], err
			}
			results[i] = res
		}
		return results, nil
	}

	e.logger.Debug("Starting worker pool", "count", e.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, cand := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := e.processFile(gctx, cand)
			if err != nil {
				return err
			}
			results[i] = res // each index is written by exactly one worker
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// processFile validates, prepares and renders one file. Per-file problems
// produce a skipped section; the returned error is reserved for fatal conditions.
func (e *Engine) processFile(ctx context.Context, cand FileCandidate) (FileResult, error) {
	if err := ctx.Err(); err != nil {
		return FileResult{}, err
	}
	start := time.Now()
	e.notify(cand, StatusProcessing, "", 0)

	info, err := Validate(cand.Path)
	if err != nil {
		return e.skip(cand, SkipReasonInvalid, err, start)
	}

	sc, err := OpenScratch()
	if err != nil {
		return FileResult{}, err
	}
	defer func() {
		if cerr := sc.Close(); cerr != nil {
			e.logger.Warn("Failed to remove scratch directory", slog.String("dir", sc.Dir()), slog.String("error", cerr.Error()))
		}
	}()

	prep, err := e.preprocessor.Prepare(ctx, cand.Path, sc)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return FileResult{}, err
		case errors.Is(err, ErrDecompressionFailed):
			return e.skip(cand, SkipReasonDecompress, err, start)
		default:
			return e.skip(cand, SkipReasonPrepare, err, start)
		}
	}

	section, err := e.renderer.Render(ctx, cand, info, prep)
	if err != nil {
		return FileResult{}, fmt.Errorf("rendering section for %s: %w", cand.Name, err)
	}

	duration := time.Since(start)
	msg := ""
	if len(section.Degraded) > 0 {
		msg = fmt.Sprintf("%d block(s) degraded", len(section.Degraded))
	}
	e.notify(cand, StatusSuccess, msg, duration)

	return FileResult{
		Section: section,
		File: &FileInfo{
			Path:         cand.Name,
			Anchor:       cand.Anchor,
			SizeBytes:    info.Size(),
			ModTime:      info.ModTime(),
			Decompressed: prep.Decompressed,
			Normalized:   prep.Normalized,
			DurationMs:   duration.Milliseconds(),
		},
	}, nil
}

func (e *Engine) skip(cand FileCandidate, reason string, cause error, start time.Time) (FileResult, error) {
	e.logger.Warn("Skipping file", slog.String("path", cand.Name), slog.String("reason", reason), slog.String("error", cause.Error()))
	section, err := e.renderer.RenderSkipped(cand, cause.Error())
	if err != nil {
		return FileResult{}, fmt.Errorf("rendering placeholder for %s: %w", cand.Name, err)
	}
	e.notify(cand, StatusSkipped, cause.Error(), time.Since(start))
	return FileResult{
		Section: section,
		Skipped: &SkippedInfo{Path: cand.Name, Reason: reason, Details: cause.Error()},
	}, nil
}

func (e *Engine) notify(cand FileCandidate, status Status, message string, d time.Duration) {
	if err := e.opts.EventHooks.OnFileStatusUpdate(cand.Name, status, message, d); err != nil {
		e.logger.Warn("OnFileStatusUpdate hook returned an error", slog.String("path", cand.Name), slog.String("error", err.Error()))
	}
}
