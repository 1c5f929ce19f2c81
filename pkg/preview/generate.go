package preview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ParseColumns splits a comma-separated column selector. Entries are names
// or 1-based indices and are passed to the table tool unchanged.
func ParseColumns(raw string) []string {
	var cols []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			cols = append(cols, p)
		}
	}
	return cols
}

// ResolveOptions derives Format, Columns and MetadataFields from their raw
// forms, applies defaults and validates the result. Advisory problems are
// returned as warnings; invalid values return an error wrapping ErrConfigValidation.
func ResolveOptions(opts *Options) ([]string, error) {
	var warnings []string

	if opts.FormatRaw != "" {
		f, ok := ParseFormat(strings.ToLower(strings.TrimSpace(opts.FormatRaw)))
		if !ok {
			return nil, fmt.Errorf("%w: invalid format '%s' (must be md, html or pdf)", ErrConfigValidation, opts.FormatRaw)
		}
		opts.Format = f
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	if _, ok := ParseFormat(string(opts.Format)); !ok {
		return nil, fmt.Errorf("%w: invalid format '%s' (must be md, html or pdf)", ErrConfigValidation, opts.Format)
	}

	if opts.Delimiter == "" {
		return nil, fmt.Errorf("%w: delimiter cannot be empty", ErrConfigValidation)
	}
	if opts.Lines <= 0 {
		return nil, fmt.Errorf("%w: line count must be a positive integer, got %d", ErrConfigValidation, opts.Lines)
	}
	if opts.Concurrency < 0 {
		return nil, fmt.Errorf("%w: concurrency cannot be negative, got %d", ErrConfigValidation, opts.Concurrency)
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}

	switch opts.TOCMode {
	case "":
		opts.TOCMode = DefaultTOCMode
	case TOCModeMarker, TOCModeNative:
	default:
		return nil, fmt.Errorf("%w: invalid toc mode '%s' (must be marker or native)", ErrConfigValidation, opts.TOCMode)
	}
	if opts.TOC && opts.TOCMode == TOCModeNative && opts.Format == FormatMarkdown {
		warnings = append(warnings, "native TOC requires html or pdf output; using the marker TOC")
		opts.TOCMode = TOCModeMarker
	}

	switch opts.SummaryFormat {
	case "":
		opts.SummaryFormat = DefaultSummaryFormat
	case SummaryFormatText, SummaryFormatJSON, SummaryFormatNone:
	default:
		return nil, fmt.Errorf("%w: invalid summary format '%s' (must be text, json or none)", ErrConfigValidation, opts.SummaryFormat)
	}

	if opts.CSSPath != "" && opts.Format != FormatHTML {
		warnings = append(warnings, fmt.Sprintf("CSS file '%s' is only used for html output; ignoring", opts.CSSPath))
		opts.CSSPath = ""
	}
	if opts.TemplatePath != "" && opts.Format != FormatPDF {
		warnings = append(warnings, fmt.Sprintf("template '%s' is only used for pdf output; ignoring", opts.TemplatePath))
		opts.TemplatePath = ""
	}

	if opts.ColumnsRaw != "" {
		opts.Columns = ParseColumns(opts.ColumnsRaw)
	}
	if len(opts.Columns) > 0 && !opts.Table {
		warnings = append(warnings, "column filter requires table formatting (-c); ignoring")
		opts.Columns = nil
	}

	if opts.MetadataRaw != "" {
		opts.MetadataFields = ParseMetadataFields(opts.MetadataRaw)
	}
	if opts.ShowMetadata && len(opts.MetadataFields) == 0 {
		opts.MetadataFields = ParseMetadataFields(DefaultMetadata)
	}
	for _, f := range opts.MetadataFields {
		if !f.IsKnown() {
			warnings = append(warnings, fmt.Sprintf("unknown metadata field '%s'", f))
		}
	}
	if !opts.Parallel && opts.Concurrency > 0 {
		warnings = append(warnings, "concurrency has no effect without parallel processing (-P)")
	}
	return warnings, nil
}

// Generate selects the candidate files, renders every section, assembles the
// report and writes the final artifact. The returned Report is populated
// even when an error is returned after selection.
func Generate(ctx context.Context, opts Options) (Report, error) {
	start := time.Now()
	if opts.Logger == nil {
		return Report{}, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "generate"))

	warnings, err := ResolveOptions(&opts)
	if err != nil {
		return Report{}, err
	}
	for _, w := range warnings {
		logger.Warn(w)
	}
	if opts.Table && opts.TableFormatter == nil {
		return Report{}, fmt.Errorf("%w: table formatting requested but no table formatter is configured", ErrToolMissing)
	}
	if opts.Format != FormatMarkdown && opts.DocumentConverter == nil {
		return Report{}, fmt.Errorf("%w: %s output requires a document converter", ErrToolMissing, opts.Format)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}

	report := Report{Summary: ReportSummary{
		Pattern:        opts.Pattern,
		OutputPath:     OutputPathFor(opts.OutputPath, opts.Format),
		Format:         opts.Format,
		ProfileUsed:    opts.ProfileName,
		ConfigFilePath: opts.ConfigFilePath,
		Parallel:       opts.Parallel,
		WarningCount:   len(warnings),
		SchemaVersion:  ReportSchemaVersion,
	}}
	finish := func(err error) (Report, error) {
		report.Summary.FatalErrorOccurred = err != nil
		report.Summary.DurationSeconds = time.Since(start).Seconds()
		report.Summary.Timestamp = opts.now().UTC()
		if hookErr := opts.EventHooks.OnRunComplete(report); hookErr != nil {
			logger.Warn("OnRunComplete hook returned an error", slog.String("error", hookErr.Error()))
		}
		return report, err
	}

	candidates, err := NewSelector(&opts, opts.Logger).Select(ctx)
	if err != nil {
		return finish(err)
	}
	report.Summary.TotalFiles = len(candidates)

	engine, err := NewEngine(&opts)
	if err != nil {
		return finish(err)
	}
	report.Summary.Concurrency = engine.Concurrency()

	logger.Info("Starting preview run", slog.Int("files", len(candidates)), slog.Bool("parallel", opts.Parallel), slog.Int("concurrency", engine.Concurrency()))
	if hookErr := opts.EventHooks.OnRunStart(len(candidates)); hookErr != nil {
		logger.Warn("OnRunStart hook returned an error", slog.String("error", hookErr.Error()))
	}

	results, err := engine.Run(ctx, candidates)
	if err != nil {
		return finish(fmt.Errorf("processing stopped: %w", err))
	}

	sections := make([]FileSection, 0, len(results))
	for _, r := range results {
		sections = append(sections, r.Section)
		switch {
		case r.File != nil:
			report.RenderedFiles = append(report.RenderedFiles, *r.File)
		case r.Skipped != nil:
			report.SkippedFiles = append(report.SkippedFiles, *r.Skipped)
		}
		report.Degraded = append(report.Degraded, r.Section.Degraded...)
	}
	report.Summary.RenderedCount = len(report.RenderedFiles)
	report.Summary.SkippedCount = len(report.SkippedFiles)
	report.Summary.DegradedCount = len(report.Degraded)

	doc := Assemble(&opts, sections)

	art, err := NewFinalizer(&opts, opts.Logger).Finalize(ctx, doc)
	report.Summary.OutputPath = art.Path
	report.Summary.Compressed = art.Compressed
	report.Summary.PageCount = art.PageCount
	if err != nil {
		return finish(err)
	}

	logger.Info("Preview run finished",
		slog.String("output", art.Path),
		slog.Int("rendered", report.Summary.RenderedCount),
		slog.Int("skipped", report.Summary.SkippedCount),
		slog.Int("degraded", report.Summary.DegradedCount),
		slog.Duration("duration", time.Since(start)),
	)
	return finish(nil)
}
