package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ValentinKt/utils-toolkit/pkg/preview/template"
)

// Artifact describes the file a run produced.
type Artifact struct {
	Path       string
	Format     Format
	Compressed bool
	PageCount  int // pdf only
}

// OutputPathFor returns the artifact path for the requested format.
// html and pdf replace any extension the user supplied.
func OutputPathFor(output string, format Format) string {
	if output == "" {
		output = DefaultOutputPath
	}
	if format == FormatMarkdown || format == "" {
		return output
	}
	return strings.TrimSuffix(output, filepath.Ext(output)) + format.Extension()
}

// Finalizer writes the assembled document, converts it when needed and
// optionally compresses the result.
type Finalizer struct {
	opts   *Options
	logger *slog.Logger
}

// NewFinalizer creates a Finalizer.
func NewFinalizer(opts *Options, loggerHandler slog.Handler) *Finalizer {
	return &Finalizer{
		opts:   opts,
		logger: slog.New(loggerHandler).With(slog.String("component", "finalizer")),
	}
}

// Finalize produces the artifact for doc.
func (f *Finalizer) Finalize(ctx context.Context, doc string) (Artifact, error) {
	format := f.opts.Format
	if format == "" {
		format = FormatMarkdown
	}
	art := Artifact{Path: OutputPathFor(f.opts.OutputPath, format), Format: format}
	if art.Path != f.opts.OutputPath && f.opts.OutputPath != "" {
		f.logger.Debug("Output extension forced by format", slog.String("requested", f.opts.OutputPath), slog.String("path", art.Path))
	}

	outDir := filepath.Dir(art.Path)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return art, fmt.Errorf("%w: cannot create output directory '%s': %w", ErrWriteFailed, outDir, err)
	}

	if format == FormatMarkdown {
		if err := os.WriteFile(art.Path, []byte(doc), 0o644); err != nil {
			return art, fmt.Errorf("%w: %s: %w", ErrWriteFailed, art.Path, err)
		}
	} else {
		if err := f.convert(ctx, doc, art.Path, format); err != nil {
			return art, err
		}
		if format == FormatPDF {
			pages, err := pdfPageCount(art.Path)
			if err != nil {
				return art, fmt.Errorf("%w: produced PDF is unreadable: %w", ErrConversionFailed, err)
			}
			art.PageCount = pages
			f.logger.Debug("PDF verified", slog.String("path", art.Path), slog.Int("pages", pages))
		}
	}

	if f.opts.Compress {
		return f.compress(ctx, art)
	}
	return art, nil
}

func (f *Finalizer) convert(ctx context.Context, doc, target string, format Format) error {
	if f.opts.DocumentConverter == nil {
		return fmt.Errorf("%w: no document converter configured for %s output", ErrToolMissing, format)
	}

	sc, err := OpenScratch()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	defer sc.Close()

	md, err := sc.Create("report.md")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if _, err := md.WriteString(doc); err != nil {
		_ = md.Close()
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := md.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	req := ConvertRequest{
		InputPath:  md.Name(),
		OutputPath: target,
		Format:     format,
		Title:      f.opts.Title,
		NativeTOC:  f.opts.TOC && f.opts.TOCMode == TOCModeNative,
	}
	outDir := filepath.Dir(target)
	switch format {
	case FormatHTML:
		// The stylesheet path ends up in <link href>, resolved from the HTML file's directory.
		if f.opts.CSSPath != "" {
			if req.CSSPath, err = filepath.Abs(f.opts.CSSPath); err != nil {
				return fmt.Errorf("%w: cannot resolve stylesheet '%s': %w", ErrConfigValidation, f.opts.CSSPath, err)
			}
		} else {
			if _, err = template.Materialize(outDir, DefaultStylesheetName, template.Stylesheet()); err != nil {
				return fmt.Errorf("%w: %w", ErrWriteFailed, err)
			}
			req.CSSPath = DefaultStylesheetName
		}
	case FormatPDF:
		req.TemplatePath = f.opts.TemplatePath
		if req.TemplatePath == "" {
			if req.TemplatePath, err = template.Materialize(outDir, DefaultTemplateName, template.LatexTemplate()); err != nil {
				return fmt.Errorf("%w: %w", ErrWriteFailed, err)
			}
		}
	}

	f.logger.Debug("Converting document", slog.String("format", string(format)), slog.String("output", target))
	if err := f.opts.DocumentConverter.Convert(ctx, req); err != nil {
		if errors.Is(err, ErrConversionFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if info, err := os.Stat(target); err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: converter reported success but %s is missing or empty", ErrConversionFailed, target)
	}
	return nil
}

func (f *Finalizer) compress(ctx context.Context, art Artifact) (Artifact, error) {
	comp := f.opts.Compressor
	if comp == nil {
		comp = &GzipCompressor{}
	}
	out, err := comp.Compress(ctx, art.Path)
	if err != nil {
		if errors.Is(err, ErrToolMissing) {
			f.logger.Warn("Compression tool not available, keeping uncompressed output", slog.String("path", art.Path), slog.String("error", err.Error()))
			return art, nil
		}
		return art, fmt.Errorf("%w: %s: %w", ErrCompressionFailed, art.Path, err)
	}
	art.Path, art.Compressed = out, true
	return art, nil
}

func pdfPageCount(path string) (int, error) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer fh.Close()

	ctx, err := api.ReadValidateAndOptimize(fh, model.NewDefaultConfiguration())
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}
