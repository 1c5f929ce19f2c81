package preview

import (
	"bufio"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// compression describes one supported compressed-input suffix.
type compression struct {
	mime string
	open func(io.Reader) (io.ReadCloser, error)
}

var compressedSuffixes = map[string]compression{
	".gz":   {mime: "application/gzip", open: openGzip},
	".gzip": {mime: "application/gzip", open: openGzip},
	".zst":  {mime: "application/zstd", open: openZstd},
	".bz2":  {mime: "application/x-bzip2", open: openBzip2},
}

func openGzip(r io.Reader) (io.ReadCloser, error) { return gzip.NewReader(r) }

func openZstd(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

func openBzip2(r io.Reader) (io.ReadCloser, error) { return io.NopCloser(bzip2.NewReader(r)), nil }

// Scratch is a private directory holding the working copies of one file.
// Close removes it and everything inside.
type Scratch struct {
	dir string
}

// OpenScratch creates a new scratch directory under the system temp dir.
func OpenScratch() (*Scratch, error) {
	dir, err := os.MkdirTemp("", "csv-preview-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

// Dir returns the scratch directory path.
func (s *Scratch) Dir() string { return s.dir }

// Create opens a new file inside the scratch directory.
func (s *Scratch) Create(name string) (*os.File, error) {
	return os.Create(filepath.Join(s.dir, filepath.Base(name)))
}

// Close removes the scratch directory.
func (s *Scratch) Close() error { return os.RemoveAll(s.dir) }

// Prepared is the effective input for rendering.
type Prepared struct {
	Path         string // File to read; the original path if no step applied
	Delimiter    string // Single-character delimiter of Path
	Decompressed bool
	Normalized   bool
}

// Preprocessor decompresses inputs and normalizes multi-character delimiters.
type Preprocessor struct {
	opts   *Options
	logger *slog.Logger
}

// NewPreprocessor creates a Preprocessor.
func NewPreprocessor(opts *Options, loggerHandler slog.Handler) *Preprocessor {
	return &Preprocessor{
		opts:   opts,
		logger: slog.New(loggerHandler).With(slog.String("component", "preprocessor")),
	}
}

// Prepare runs decompression then delimiter normalization, writing working copies into sc.
func (p *Preprocessor) Prepare(ctx context.Context, path string, sc *Scratch) (Prepared, error) {
	out := Prepared{Path: path, Delimiter: p.opts.Delimiter}

	if comp, ok := compressedSuffixes[strings.ToLower(filepath.Ext(path))]; ok {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		decompressed, err := p.decompress(path, comp, sc)
		if err != nil {
			return out, fmt.Errorf("%w: %s: %w", ErrDecompressionFailed, path, err)
		}
		out.Path, out.Decompressed = decompressed, true
		p.logger.Debug("Decompressed input", slog.String("path", path), slog.String("scratch", decompressed))
	}

	if len(p.opts.Delimiter) > 1 {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		normalized, err := normalizeDelimiter(out.Path, p.opts.Delimiter, sc)
		if err != nil {
			return out, fmt.Errorf("%w: %s: %w", ErrPrepareFailed, path, err)
		}
		out.Path, out.Delimiter, out.Normalized = normalized, ",", true
		p.logger.Debug("Normalized delimiter", slog.String("path", path), slog.String("delimiter", p.opts.Delimiter))
	}
	return out, nil
}

func (p *Preprocessor) decompress(path string, comp compression, sc *Scratch) (string, error) {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	if !mime.Is(comp.mime) {
		return "", fmt.Errorf("content is %s, expected %s", mime.String(), comp.mime)
	}

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	r, err := comp.open(src)
	if err != nil {
		return "", err
	}
	defer r.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dst, err := sc.Create("decompressed-" + name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return dst.Name(), nil
}

// normalizeDelimiter rewrites every line of path, splitting on the exact
// delimiter sequence and rejoining with ','. Quoted fields are not protected.
func normalizeDelimiter(path, delimiter string, sc *Scratch) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := sc.Create("normalized-" + filepath.Base(path))
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(dst)
	r := bufio.NewReader(src)
	for {
		line, readErr := r.ReadString('\n')
		if line != "" {
			if _, err := w.WriteString(strings.Join(strings.Split(line, delimiter), ",")); err != nil {
				_ = dst.Close()
				return "", err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			_ = dst.Close()
			return "", readErr
		}
	}
	if err := w.Flush(); err != nil {
		_ = dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return dst.Name(), nil
}
