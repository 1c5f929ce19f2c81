package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Selector expands the configured glob pattern into an ordered candidate list,
// optionally filtered through the interactive Chooser.
type Selector struct {
	opts   *Options
	logger *slog.Logger
}

// NewSelector creates a new Selector instance.
func NewSelector(opts *Options, loggerHandler slog.Handler) *Selector {
	return &Selector{
		opts:   opts,
		logger: slog.New(loggerHandler).With(slog.String("component", "selector")),
	}
}

// Select returns the candidates in byte-lexicographic order of their names.
// An empty match returns ErrNoFiles; an empty interactive selection returns ErrNoSelection.
func (s *Selector) Select(ctx context.Context) ([]FileCandidate, error) {
	names, err := s.expand()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		s.logger.Debug("Pattern matched nothing", slog.String("pattern", s.opts.Pattern), slog.String("workDir", s.baseDir()))
		return nil, fmt.Errorf("%w matching pattern '%s'", ErrNoFiles, s.opts.Pattern)
	}
	sort.Strings(names)
	s.logger.Debug("Pattern expanded", slog.String("pattern", s.opts.Pattern), slog.Int("matches", len(names)))

	if s.opts.Interactive {
		if s.opts.Chooser == nil {
			return nil, fmt.Errorf("%w: interactive selection requested but no chooser is available", ErrToolMissing)
		}
		chosen, err := s.opts.Chooser.Choose(ctx, names)
		if err != nil {
			return nil, fmt.Errorf("interactive selection failed: %w", err)
		}
		names = s.keepKnown(names, chosen)
		if len(names) == 0 {
			return nil, ErrNoSelection
		}
		sort.Strings(names)
		s.logger.Debug("Interactive selection complete", slog.Int("selected", len(names)))
	}

	candidates := make([]FileCandidate, 0, len(names))
	used := make(map[string]bool, len(names))
	for _, name := range names {
		c := NewFileCandidate(s.resolve(name))
		c.Name = name
		c.Anchor = uniqueAnchor(Anchor(name), used)
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// uniqueAnchor suffixes -2, -3, ... when names such as "a.csv" and "a-csv"
// collapse to the same anchor.
func uniqueAnchor(anchor string, used map[string]bool) string {
	candidate := anchor
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", anchor, n)
	}
	used[candidate] = true
	return candidate
}

// expand runs the glob. Relative patterns are matched against the work
// directory and reported relative to it; absolute patterns are reported as-is.
func (s *Selector) expand() ([]string, error) {
	pattern := s.opts.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	if filepath.IsAbs(pattern) {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid glob pattern '%s': %w", ErrConfigValidation, pattern, err)
		}
		return matches, nil
	}
	if clean := filepath.Clean(pattern); clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return s.expandParent(clean)
	}
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	matches, err := doublestar.Glob(os.DirFS(s.baseDir()), pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid glob pattern '%s': %w", ErrConfigValidation, pattern, err)
	}
	for i, m := range matches {
		matches[i] = filepath.FromSlash(m)
	}
	return matches, nil
}

// expandParent handles patterns that climb out of the work directory, which
// an fs.FS rooted there cannot reach. Matches stay relative to the work directory.
func (s *Selector) expandParent(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(s.baseDir(), pattern))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid glob pattern '%s': %w", ErrConfigValidation, pattern, err)
	}
	for i, m := range matches {
		rel, err := filepath.Rel(s.baseDir(), m)
		if err != nil {
			return nil, fmt.Errorf("cannot relate '%s' to work directory: %w", m, err)
		}
		matches[i] = rel
	}
	return matches, nil
}

func (s *Selector) baseDir() string {
	if s.opts.WorkDir == "" {
		return "."
	}
	return s.opts.WorkDir
}

func (s *Selector) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.baseDir(), name)
}

// keepKnown returns the chosen names that were offered, deduplicated.
func (s *Selector) keepKnown(offered, chosen []string) []string {
	known := make(map[string]struct{}, len(offered))
	for _, n := range offered {
		known[n] = struct{}{}
	}
	seen := make(map[string]struct{}, len(chosen))
	kept := make([]string, 0, len(chosen))
	for _, c := range chosen {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := known[c]; !ok {
			s.logger.Warn("Ignoring selection that was not offered", slog.String("path", c))
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		kept = append(kept, c)
	}
	return kept
}
