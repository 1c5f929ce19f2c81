// Package tools adapts the external command-line tools (csvkit, pandoc, fzf,
// gzip) to the capability interfaces of pkg/preview.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/ValentinKt/utils-toolkit/internal/cli/runner"
)

// Default program names.
const (
	DefaultCsvcut  = "csvcut"
	DefaultCsvlook = "csvlook"
	DefaultPandoc  = "pandoc"
	DefaultFzf     = "fzf"
	DefaultGzip    = "gzip"
)

// Runner executes one command. *runner.ExecRunner implements it.
type Runner interface {
	Run(ctx context.Context, cmd runner.Command) (runner.Result, error)
}

// Argv splits a configured command line with shell quoting rules, falling
// back to def when the override is blank.
func Argv(override, def string) ([]string, error) {
	if strings.TrimSpace(override) == "" {
		return []string{def}, nil
	}
	argv, err := shlex.Split(override)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", override, err)
	}
	if len(argv) == 0 {
		return []string{def}, nil
	}
	return argv, nil
}

// with returns a fresh argv made of base followed by args.
func with(base []string, args ...string) []string {
	out := make([]string, 0, len(base)+len(args))
	out = append(out, base...)
	return append(out, args...)
}
