package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ValentinKt/utils-toolkit/internal/cli/runner"
	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

// fzf exit codes that mean "nothing selected".
const (
	fzfNoMatch   = 1
	fzfInterrupt = 130
)

// Fzf implements preview.Chooser with fzf --multi.
type Fzf struct {
	argv   []string
	run    Runner
	stderr io.Writer
}

var _ preview.Chooser = (*Fzf)(nil)

// NewFzf builds the chooser from an optional command override.
func NewFzf(r Runner, fzfCmd string) (*Fzf, error) {
	argv, err := Argv(fzfCmd, DefaultFzf)
	if err != nil {
		return nil, err
	}
	return &Fzf{argv: argv, run: r, stderr: os.Stderr}, nil
}

// Check confirms fzf is installed.
func (f *Fzf) Check() error {
	if _, err := runner.LookPath(f.argv); err != nil {
		return fmt.Errorf("%w: %w", preview.ErrToolMissing, err)
	}
	return nil
}

// Choose pipes candidates into fzf and returns the lines it prints.
// An aborted or empty selection returns no names and no error.
func (f *Fzf) Choose(ctx context.Context, candidates []string) ([]string, error) {
	res, err := f.run.Run(ctx, runner.Command{
		Argv:   with(f.argv, "--multi", "--prompt", "csv> "),
		Stdin:  strings.NewReader(strings.Join(candidates, "\n") + "\n"),
		Stderr: f.stderr,
	})
	if err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) && (exitErr.ExitCode == fzfNoMatch || exitErr.ExitCode == fzfInterrupt) {
			return nil, nil
		}
		return nil, err
	}
	var chosen []string
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			chosen = append(chosen, line)
		}
	}
	return chosen, nil
}
