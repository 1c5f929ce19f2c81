package tools

import (
	"context"
	"fmt"

	"github.com/ValentinKt/utils-toolkit/internal/cli/runner"
	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

// GzipCommand implements preview.Compressor with an external gzip-compatible program.
type GzipCommand struct {
	argv []string
	run  Runner
}

var _ preview.Compressor = (*GzipCommand)(nil)

// NewGzipCommand builds the compressor from a command line such as "pigz -9".
func NewGzipCommand(r Runner, gzipCmd string) (*GzipCommand, error) {
	argv, err := Argv(gzipCmd, DefaultGzip)
	if err != nil {
		return nil, err
	}
	return &GzipCommand{argv: argv, run: r}, nil
}

// Compress runs "<gzip> -f path". A missing program wraps preview.ErrToolMissing.
func (g *GzipCommand) Compress(ctx context.Context, path string) (string, error) {
	if _, err := runner.LookPath(g.argv); err != nil {
		return "", fmt.Errorf("%w: %w", preview.ErrToolMissing, err)
	}
	if _, err := g.run.Run(ctx, runner.Command{Argv: with(g.argv, "-f", path)}); err != nil {
		return "", err
	}
	return path + ".gz", nil
}
