package tools

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKt/utils-toolkit/internal/cli/runner"
	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

// Csvkit implements preview.TableFormatter with csvcut and csvlook.
type Csvkit struct {
	csvcut  []string
	csvlook []string
	run     Runner
}

var _ preview.TableFormatter = (*Csvkit)(nil)

// NewCsvkit builds the formatter from optional command overrides.
func NewCsvkit(r Runner, csvcutCmd, csvlookCmd string) (*Csvkit, error) {
	cut, err := Argv(csvcutCmd, DefaultCsvcut)
	if err != nil {
		return nil, err
	}
	look, err := Argv(csvlookCmd, DefaultCsvlook)
	if err != nil {
		return nil, err
	}
	return &Csvkit{csvcut: cut, csvlook: look, run: r}, nil
}

// Check confirms both programs are installed.
func (c *Csvkit) Check() error {
	for _, argv := range [][]string{c.csvcut, c.csvlook} {
		if _, err := runner.LookPath(argv); err != nil {
			return fmt.Errorf("%w: %w", preview.ErrToolMissing, err)
		}
	}
	return nil
}

// Headers lists the column names of the first record, numbered by csvcut -n.
func (c *Csvkit) Headers(ctx context.Context, req preview.TableRequest) (string, error) {
	if len(req.Columns) == 0 {
		args := append(delimiterArgs(req.Delimiter), "-n", req.Path)
		return c.exec(ctx, with(c.csvcut, args...), nil)
	}
	projected, err := c.project(ctx, req)
	if err != nil {
		return "", err
	}
	return c.exec(ctx, with(c.csvcut, "-n"), projected)
}

// Preview renders the first req.MaxRows records as an aligned table.
func (c *Csvkit) Preview(ctx context.Context, req preview.TableRequest) (string, error) {
	maxRows := strconv.Itoa(req.MaxRows)
	if len(req.Columns) == 0 {
		args := append(delimiterArgs(req.Delimiter), "--max-rows", maxRows, req.Path)
		return c.exec(ctx, with(c.csvlook, args...), nil)
	}
	projected, err := c.project(ctx, req)
	if err != nil {
		return "", err
	}
	return c.exec(ctx, with(c.csvlook, "--max-rows", maxRows), projected)
}

// project runs csvcut -c and returns its comma-delimited output.
func (c *Csvkit) project(ctx context.Context, req preview.TableRequest) ([]byte, error) {
	args := append(delimiterArgs(req.Delimiter), "-c", strings.Join(req.Columns, ","), req.Path)
	res, err := c.run.Run(ctx, runner.Command{Argv: with(c.csvcut, args...)})
	if err != nil {
		return nil, fmt.Errorf("%w: column selection %q: %w", preview.ErrTableFormat, strings.Join(req.Columns, ","), err)
	}
	return res.Stdout, nil
}

func (c *Csvkit) exec(ctx context.Context, argv []string, stdin []byte) (string, error) {
	cmd := runner.Command{Argv: argv}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	res, err := c.run.Run(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("%w: %w", preview.ErrTableFormat, err)
	}
	return strings.TrimRight(string(res.Stdout), "\r\n"), nil
}

func delimiterArgs(d string) []string {
	if d == "" || d == "," {
		return nil
	}
	return []string{"-d", d}
}
