package tools

import (
	"context"
	"fmt"

	"github.com/ValentinKt/utils-toolkit/internal/cli/runner"
	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

// Pandoc implements preview.DocumentConverter.
type Pandoc struct {
	argv []string
	run  Runner
}

var _ preview.DocumentConverter = (*Pandoc)(nil)

// NewPandoc builds the converter from an optional command override.
func NewPandoc(r Runner, pandocCmd string) (*Pandoc, error) {
	argv, err := Argv(pandocCmd, DefaultPandoc)
	if err != nil {
		return nil, err
	}
	return &Pandoc{argv: argv, run: r}, nil
}

// Check confirms pandoc is installed.
func (p *Pandoc) Check() error {
	if _, err := runner.LookPath(p.argv); err != nil {
		return fmt.Errorf("%w: %w", preview.ErrToolMissing, err)
	}
	return nil
}

// Args returns the pandoc arguments for req, without the program itself.
func (p *Pandoc) Args(req preview.ConvertRequest) []string {
	args := []string{"-f", "markdown", "-s"}
	// The document already opens with the title heading; pagetitle only names the page.
	if req.Title != "" {
		args = append(args, "--metadata", "pagetitle="+req.Title)
	}
	switch req.Format {
	case preview.FormatHTML:
		args = append(args, "-t", "html5")
		if req.CSSPath != "" {
			args = append(args, "--css", req.CSSPath)
		}
	case preview.FormatPDF:
		if req.TemplatePath != "" {
			args = append(args, "--template", req.TemplatePath)
		}
	}
	if req.NativeTOC {
		args = append(args, "--toc")
	}
	return append(args, "-o", req.OutputPath, req.InputPath)
}

// Convert runs pandoc. Any failure wraps preview.ErrConversionFailed.
func (p *Pandoc) Convert(ctx context.Context, req preview.ConvertRequest) error {
	if _, err := p.run.Run(ctx, runner.Command{Argv: with(p.argv, p.Args(req)...)}); err != nil {
		return fmt.Errorf("%w: %w", preview.ErrConversionFailed, err)
	}
	return nil
}
