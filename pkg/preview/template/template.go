// Package template renders per-file report sections and provides the default
// stylesheet and pandoc template that are materialized beside the output.
package template

import (
	_ "embed" // Required for //go:embed
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

//go:embed section.md.tmpl
var sectionTemplateContent string

//go:embed default.css
var defaultStylesheet []byte

//go:embed default.latex
var defaultLatexTemplate []byte

// Block is one titled, fenced region of a section.
type Block struct {
	Title string
	Body  string
}

// SectionData holds the data passed to the section template.
type SectionData struct {
	Name        string
	Anchor      string
	ShowAnchor  bool // Only when the report carries a table of contents
	Skipped     bool
	SkippedText string
	Reason      string
	Blocks      []Block // Metadata, headers and preview, in that order, when enabled
}

// SectionExecutor renders a SectionData into Markdown.
type SectionExecutor interface {
	Execute(w io.Writer, data *SectionData) error
}

// GoTemplateExecutor implements SectionExecutor with text/template.
type GoTemplateExecutor struct {
	tmpl *template.Template
}

// NewGoTemplateExecutor parses the embedded section template.
func NewGoTemplateExecutor() (*GoTemplateExecutor, error) {
	tmpl, err := LoadSectionTemplate()
	if err != nil {
		return nil, err
	}
	return &GoTemplateExecutor{tmpl: tmpl}, nil
}

// Execute renders data, wrapping any template error.
func (e *GoTemplateExecutor) Execute(w io.Writer, data *SectionData) error {
	if err := e.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("template execution failed for %q: %w", e.tmpl.Name(), err)
	}
	return nil
}

// Fence wraps body in a fenced literal region. The fence is one backtick
// longer than the longest backtick run in body, and at least three.
func Fence(body string) string {
	longest, run := 0, 0
	for _, r := range body {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	n := 3
	if longest >= n {
		n = longest + 1
	}
	fence := strings.Repeat("`", n)
	return fence + "\n" + strings.TrimRight(body, "\r\n") + "\n" + fence
}

// LoadSectionTemplate parses the embedded section template with sprig and custom functions.
func LoadSectionTemplate() (*template.Template, error) {
	if sectionTemplateContent == "" {
		return nil, errors.New("embedded section template content is empty")
	}
	funcs := sprig.TxtFuncMap()
	funcs["fence"] = Fence
	tmpl, err := template.New("section").Funcs(funcs).Parse(sectionTemplateContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse section template: %w", err)
	}
	return tmpl, nil
}

// Stylesheet returns the default HTML stylesheet.
func Stylesheet() []byte { return defaultStylesheet }

// LatexTemplate returns the default pandoc LaTeX template used for PDF output.
func LatexTemplate() []byte { return defaultLatexTemplate }

// Materialize writes content to dir/name unless that file already exists,
// and returns the path. An existing file is reused untouched.
func Materialize(dir, name string, content []byte) (string, error) {
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("cannot materialize %q: path is a directory", path)
		}
		return path, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("cannot access %q: %w", path, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create directory %q: %w", dir, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("cannot write %q: %w", path, err)
	}
	return path, nil
}
