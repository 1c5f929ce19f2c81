package preview

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ValentinKt/utils-toolkit/pkg/preview/encoding"
	"github.com/ValentinKt/utils-toolkit/pkg/preview/template"
)

// Outcome tags the result of a tiered strategy.
type Outcome int

const (
	// OutcomeSuccess means the preferred tier produced the text.
	OutcomeSuccess Outcome = iota
	// OutcomeDegraded means a simpler tier produced the text.
	OutcomeDegraded
	// OutcomeFailed means no tier produced text.
	OutcomeFailed
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "failed"
	}
}

// Tier names the method that produced a block.
type Tier string

const (
	TierFiltered Tier = "filtered-tool"
	TierTool     Tier = "tool"
	TierRaw      Tier = "raw"
)

// Tiered is the tagged result of a fallback chain.
type Tiered struct {
	Outcome Outcome
	Text    string
	Tier    Tier   // Tier that produced Text; empty when Failed
	Reason  string // Why the preferred tier was not used; empty on Success
}

// Block names used in headings and degradation records.
const (
	blockMetadata = "Metadata"
	blockHeaders  = "Headers"
	blockPreview  = "Preview"
)

// SectionRenderer produces the Markdown section for one file.
type SectionRenderer struct {
	opts     *Options
	logger   *slog.Logger
	executor template.SectionExecutor
	encoding encoding.EncodingHandler
}

// NewSectionRenderer creates a SectionRenderer. A nil executor uses the embedded template.
func NewSectionRenderer(opts *Options, loggerHandler slog.Handler, executor template.SectionExecutor) (*SectionRenderer, error) {
	if executor == nil {
		def, err := template.NewGoTemplateExecutor()
		if err != nil {
			return nil, err
		}
		executor = def
	}
	enc := opts.EncodingHandler
	if enc == nil {
		enc = encoding.NewCharsetHandler("")
	}
	return &SectionRenderer{
		opts:     opts,
		logger:   slog.New(loggerHandler).With(slog.String("component", "renderer")),
		executor: executor,
		encoding: enc,
	}, nil
}

// Render builds the full section for a validated, prepared file.
func (r *SectionRenderer) Render(ctx context.Context, cand FileCandidate, info os.FileInfo, prep Prepared) (FileSection, error) {
	section := FileSection{Candidate: cand, Status: StatusSuccess}
	data := &template.SectionData{
		Name:       cand.Name,
		Anchor:     cand.Anchor,
		ShowAnchor: r.opts.TOC,
	}

	if r.opts.ShowMetadata {
		lines, unknown := metadataLines(info, r.opts.MetadataFields)
		for _, u := range unknown {
			r.logger.Warn("Unknown metadata field", slog.String("field", u), slog.String("path", cand.Name))
		}
		data.Blocks = append(data.Blocks, template.Block{Title: blockMetadata, Body: strings.Join(lines, "\n")})
	}

	var raw *rawText
	loadRaw := func() (*rawText, error) {
		if raw != nil {
			return raw, nil
		}
		rt, err := r.readRaw(prep.Path, r.opts.Lines)
		if err != nil {
			return nil, err
		}
		raw = rt
		return raw, nil
	}

	if r.opts.ShowHeaders {
		res := r.tiered(ctx, TableRequest{Path: prep.Path, Delimiter: prep.Delimiter, Columns: r.opts.Columns},
			r.headersTool(), func() (string, error) {
				rt, err := loadRaw()
				if err != nil {
					return "", err
				}
				return rt.header, nil
			})
		section.Degraded = append(section.Degraded, r.record(cand, blockHeaders, res)...)
		data.Blocks = append(data.Blocks, template.Block{Title: blockHeaders, Body: blockBody(res)})
	}

	if r.opts.ShowLines {
		res := r.tiered(ctx, TableRequest{Path: prep.Path, Delimiter: prep.Delimiter, Columns: r.opts.Columns, MaxRows: r.opts.Lines},
			r.previewTool(), func() (string, error) {
				rt, err := loadRaw()
				if err != nil {
					return "", err
				}
				return strings.Join(rt.rows, "\n"), nil
			})
		section.Degraded = append(section.Degraded, r.record(cand, blockPreview, res)...)
		data.Blocks = append(data.Blocks, template.Block{Title: fmt.Sprintf("First %d lines", r.opts.Lines), Body: blockBody(res)})
	}

	if err := ctx.Err(); err != nil {
		return section, err
	}

	var buf bytes.Buffer
	if err := r.executor.Execute(&buf, data); err != nil {
		return section, err
	}
	section.Text = buf.String()
	return section, nil
}

// RenderSkipped builds the placeholder section for a file that failed validation or preprocessing.
func (r *SectionRenderer) RenderSkipped(cand FileCandidate, reason string) (FileSection, error) {
	section := FileSection{Candidate: cand, Status: StatusSkipped, Reason: reason}
	var buf bytes.Buffer
	err := r.executor.Execute(&buf, &template.SectionData{
		Name:        cand.Name,
		Anchor:      cand.Anchor,
		ShowAnchor:  r.opts.TOC,
		Skipped:     true,
		SkippedText: SkippedText,
		Reason:      reason,
	})
	if err != nil {
		return section, err
	}
	section.Text = buf.String()
	return section, nil
}

type toolCall func(ctx context.Context, req TableRequest) (string, error)

func (r *SectionRenderer) headersTool() toolCall {
	if !r.opts.Table || r.opts.TableFormatter == nil {
		return nil
	}
	return r.opts.TableFormatter.Headers
}

func (r *SectionRenderer) previewTool() toolCall {
	if !r.opts.Table || r.opts.TableFormatter == nil {
		return nil
	}
	return r.opts.TableFormatter.Preview
}

// tiered runs filtered tool, unfiltered tool, then raw, skipping tiers that do not apply.
func (r *SectionRenderer) tiered(ctx context.Context, req TableRequest, tool toolCall, raw func() (string, error)) Tiered {
	var reasons []string

	if tool != nil {
		if len(req.Columns) > 0 {
			out, err := tool(ctx, req)
			if err == nil {
				return Tiered{Outcome: OutcomeSuccess, Text: out, Tier: TierFiltered}
			}
			reasons = append(reasons, fmt.Sprintf("column filter: %v", err))
			req.Columns = nil
		}
		out, err := tool(ctx, req)
		if err == nil {
			if len(reasons) == 0 {
				return Tiered{Outcome: OutcomeSuccess, Text: out, Tier: TierTool}
			}
			return Tiered{Outcome: OutcomeDegraded, Text: out, Tier: TierTool, Reason: strings.Join(reasons, "; ")}
		}
		reasons = append(reasons, fmt.Sprintf("table tool: %v", err))
	}

	out, err := raw()
	if err != nil {
		reasons = append(reasons, fmt.Sprintf("raw read: %v", err))
		return Tiered{Outcome: OutcomeFailed, Reason: strings.Join(reasons, "; ")}
	}
	if len(reasons) == 0 {
		return Tiered{Outcome: OutcomeSuccess, Text: out, Tier: TierRaw}
	}
	return Tiered{Outcome: OutcomeDegraded, Text: out, Tier: TierRaw, Reason: strings.Join(reasons, "; ")}
}

func (r *SectionRenderer) record(cand FileCandidate, block string, res Tiered) []DegradedInfo {
	if res.Outcome == OutcomeSuccess {
		return nil
	}
	r.logger.Warn("Block fell back to a simpler method",
		slog.String("path", cand.Name),
		slog.String("block", block),
		slog.String("outcome", res.Outcome.String()),
		slog.String("tier", string(res.Tier)),
		slog.String("reason", res.Reason),
	)
	tier := string(res.Tier)
	if res.Outcome == OutcomeFailed {
		tier = "none"
	}
	return []DegradedInfo{{Path: cand.Name, Block: block, Tier: tier, Reason: res.Reason}}
}

func blockBody(res Tiered) string {
	if res.Outcome == OutcomeFailed {
		return "unavailable: " + res.Reason
	}
	return res.Text
}

// rawText holds the decoded leading lines of a file.
type rawText struct {
	header string
	rows   []string
}

// readRaw reads the first line and up to n following lines, decoded to UTF-8.
// A sample that looks binary returns ErrBinaryContent.
func (r *SectionRenderer) readRaw(path string, n int) (*rawText, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	br := bufio.NewReader(f)
	for i := 0; i <= n; i++ {
		line, readErr := br.ReadBytes('\n')
		buf.Write(line)
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, readErr
		}
	}

	if r.encoding.IsBinary(buf.Bytes()) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryContent, path)
	}

	text, enc, err := r.encoding.Decode(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if enc != "utf-8" {
		r.logger.Debug("Decoded non-UTF-8 input", slog.String("path", path), slog.String("encoding", enc))
	}

	lines := strings.Split(strings.TrimRight(text, "\r\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	rt := &rawText{header: lines[0]}
	if len(lines) > 1 {
		rt.rows = lines[1:]
	}
	return rt, nil
}
