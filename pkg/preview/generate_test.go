package preview_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKt/utils-toolkit/internal/testutil"
	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

// baseOptions mirrors the CLI defaults with a fixed clock and a discarded log.
func baseOptions(t *testing.T, workDir string) preview.Options {
	t.Helper()
	return preview.Options{
		WorkDir:     workDir,
		Pattern:     "*.csv",
		Delimiter:   ",",
		Lines:       10,
		ShowHeaders: true,
		ShowLines:   true,
		OutputPath:  filepath.Join(t.TempDir(), "report.md"),
		Format:      preview.FormatMarkdown,
		Logger:      testutil.DiscardHandler(),
		Clock:       testutil.FixedClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
	}
}

func generate(t *testing.T, opts preview.Options) (preview.Report, string) {
	t.Helper()
	report, err := preview.Generate(context.Background(), opts)
	require.NoError(t, err)
	doc, err := os.ReadFile(report.Summary.OutputPath)
	require.NoError(t, err)
	return report, string(doc)
}

func TestGenerate_SkippedEmptyFileAndOrdering(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "b.csv"), "id,name\n1,a\n2,b\n3,c\n")
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.csv"), "")
	opts := baseOptions(t, dir)
	opts.OmitTimestamp = true

	report, doc := generate(t, opts)

	expected := "# CSV Preview Report\n\n" +
		"## a.csv\n\n**Skipped due to errors**: file is empty\n" +
		"\n## b.csv\n\n" +
		"### Headers\n\n```\nid,name\n```\n\n" +
		"### First 10 lines\n\n```\n1,a\n2,b\n3,c\n```\n"
	assert.Equal(t, expected, doc)

	assert.Equal(t, 2, report.Summary.TotalFiles)
	assert.Equal(t, 1, report.Summary.RenderedCount)
	assert.Equal(t, 1, report.Summary.SkippedCount)
	require.Len(t, report.SkippedFiles, 1)
	assert.Equal(t, preview.SkipReasonInvalid, report.SkippedFiles[0].Reason)
	assert.False(t, report.Summary.FatalErrorOccurred)
}

func TestGenerate_PreviewLimitedToLines(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("n\n")
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&b, "%d\n", i)
	}
	testutil.CreateDummyFile(t, filepath.Join(dir, "n.csv"), b.String())
	opts := baseOptions(t, dir)
	opts.Lines = 3
	opts.ShowHeaders = false

	_, doc := generate(t, opts)
	assert.Contains(t, doc, "### First 3 lines\n\n```\n1\n2\n3\n```\n")
	assert.NotContains(t, doc, "### Headers")
}

func TestGenerate_MultiCharDelimiterRawFallback(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "p.csv"), "a||b||c\n1||x||y\n")
	opts := baseOptions(t, dir)
	opts.Delimiter = "||"
	opts.Table = true
	formatter := &testutil.MockTableFormatter{}
	formatter.On("Headers", mock.Anything, mock.Anything).Return("", errors.New("csvcut: not found"))
	formatter.On("Preview", mock.Anything, mock.MatchedBy(func(req preview.TableRequest) bool {
		return req.Delimiter == "," && req.MaxRows == 10
	})).Return("", errors.New("csvlook: not found"))
	opts.TableFormatter = formatter

	report, doc := generate(t, opts)
	assert.Contains(t, doc, "```\na,b,c\n```")
	assert.Contains(t, doc, "```\n1,x,y\n```")
	require.Len(t, report.Degraded, 2)
	assert.Equal(t, string(preview.TierRaw), report.Degraded[0].Tier)
	assert.True(t, report.RenderedFiles[0].Normalized)
}

func TestGenerate_ColumnFilterTiers(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "m.csv"), "id,name,amount\n1,a,9\n")
	filtered := mock.MatchedBy(func(req preview.TableRequest) bool { return len(req.Columns) == 2 })
	unfiltered := mock.MatchedBy(func(req preview.TableRequest) bool { return len(req.Columns) == 0 })

	newOpts := func(f *testutil.MockTableFormatter) preview.Options {
		opts := baseOptions(t, dir)
		opts.ShowLines = false
		opts.Table = true
		opts.ColumnsRaw = "id,name"
		opts.TableFormatter = f
		return opts
	}

	t.Run("filtered tool succeeds", func(t *testing.T) {
		f := &testutil.MockTableFormatter{}
		f.On("Headers", mock.Anything, filtered).Return("id,name", nil).Once()
		report, doc := generate(t, newOpts(f))
		assert.Contains(t, doc, "### Headers\n\n```\nid,name\n```\n")
		assert.Empty(t, report.Degraded)
		f.AssertExpectations(t)
	})

	t.Run("unresolvable columns fall back to unfiltered tool", func(t *testing.T) {
		f := &testutil.MockTableFormatter{}
		f.On("Headers", mock.Anything, filtered).Return("", errors.New("column not found")).Once()
		f.On("Headers", mock.Anything, unfiltered).Return("  1: id\n  2: name\n  3: amount", nil).Once()
		report, doc := generate(t, newOpts(f))
		assert.Contains(t, doc, "```\n  1: id\n  2: name\n  3: amount\n```")
		require.Len(t, report.Degraded, 1)
		assert.Equal(t, string(preview.TierTool), report.Degraded[0].Tier)
		assert.Contains(t, report.Degraded[0].Reason, "column not found")
		f.AssertExpectations(t)
	})

	t.Run("tool failure falls back to the raw first line", func(t *testing.T) {
		f := &testutil.MockTableFormatter{}
		f.On("Headers", mock.Anything, mock.Anything).Return("", errors.New("exit status 1")).Twice()
		report, doc := generate(t, newOpts(f))
		assert.Contains(t, doc, "### Headers\n\n```\nid,name,amount\n```\n")
		require.Len(t, report.Degraded, 1)
		assert.Equal(t, string(preview.TierRaw), report.Degraded[0].Tier)
		f.AssertExpectations(t)
	})
}

func TestGenerate_TOCEntriesMatchValidSections(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.csv"), "")
	testutil.CreateDummyFile(t, filepath.Join(dir, "b.csv"), "id\n1\n")
	testutil.CreateDummyFile(t, filepath.Join(dir, "c d.csv"), "id\n2\n")
	opts := baseOptions(t, dir)
	opts.TOC = true

	_, doc := generate(t, opts)

	assert.Contains(t, doc, "## Table of Contents\n\n- [b.csv](#b-csv)\n- [c d.csv](#c-d-csv)\n")
	assert.Contains(t, doc, "## b.csv {#b-csv}")
	assert.Contains(t, doc, "## c d.csv {#c-d-csv}")
	assert.Contains(t, doc, "## a.csv {#a-csv}")
	assert.NotContains(t, doc, "](#a-csv)")
	assert.NotContains(t, doc, preview.TOCMarker)
	assert.Less(t, strings.Index(doc, "Table of Contents"), strings.Index(doc, "## a.csv"))
}

func TestGenerate_IdempotentWithFixedClock(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.csv"), "id,name\n1,a\n")
	testutil.CreateDummyFile(t, filepath.Join(dir, "b.csv"), "x\n")
	require.NoError(t, os.Chmod(filepath.Join(dir, "a.csv"), 0o644))
	opts := baseOptions(t, dir)
	opts.ShowMetadata = true
	opts.MetadataRaw = "size,modified,permissions"
	opts.TOC = true

	_, first := generate(t, opts)
	_, second := generate(t, opts)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "Generated on: 2024-01-02 03:04:05\n")
	assert.Contains(t, first, "Size: 12 B (12 bytes)")
	assert.Contains(t, first, "Permissions: -rw-r--r--")
}

func TestGenerate_UnknownMetadataFieldWarns(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.csv"), "id\n1\n")
	opts := baseOptions(t, dir)
	opts.ShowMetadata = true
	opts.MetadataRaw = "size,colour"

	report, doc := generate(t, opts)
	assert.Contains(t, doc, "### Metadata\n\n```\nSize: 5 B (5 bytes)\nWarning: unknown metadata field \"colour\"\n```")
	assert.Equal(t, 1, report.Summary.RenderedCount)
	assert.Equal(t, 1, report.Summary.WarningCount)
}

func TestGenerate_ParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		content := fmt.Sprintf("id,v\n%d,x\n", i)
		if i%5 == 0 {
			content = ""
		}
		testutil.CreateDummyFile(t, filepath.Join(dir, fmt.Sprintf("f%02d.csv", i)), content)
	}

	seq := baseOptions(t, dir)
	seq.TOC = true
	_, seqDoc := generate(t, seq)

	par := baseOptions(t, dir)
	par.TOC = true
	par.Parallel = true
	par.Concurrency = 4
	report, parDoc := generate(t, par)

	assert.Equal(t, seqDoc, parDoc)
	assert.Equal(t, 4, report.Summary.Concurrency)
	assert.Equal(t, 3, report.Summary.SkippedCount)
}

func TestGenerate_SectionsIndependentOfFormat(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.csv"), "id,name\n1,a\n")

	md := baseOptions(t, dir)
	_, mdDoc := generate(t, md)

	var htmlInput string
	conv := &testutil.MockDocumentConverter{}
	conv.On("Convert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		req := args.Get(1).(preview.ConvertRequest)
		raw, _ := os.ReadFile(req.InputPath)
		htmlInput = string(raw)
		_ = os.WriteFile(req.OutputPath, []byte("<html></html>"), 0o644)
	}).Return(nil).Once()
	html := baseOptions(t, dir)
	html.FormatRaw = "html"
	html.DocumentConverter = conv
	report, err := preview.Generate(context.Background(), html)
	require.NoError(t, err)

	assert.Equal(t, mdDoc, htmlInput)
	assert.Equal(t, ".html", filepath.Ext(report.Summary.OutputPath))
}

type recordingHooks struct {
	mu       sync.Mutex
	total    int
	statuses map[string][]preview.Status
	done     bool
	final    preview.Report
}

func (h *recordingHooks) OnRunStart(total int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.total = total
	return nil
}

func (h *recordingHooks) OnFileStatusUpdate(path string, status preview.Status, _ string, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.statuses == nil {
		h.statuses = make(map[string][]preview.Status)
	}
	h.statuses[path] = append(h.statuses[path], status)
	return nil
}

func (h *recordingHooks) OnRunComplete(report preview.Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done = true
	h.final = report
	return nil
}

func TestGenerate_Hooks(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.csv"), "")
	testutil.CreateDummyFile(t, filepath.Join(dir, "b.csv"), "id\n")
	hooks := &recordingHooks{}
	opts := baseOptions(t, dir)
	opts.EventHooks = hooks
	opts.Parallel = true

	generate(t, opts)

	assert.Equal(t, 2, hooks.total)
	assert.True(t, hooks.done)
	assert.Equal(t, []preview.Status{preview.StatusProcessing, preview.StatusSkipped}, hooks.statuses["a.csv"])
	assert.Equal(t, []preview.Status{preview.StatusProcessing, preview.StatusSuccess}, hooks.statuses["b.csv"])
}

func TestGenerate_DecompressionFailureSkipsFile(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "bad.csv.gz"), "plain text\n")
	testutil.CreateDummyFile(t, filepath.Join(dir, "good.csv"), "id\n1\n")
	opts := baseOptions(t, dir)
	opts.Pattern = "*.csv*"

	report, doc := generate(t, opts)
	assert.Contains(t, doc, "## bad.csv.gz\n\n**Skipped due to errors**: decompression failed")
	require.Len(t, report.SkippedFiles, 1)
	assert.Equal(t, preview.SkipReasonDecompress, report.SkippedFiles[0].Reason)
}

func TestGenerate_BinaryContentFailsBlocks(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "bin.csv"), "id\x00\x00\x00\x00\x00\x00\x00\x00\n\x00\x00\x01\x02\n")

	report, doc := generate(t, baseOptions(t, dir))
	assert.Contains(t, doc, "unavailable: raw read: binary content")
	require.Len(t, report.Degraded, 2)
	for _, d := range report.Degraded {
		assert.Equal(t, "none", d.Tier)
		assert.Contains(t, d.Reason, "binary content")
	}
	assert.False(t, report.Summary.FatalErrorOccurred)
}

func TestGenerate_FatalConditions(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.csv"), "id\n")

	testCases := []struct {
		name   string
		modify func(o *preview.Options)
		want   error
	}{
		{"no files", func(o *preview.Options) { o.Pattern = "*.tsv" }, preview.ErrNoFiles},
		{"invalid format", func(o *preview.Options) { o.FormatRaw = "docx" }, preview.ErrConfigValidation},
		{"empty delimiter", func(o *preview.Options) { o.Delimiter = "" }, preview.ErrConfigValidation},
		{"zero lines", func(o *preview.Options) { o.Lines = 0 }, preview.ErrConfigValidation},
		{"table without formatter", func(o *preview.Options) { o.Table = true }, preview.ErrToolMissing},
		{"pdf without converter", func(o *preview.Options) { o.FormatRaw = "pdf" }, preview.ErrToolMissing},
		{"nil logger", func(o *preview.Options) { o.Logger = nil }, preview.ErrConfigValidation},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := baseOptions(t, dir)
			tc.modify(&opts)
			_, err := preview.Generate(context.Background(), opts)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.csv"), "id\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := preview.Generate(ctx, baseOptions(t, dir))
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, report.Summary.FatalErrorOccurred)
}

func TestGenerate_NoFilesCompletesRun(t *testing.T) {
	hooks := &recordingHooks{}
	opts := baseOptions(t, t.TempDir())
	opts.EventHooks = hooks

	report, err := preview.Generate(context.Background(), opts)
	require.ErrorIs(t, err, preview.ErrNoFiles)
	assert.True(t, report.Summary.FatalErrorOccurred)
	assert.True(t, hooks.done)
	assert.True(t, hooks.final.Summary.FatalErrorOccurred)
	assert.Zero(t, hooks.total)
}

func TestResolveOptions_Warnings(t *testing.T) {
	opts := preview.Options{
		Delimiter:    ",",
		Lines:        5,
		FormatRaw:    "md",
		CSSPath:      "x.css",
		TemplatePath: "x.latex",
		ColumnsRaw:   "id",
		Concurrency:  2,
	}
	warnings, err := preview.ResolveOptions(&opts)
	require.NoError(t, err)
	assert.Len(t, warnings, 4)
	assert.Empty(t, opts.CSSPath)
	assert.Empty(t, opts.TemplatePath)
	assert.Nil(t, opts.Columns)
	assert.Equal(t, preview.FormatMarkdown, opts.Format)
	assert.Equal(t, preview.DefaultTitle, opts.Title)
	assert.Equal(t, preview.TOCModeMarker, opts.TOCMode)
}

func TestGenerate_HookSequence(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "a.csv"), "id\n1\n")
	testutil.CreateDummyDir(t, filepath.Join(dir, "z.csv"))

	hooks := &testutil.MockHooks{}
	hooks.On("OnRunStart", 2).Return(errors.New("ignored")).Once()
	hooks.On("OnFileStatusUpdate", "a.csv", preview.StatusProcessing, "", time.Duration(0)).Return(nil).Once()
	hooks.On("OnFileStatusUpdate", "a.csv", preview.StatusSuccess, "", mock.AnythingOfType("time.Duration")).Return(nil).Once()
	hooks.On("OnFileStatusUpdate", "z.csv", preview.StatusProcessing, "", time.Duration(0)).Return(nil).Once()
	hooks.On("OnFileStatusUpdate", "z.csv", preview.StatusSkipped,
		mock.MatchedBy(func(msg string) bool { return strings.Contains(msg, "not a regular file") }),
		mock.AnythingOfType("time.Duration")).Return(nil).Once()
	hooks.On("OnRunComplete", mock.MatchedBy(func(r preview.Report) bool {
		return r.Summary.RenderedCount == 1 && r.Summary.SkippedCount == 1 && !r.Summary.FatalErrorOccurred
	})).Return(nil).Once()

	opts := baseOptions(t, dir)
	opts.EventHooks = hooks
	report, _ := generate(t, opts)

	hooks.AssertExpectations(t)
	require.Len(t, report.SkippedFiles, 1)
	assert.Equal(t, "z.csv", report.SkippedFiles[0].Path)
	assert.Equal(t, preview.SkipReasonInvalid, report.SkippedFiles[0].Reason)
}
