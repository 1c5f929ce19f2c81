package preview_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKt/utils-toolkit/internal/testutil"
	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

func TestOutputPathFor(t *testing.T) {
	testCases := []struct {
		output string
		format preview.Format
		want   string
	}{
		{"", preview.FormatMarkdown, preview.DefaultOutputPath},
		{"report.txt", preview.FormatMarkdown, "report.txt"},
		{"report.md", preview.FormatHTML, "report.html"},
		{"dir/report", preview.FormatPDF, filepath.Join("dir", "report") + ".pdf"},
		{"report.html", preview.FormatPDF, "report.pdf"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, preview.OutputPathFor(tc.output, tc.format), "%s as %s", tc.output, tc.format)
	}
}

func TestFinalize_Markdown(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "report.md")
	opts := &preview.Options{OutputPath: out, Format: preview.FormatMarkdown}

	art, err := preview.NewFinalizer(opts, testutil.DiscardHandler()).Finalize(context.Background(), "# doc\n")
	require.NoError(t, err)
	assert.Equal(t, out, art.Path)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "# doc\n", string(got))
}

func TestFinalize_HTMLMaterializesStylesheet(t *testing.T) {
	t.Chdir(t.TempDir())
	conv := &testutil.MockDocumentConverter{}
	var seenMarkdown string
	conv.On("Convert", mock.Anything, mock.MatchedBy(func(req preview.ConvertRequest) bool {
		return req.Format == preview.FormatHTML
	})).Run(func(args mock.Arguments) {
		req := args.Get(1).(preview.ConvertRequest)
		md, _ := os.ReadFile(req.InputPath)
		seenMarkdown = string(md)
		_ = os.WriteFile(req.OutputPath, []byte("<html></html>"), 0o644)
	}).Return(nil).Once()

	opts := &preview.Options{OutputPath: filepath.Join("out", "report.md"), Format: preview.FormatHTML, Title: "T", DocumentConverter: conv}
	art, err := preview.NewFinalizer(opts, testutil.DiscardHandler()).Finalize(context.Background(), "# doc\n")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("out", "report.html"), art.Path)
	assert.Equal(t, "# doc\n", seenMarkdown)
	conv.AssertExpectations(t)
	req := conv.Calls[0].Arguments.Get(1).(preview.ConvertRequest)
	assert.Equal(t, preview.DefaultStylesheetName, req.CSSPath, "href is relative to the HTML file")
	assert.FileExists(t, filepath.Join(filepath.Dir(art.Path), req.CSSPath))
	assert.Empty(t, req.TemplatePath)
	assert.False(t, req.NativeTOC)
	assert.NoFileExists(t, req.InputPath, "scratch Markdown is removed after conversion")
}

func TestFinalize_UserStylesheetAndNativeTOC(t *testing.T) {
	dir := t.TempDir()
	conv := &testutil.MockDocumentConverter{}
	conv.On("Convert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		req := args.Get(1).(preview.ConvertRequest)
		_ = os.WriteFile(req.OutputPath, []byte("<html></html>"), 0o644)
	}).Return(nil).Once()

	opts := &preview.Options{
		OutputPath: filepath.Join(dir, "r.html"), Format: preview.FormatHTML,
		CSSPath: filepath.Join(dir, "custom.css"), TOC: true, TOCMode: preview.TOCModeNative, DocumentConverter: conv,
	}
	_, err := preview.NewFinalizer(opts, testutil.DiscardHandler()).Finalize(context.Background(), "# doc\n")
	require.NoError(t, err)

	req := conv.Calls[0].Arguments.Get(1).(preview.ConvertRequest)
	assert.Equal(t, filepath.Join(dir, "custom.css"), req.CSSPath)
	assert.True(t, req.NativeTOC)
	assert.NoFileExists(t, filepath.Join(dir, preview.DefaultStylesheetName))
}

func TestFinalize_ConversionFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	conv := &testutil.MockDocumentConverter{}
	conv.On("Convert", mock.Anything, mock.Anything).Return(errors.New("pandoc: exit status 43")).Once()

	opts := &preview.Options{OutputPath: filepath.Join(dir, "r.md"), Format: preview.FormatPDF, DocumentConverter: conv}
	_, err := preview.NewFinalizer(opts, testutil.DiscardHandler()).Finalize(context.Background(), "# doc\n")
	assert.ErrorIs(t, err, preview.ErrConversionFailed)

	req := conv.Calls[0].Arguments.Get(1).(preview.ConvertRequest)
	assert.Equal(t, filepath.Join(dir, preview.DefaultTemplateName), req.TemplatePath)
}

func TestFinalize_ConverterSilentlyProducedNothing(t *testing.T) {
	conv := &testutil.MockDocumentConverter{}
	conv.On("Convert", mock.Anything, mock.Anything).Return(nil).Once()
	opts := &preview.Options{OutputPath: filepath.Join(t.TempDir(), "r.html"), Format: preview.FormatHTML, DocumentConverter: conv}

	_, err := preview.NewFinalizer(opts, testutil.DiscardHandler()).Finalize(context.Background(), "# doc\n")
	assert.ErrorIs(t, err, preview.ErrConversionFailed)
}

func TestFinalize_InvalidPDFIsRejected(t *testing.T) {
	conv := &testutil.MockDocumentConverter{}
	conv.On("Convert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		req := args.Get(1).(preview.ConvertRequest)
		_ = os.WriteFile(req.OutputPath, []byte("not a pdf"), 0o644)
	}).Return(nil).Once()
	opts := &preview.Options{OutputPath: filepath.Join(t.TempDir(), "r.pdf"), Format: preview.FormatPDF, DocumentConverter: conv}

	_, err := preview.NewFinalizer(opts, testutil.DiscardHandler()).Finalize(context.Background(), "# doc\n")
	assert.ErrorIs(t, err, preview.ErrConversionFailed)
}

func TestFinalize_CompressInProcess(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.md")
	opts := &preview.Options{OutputPath: out, Format: preview.FormatMarkdown, Compress: true}

	art, err := preview.NewFinalizer(opts, testutil.DiscardHandler()).Finalize(context.Background(), "# doc\n")
	require.NoError(t, err)
	assert.Equal(t, out+".gz", art.Path)
	assert.True(t, art.Compressed)
	assert.NoFileExists(t, out)

	f, err := os.Open(art.Path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "# doc\n", string(got))
}

func TestFinalize_CompressorMissingIsAdvisory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.md")
	comp := &testutil.MockCompressor{}
	comp.On("Compress", mock.Anything, out).Return("", preview.ErrToolMissing).Once()
	handler, logs := testutil.BufferHandler()
	opts := &preview.Options{OutputPath: out, Compress: true, Compressor: comp}

	art, err := preview.NewFinalizer(opts, handler).Finalize(context.Background(), "# doc\n")
	require.NoError(t, err)
	assert.Equal(t, out, art.Path)
	assert.False(t, art.Compressed)
	assert.FileExists(t, out)
	assert.Contains(t, logs.String(), "Compression tool not available")
}

func TestFinalize_CompressorFailureIsFatal(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.md")
	comp := &testutil.MockCompressor{}
	comp.On("Compress", mock.Anything, out).Return("", errors.New("disk full")).Once()
	opts := &preview.Options{OutputPath: out, Compress: true, Compressor: comp}

	_, err := preview.NewFinalizer(opts, testutil.DiscardHandler()).Finalize(context.Background(), "# doc\n")
	assert.ErrorIs(t, err, preview.ErrCompressionFailed)
}
