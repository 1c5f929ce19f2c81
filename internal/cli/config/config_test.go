package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

// defineAllFlags mirrors the flag set of the root command.
func defineAllFlags(flags *pflag.FlagSet) {
	flags.StringP("delimiter", "d", preview.DefaultDelimiter, "")
	flags.IntP("lines", "l", preview.DefaultLines, "")
	flags.StringP("output", "o", preview.DefaultOutputPath, "")
	flags.BoolP("table", "c", false, "")
	flags.StringP("pattern", "p", preview.DefaultPattern, "")
	flags.StringP("format", "f", "md", "")
	flags.BoolP("toc", "t", false, "")
	flags.String("toc-mode", string(preview.DefaultTOCMode), "")
	flags.StringP("css", "s", "", "")
	flags.StringP("template", "m", "", "")
	flags.StringP("columns", "k", "", "")
	flags.BoolP("interactive", "i", false, "")
	flags.BoolP("parallel", "P", false, "")
	flags.Int("concurrency", preview.DefaultConcurrency, "")
	flags.StringP("metadata", "e", preview.DefaultMetadata, "")
	flags.BoolP("compress", "z", false, "")
	flags.StringP("error-log", "L", "", "")
	flags.BoolP("no-metadata", "M", false, "")
	flags.BoolP("no-headers", "H", false, "")
	flags.BoolP("no-lines", "N", false, "")
	flags.String("title", preview.DefaultTitle, "")
	flags.Bool("no-timestamp", false, "")
	flags.String("summary", string(preview.DefaultSummaryFormat), "")
	flags.BoolP("verbose", "v", false, "")
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	defineAllFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

// isolate keeps the user's real config files out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return home
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndValidate_Defaults(t *testing.T) {
	isolate(t)

	opts, logger, closeFn, err := LoadAndValidate("", "", "1.2.3", newFlags(t))
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.NoError(t, closeFn())

	assert.Equal(t, ",", opts.Delimiter)
	assert.Equal(t, 10, opts.Lines)
	assert.Equal(t, "csv_preview.md", opts.OutputPath)
	assert.Equal(t, "*.csv", opts.Pattern)
	assert.Equal(t, "md", opts.FormatRaw)
	assert.Equal(t, "size,modified", opts.MetadataRaw)
	assert.True(t, opts.ShowMetadata)
	assert.True(t, opts.ShowHeaders)
	assert.True(t, opts.ShowLines)
	assert.Equal(t, preview.TOCModeMarker, opts.TOCMode)
	assert.Equal(t, preview.SummaryFormatText, opts.SummaryFormat)
	assert.Equal(t, "1.2.3", opts.AppVersion)
	assert.Empty(t, opts.ConfigFilePath)
	assert.NotNil(t, opts.Logger)
}

func TestLoadAndValidate_Precedence(t *testing.T) {
	home := isolate(t)
	cfg := writeConfig(t, home, `
lines: 5
delimiter: ";"
title: From File
tools:
  csvlook: "csvlook --no-inference"
profiles:
  wide:
    lines: 50
    table: true
`)
	t.Setenv("CSVPREVIEW_TITLE", "From Env")

	opts, _, closeFn, err := LoadAndValidate(cfg, "wide", "dev", newFlags(t, "--delimiter", "|"))
	require.NoError(t, err)
	defer closeFn()

	assert.Equal(t, 50, opts.Lines, "profile overrides file")
	assert.True(t, opts.Table)
	assert.Equal(t, "From Env", opts.Title, "env overrides file")
	assert.Equal(t, "|", opts.Delimiter, "flag overrides file")
	assert.Equal(t, "csvlook --no-inference", opts.Tools.Csvlook)
	assert.Equal(t, cfg, opts.ConfigFilePath)
	assert.Equal(t, "wide", opts.ProfileName)
}

func TestLoadAndValidate_SearchesWorkingDirectory(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "csv-preview.yaml"), []byte("lines: 3\n"), 0o644))

	opts, _, _, err := LoadAndValidate("", "", "dev", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Lines)
	assert.Equal(t, "csv-preview.yaml", filepath.Base(opts.ConfigFilePath))
}

func TestLoadAndValidate_NegatedFlags(t *testing.T) {
	isolate(t)

	opts, _, _, err := LoadAndValidate("", "", "dev", newFlags(t, "-M", "-N"))
	require.NoError(t, err)
	assert.False(t, opts.ShowMetadata)
	assert.True(t, opts.ShowHeaders)
	assert.False(t, opts.ShowLines)
}

func TestLoadAndValidate_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		config  string
		profile string
		args    []string
	}{
		{name: "missing profile", config: "lines: 5\n", profile: "nope"},
		{name: "invalid format", args: []string{"-f", "docx"}},
		{name: "empty delimiter", args: []string{"-d", ""}},
		{name: "zero lines", args: []string{"-l", "0"}},
		{name: "bad toc mode", args: []string{"--toc-mode", "sidebar"}},
		{name: "missing css", args: []string{"-f", "html", "-s", "missing.css"}},
		{name: "unparsable config", config: "lines: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			home := isolate(t)
			cfg := ""
			if tc.config != "" {
				cfg = writeConfig(t, home, tc.config)
			}
			_, _, closeFn, err := LoadAndValidate(cfg, tc.profile, "dev", newFlags(t, tc.args...))
			require.Error(t, err)
			assert.ErrorIs(t, err, preview.ErrConfigValidation)
			assert.NotNil(t, closeFn)
		})
	}
}

func TestLoadAndValidate_CSSIgnoredForMarkdown(t *testing.T) {
	isolate(t)

	opts, _, _, err := LoadAndValidate("", "", "dev", newFlags(t, "-s", "missing.css"))
	require.NoError(t, err, "css only matters for html output")
	assert.Equal(t, "missing.css", opts.CSSPath)
}

func TestLoadAndValidate_ResolvesTemplatePath(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "report.latex"), []byte("$body$"), 0o644))

	opts, _, _, err := LoadAndValidate("", "", "dev", newFlags(t, "-f", "pdf", "-m", "report.latex"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(opts.TemplatePath))
	assert.Equal(t, "report.latex", filepath.Base(opts.TemplatePath))
}

func TestLoadAndValidate_ErrorLog(t *testing.T) {
	home := isolate(t)
	logPath := filepath.Join(home, "logs", "errors.log")

	opts, logger, closeFn, err := LoadAndValidate("", "", "dev", newFlags(t, "-L", logPath))
	require.NoError(t, err)
	logger.Warn("something happened")
	require.NoError(t, closeFn())

	assert.Equal(t, logPath, opts.ErrorLogPath)
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "level=WARN msg=\"something happened\"")
}
