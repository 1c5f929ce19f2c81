package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ValentinKt/utils-toolkit/internal/cli"
	"github.com/ValentinKt/utils-toolkit/internal/cli/config"
	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// newRootCmd builds the csv-preview command and registers its flags.
func newRootCmd() *cobra.Command {
	var (
		cfgFile     string
		profileName string
	)

	cmd := &cobra.Command{
		Use:   "csv-preview [flags]",
		Short: "Builds a preview report of the CSV files matching a pattern.",
		Long: `csv-preview collects the CSV files matching a glob pattern and writes one
report with a section per file: file metadata, the header row and the first
lines of data.

The report is Markdown by default and can be converted to HTML or PDF with
pandoc. csvkit aligns headers and rows into tables (-c), fzf or the built-in
picker narrows the file list (-i), and compressed inputs (.gz, .zst, .bz2)
are expanded on the fly.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			opts, logger, closeLog, err := config.LoadAndValidate(cfgFile, profileName, version, cmd.Flags())
			if err != nil {
				return err
			}
			defer closeLog()

			opts.Stdout = cmd.OutOrStdout()
			return cli.Run(ctx, opts, logger)
		},
	}
	cmd.SetVersionTemplate(`{{.Name}} version {{.Version}}` + "\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Configuration file path (default searches ., $HOME/.config/csv-preview/, $HOME/.csv-preview)")
	pf.StringVar(&profileName, "profile", "", "Name of configuration profile to use")
	pf.BoolP("verbose", "v", false, "Enable verbose (debug) logging output")

	f := cmd.Flags()
	// Input selection
	f.StringP("pattern", "p", preview.DefaultPattern, "Glob pattern selecting the input files (supports **)")
	f.BoolP("interactive", "i", false, "Pick files interactively with fzf or the built-in picker")
	f.StringP("delimiter", "d", preview.DefaultDelimiter, "Field delimiter; multi-character delimiters are normalized to ','")

	// Section content
	f.IntP("lines", "l", preview.DefaultLines, "Number of data lines in the preview block")
	f.BoolP("table", "c", false, "Format headers and preview as tables with csvkit")
	f.StringP("columns", "k", "", "Comma-separated column names or 1-based indices to show (requires -c)")
	f.StringP("metadata", "e", preview.DefaultMetadata, "Metadata fields: size, modified, permissions, owner")
	f.BoolP("no-metadata", "M", false, "Omit the metadata block")
	f.BoolP("no-headers", "H", false, "Omit the headers block")
	f.BoolP("no-lines", "N", false, "Omit the preview block")

	// Output
	f.StringP("output", "o", preview.DefaultOutputPath, "Output path; html and pdf replace the extension")
	f.StringP("format", "f", "md", `Output format ("md", "html" or "pdf")`)
	f.String("title", preview.DefaultTitle, "Report title")
	f.BoolP("toc", "t", false, "Include a table of contents")
	f.String("toc-mode", string(preview.DefaultTOCMode), `Table of contents renderer ("marker" or "native")`)
	f.StringP("css", "s", "", "Stylesheet for html output (default: generated beside the output)")
	f.StringP("template", "m", "", "pandoc template for pdf output (default: generated beside the output)")
	f.BoolP("compress", "z", false, "Gzip the final artifact")
	f.Bool("no-timestamp", false, "Omit the generated-on line")
	f.String("summary", string(preview.DefaultSummaryFormat), `Run summary printed on stdout ("text", "json" or "none")`)

	// Execution and logging
	f.BoolP("parallel", "P", false, "Process files in parallel")
	f.Int("concurrency", preview.DefaultConcurrency, "Number of parallel workers (0 for auto-detect CPU cores)")
	f.StringP("error-log", "L", "", "Write logs to this file instead of stderr")

	return cmd
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return execute(context.Background(), newRootCmd())
}

// execute prints errors the run has not already logged, once.
func execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if err != nil && !cli.Logged(err) {
		cmd.PrintErrln("Error:", err)
	}
	return err
}
