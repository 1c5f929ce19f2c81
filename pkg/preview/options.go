package preview

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ValentinKt/utils-toolkit/pkg/preview/encoding"
)

// TableRequest describes one invocation of the table tool.
type TableRequest struct {
	Path      string   // Prepared file to read
	Delimiter string   // Single-character delimiter of Path
	Columns   []string // Optional projection: names or 1-based indices
	MaxRows   int      // Preview only: number of data rows to print
}

// TableFormatter parses delimited text into aligned textual output.
// Implementations are called concurrently in parallel mode.
type TableFormatter interface {
	// Headers returns the header names of the first record, limited to req.Columns when set.
	Headers(ctx context.Context, req TableRequest) (string, error)
	// Preview returns the first req.MaxRows data records as a formatted table.
	Preview(ctx context.Context, req TableRequest) (string, error)
}

// ConvertRequest carries everything the document converter needs.
type ConvertRequest struct {
	InputPath    string // Assembled Markdown
	OutputPath   string // Artifact to create
	Format       Format // FormatHTML or FormatPDF
	Title        string
	CSSPath      string // html only
	TemplatePath string // pdf only
	NativeTOC    bool   // ask the converter for its own TOC page
}

// DocumentConverter translates the assembled Markdown into HTML or PDF.
type DocumentConverter interface {
	Convert(ctx context.Context, req ConvertRequest) error
}

// Chooser presents candidates to the user and returns the selected subset.
type Chooser interface {
	Choose(ctx context.Context, candidates []string) ([]string, error)
}

// Compressor replaces path with a compressed sibling and returns the new path.
// A returned error wrapping ErrToolMissing is treated as advisory.
type Compressor interface {
	Compress(ctx context.Context, path string) (string, error)
}

// Hooks defines callbacks for status updates during a run.
// Implementations MUST be thread-safe as methods may be called concurrently.
type Hooks interface {
	OnRunStart(total int) error
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks provides a default, do-nothing implementation of the Hooks interface.
type NoOpHooks struct{}

// OnRunStart implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnRunStart(total int) error { return nil }

// OnFileStatusUpdate implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error {
	return nil
}

// OnRunComplete implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// Options holds all configuration for a Generate run.
type Options struct {
	// --- Input Selection ---
	Pattern     string `mapstructure:"pattern"`     // Glob pattern, doublestar syntax
	WorkDir     string `mapstructure:"workDir"`     // Directory the pattern is expanded against ("" = current)
	Interactive bool   `mapstructure:"interactive"` // Filter candidates through the Chooser

	// --- Parsing ---
	Delimiter string   `mapstructure:"delimiter"` // Non-empty; multi-character delimiters are normalized to ','
	Lines     int      `mapstructure:"lines"`     // Data records in the preview block
	Columns   []string `mapstructure:"-"`         // Derived from ColumnsRaw
	// ColumnsRaw is the comma-separated column selector as given by the user.
	ColumnsRaw string `mapstructure:"columns"`

	// --- Section Content ---
	Table          bool            `mapstructure:"table"` // Format headers/preview with the TableFormatter
	ShowMetadata   bool            `mapstructure:"showMetadata"`
	ShowHeaders    bool            `mapstructure:"showHeaders"`
	ShowLines      bool            `mapstructure:"showLines"`
	MetadataRaw    string          `mapstructure:"metadata"` // Comma-separated field list
	MetadataFields []MetadataField `mapstructure:"-"`        // Derived, ordered, deduplicated

	// --- Output ---
	OutputPath    string        `mapstructure:"output"`
	Format        Format        `mapstructure:"-"` // Derived from FormatRaw
	FormatRaw     string        `mapstructure:"format"`
	Title         string        `mapstructure:"title"`
	TOC           bool          `mapstructure:"toc"`
	TOCMode       TOCMode       `mapstructure:"tocMode"`
	CSSPath       string        `mapstructure:"css"`
	TemplatePath  string        `mapstructure:"template"`
	Compress      bool          `mapstructure:"compress"`
	OmitTimestamp bool          `mapstructure:"noTimestamp"`
	SummaryFormat SummaryFormat `mapstructure:"summary"`

	// --- Execution ---
	Parallel    bool `mapstructure:"parallel"`
	Concurrency int  `mapstructure:"concurrency"` // Workers in parallel mode (0=auto)

	// --- Behavior & Logging ---
	Verbose        bool   `mapstructure:"verbose"`
	ErrorLogPath   string `mapstructure:"errorLog"`
	ConfigFilePath string `mapstructure:"-"` // Path to the loaded config file (for reporting)
	ProfileName    string `mapstructure:"-"`
	AppVersion     string `mapstructure:"-"`

	// --- Tool Commands ---
	Tools ToolCommands `mapstructure:"tools"`

	// --- Injected Dependencies ---
	EventHooks        Hooks                    `mapstructure:"-"` // Optional: defaults to NoOpHooks
	Logger            slog.Handler             `mapstructure:"-"` // Required: Logging backend
	TableFormatter    TableFormatter           `mapstructure:"-"` // Required when Table is set
	DocumentConverter DocumentConverter        `mapstructure:"-"` // Required for html/pdf
	Chooser           Chooser                  `mapstructure:"-"` // Required when Interactive is set
	Compressor        Compressor               `mapstructure:"-"` // Optional: defaults to in-process gzip
	EncodingHandler   encoding.EncodingHandler `mapstructure:"-"` // Optional: defaults to charset detection
	Clock             func() time.Time         `mapstructure:"-"` // Optional: defaults to time.Now
	Stdout            io.Writer                `mapstructure:"-"` // Where the run summary is printed
}

// ToolCommands overrides the command line used for each external tool.
// Each value is split with shell quoting rules; empty means the tool's default name.
type ToolCommands struct {
	Csvcut  string `mapstructure:"csvcut"`
	Csvlook string `mapstructure:"csvlook"`
	Pandoc  string `mapstructure:"pandoc"`
	Fzf     string `mapstructure:"fzf"`
	Gzip    string `mapstructure:"gzip"`
}

// now returns the configured clock's time.
func (o *Options) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}
