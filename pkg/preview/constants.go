package preview

// Constants defining default values for configuration options.
// These are used when setting up Viper defaults in the configuration loading process.
const (
	// DefaultDelimiter is the field separator assumed for input files.
	DefaultDelimiter = ","
	// DefaultLines is the number of data records shown in the preview block.
	DefaultLines = 10
	// DefaultOutputPath is where the report is written when -o is not given.
	DefaultOutputPath = "csv_preview.md"
	// DefaultPattern selects the candidate files.
	DefaultPattern = "*.csv"
	// DefaultFormat is the output document format.
	DefaultFormat = FormatMarkdown
	// DefaultMetadata is the comma-separated list of metadata fields.
	DefaultMetadata = "size,modified"
	// DefaultConcurrency determines the number of parallel workers. 0 means runtime.NumCPU().
	DefaultConcurrency = 0
	// DefaultTitle is the top-level heading of the report.
	DefaultTitle = "CSV Preview Report"
	// DefaultTOCMode selects the marker-substitution table of contents.
	DefaultTOCMode = TOCModeMarker
	// DefaultSummaryFormat is the format of the run summary on stdout.
	DefaultSummaryFormat = SummaryFormatText
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
)

// Constants used in the rendered document.
const (
	// TOCMarker is placed once where the table of contents belongs and replaced after assembly.
	TOCMarker = "<!-- csv-preview:toc -->"
	// SkippedText is the placeholder body of sections whose file failed validation or preprocessing.
	SkippedText = "Skipped due to errors"
	// TimestampLayout formats the generated-on and modified lines.
	TimestampLayout = "2006-01-02 15:04:05"
)

// Names of artifacts generated beside the output file when no CSS or template is supplied.
const (
	DefaultStylesheetName = "csv_preview.css"
	DefaultTemplateName   = "csv_preview.latex"
)

// ReportSchemaVersion indicates the version of the JSON summary structure.
const ReportSchemaVersion = "1.0"

// Constants defining skip reasons used in the Report.
const (
	SkipReasonInvalid    = "invalid_file"
	SkipReasonDecompress = "decompression_failed"
	SkipReasonPrepare    = "preprocessing_failed"
)
