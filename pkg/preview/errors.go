package preview

import "errors"

// These errors represent specific categories of issues that Generate returns
// or records per file. Callers check against them using errors.Is.
var (
	// ErrConfigValidation indicates that the Options failed validation checks
	// (invalid format, empty delimiter, non-positive line count, missing files).
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrNoFiles indicates the glob pattern matched nothing. Fatal.
	ErrNoFiles = errors.New("no files found")

	// ErrNoSelection indicates the interactive picker returned an empty selection. Fatal.
	ErrNoSelection = errors.New("no files selected")

	// ErrToolMissing indicates an external tool required by a requested feature is not installed. Fatal.
	ErrToolMissing = errors.New("required external tool not found")

	// ErrNotRegularFile indicates the path is missing or is not a plain file. Per-file.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrUnreadable indicates the file cannot be opened for reading. Per-file.
	ErrUnreadable = errors.New("file is not readable")

	// ErrEmptyFile indicates the file has zero bytes. Per-file.
	ErrEmptyFile = errors.New("file is empty")

	// ErrDecompressionFailed indicates a compressed input could not be expanded. Per-file.
	ErrDecompressionFailed = errors.New("decompression failed")

	// ErrPrepareFailed indicates the scratch copy for delimiter normalization could not be produced. Per-file.
	ErrPrepareFailed = errors.New("failed to prepare working copy")

	// ErrBinaryContent indicates the raw sample looks like binary data. Recorded as a failed block.
	ErrBinaryContent = errors.New("binary content")

	// ErrTableFormat indicates the table tool failed. Recovered by falling back to raw text.
	ErrTableFormat = errors.New("table formatting failed")

	// ErrConversionFailed indicates the document converter did not produce an artifact. Fatal.
	ErrConversionFailed = errors.New("document conversion failed")

	// ErrCompressionFailed indicates the compressor was found but failed. Fatal.
	ErrCompressionFailed = errors.New("compression failed")

	// ErrWriteFailed indicates the report or a generated artifact could not be written. Fatal.
	ErrWriteFailed = errors.New("failed to write output file")
)
