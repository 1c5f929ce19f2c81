package preview

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Report summarizes the result of a single Generate run.
type Report struct {
	Summary       ReportSummary  `json:"summary"`
	RenderedFiles []FileInfo     `json:"renderedFiles"`
	SkippedFiles  []SkippedInfo  `json:"skippedFiles"`
	Degraded      []DegradedInfo `json:"degraded,omitempty"`
}

// ReportSummary contains aggregated statistics for a Generate run.
type ReportSummary struct {
	Pattern            string    `json:"pattern"`
	OutputPath         string    `json:"outputPath"` // Final artifact, after extension forcing and compression
	Format             Format    `json:"format"`
	Compressed         bool      `json:"compressed"`
	ProfileUsed        string    `json:"profileUsed,omitempty"`
	ConfigFilePath     string    `json:"configFilePath,omitempty"`
	TotalFiles         int       `json:"totalFiles"`
	RenderedCount      int       `json:"renderedCount"`
	SkippedCount       int       `json:"skippedCount"`
	DegradedCount      int       `json:"degradedCount"`
	WarningCount       int       `json:"warningCount"`
	FatalErrorOccurred bool      `json:"fatalError"`
	Parallel           bool      `json:"parallel"`
	Concurrency        int       `json:"concurrency"`
	PageCount          int       `json:"pageCount,omitempty"` // pdf only
	DurationSeconds    float64   `json:"durationSeconds"`
	Timestamp          time.Time `json:"timestamp"`
	SchemaVersion      string    `json:"schemaVersion,omitempty"`
}

// FileInfo details a single file that rendered a full section.
type FileInfo struct {
	Path         string    `json:"path"`
	Anchor       string    `json:"anchor"`
	SizeBytes    int64     `json:"sizeBytes"`
	ModTime      time.Time `json:"modTime"`
	Decompressed bool      `json:"decompressed,omitempty"`
	Normalized   bool      `json:"normalized,omitempty"`
	DurationMs   int64     `json:"durationMs"`
}

// SkippedInfo details a file whose section is a placeholder.
type SkippedInfo struct {
	Path    string `json:"path"`
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

// DegradedInfo records one block that fell back to a simpler tier.
type DegradedInfo struct {
	Path   string `json:"path"`
	Block  string `json:"block"`
	Tier   string `json:"tier"`
	Reason string `json:"reason"`
}

// WriteSummary prints the report to w in the requested format.
func WriteSummary(w io.Writer, report Report, format SummaryFormat) error {
	switch format {
	case SummaryFormatNone:
		return nil
	case SummaryFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode JSON summary: %w", err)
		}
		return nil
	default:
		_, err := io.WriteString(w, textSummary(report))
		return err
	}
}

func textSummary(r Report) string {
	var b strings.Builder
	s := r.Summary
	fmt.Fprintf(&b, "Report written to %s", s.OutputPath)
	if s.PageCount > 0 {
		fmt.Fprintf(&b, " (%d pages)", s.PageCount)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Files: %d total, %d rendered, %d skipped", s.TotalFiles, s.RenderedCount, s.SkippedCount)
	if s.DegradedCount > 0 {
		fmt.Fprintf(&b, ", %d degraded blocks", s.DegradedCount)
	}
	fmt.Fprintf(&b, " in %s\n", humanize.FtoaWithDigits(s.DurationSeconds, 2)+"s")
	for _, sk := range r.SkippedFiles {
		fmt.Fprintf(&b, "  skipped %s: %s\n", sk.Path, sk.Details)
	}
	return b.String()
}
