package preview

// Status defines the possible processing states of a file during a run.
type Status string

// Constants representing the defined file processing statuses.
const (
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusSkipped    Status = "skipped"
)

// Format is the output document format.
type Format string

// Constants representing the supported output formats.
const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// Extension returns the file extension (with dot) that artifacts of this format carry.
func (f Format) Extension() string {
	switch f {
	case FormatHTML:
		return ".html"
	case FormatPDF:
		return ".pdf"
	default:
		return ".md"
	}
}

// ParseFormat maps user input to a Format. "md" is accepted as an alias for markdown.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "md", "markdown":
		return FormatMarkdown, true
	case "html":
		return FormatHTML, true
	case "pdf":
		return FormatPDF, true
	}
	return "", false
}

// TOCMode selects which mechanism renders the table of contents.
type TOCMode string

const (
	// TOCModeMarker builds the TOC from section anchors and splices it in at a marker.
	TOCModeMarker TOCMode = "marker"
	// TOCModeNative asks the document converter to generate its own TOC page.
	TOCModeNative TOCMode = "native"
)

// SummaryFormat defines the format of the run summary printed to standard output.
type SummaryFormat string

const (
	SummaryFormatText SummaryFormat = "text"
	SummaryFormatJSON SummaryFormat = "json"
	SummaryFormatNone SummaryFormat = "none"
)

// MetadataField names one line of the metadata block.
type MetadataField string

// Known metadata fields.
const (
	MetaSize        MetadataField = "size"
	MetaModified    MetadataField = "modified"
	MetaPermissions MetadataField = "permissions"
	MetaOwner       MetadataField = "owner"
)

// KnownMetadataFields lists the fields the renderer knows how to produce.
var KnownMetadataFields = []MetadataField{MetaSize, MetaModified, MetaPermissions, MetaOwner}

// FileCandidate is one selected file, created by the selector and consumed once by the engine.
type FileCandidate struct {
	Path   string // Path as matched, relative to WorkDir unless the pattern was absolute
	Name   string // Display name used in headings and TOC entries
	Anchor string // Fragment identifier derived from Name
}

// NewFileCandidate builds a candidate and derives its anchor.
func NewFileCandidate(path string) FileCandidate {
	return FileCandidate{Path: path, Name: path, Anchor: Anchor(path)}
}

// Anchor replaces every character that is not an ASCII letter or digit with '-'.
func Anchor(name string) string {
	b := []byte(name)
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}

// FileSection is the rendered Markdown for one candidate.
type FileSection struct {
	Candidate FileCandidate
	Text      string
	Status    Status // StatusSuccess or StatusSkipped
	Reason    string // Skip reason; empty for valid sections
	Degraded  []DegradedInfo
}

// Valid reports whether the section rendered normally and earns a TOC entry.
func (s FileSection) Valid() bool { return s.Status == StatusSuccess }
