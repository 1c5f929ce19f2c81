package preview

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseMetadataFields splits a comma-separated field list, trimming and
// deduplicating while preserving order. Unknown names are kept so the
// renderer can report them.
func ParseMetadataFields(raw string) []MetadataField {
	var fields []MetadataField
	seen := make(map[MetadataField]struct{})
	for _, part := range strings.Split(raw, ",") {
		f := MetadataField(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		fields = append(fields, f)
	}
	return fields
}

// IsKnown reports whether the renderer can produce this field.
func (f MetadataField) IsKnown() bool {
	for _, k := range KnownMetadataFields {
		if f == k {
			return true
		}
	}
	return false
}

// metadataLines renders one line per field. Unknown fields yield a warning
// line and are returned in unknown.
func metadataLines(info os.FileInfo, fields []MetadataField) (lines []string, unknown []string) {
	for _, f := range fields {
		switch f {
		case MetaSize:
			size := info.Size()
			lines = append(lines, fmt.Sprintf("Size: %s (%d bytes)", humanize.Bytes(uint64(size)), size))
		case MetaModified:
			lines = append(lines, "Modified: "+info.ModTime().Format(TimestampLayout))
		case MetaPermissions:
			lines = append(lines, "Permissions: "+info.Mode().Perm().String())
		case MetaOwner:
			lines = append(lines, "Owner: "+fileOwner(info))
		default:
			lines = append(lines, fmt.Sprintf("Warning: unknown metadata field %q", string(f)))
			unknown = append(unknown, string(f))
		}
	}
	return lines, unknown
}
