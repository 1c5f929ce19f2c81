package preview

import (
	"fmt"
	"strings"
)

// Assemble concatenates sections in the given order under the report title.
// When a marker TOC is requested the marker is placed once after the title
// block and replaced exactly once after all sections are in place.
func Assemble(opts *Options, sections []FileSection) string {
	var b strings.Builder

	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if !opts.OmitTimestamp {
		fmt.Fprintf(&b, "Generated on: %s\n\n", opts.now().Format(TimestampLayout))
	}

	markerTOC := opts.TOC && opts.TOCMode != TOCModeNative
	if markerTOC {
		b.WriteString(TOCMarker)
		b.WriteString("\n\n")
	}

	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.Text)
	}

	doc := b.String()
	if markerTOC {
		doc = strings.Replace(doc, TOCMarker, BuildTOC(sections), 1)
	}
	return doc
}

// BuildTOC lists a link for every valid section, in section order.
func BuildTOC(sections []FileSection) string {
	var b strings.Builder
	b.WriteString("## Table of Contents\n")
	entries := 0
	for _, s := range sections {
		if !s.Valid() {
			continue
		}
		if entries == 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- [%s](#%s)\n", s.Candidate.Name, s.Candidate.Anchor)
		entries++
	}
	return strings.TrimRight(b.String(), "\n")
}
