// Package reference parses the inner text of bracketed vault references:
// [[target#Header|display]] and embed forms like ![[pic.png|caption|200]].
package reference

import (
	"strconv"
	"strings"
)

// Reference is the parsed, ephemeral form of one bracketed reference.
type Reference struct {
	// Target is the document identifier with any fragment removed.
	Target string
	// Header is the heading fragment, when the reference uses target#Header.
	Header string
	// BlockID is the block-anchor fragment, when the reference uses
	// target#^id. The #^ marker takes precedence over a bare #.
	BlockID string
	// Segments holds the raw vertical-bar separated tokens after the target
	// identifier, unchanged.
	Segments []string
}

// Parse splits raw reference text (the content between the outer brackets)
// into its parts. Only one fragment level is supported; a second # is kept
// verbatim inside the fragment text.
func Parse(raw string) Reference {
	parts := strings.Split(raw, "|")
	ident := parts[0]

	var r Reference
	if len(parts) > 1 {
		r.Segments = parts[1:]
	}

	// Trailing backslash escapes the path in authoring tools; not part of
	// the identifier.
	ident = strings.TrimSuffix(ident, `\`)

	if i := strings.Index(ident, "#^"); i >= 0 {
		r.BlockID = strings.TrimSpace(ident[i+2:])
		ident = ident[:i]
	} else if i := strings.Index(ident, "#"); i >= 0 {
		r.Header = strings.TrimSpace(ident[i+1:])
		ident = ident[:i]
	}
	r.Target = strings.TrimSpace(ident)
	return r
}

// Fragment returns the reference's section fragment in link form:
// "#^id", "#Header", or "" when the reference targets the whole document.
func (r Reference) Fragment() string {
	switch {
	case r.BlockID != "":
		return "#^" + r.BlockID
	case r.Header != "":
		return "#" + r.Header
	}
	return ""
}

// Display returns the raw display override: all segments rejoined with the
// original separator, or "" when none were given.
func (r Reference) Display() string {
	return strings.Join(r.Segments, "|")
}

// MetaSize applies the display-suffix split rule: if the last segment parses
// as an integer it is a display-size override and the middle segments,
// joined with spaces, are metadata; otherwise there is no size and every
// segment belongs to the metadata string.
func (r Reference) MetaSize() (meta string, size int, hasSize bool) {
	if len(r.Segments) == 0 {
		return "", 0, false
	}
	last := strings.TrimSpace(r.Segments[len(r.Segments)-1])
	if n, err := strconv.Atoi(last); err == nil {
		return strings.Join(r.Segments[:len(r.Segments)-1], " "), n, true
	}
	return strings.Join(r.Segments, " "), 0, false
}
