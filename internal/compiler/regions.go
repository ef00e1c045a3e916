package compiler

import (
	"regexp"
	"strings"
)

var (
	codeFenceRe   = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe  = regexp.MustCompile("`[^`\n]*`")
	drawingDataRe = regexp.MustCompile(`(?sm)^#{1,6} (?:Drawing|Excalidraw Data)\s*$.*\z`)
)

// span is a half-open byte range [start, end) in the document text.
type span struct {
	start, end int
}

// protectedRegions locates the text ranges later passes must not rewrite:
// fenced code blocks, inline code spans, and the drawing data section.
func protectedRegions(text string) []span {
	var spans []span
	for _, re := range []*regexp.Regexp{codeFenceRe, inlineCodeRe, drawingDataRe} {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	return spans
}

// frontmatterSpan returns the leading frontmatter block range, if any.
func frontmatterSpan(text string) (span, bool) {
	if !strings.HasPrefix(text, "---\n") && text != "---" {
		return span{}, false
	}
	idx := strings.Index(text[4:], "\n---")
	if idx < 0 {
		return span{}, false
	}
	end := 4 + idx + len("\n---")
	if nl := strings.IndexByte(text[end:], '\n'); nl >= 0 {
		end += nl + 1
	} else {
		end = len(text)
	}
	return span{0, end}, true
}

// inAny reports whether [start, end) lies textually inside any span.
func inAny(spans []span, start, end int) bool {
	for _, s := range spans {
		if start >= s.start && end <= s.end {
			return true
		}
	}
	return false
}

// replaceOutside applies repl to every regex match that is not inside a
// protected span, preserving everything else byte-for-byte.
func replaceOutside(text string, re *regexp.Regexp, protected []span, repl func(match string) string) string {
	locs := re.FindAllStringIndex(text, -1)
	if locs == nil {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range locs {
		b.WriteString(text[last:loc[0]])
		m := text[loc[0]:loc[1]]
		if inAny(protected, loc[0], loc[1]) {
			b.WriteString(m)
		} else {
			b.WriteString(repl(m))
		}
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}
