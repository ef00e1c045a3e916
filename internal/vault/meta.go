// Package vault projects a content store into documents: raw text, binary
// assets, and a lazily-cached metadata view (frontmatter, headings, block
// anchors) plus vault-wide reference lookup.
package vault

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	headingRe        = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*$`)
	trailingAnchorRe = regexp.MustCompile(`\s\^([A-Za-z0-9-]+)\s*$`)
	soloAnchorRe     = regexp.MustCompile(`^\^([A-Za-z0-9-]+)\s*$`)
	leadingAnchorRe  = regexp.MustCompile(`^\^([A-Za-z0-9-]+)\b`)
	fenceRe          = regexp.MustCompile("^(```|~~~)")
	wikilinkRe       = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe            = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Heading is one markdown heading with its level and start line.
type Heading struct {
	Text  string
	Level int
	Line  int
}

// Anchor is the inclusive line range a block anchor refers to.
type Anchor struct {
	Start int
	End   int
}

// Meta is the parsed metadata projection of a markdown document.
type Meta struct {
	Frontmatter map[string]any
	// BodyStart is the line index of the first line after the frontmatter
	// block, or 0 when the document has none.
	BodyStart int
	Headings  []Heading
	Anchors   map[string]Anchor
	Title     string
	// Links holds deduplicated wikilink targets found in the body.
	Links []string
	// Tags merges frontmatter tags with inline #tags.
	Tags []string
}

// ParseMeta scans raw markdown and builds its metadata projection.
// Invalid frontmatter YAML is tolerated: the block is still skipped but the
// map stays nil.
func ParseMeta(data []byte) *Meta {
	lines := strings.Split(string(data), "\n")
	m := &Meta{Anchors: make(map[string]Anchor)}

	m.BodyStart, m.Frontmatter = scanFrontmatter(lines)

	inFence := false
	for i := m.BodyStart; i < len(lines); i++ {
		line := lines[i]
		if fenceRe.MatchString(strings.TrimLeft(line, " \t")) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if h := headingRe.FindStringSubmatch(line); h != nil {
			m.Headings = append(m.Headings, Heading{
				Text:  h[2],
				Level: len(h[1]),
				Line:  i,
			})
			continue
		}
		if a := soloAnchorRe.FindStringSubmatch(strings.TrimSpace(line)); a != nil {
			// An anchor on its own line refers to the block above it.
			start := i
			if i > m.BodyStart {
				start = i - 1
			}
			m.Anchors[a[1]] = Anchor{Start: start, End: i}
			continue
		}
		if a := leadingAnchorRe.FindStringSubmatch(strings.TrimSpace(line)); a != nil {
			// A line-leading anchor refers to its own line.
			m.Anchors[a[1]] = Anchor{Start: i, End: i}
			continue
		}
		if a := trailingAnchorRe.FindStringSubmatch(line); a != nil {
			m.Anchors[a[1]] = Anchor{Start: i, End: i}
		}
	}

	body := strings.Join(lines[m.BodyStart:], "\n")
	m.Title = deriveTitle(m.Frontmatter, lines[m.BodyStart:])
	m.Links = extractLinks(body)
	m.Tags = extractTags(body, m.Frontmatter)
	return m
}

// extractLinks returns deduplicated wikilink targets, dropping aliases and
// section fragments.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		if i := strings.Index(target, "#"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// extractTags collects #tags from the body and the frontmatter "tags" field.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string

	if fm != nil {
		if raw, ok := fm["tags"]; ok {
			if list, ok := raw.([]any); ok {
				for _, item := range list {
					if s, ok := item.(string); ok {
						s = strings.TrimSpace(s)
						if s == "" {
							continue
						}
						if _, dup := seen[s]; !dup {
							seen[s] = struct{}{}
							out = append(out, s)
						}
					}
				}
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		if _, dup := seen[m[1]]; !dup {
			seen[m[1]] = struct{}{}
			out = append(out, m[1])
		}
	}
	return out
}

// scanFrontmatter returns the index of the first body line and the parsed
// frontmatter map. Documents without a leading --- block start at line 0.
func scanFrontmatter(lines []string) (int, map[string]any) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return 0, nil
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			var fm map[string]any
			block := strings.Join(lines[1:i], "\n")
			if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
				return i + 1, nil
			}
			return i + 1, fm
		}
	}
	return 0, nil
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body []string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range body {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// boolKey reads a frontmatter key as a boolean, tolerating string forms.
func boolKey(fm map[string]any, key string) bool {
	if fm == nil {
		return false
	}
	switch v := fm[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return false
}

// Published reports whether the frontmatter marks the document as part of
// the publish set.
func (m *Meta) Published() bool {
	return boolKey(m.Frontmatter, "publish") || boolKey(m.Frontmatter, "dg-publish")
}

// IsDrawing reports whether the frontmatter marks the document as a drawing.
func (m *Meta) IsDrawing() bool {
	if m.Frontmatter == nil {
		return false
	}
	_, ok := m.Frontmatter["excalidraw-plugin"]
	return ok
}
