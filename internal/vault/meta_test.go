package vault

import (
	"testing"
)

func TestParseMeta_FrontmatterAndTitle(t *testing.T) {
	input := []byte("---\ntitle: Hello\npublish: true\n---\n# Hello\nBody text.\n")
	m := ParseMeta(input)
	if m.Title != "Hello" {
		t.Errorf("title = %q, want %q", m.Title, "Hello")
	}
	if m.BodyStart != 4 {
		t.Errorf("body start = %d, want 4", m.BodyStart)
	}
	if !m.Published() {
		t.Error("expected document to be publish-flagged")
	}
}

func TestParseMeta_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: bad: yaml: {{{\n---\nBody\n")
	m := ParseMeta(input)
	if m.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML, got %v", m.Frontmatter)
	}
	// The malformed block is still skipped.
	if m.BodyStart != 3 {
		t.Errorf("body start = %d, want 3", m.BodyStart)
	}
}

func TestParseMeta_Headings(t *testing.T) {
	input := []byte("# Top\ntext\n## Sub\nmore\n# Next\n")
	m := ParseMeta(input)
	if len(m.Headings) != 3 {
		t.Fatalf("len(headings) = %d, want 3", len(m.Headings))
	}
	if m.Headings[1].Text != "Sub" || m.Headings[1].Level != 2 || m.Headings[1].Line != 2 {
		t.Errorf("headings[1] = %+v", m.Headings[1])
	}
}

func TestParseMeta_HeadingInsideFenceIgnored(t *testing.T) {
	input := []byte("```\n# not a heading\n```\n# Real\n")
	m := ParseMeta(input)
	if len(m.Headings) != 1 || m.Headings[0].Text != "Real" {
		t.Errorf("headings = %+v, want only Real", m.Headings)
	}
}

func TestParseMeta_Anchors(t *testing.T) {
	input := []byte("a\nsome content ^blk\nb\nparagraph\n^solo\n")
	m := ParseMeta(input)

	if got, want := m.Anchors["blk"], (Anchor{Start: 1, End: 1}); got != want {
		t.Errorf("anchor blk = %+v, want %+v", got, want)
	}
	// A solo anchor line covers the block above it.
	if got, want := m.Anchors["solo"], (Anchor{Start: 3, End: 4}); got != want {
		t.Errorf("anchor solo = %+v, want %+v", got, want)
	}
}

func TestParseMeta_LeadingAnchor(t *testing.T) {
	m := ParseMeta([]byte("a\n^blk: content\nb\n"))
	if got, want := m.Anchors["blk"], (Anchor{Start: 1, End: 1}); got != want {
		t.Errorf("anchor blk = %+v, want %+v", got, want)
	}
}

func TestParseMeta_LinksAndTags(t *testing.T) {
	input := []byte("---\ntags:\n  - alpha\n---\nsee [[Note A]] and [[Note B|alias]] and [[Note A#Part]]\ntext #beta here\n")
	m := ParseMeta(input)
	if len(m.Links) != 2 || m.Links[0] != "Note A" || m.Links[1] != "Note B" {
		t.Errorf("links = %v, want [Note A, Note B]", m.Links)
	}
	if len(m.Tags) != 2 || m.Tags[0] != "alpha" || m.Tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", m.Tags)
	}
}

func TestParseMeta_Drawing(t *testing.T) {
	input := []byte("---\nexcalidraw-plugin: parsed\n---\n# Drawing\n")
	if !ParseMeta(input).IsDrawing() {
		t.Error("expected drawing document")
	}
	if ParseMeta([]byte("plain\n")).IsDrawing() {
		t.Error("plain document misdetected as drawing")
	}
}
