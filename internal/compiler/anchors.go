package compiler

import "regexp"

var (
	soloBlockIDRe     = regexp.MustCompile(`(?m)^[ \t]*\^([A-Za-z0-9-]+)[ \t]*$`)
	trailingBlockIDRe = regexp.MustCompile(`(?m)^(.+?)[ \t]+\^([A-Za-z0-9-]+)[ \t]*$`)
)

// synthesizeBlockAnchors turns authored ^id block markers into renderable
// anchors. A line holding only ^id becomes an empty paragraph carrying the
// anchor; a trailing ^id moves onto its own anchor line after the content.
// The solo form runs first so the trailing form cannot double-process it,
// and neither output shape matches either pattern again (idempotent).
func synthesizeBlockAnchors(text string) string {
	text = soloBlockIDRe.ReplaceAllString(text, "\n{ #$1}\n")
	text = trailingBlockIDRe.ReplaceAllString(text, "$1\n\n{ #$2}\n")
	return text
}
