package compiler

import (
	"regexp"
	"strings"

	"github.com/starford/raido/internal/reference"
)

var wikilinkRe = regexp.MustCompile(`(!?)\[\[([^\[\]]+?)\]\]`)

// canonicalizeLinks rewrites every [[...]] reference outside code fences,
// inline code, and the frontmatter block. Resolved markdown targets get
// their full vault path (extension-less) with the section fragment
// re-appended and the pipe escaped before the display name. Unresolved
// references only get the pipe escaped, so the display text still renders
// without a working link.
func (c *Compiler) canonicalizeLinks(text, origin string) string {
	protected := protectedRegions(text)
	if fm, ok := frontmatterSpan(text); ok {
		protected = append(protected, fm)
	}

	locs := wikilinkRe.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range locs {
		b.WriteString(text[last:loc[0]])
		match := text[loc[0]:loc[1]]
		last = loc[1]

		bang := text[loc[2]:loc[3]]
		inner := text[loc[4]:loc[5]]
		if bang == "!" || inAny(protected, loc[0], loc[1]) {
			// Embeds belong to the transclusion and asset passes.
			b.WriteString(match)
			continue
		}
		b.WriteString(c.rewriteLink(inner, origin))
	}
	b.WriteString(text[last:])
	return b.String()
}

func (c *Compiler) rewriteLink(inner, origin string) string {
	ref := reference.Parse(inner)

	resolved, ok := c.vault.FindFile(ref.Target, origin)
	if !ok || !strings.HasSuffix(strings.ToLower(resolved), ".md") {
		return "[[" + escapePipes(inner) + "]]"
	}

	display := ref.Display()
	if display == "" {
		// Default to the link text as authored, fragment included.
		display = strings.SplitN(inner, "|", 2)[0]
	}
	canonical := resolved[:len(resolved)-len(".md")]
	return "[[" + canonical + ref.Fragment() + `\|` + display + "]]"
}

// escapePipes escapes every pipe exactly once, normalizing first so an
// already-escaped reference is not double-escaped.
func escapePipes(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\|`, "|"), "|", `\|`)
}
