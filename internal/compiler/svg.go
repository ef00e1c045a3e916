package compiler

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/starford/raido/internal/reference"
)

var (
	svgEmbedRe  = regexp.MustCompile(`(?i)!\[\[([^\[\]]+?\.svg(?:\|[^\[\]]*)?)\]\]`)
	svgImageRe  = regexp.MustCompile(`(?i)!\[[^\]]*\]\(([^()\s]+?\.svg)\)`)
	svgRootRe   = regexp.MustCompile(`<svg\b[^>]*>`)
	widthAttrRe = regexp.MustCompile(`\bwidth="[^"]*"`)
)

// inlineSVG replaces SVG references with the raw SVG markup itself. A size
// suffix on the embed form overrides the width attribute on the root
// element; the rewrite is textual, so the rest of the markup survives the
// HTML embedding untouched. Unresolvable references stay as authored.
func (c *Compiler) inlineSVG(text, origin string) string {
	text = replaceOutside(text, svgEmbedRe, nil, func(match string) string {
		inner := match[len("![[") : len(match)-len("]]")]
		ref := reference.Parse(inner)
		svg, ok := c.readSVG(ref.Target, origin)
		if !ok {
			return match
		}
		if _, size, hasSize := ref.MetaSize(); hasSize {
			svg = setSVGWidth(svg, size)
		}
		return svg
	})

	return replaceOutside(text, svgImageRe, nil, func(match string) string {
		m := svgImageRe.FindStringSubmatch(match)
		src := m[1]
		if isExternalURL(src) {
			return match
		}
		decoded, err := url.PathUnescape(src)
		if err != nil {
			decoded = src
		}
		svg, ok := c.readSVG(decoded, origin)
		if !ok {
			return match
		}
		return svg
	})
}

func (c *Compiler) readSVG(name, origin string) (string, bool) {
	resolved, ok := c.vault.FindFile(name, origin)
	if !ok {
		return "", false
	}
	svg, err := c.vault.ReadText(resolved)
	if err != nil {
		c.logger.Warn("compiler: svg read failed",
			slog.String("path", resolved),
			slog.String("error", err.Error()))
		return "", false
	}
	return strings.TrimSpace(svg), true
}

// setSVGWidth sets (or replaces) the width attribute on the root <svg> tag.
func setSVGWidth(svg string, size int) string {
	loc := svgRootRe.FindStringIndex(svg)
	if loc == nil {
		return svg
	}
	tag := svg[loc[0]:loc[1]]
	attr := fmt.Sprintf(`width="%d"`, size)
	if widthAttrRe.MatchString(tag) {
		tag = widthAttrRe.ReplaceAllString(tag, attr)
	} else {
		tag = "<svg " + attr + tag[len("<svg"):]
	}
	return svg[:loc[0]] + tag + svg[loc[1]:]
}
