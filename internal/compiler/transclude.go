package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/starford/raido/internal/reference"
)

// maxTransclusionDepth bounds recursion across the document graph,
// inclusive of the root level. Cyclic embeds degrade to bounded repetition
// instead of looping; no visited-set is kept.
const maxTransclusionDepth = 4

var (
	transclusionRe   = regexp.MustCompile(`!\[\[([^\[\]]+?)\]\]`)
	anchorTokenRe    = regexp.MustCompile(`(?m)[ \t]*\^[A-Za-z0-9-]+[ \t]*$`)
	headingMarkersRe = regexp.MustCompile(`^#{1,6}[ \t]*`)
)

// resolveTransclusions expands every ![[...]] embed whose target is a
// markdown or drawing document. Matches are processed left to right;
// replacement is first-occurrence substitution, so identical raw match
// text repeated in the document expands identically. Each match is
// isolated: a failing embed is skipped and the rest of the document
// compiles.
func (c *Compiler) resolveTransclusions(ctx context.Context, text, source string, cc *compileContext) string {
	if cc.depth >= maxTransclusionDepth {
		return text
	}
	for _, m := range transclusionRe.FindAllStringSubmatch(text, -1) {
		expanded, ok := c.expandEmbed(ctx, m[1], source, cc)
		if !ok {
			continue
		}
		text = strings.Replace(text, m[0], expanded, 1)
	}
	return text
}

// expandEmbed resolves and splices one embed match. ok is false when the
// match must stay as authored: unresolved target, non-document extension
// (images are the asset pass's business), or a collaborator failure.
func (c *Compiler) expandEmbed(ctx context.Context, inner, source string, cc *compileContext) (string, bool) {
	ref := reference.Parse(inner)

	resolved, found := c.vault.FindFile(ref.Target, source)
	if !found {
		return "", false
	}
	if !strings.HasSuffix(strings.ToLower(resolved), ".md") {
		return "", false
	}

	meta, err := c.vault.Meta(resolved)
	if err != nil {
		c.logger.Warn("compiler: transclusion target unreadable",
			slog.String("path", resolved),
			slog.String("error", err.Error()))
		return "", false
	}

	if isDrawingPath(resolved) || meta.IsDrawing() {
		if c.drawing == nil {
			return "", false
		}
		suffix, first := cc.nextDrawing()
		out, err := c.drawing.Render(ctx, resolved, DrawingOptions{
			IncludeSupportScript: first,
			IDSuffix:             suffix,
		})
		if err != nil {
			c.logger.Warn("compiler: drawing render failed",
				slog.String("path", resolved),
				slog.String("error", err.Error()))
			return "", false
		}
		return out, true
	}

	slice, ok := c.sliceTarget(resolved, ref)
	if !ok {
		return "", false
	}

	slice = c.applyFilters(slice)
	slice = anchorTokenRe.ReplaceAllString(slice, "")

	body := slice
	if display := ref.Display(); strings.Contains(display, "{{title}}") {
		title := strings.ReplaceAll(display, "{{title}}", baseName(resolved))
		body = "# " + normalizeHeading(title) + "\n" + body
	}

	if strings.Contains(body, "![[") {
		body = c.resolveTransclusions(ctx, body, resolved, cc.descend(resolved))
	}

	linkBack := ""
	if c.publishSet != nil && c.publishSet.Contains(resolved) {
		href := "/" + encodePath(strings.TrimSuffix(resolved, ".md")) + ref.Fragment()
		linkBack = fmt.Sprintf(`<a class="markdown-embed-link" href="%s" aria-label="Open link">↗</a>`, href)
	}

	return `<div class="transclusion internal-embed is-loaded">` + linkBack +
		"<div class=\"markdown-embed\">\n\n" + body + "\n\n</div></div>\n", true
}

// sliceTarget cuts the referenced portion out of the target document:
// the block anchor's line range, the header's section (down to the next
// same-or-shallower heading), or the whole body without its frontmatter.
func (c *Compiler) sliceTarget(resolved string, ref reference.Reference) (string, bool) {
	text, err := c.vault.ReadText(resolved)
	if err != nil {
		return "", false
	}
	meta, err := c.vault.Meta(resolved)
	if err != nil {
		return "", false
	}
	lines := strings.Split(text, "\n")

	switch {
	case ref.BlockID != "":
		a, ok := meta.Anchors[ref.BlockID]
		if !ok || a.End >= len(lines) {
			return "", false
		}
		slice := strings.Join(lines[a.Start:a.End+1], "\n")
		// The anchor token itself is authoring markup, not content. It
		// may sit anywhere on the anchored line, not only at its end.
		return strings.Replace(slice, "^"+ref.BlockID, "", 1), true

	case ref.Header != "":
		want := normalizeHeading(ref.Header)
		for i, h := range meta.Headings {
			if normalizeHeading(h.Text) != want {
				continue
			}
			end := len(lines)
			for _, next := range meta.Headings[i+1:] {
				if next.Level <= h.Level {
					end = next.Line
					break
				}
			}
			return strings.Join(lines[h.Line:end], "\n"), true
		}
		return "", false

	default:
		return strings.Join(lines[meta.BodyStart:], "\n"), true
	}
}

// normalizeHeading strips heading markers and surrounding whitespace so
// authored fragments and transcluded titles compare and render uniformly.
func normalizeHeading(s string) string {
	return strings.TrimSpace(headingMarkersRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

func baseName(p string) string {
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}
