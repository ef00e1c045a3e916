package compiler

import (
	"log/slog"
	"strings"

	"github.com/starford/raido/internal/vault"
)

// substituteFrontmatter strips the document's own frontmatter block and
// prepends whatever the frontmatter collaborator produces. It runs first
// so no raw frontmatter survives into later regex scans. A collaborator
// failure keeps the body and drops the header (fail-soft).
func (c *Compiler) substituteFrontmatter(text, path string, meta *vault.Meta) string {
	body := text
	if meta.BodyStart > 0 {
		lines := strings.SplitN(text, "\n", meta.BodyStart+1)
		if len(lines) > meta.BodyStart {
			body = lines[meta.BodyStart]
		} else {
			body = ""
		}
	}
	if c.fm == nil {
		return body
	}
	compiled, err := c.fm.Compile(path, meta)
	if err != nil {
		c.logger.Warn("compiler: frontmatter compile failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return body
	}
	return compiled + body
}
