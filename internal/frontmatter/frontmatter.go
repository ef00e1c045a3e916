// Package frontmatter builds the serialized metadata header of a published
// document. The pipeline inserts the returned block verbatim in place of
// the author's own frontmatter.
package frontmatter

import (
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/vault"
)

// controlKeys are authoring-side switches that must not leak into the
// published header.
var controlKeys = []string{"publish", "dg-publish", "excalidraw-plugin"}

// Compiler produces the published frontmatter block for a document.
type Compiler struct{}

// New creates a frontmatter compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile copies the author's frontmatter, strips publish-control keys,
// and guarantees title and permalink fields. The permalink defaults to the
// document's extension-less vault path.
func (c *Compiler) Compile(docPath string, meta *vault.Meta) (string, error) {
	out := make(map[string]any, len(meta.Frontmatter)+2)
	for k, v := range meta.Frontmatter {
		out[k] = v
	}
	for _, k := range controlKeys {
		delete(out, k)
	}

	if _, ok := out["title"]; !ok {
		title := meta.Title
		if title == "" {
			title = strings.TrimSuffix(path.Base(docPath), path.Ext(docPath))
		}
		out["title"] = title
	}
	if _, ok := out["permalink"]; !ok {
		out["permalink"] = "/" + strings.TrimSuffix(docPath, ".md")
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("frontmatter: marshal %s: %w", docPath, err)
	}
	return "---\n" + string(data) + "---\n", nil
}
