// Package drawing renders vector-drawing documents (Excalidraw-style
// markdown containers) into embeddable HTML. The scene payload is lifted
// out of the document and shipped base64-encoded; a shared loader script
// decodes and renders it client-side.
package drawing

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"

	"github.com/starford/raido/internal/compiler"
	"github.com/starford/raido/internal/vault"
)

var (
	compressedSceneRe = regexp.MustCompile("(?s)```compressed-json\n(.*?)```")
	plainSceneRe      = regexp.MustCompile("(?s)```json\n(.*?)```")
)

// supportScript bootstraps client-side rendering for every drawing on the
// page. Emitted at most once per compiled document.
const supportScript = `<script src="/js/drawing-loader.js" defer></script>` + "\n"

// Renderer implements compiler.DrawingRenderer over the vault.
type Renderer struct {
	vault *vault.Vault
}

// New creates a drawing renderer.
func New(v *vault.Vault) *Renderer {
	return &Renderer{vault: v}
}

// Render extracts the scene payload from the drawing document and wraps it
// in a container div. The id suffix keeps multiple embedded drawings from
// colliding in the DOM.
func (r *Renderer) Render(_ context.Context, path string, opts compiler.DrawingOptions) (string, error) {
	text, err := r.vault.ReadText(path)
	if err != nil {
		return "", fmt.Errorf("drawing: read %s: %w", path, err)
	}

	scene, compressed, err := extractScene(text)
	if err != nil {
		return "", fmt.Errorf("drawing: %s: %w", path, err)
	}

	id := "drawing"
	if opts.IDSuffix > 0 {
		id = fmt.Sprintf("drawing-%d", opts.IDSuffix)
	}

	out := fmt.Sprintf(
		`<div class="drawing-embed" id="%s" data-compressed="%t" data-scene="%s"></div>`+"\n",
		id, compressed, base64.StdEncoding.EncodeToString([]byte(scene)),
	)
	if opts.IncludeSupportScript {
		out += supportScript
	}
	return out, nil
}

// extractScene pulls the scene JSON out of the document, preferring the
// compressed form.
func extractScene(text string) (scene string, compressed bool, err error) {
	if m := compressedSceneRe.FindStringSubmatch(text); m != nil {
		return m[1], true, nil
	}
	if m := plainSceneRe.FindStringSubmatch(text); m != nil {
		return m[1], false, nil
	}
	return "", false, fmt.Errorf("no scene data found")
}

// Verify Renderer satisfies the compiler contract at compile time.
var _ compiler.DrawingRenderer = (*Renderer)(nil)
