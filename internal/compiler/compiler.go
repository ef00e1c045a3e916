// Package compiler turns vault documents into standalone publishable text
// plus extracted binary assets. It is an ordered sequence of regex-oriented
// text passes over the raw markdown; no parse tree is built, so surrounding
// whitespace and escaping survive byte-for-byte.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/raido/internal/vault"
)

// Asset is one extracted binary, addressed by its canonical publish path.
// Content is base64-encoded.
type Asset struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// CompiledDocument is the pipeline output for one document.
type CompiledDocument struct {
	Path   string  `json:"path"`
	Text   string  `json:"text"`
	Assets []Asset `json:"assets"`
}

// FrontmatterCompiler produces the serialized frontmatter block that
// replaces the document's own. The compiler inserts the returned string
// verbatim.
type FrontmatterCompiler interface {
	Compile(path string, meta *vault.Meta) (string, error)
}

// QueryEvaluator renders a query string into markup, or fails. A failure
// leaves the original query block unexpanded.
type QueryEvaluator interface {
	Evaluate(ctx context.Context, query, docPath string) (string, error)
}

// DrawingOptions controls one drawing-compiler invocation.
type DrawingOptions struct {
	// IncludeSupportScript asks for the shared loader script; emitted at
	// most once per top-level compile.
	IncludeSupportScript bool
	// IDSuffix disambiguates container ids when several drawings are
	// embedded in one compile.
	IDSuffix int
}

// DrawingRenderer compiles a drawing document into embeddable markup.
type DrawingRenderer interface {
	Render(ctx context.Context, path string, opts DrawingOptions) (string, error)
}

// PublishSet answers whether a document is part of the current publish
// selection. Used only to decide whether transclusions get a link-back.
type PublishSet interface {
	Contains(path string) bool
}

// Options wires the compiler's collaborators and tunables. Every field is
// optional; the corresponding pass degrades to a no-op when unset.
type Options struct {
	Frontmatter FrontmatterCompiler
	Query       QueryEvaluator
	Drawing     DrawingRenderer
	PublishSet  PublishSet
	Filters     []FilterRule
	QueryConfig QueryConfig
	// ImageBase is the publish path prefix for extracted assets.
	// Defaults to "/img/user".
	ImageBase string
	Logger    *slog.Logger
}

// Compiler runs the document compilation pipeline. One instance serves
// concurrent top-level compiles; all per-compile state lives in the
// compile context.
type Compiler struct {
	vault      *vault.Vault
	fm         FrontmatterCompiler
	query      QueryEvaluator
	drawing    DrawingRenderer
	publishSet PublishSet
	filters    []filterRule
	queries    queryPatterns
	imageBase  string
	logger     *slog.Logger
}

// New creates a Compiler over the given vault.
func New(v *vault.Vault, opts Options) *Compiler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	imageBase := opts.ImageBase
	if imageBase == "" {
		imageBase = "/img/user"
	}
	return &Compiler{
		vault:      v,
		fm:         opts.Frontmatter,
		query:      opts.Query,
		drawing:    opts.Drawing,
		publishSet: opts.PublishSet,
		filters:    compileFilters(opts.Filters, logger),
		queries:    compileQueryPatterns(opts.QueryConfig),
		imageBase:  strings.TrimSuffix(imageBase, "/"),
		logger:     logger,
	}
}

// Compile runs the full pipeline for one document and returns its
// publishable text and extracted assets. The pass order is load-bearing:
// transclusion runs before link canonicalization so inlined content's own
// links get canonicalized; comment stripping runs late so earlier passes
// still see authoring comments; frontmatter substitution runs first so the
// raw frontmatter never reaches the regex passes.
func (c *Compiler) Compile(ctx context.Context, path string) (*CompiledDocument, error) {
	meta, err := c.vault.Meta(path)
	if err != nil {
		return nil, fmt.Errorf("compiler: read metadata %s: %w", path, err)
	}

	if isDrawingPath(path) || meta.IsDrawing() {
		if c.drawing == nil {
			return nil, fmt.Errorf("compiler: %s is a drawing but no drawing renderer is configured", path)
		}
		text, err := c.drawing.Render(ctx, path, DrawingOptions{IncludeSupportScript: true})
		if err != nil {
			return nil, fmt.Errorf("compiler: render drawing %s: %w", path, err)
		}
		return &CompiledDocument{Path: path, Text: text, Assets: []Asset{}}, nil
	}

	raw, err := c.vault.ReadText(path)
	if err != nil {
		return nil, fmt.Errorf("compiler: read %s: %w", path, err)
	}

	cc := newCompileContext(path)

	text := c.substituteFrontmatter(raw, path, meta)
	text = c.applyFilters(text)
	text = synthesizeBlockAnchors(text)
	text = c.resolveTransclusions(ctx, text, path, cc)
	text = c.evaluateQueries(ctx, text, path)
	text = c.canonicalizeLinks(text, path)
	text = stripComments(text)
	text = c.inlineSVG(text, path)

	text, assets := c.rewriteImages(text, path)

	return &CompiledDocument{Path: path, Text: text, Assets: assets}, nil
}

// isDrawingPath recognizes drawing documents by their conventional suffix.
func isDrawingPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".excalidraw.md")
}
