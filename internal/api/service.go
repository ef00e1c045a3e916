package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/compiler"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/vault"
)

// Service coordinates the vault, the compiler, and the document index for
// the preview API layer.
type Service struct {
	vault    *vault.Vault
	compiler *compiler.Compiler
	db       *index.DB
	md       goldmark.Markdown
}

// NewService creates a new preview API service.
func NewService(v *vault.Vault, c *compiler.Compiler, db *index.DB) *Service {
	return &Service{
		vault:    v,
		compiler: c,
		db:       db,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// DocumentDetail is the response payload for a single compiled document.
type DocumentDetail struct {
	Path      string           `json:"path"`
	Title     string           `json:"title"`
	Text      string           `json:"text"`
	Assets    []compiler.Asset `json:"assets"`
	Tags      []string         `json:"tags"`
	Published bool             `json:"published"`
	Backlinks []string         `json:"backlinks"`
}

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Published bool      `json:"published"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// checkDocPath rejects compile requests for non-markdown vault files.
func checkDocPath(path string) error {
	if !strings.HasSuffix(strings.ToLower(path), ".md") {
		return apperr.ErrNotMarkdown
	}
	return nil
}

// docErr maps a missing vault file onto the API error taxonomy.
func docErr(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return apperr.ErrNotFound
	}
	return err
}

// GetDocument compiles a document on demand and enriches it with index data.
func (s *Service) GetDocument(ctx context.Context, path string) (*DocumentDetail, error) {
	if err := checkDocPath(path); err != nil {
		return nil, err
	}
	meta, err := s.vault.Meta(path)
	if err != nil {
		return nil, docErr(err)
	}
	doc, err := s.compiler.Compile(ctx, path)
	if err != nil {
		return nil, docErr(err)
	}

	bl, _ := s.db.Backlinks(path)
	if bl == nil {
		bl = []string{}
	}
	tags := meta.Tags
	if tags == nil {
		tags = []string{}
	}
	return &DocumentDetail{
		Path:      doc.Path,
		Title:     meta.Title,
		Text:      doc.Text,
		Assets:    doc.Assets,
		Tags:      tags,
		Published: meta.Published(),
		Backlinks: bl,
	}, nil
}

// RenderHTML compiles a document and renders the result to HTML for the
// live preview pane.
func (s *Service) RenderHTML(ctx context.Context, path string) ([]byte, error) {
	if err := checkDocPath(path); err != nil {
		return nil, err
	}
	doc, err := s.compiler.Compile(ctx, path)
	if err != nil {
		return nil, docErr(err)
	}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(doc.Text), &buf); err != nil {
		return nil, fmt.Errorf("api: render html: %w", err)
	}
	return buf.Bytes(), nil
}

// GetSource returns the raw vault text of a document.
func (s *Service) GetSource(ctx context.Context, path string) (string, error) {
	text, err := s.vault.ReadText(path)
	if err != nil {
		return "", docErr(err)
	}
	return text, nil
}

// ListDocuments returns paginated documents with optional tag filter.
func (s *Service) ListDocuments(ctx context.Context, limit, offset int, tag string) ([]DocumentListItem, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset, tag)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocumentListItem, len(rows))
	for i, r := range rows {
		tags := r.Tags
		if tags == nil {
			tags = []string{}
		}
		items[i] = DocumentListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Published: r.Published,
			Tags:      tags,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates to the index.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Backlinks returns the documents linking to the given target name.
func (s *Service) Backlinks(ctx context.Context, target string) ([]string, error) {
	bl, err := s.db.Backlinks(target)
	if err != nil {
		return nil, err
	}
	if bl == nil {
		bl = []string{}
	}
	return bl, nil
}

// Invalidate drops cached metadata for a changed vault file. Wired to the
// filesystem watcher.
func (s *Service) Invalidate(path string) {
	s.vault.Invalidate(path)
}
