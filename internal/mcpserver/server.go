// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes raido's vault and compiler as tools for LLM integration
// via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/compiler"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/vault"
)

// Server wraps the MCP server with raido tools.
type Server struct {
	mcp      *server.MCPServer
	store    storage.Provider
	vault    *vault.Vault
	compiler *compiler.Compiler
	db       *index.DB
}

// New creates a new MCP server with all raido tools registered.
func New(store storage.Provider, v *vault.Vault, c *compiler.Compiler, db *index.DB) *Server {
	s := &Server{store: store, vault: v, compiler: c, db: db}

	s.mcp = server.NewMCPServer(
		"raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through vault document content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw vault source of a Markdown document, before any publish processing."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. folder/doc.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("compile_document",
		mcp.WithDescription("Run the publish pipeline on a document and return the "+
			"publishable markdown: transclusions expanded, wikilinks canonicalized, "+
			"comments stripped, and image references rewritten to their publish paths. "+
			"Extracted asset paths are listed after the text."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document to compile")),
	), s.compileDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all vault documents or documents in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("list_published",
		mcp.WithDescription("List the documents currently flagged for publishing."),
	), s.listPublished)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Name or path of the document to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("import_asset",
		mcp.WithDescription("Download an image (http/https URL or base64 data URI) into the "+
			"vault's assets directory and return the embed markup to paste into a document."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Image URL or data URI")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.importAsset)

	s.mcp.AddTool(mcp.NewTool("get_publish_contract",
		mcp.WithDescription("Returns the canonical raido document format contract: frontmatter "+
			"publish flags and the markup the publish pipeline understands. Call this before "+
			"authoring documents meant for publishing."),
	), s.getPublishContract)

	// Resource: publish format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://publish-format", "Publish Format Contract",
			mcp.WithResourceDescription("Canonical Markdown document format the publish pipeline processes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPublishFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.vault.ReadText(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) compileDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.compiler.Compile(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("compile failed: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString(doc.Text)
	if len(doc.Assets) > 0 {
		b.WriteString("\n\n---\nextracted assets:\n")
		for _, a := range doc.Assets {
			b.WriteString(a.Path)
			b.WriteString("\n")
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		if strings.HasSuffix(m.Path, ".md") {
			paths = append(paths, m.Path)
		}
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) listPublished(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := s.db.PublishedPaths()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no documents flagged for publishing"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getPublishContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PublishFormatContract), nil
}

func (s *Server) readPublishFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://publish-format",
			MIMEType: "text/markdown",
			Text:     PublishFormatContract,
		},
	}, nil
}
