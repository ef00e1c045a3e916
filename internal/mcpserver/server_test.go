package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/compiler"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/vault"
)

func testServer(t *testing.T) (*Server, storage.Provider, *index.DB) {
	t.Helper()

	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "raido-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := vault.New(store)
	comp := compiler.New(v, compiler.Options{PublishSet: db, Logger: logger})

	srv := New(store, v, comp, db)
	return srv, store, db
}

func syncTest(t *testing.T, store storage.Provider, db *index.DB) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := index.Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_documents":
		result, err = srv.searchDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "compile_document":
		result, err = srv.compileDocument(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "list_published":
		result, err = srv.listPublished(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "import_asset":
		result, err = srv.importAsset(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadDocument(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("doc.md", []byte("# Doc\nBody with %%comment%%"))

	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "doc.md"})
	text := resultText(r)
	if !strings.Contains(text, "%%comment%%") {
		t.Errorf("read should return raw source, got %q", text)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestCompileDocument(t *testing.T) {
	srv, store, _ := testServer(t)
	_ = store.Write("main.md", []byte("Intro %%draft note%%\n\n![[part]]\n"))
	_ = store.Write("part.md", []byte("Embedded content here.\n"))

	r := callTool(t, srv, "compile_document", map[string]interface{}{"path": "main.md"})
	if r.IsError {
		t.Fatalf("compile failed: %s", resultText(r))
	}
	text := resultText(r)
	if strings.Contains(text, "draft note") {
		t.Errorf("comment should be stripped: %q", text)
	}
	if !strings.Contains(text, "Embedded content here.") {
		t.Errorf("transclusion not expanded: %q", text)
	}
}

func TestListPublished(t *testing.T) {
	srv, store, db := testServer(t)
	_ = store.Write("pub.md", []byte("---\npublish: true\n---\nP\n"))
	_ = store.Write("draft.md", []byte("D\n"))
	syncTest(t, store, db)

	r := callTool(t, srv, "list_published", map[string]interface{}{})
	text := resultText(r)
	if text != "pub.md" {
		t.Errorf("list_published = %q, want pub.md", text)
	}
}

func TestSearchDocuments(t *testing.T) {
	srv, store, db := testServer(t)
	_ = store.Write("s.md", []byte("# Searchable\n\nquixotic phrase\n"))
	syncTest(t, store, db)

	r := callTool(t, srv, "search_documents", map[string]interface{}{"query": "quixotic"})
	text := resultText(r)
	if !strings.Contains(text, "s.md") {
		t.Errorf("search result = %q, want hit for s.md", text)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, store, db := testServer(t)
	_ = store.Write("a.md", []byte("links to [[b]]"))
	syncTest(t, store, db)

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"path": "b"})
	text := resultText(r)
	if text != "a.md" {
		t.Errorf("backlinks = %q, want a.md", text)
	}
}

func TestImportAsset_DataURI(t *testing.T) {
	srv, store, _ := testServer(t)

	// Smallest valid PNG header so content sniffing passes.
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	r := callTool(t, srv, "import_asset", map[string]interface{}{
		"url":      uri,
		"filename": "logo.png",
	})
	if r.IsError {
		t.Fatalf("import failed: %s", resultText(r))
	}
	var res importResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.SavedPath != "assets/logo.png" {
		t.Errorf("savedPath = %q", res.SavedPath)
	}
	if res.Embed != "![[assets/logo.png]]" {
		t.Errorf("embed = %q", res.Embed)
	}
	if res.PublishPath != "/img/user/assets/logo.png" {
		t.Errorf("publishPath = %q", res.PublishPath)
	}
	if _, err := store.Read("assets/logo.png"); err != nil {
		t.Error("asset not written to vault")
	}
}

func TestImportAsset_RejectsBadExtension(t *testing.T) {
	srv, _, _ := testServer(t)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'})
	r := callTool(t, srv, "import_asset", map[string]interface{}{
		"url":      uri,
		"filename": "evil.exe",
	})
	if !r.IsError {
		t.Error("expected error for disallowed extension")
	}
}
