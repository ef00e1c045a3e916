package index

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/raido/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{
		Path:      "hello.md",
		Title:     "Hello World",
		Checksum:  "abc123",
		Published: true,
		Tags:      []string{"go", "test"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertDocument(row, "This is a hello world document.", []string{"other.md"}); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "a.md", Checksum: "1", Tags: []string{}, UpdatedAt: time.Now()}, "body", []string{"b.md"})
	_ = db.UpsertDocument(DocumentRow{Path: "c.md", Checksum: "2", Tags: []string{}, UpdatedAt: time.Now()}, "body", []string{"b.md"})

	bl, err := db.Backlinks("b.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 {
		t.Fatalf("expected 2 backlinks, got %d", len(bl))
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "del.md", Checksum: "x", Tags: []string{}, UpdatedAt: time.Now()}, "body", []string{"target.md"})

	if err := db.DeleteDocument("del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	bl, _ := db.Backlinks("target.md")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "up.md", Title: "Old", Checksum: "1", Tags: []string{}, UpdatedAt: now}, "old body", []string{"x.md"})
	_ = db.UpsertDocument(DocumentRow{Path: "up.md", Title: "New", Checksum: "2", Published: true, Tags: []string{"new"}, UpdatedAt: now}, "new body", []string{"y.md"})

	cs, _ := db.GetChecksum("up.md")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	bl, _ := db.Backlinks("x.md")
	if len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	bl, _ = db.Backlinks("y.md")
	if len(bl) != 1 {
		t.Error("new link should exist")
	}
	if !db.Contains("up.md") {
		t.Error("re-upserted document should be publish-flagged")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestPublishedPathsAndContains(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "pub.md", Checksum: "1", Published: true, Tags: []string{}, UpdatedAt: now}, "body", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "draft.md", Checksum: "2", Published: false, Tags: []string{}, UpdatedAt: now}, "body", nil)

	paths, err := db.PublishedPaths()
	if err != nil {
		t.Fatalf("PublishedPaths: %v", err)
	}
	if len(paths) != 1 || paths[0] != "pub.md" {
		t.Errorf("PublishedPaths = %v, want [pub.md]", paths)
	}
	if !db.Contains("pub.md") {
		t.Error("Contains(pub.md) = false, want true")
	}
	if db.Contains("draft.md") {
		t.Error("Contains(draft.md) = true, want false")
	}
	if db.Contains("missing.md") {
		t.Error("Contains(missing.md) = true, want false")
	}
}

func TestListDocuments_TagFilterAndPagination(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "a.md", Checksum: "1", Tags: []string{"go"}, UpdatedAt: now}, "body", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "b.md", Checksum: "2", Tags: []string{"go", "web"}, UpdatedAt: now}, "body", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "c.md", Checksum: "3", Tags: []string{"misc"}, UpdatedAt: now}, "body", nil)

	docs, total, err := db.ListDocuments(10, 0, "go")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 2 || len(docs) != 2 {
		t.Fatalf("tag filter: total=%d len=%d, want 2/2", total, len(docs))
	}

	docs, total, err = db.ListDocuments(2, 2, "")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(docs) != 1 || docs[0].Path != "c.md" {
		t.Errorf("page 2 = %+v, want [c.md]", docs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "s.md", Title: "Search Me", Checksum: "1", Tags: []string{}, UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestSync_IndexesPublishFlagAndLinks(t *testing.T) {
	dir := t.TempDir()
	doc := "---\ntitle: Synced\ndg-publish: true\ntags: [alpha]\n---\n\nSee [[other note]] and [[second|alias]].\n"
	if err := os.WriteFile(filepath.Join(dir, "synced.md"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "draft.md"), []byte("no frontmatter here"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if !db.Contains("synced.md") {
		t.Error("synced.md should be publish-flagged")
	}
	if db.Contains("draft.md") {
		t.Error("draft.md should not be publish-flagged")
	}
	bl, _ := db.Backlinks("other note")
	if len(bl) != 1 || bl[0] != "synced.md" {
		t.Errorf("Backlinks(other note) = %v, want [synced.md]", bl)
	}

	// Second Sync with unchanged files must not error and must keep rows.
	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("re-Sync: %v", err)
	}
	cs, _ := db.GetChecksum("synced.md")
	if cs == "" {
		t.Error("synced.md missing after re-sync")
	}
}

func TestSync_ResolvesLinkTargetsToVaultPaths(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "folder"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "src.md"), []byte("See [[target]].\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "folder", "target.md"), []byte("# Target\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	bl, err := db.Backlinks("folder/target.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 1 || bl[0] != "src.md" {
		t.Errorf("Backlinks(folder/target.md) = %v, want [src.md]", bl)
	}
	if stale, _ := db.Backlinks("target"); len(stale) != 0 {
		t.Errorf("Backlinks(target) = %v, want none for the authored form", stale)
	}
}

func TestSync_RemovesStaleEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "keep.md"), []byte("# Keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	_ = db.UpsertDocument(DocumentRow{Path: "gone.md", Checksum: "x", Tags: []string{}, UpdatedAt: time.Now()}, "body", nil)

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	cs, _ := db.GetChecksum("gone.md")
	if cs != "" {
		t.Error("stale entry should be removed by sync")
	}
	cs, _ = db.GetChecksum("keep.md")
	if cs == "" {
		t.Error("on-disk document should be indexed by sync")
	}
}
