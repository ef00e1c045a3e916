package publish

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/raido/internal/compiler"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/vault"
)

type fakeIndex []string

func (f fakeIndex) PublishedPaths() ([]string, error) { return f, nil }

func testPublisher(t *testing.T, files map[string]string, bins map[string][]byte, paths []string) (*Publisher, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	for p, content := range files {
		full := filepath.Join(vaultDir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for p, data := range bins {
		full := filepath.Join(vaultDir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	comp := compiler.New(vault.New(store), compiler.Options{Logger: logger})

	out, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return New(comp, fakeIndex(paths), out, logger, 2), out
}

func TestRun_WritesNotesAndAssets(t *testing.T) {
	pub, out := testPublisher(t,
		map[string]string{
			"garden/home.md": "# Home\n\n![[pic.png]]\n",
			"garden/side.md": "Just text.\n",
		},
		map[string][]byte{
			"assets/pic.png": []byte("pngbytes"),
		},
		[]string{"garden/home.md", "garden/side.md"},
	)

	sum, err := pub.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Published != 2 || sum.Failed != 0 {
		t.Fatalf("summary = %+v, want 2 published / 0 failed", sum)
	}
	if sum.Assets != 1 {
		t.Errorf("assets written = %d, want 1", sum.Assets)
	}

	text, err := out.Read("notes/garden/home.md")
	if err != nil {
		t.Fatalf("compiled note missing: %v", err)
	}
	if !strings.Contains(string(text), "/img/user/assets/pic.png") {
		t.Errorf("compiled note should reference published asset path, got:\n%s", text)
	}

	asset, err := out.Read("img/user/assets/pic.png")
	if err != nil {
		t.Fatalf("published asset missing: %v", err)
	}
	if string(asset) != "pngbytes" {
		t.Errorf("asset content = %q, want %q", asset, "pngbytes")
	}
}

func TestRun_SecondRunSkipsUnchanged(t *testing.T) {
	pub, _ := testPublisher(t,
		map[string]string{"a.md": "# A\n"},
		nil,
		[]string{"a.md"},
	)

	if _, err := pub.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	sum, err := pub.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Published != 0 || sum.Skipped != 1 {
		t.Errorf("second run summary = %+v, want 0 published / 1 skipped", sum)
	}
}

func TestRun_FailureIsIsolated(t *testing.T) {
	pub, out := testPublisher(t,
		map[string]string{"good.md": "# Good\n"},
		nil,
		[]string{"missing.md", "good.md"},
	)

	sum, err := pub.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should not abort on per-document failure: %v", err)
	}
	if sum.Failed != 1 {
		t.Errorf("failed = %d, want 1", sum.Failed)
	}
	if sum.Published != 1 {
		t.Errorf("published = %d, want 1", sum.Published)
	}
	if _, err := out.Read("notes/good.md"); err != nil {
		t.Error("good document should still be published")
	}
}

func TestDecodeAssetPath(t *testing.T) {
	got := decodeAssetPath("/img/user/my%20dir/a%20b.png")
	if got != "img/user/my dir/a b.png" {
		t.Errorf("decodeAssetPath = %q", got)
	}
}
