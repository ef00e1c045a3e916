package vault

import (
	"path"
	"strings"
	"sync"

	"github.com/starford/raido/internal/storage"
)

// Vault provides read access to the content store with a per-path metadata
// cache and nearest-match reference lookup. Safe for concurrent use; each
// top-level compile may run on its own goroutine.
type Vault struct {
	store storage.Provider

	mu    sync.RWMutex
	metas map[string]*Meta
	files []string
}

// New creates a Vault over the given store.
func New(store storage.Provider) *Vault {
	return &Vault{
		store: store,
		metas: make(map[string]*Meta),
	}
}

// ReadText returns the full text of a vault document.
func (v *Vault) ReadText(p string) (string, error) {
	data, err := v.store.Read(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBinary returns the raw bytes of a vault file.
func (v *Vault) ReadBinary(p string) ([]byte, error) {
	return v.store.Read(p)
}

// Meta returns the cached metadata projection for a markdown document,
// parsing it on first access.
func (v *Vault) Meta(p string) (*Meta, error) {
	v.mu.RLock()
	m, ok := v.metas[p]
	v.mu.RUnlock()
	if ok {
		return m, nil
	}

	data, err := v.store.Read(p)
	if err != nil {
		return nil, err
	}
	m = ParseMeta(data)

	v.mu.Lock()
	v.metas[p] = m
	v.mu.Unlock()
	return m, nil
}

// Files returns every file path in the vault, cached after the first walk.
func (v *Vault) Files() ([]string, error) {
	v.mu.RLock()
	cached := v.files
	v.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	metas, err := v.store.List("")
	if err != nil {
		return nil, err
	}
	files := make([]string, len(metas))
	for i, m := range metas {
		files[i] = m.Path
	}

	v.mu.Lock()
	v.files = files
	v.mu.Unlock()
	return files, nil
}

// Invalidate drops cached state for a path. Called by the watcher when a
// file changes; a nonexistent path is a no-op.
func (v *Vault) Invalidate(p string) {
	v.mu.Lock()
	delete(v.metas, p)
	v.files = nil
	v.mu.Unlock()
}

// FindFile resolves a bare or partially-qualified file name to a concrete
// vault path, from the perspective of the origin document. Candidates are
// files whose relative path equals name or ends with it as a path suffix;
// ties are broken by proximity to the origin's directory, then by path
// length. Matching is case-insensitive. Returns false when nothing matches.
func (v *Vault) FindFile(name, origin string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	if path.Ext(name) == "" {
		name += ".md"
	}
	files, err := v.Files()
	if err != nil {
		return "", false
	}

	lower := strings.ToLower(name)
	// Drawing-style names carry their own dot ("sketch.excalidraw") but
	// live in .md files, so the markdown-suffixed form is tried too.
	alt := ""
	if !strings.HasSuffix(lower, ".md") {
		alt = lower + ".md"
	}
	originDir := path.Dir(origin)

	best := ""
	bestScore := -1
	for _, f := range files {
		lf := strings.ToLower(f)
		if !matchesName(lf, lower) && (alt == "" || !matchesName(lf, alt)) {
			continue
		}
		score := sharedSegments(originDir, path.Dir(f))
		if score > bestScore || (score == bestScore && (best == "" || len(f) < len(best))) {
			best, bestScore = f, score
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// matchesName reports whether the lowered file path equals the lowered name
// or ends with it as a path suffix.
func matchesName(file, name string) bool {
	return file == name || strings.HasSuffix(file, "/"+name)
}

// sharedSegments counts leading path segments two directories have in common.
func sharedSegments(a, b string) int {
	if a == "." {
		a = ""
	}
	if b == "." {
		b = ""
	}
	as := strings.Split(a, "/")
	bs := strings.Split(b, "/")
	n := 0
	for n < len(as) && n < len(bs) && as[n] == bs[n] && as[n] != "" {
		n++
	}
	return n
}
