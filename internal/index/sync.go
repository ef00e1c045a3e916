package index

import (
	"log/slog"
	"strings"
	"time"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/vault"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed markdown documents are parsed and upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	v := vault.New(store)

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if !strings.HasSuffix(m.Path, ".md") {
			continue
		}
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, v, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses a markdown document and upserts it into the DB. Link
// targets are stored under their resolved vault paths so backlink queries
// by document path find them; targets that resolve to nothing keep their
// authored form.
func indexFile(db *DB, v *vault.Vault, path string, data []byte) error {
	meta := vault.ParseMeta(data)

	lines := strings.Split(string(data), "\n")
	body := strings.Join(lines[meta.BodyStart:], "\n")

	links := make([]string, 0, len(meta.Links))
	for _, target := range meta.Links {
		if resolved, ok := v.FindFile(target, path); ok {
			links = append(links, resolved)
		} else {
			links = append(links, target)
		}
	}

	row := DocumentRow{
		Path:      path,
		Title:     meta.Title,
		Checksum:  checksum.Sum(data),
		Published: meta.Published(),
		Tags:      meta.Tags,
		UpdatedAt: time.Now(),
	}
	return db.UpsertDocument(row, body, links)
}
