package publish

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/compiler"
	"github.com/starford/raido/internal/storage"
)

// PublishIndex is the slice of the document index the publisher needs.
type PublishIndex interface {
	PublishedPaths() ([]string, error)
}

// Summary reports the outcome of one publish run.
type Summary struct {
	Published int
	Skipped   int
	Failed    int
	Assets    int
}

// Publisher compiles every publish-flagged document and writes the
// results into an output tree: compiled markdown under notes/, extracted
// assets under their canonical image paths.
type Publisher struct {
	compiler    *compiler.Compiler
	index       PublishIndex
	out         storage.Provider
	logger      *slog.Logger
	concurrency int

	mu     sync.Mutex
	assets map[string]bool
}

// New creates a Publisher writing through the given output store.
func New(c *compiler.Compiler, idx PublishIndex, out storage.Provider, logger *slog.Logger, concurrency int) *Publisher {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		compiler:    c,
		index:       idx,
		out:         out,
		logger:      logger,
		concurrency: concurrency,
		assets:      make(map[string]bool),
	}
}

// Run publishes the full publish set. Documents are compiled concurrently;
// a failing document is logged and counted but does not abort the run.
func (p *Publisher) Run(ctx context.Context) (*Summary, error) {
	paths, err := p.index.PublishedPaths()
	if err != nil {
		return nil, fmt.Errorf("publish: list publish set: %w", err)
	}

	var mu sync.Mutex
	sum := &Summary{}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, docPath := range paths {
		g.Go(func() error {
			published, assets, pubErr := p.publishOne(gCtx, docPath)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case pubErr != nil:
				sum.Failed++
				p.logger.Error("publish: document failed",
					slog.String("path", docPath),
					slog.String("error", pubErr.Error()))
			case published:
				sum.Published++
			default:
				sum.Skipped++
			}
			sum.Assets += assets
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return sum, err
	}

	p.logger.Info("publish: run complete",
		slog.Int("published", sum.Published),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed),
		slog.Int("assets", sum.Assets))
	return sum, nil
}

// publishOne compiles a single document and writes its text and assets.
// It reports whether the document text was (re)written; unchanged output
// is skipped by checksum.
func (p *Publisher) publishOne(ctx context.Context, docPath string) (bool, int, error) {
	doc, err := p.compiler.Compile(ctx, docPath)
	if err != nil {
		return false, 0, err
	}

	written := 0
	for _, a := range doc.Assets {
		ok, wErr := p.writeAsset(a)
		if wErr != nil {
			return false, written, wErr
		}
		if ok {
			written++
		}
	}

	outPath := path.Join("notes", doc.Path)
	data := []byte(doc.Text)
	if existing, rErr := p.out.Read(outPath); rErr == nil && checksum.Sum(existing) == checksum.Sum(data) {
		return false, written, nil
	}
	if err := p.out.Write(outPath, data); err != nil {
		return false, written, fmt.Errorf("publish: write %s: %w", outPath, err)
	}
	return true, written, nil
}

// writeAsset decodes and writes one extracted asset. Assets shared by
// several documents are written once per run.
func (p *Publisher) writeAsset(a compiler.Asset) (bool, error) {
	diskPath := decodeAssetPath(a.Path)

	p.mu.Lock()
	seen := p.assets[diskPath]
	p.assets[diskPath] = true
	p.mu.Unlock()
	if seen {
		return false, nil
	}

	data, err := base64.StdEncoding.DecodeString(a.Content)
	if err != nil {
		return false, fmt.Errorf("publish: decode asset %s: %w", a.Path, err)
	}
	if existing, rErr := p.out.Read(diskPath); rErr == nil && checksum.Sum(existing) == checksum.Sum(data) {
		return false, nil
	}
	if err := p.out.Write(diskPath, data); err != nil {
		return false, fmt.Errorf("publish: write asset %s: %w", diskPath, err)
	}
	return true, nil
}

// decodeAssetPath turns a canonical publish path ("/img/user/a%20b.png")
// into a relative on-disk path with percent-encoding undone.
func decodeAssetPath(p string) string {
	p = strings.TrimPrefix(p, "/")
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if dec, err := url.PathUnescape(s); err == nil {
			segs[i] = dec
		}
	}
	return strings.Join(segs, "/")
}
