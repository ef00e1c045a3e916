package compiler

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/raido/internal/reference"
)

var (
	imageEmbedRe    = regexp.MustCompile(`!\[\[([^\[\]]+?)\]\]`)
	markdownImageRe = regexp.MustCompile(`(?i)!\[([^\]]*)\]\(([^()\s]+?\.(?:png|jpe?g|gif|webp))\)`)
)

// rasterExts is the allow-list for the asset extractor. SVG is deliberately
// absent: raw SVG markup is inlined by a separate pass.
var rasterExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// rewriteImages is the final pass: it pulls every referenced raster image
// out of the store, base64-encodes it, and rewrites the reference to its
// canonical publish path. A reference that cannot be resolved or read is
// left byte-for-byte as-is; one bad link must not abort the publish.
func (c *Compiler) rewriteImages(text, origin string) (string, []Asset) {
	assets := []Asset{}

	text = c.rewriteEmbedImages(text, origin, &assets)
	text = c.rewriteMarkdownImages(text, origin, &assets)
	return text, assets
}

func (c *Compiler) rewriteEmbedImages(text, origin string, assets *[]Asset) string {
	locs := imageEmbedRe.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range locs {
		b.WriteString(text[last:loc[0]])
		match := text[loc[0]:loc[1]]
		last = loc[1]

		ref := reference.Parse(text[loc[2]:loc[3]])
		if !rasterExts[strings.ToLower(path.Ext(ref.Target))] {
			b.WriteString(match)
			continue
		}
		resolved, ok := c.vault.FindFile(ref.Target, origin)
		if !ok {
			b.WriteString(match)
			continue
		}
		publishPath, asset, err := c.loadAsset(resolved)
		if err != nil {
			c.logger.Warn("compiler: image read failed",
				slog.String("path", resolved),
				slog.String("error", err.Error()))
			b.WriteString(match)
			continue
		}
		*assets = append(*assets, asset)

		alt := ref.Target
		meta, size, hasSize := ref.MetaSize()
		if meta != "" {
			alt += "|" + meta
		}
		if hasSize {
			alt += "|" + strconv.Itoa(size)
		}
		fmt.Fprintf(&b, "![%s](%s)", alt, publishPath)
	}
	b.WriteString(text[last:])
	return b.String()
}

func (c *Compiler) rewriteMarkdownImages(text, origin string, assets *[]Asset) string {
	locs := markdownImageRe.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range locs {
		b.WriteString(text[last:loc[0]])
		match := text[loc[0]:loc[1]]
		last = loc[1]

		alt := text[loc[2]:loc[3]]
		src := text[loc[4]:loc[5]]
		if isExternalURL(src) {
			b.WriteString(match)
			continue
		}
		decoded, err := url.PathUnescape(src)
		if err != nil {
			decoded = src
		}
		resolved, ok := c.vault.FindFile(decoded, origin)
		if !ok {
			b.WriteString(match)
			continue
		}
		publishPath, asset, err := c.loadAsset(resolved)
		if err != nil {
			c.logger.Warn("compiler: image read failed",
				slog.String("path", resolved),
				slog.String("error", err.Error()))
			b.WriteString(match)
			continue
		}
		*assets = append(*assets, asset)
		fmt.Fprintf(&b, "![%s](%s)", alt, publishPath)
	}
	b.WriteString(text[last:])
	return b.String()
}

// loadAsset reads one image and builds its publish-path/content pair. The
// publish path is a deterministic function of the resolved vault path,
// independent of compile order.
func (c *Compiler) loadAsset(resolved string) (string, Asset, error) {
	data, err := c.vault.ReadBinary(resolved)
	if err != nil {
		return "", Asset{}, err
	}
	publishPath := c.imageBase + "/" + encodePath(resolved)
	return publishPath, Asset{
		Path:    publishPath,
		Content: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// ExtractImageLinks discovers the vault paths of every raster image a
// document references, without fetching bytes or rewriting text. The sync
// layer uses it to diff a document's asset needs cheaply. Resolution rules
// match rewriteImages; each path appears once.
func (c *Compiler) ExtractImageLinks(text, origin string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, m := range imageEmbedRe.FindAllStringSubmatch(text, -1) {
		ref := reference.Parse(m[1])
		if !rasterExts[strings.ToLower(path.Ext(ref.Target))] {
			continue
		}
		if resolved, ok := c.vault.FindFile(ref.Target, origin); ok {
			add(resolved)
		}
	}
	for _, m := range markdownImageRe.FindAllStringSubmatch(text, -1) {
		src := m[2]
		if isExternalURL(src) {
			continue
		}
		decoded, err := url.PathUnescape(src)
		if err != nil {
			decoded = src
		}
		if resolved, ok := c.vault.FindFile(decoded, origin); ok {
			add(resolved)
		}
	}
	return out
}

func isExternalURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// encodePath URI-encodes a vault path segment by segment, keeping the
// slashes literal.
func encodePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
