package compiler

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// QueryConfig holds the delimiter prefixes for the four computed-content
// shapes. Zero values fall back to the conventional dataview delimiters.
type QueryConfig struct {
	BlockPrefix        string `yaml:"block_prefix"`
	BlockScriptPrefix  string `yaml:"block_script_prefix"`
	InlinePrefix       string `yaml:"inline_prefix"`
	InlineScriptPrefix string `yaml:"inline_script_prefix"`
}

type queryPatterns struct {
	block        *regexp.Regexp
	blockScript  *regexp.Regexp
	inline       *regexp.Regexp
	inlineScript *regexp.Regexp
}

func compileQueryPatterns(cfg QueryConfig) queryPatterns {
	if cfg.BlockPrefix == "" {
		cfg.BlockPrefix = "dataview"
	}
	if cfg.BlockScriptPrefix == "" {
		cfg.BlockScriptPrefix = "dataviewjs"
	}
	if cfg.InlinePrefix == "" {
		cfg.InlinePrefix = "="
	}
	if cfg.InlineScriptPrefix == "" {
		cfg.InlineScriptPrefix = "$="
	}
	return queryPatterns{
		// Script prefixes are supersets of the plain ones
		// ("dataviewjs" vs "dataview"), so every pattern requires its
		// exact delimiter before the query text.
		blockScript:  regexp.MustCompile("(?s)```" + regexp.QuoteMeta(cfg.BlockScriptPrefix) + "\\s*\n(.*?)```"),
		block:        regexp.MustCompile("(?s)```" + regexp.QuoteMeta(cfg.BlockPrefix) + "\\s*\n(.*?)```"),
		inlineScript: regexp.MustCompile("`" + regexp.QuoteMeta(cfg.InlineScriptPrefix) + " ?([^`\n]+)`"),
		inline:       regexp.MustCompile("`" + regexp.QuoteMeta(cfg.InlinePrefix) + " ?([^`\n]+)`"),
	}
}

// evaluateQueries expands computed-content blocks through the external
// query evaluator. Without an evaluator the pass is a no-op. A failing
// query is logged and its block left unexpanded; the rest of the document
// still compiles.
func (c *Compiler) evaluateQueries(ctx context.Context, text, docPath string) string {
	if c.query == nil {
		return text
	}
	// Script shapes first: their delimiters extend the plain ones.
	for _, re := range []*regexp.Regexp{
		c.queries.blockScript,
		c.queries.block,
		c.queries.inlineScript,
		c.queries.inline,
	} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			rendered, err := c.query.Evaluate(ctx, strings.TrimSpace(m[1]), docPath)
			if err != nil {
				c.logger.Warn("compiler: query evaluation failed",
					slog.String("path", docPath),
					slog.String("query", m[1]),
					slog.String("error", err.Error()))
				continue
			}
			text = strings.Replace(text, m[0], rendered, 1)
		}
	}
	return text
}
