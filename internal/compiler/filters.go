package compiler

import (
	"log/slog"
	"regexp"
	"strings"
)

// FilterRule is one user-supplied pattern/replacement pair. Flags follow
// the common scripting convention: "i" (case-insensitive), "m" (multiline
// anchors), "s" (dot matches newline), "g" (replace every occurrence;
// without it only the first match is replaced).
type FilterRule struct {
	Pattern     string `yaml:"pattern"`
	Flags       string `yaml:"flags"`
	Replacement string `yaml:"replacement"`
}

type filterRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

// compileFilters compiles the rule list once. A pattern that fails to
// compile is skipped with a logged warning, not fatal.
func compileFilters(rules []FilterRule, logger *slog.Logger) []filterRule {
	out := make([]filterRule, 0, len(rules))
	for _, r := range rules {
		prefix := ""
		for _, f := range []string{"i", "m", "s"} {
			if strings.Contains(r.Flags, f) {
				prefix += f
			}
		}
		if prefix != "" {
			prefix = "(?" + prefix + ")"
		}
		re, err := regexp.Compile(prefix + r.Pattern)
		if err != nil {
			logger.Warn("compiler: skipping invalid filter pattern",
				slog.String("pattern", r.Pattern),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, filterRule{
			re:          re,
			replacement: r.Replacement,
			global:      strings.Contains(r.Flags, "g"),
		})
	}
	return out
}

// applyFilters runs the compiled custom filters in order. The same rules
// apply to top-level text and to every transcluded slice.
func (c *Compiler) applyFilters(text string) string {
	for _, f := range c.filters {
		if f.global {
			text = f.re.ReplaceAllString(text, f.replacement)
			continue
		}
		if loc := f.re.FindStringIndex(text); loc != nil {
			head := f.re.ReplaceAllString(text[:loc[1]], f.replacement)
			text = head + text[loc[1]:]
		}
	}
	return text
}
