package compiler

import "regexp"

var commentRe = regexp.MustCompile(`(?s)%%.*?%%`)

// stripComments removes %%...%% authoring comments, except spans that sit
// inside a code fence, inline code span, or drawing data section. Running
// it on already-stripped text is a no-op.
func stripComments(text string) string {
	protected := protectedRegions(text)
	return replaceOutside(text, commentRe, protected, func(string) string { return "" })
}
