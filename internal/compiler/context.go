package compiler

// compileContext carries per-compile state through the recursive
// transclusion calls: the originating document, the recursion depth, and
// the running drawing-embed counter. The counter is shared down the
// recursion (pointer), never global, so concurrent top-level compiles stay
// isolated and numbering is deterministic.
type compileContext struct {
	origin       string
	depth        int
	drawingCount *int
}

func newCompileContext(origin string) *compileContext {
	n := 0
	return &compileContext{origin: origin, drawingCount: &n}
}

// descend returns the context for a nested transclusion: depth+1, new
// source document, same drawing counter.
func (cc *compileContext) descend(source string) *compileContext {
	return &compileContext{
		origin:       source,
		depth:        cc.depth + 1,
		drawingCount: cc.drawingCount,
	}
}

// nextDrawing returns a unique suffix for the next drawing embed and
// whether it is the first one seen in this top-level compile (which
// controls the one-time support script).
func (cc *compileContext) nextDrawing() (suffix int, first bool) {
	first = *cc.drawingCount == 0
	*cc.drawingCount++
	return *cc.drawingCount, first
}
