package diag

import (
	"tplcheck/internal/source"
)

// RenderPoint is a call site in application code that invokes the template a
// diagnostic resolves to at runtime.
type RenderPoint struct {
	Path string // application file, as reported by the checker
	Line uint32 // 1-based
}

// Diagnostic is a single finding. Once produced by the error pipeline it is
// treated as immutable; stages build new values instead of mutating.
type Diagnostic struct {
	Severity     Severity
	Code         Code
	Message      string
	Identifier   string // checker rule identifier, may be empty
	Tip          string
	Chain        source.Chain // empty for non-file-specific errors
	RenderPoints []RenderPoint
	Suppressible bool
}

// Template returns the original template location, the final chain link.
func (d Diagnostic) Template() source.Loc {
	return d.Chain.Final()
}

// WithRenderPoints returns a copy carrying the given render points.
func (d Diagnostic) WithRenderPoints(points []RenderPoint) Diagnostic {
	out := d
	out.RenderPoints = make([]RenderPoint, len(points))
	copy(out.RenderPoints, points)
	return out
}
