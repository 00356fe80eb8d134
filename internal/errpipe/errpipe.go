// Package errpipe turns raw checker findings into template-facing resolved
// diagnostics. Five stages run in fixed order, each consuming the previous
// stage's list and producing a new one: map, filter, collapse, transform,
// baseline-filter.
package errpipe

import (
	"tplcheck/internal/checker"
	"tplcheck/internal/diag"
)

// Pipeline bundles the configured stages. The zero value maps and collapses
// but filters nothing beyond builtin noise.
type Pipeline struct {
	Mapper      *Mapper
	Filter      *Filter
	Transformer *Transformer
	// Suppressed reports whether a diagnostic matches the loaded baseline.
	Suppressed func(diag.Diagnostic) bool
}

// Run executes all stages over the raw analysis findings.
func (p *Pipeline) Run(raw []checker.RawDiagnostic) []diag.Diagnostic {
	out := p.Mapper.Map(raw)
	if p.Filter != nil {
		out = p.Filter.Apply(out)
	}
	out = Collapse(out)
	if p.Transformer != nil {
		out = p.Transformer.Apply(out)
	}
	if p.Suppressed != nil {
		out = filterBaseline(out, p.Suppressed)
	}
	return out
}

func filterBaseline(in []diag.Diagnostic, suppressed func(diag.Diagnostic) bool) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(in))
	for _, d := range in {
		if d.Suppressible && suppressed(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}
