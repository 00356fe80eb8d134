package errpipe

import (
	"tplcheck/internal/checker"
	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

// UnitMap is one generated unit's source map, keyed by the path the external
// checker reports findings under.
type UnitMap struct {
	Template source.FileID
	Map      map[uint32]source.Chain
}

// Mapper resolves generated coordinates back to template location chains and
// attaches render points for the chain's final template.
type Mapper struct {
	// Units maps generated file paths (as reported by the checker) to their
	// source maps.
	Units map[string]UnitMap

	RenderPoints checker.RenderPointTable
}

// Map converts raw findings. A finding on a synthetic line is dropped since
// it cannot be attributed to template source; a whole-file finding (line 0)
// is kept without a chain. Findings on files outside the generated set are
// kept as checker file errors so they stay visible.
func (m *Mapper) Map(raw []checker.RawDiagnostic) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(raw))
	for _, r := range raw {
		unit, known := m.Units[r.File]

		if r.Line == 0 {
			out = append(out, diag.Diagnostic{
				Severity:   diag.SevError,
				Code:       diag.ChkFileError,
				Message:    r.Message,
				Identifier: r.Identifier,
				Tip:        r.Tip,
			})
			continue
		}
		if !known {
			out = append(out, diag.Diagnostic{
				Severity:   diag.SevError,
				Code:       diag.ChkFileError,
				Message:    r.File + ": " + r.Message,
				Identifier: r.Identifier,
				Tip:        r.Tip,
			})
			continue
		}

		chain, mapped := unit.Map[r.Line]
		if !mapped {
			// Synthetic scaffolding line.
			continue
		}
		d := diag.Diagnostic{
			Severity:     diag.SevError,
			Code:         diag.ChkFinding,
			Message:      r.Message,
			Identifier:   r.Identifier,
			Tip:          r.Tip,
			Chain:        chain,
			Suppressible: true,
		}
		if points := m.RenderPoints[chain.Final().File]; len(points) > 0 {
			d.RenderPoints = append([]diag.RenderPoint(nil), points...)
		}
		out = append(out, d)
	}
	return out
}
