package diagfmt

import (
	"encoding/json"
	"io"

	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

// LocationJSON is one template location.
type LocationJSON struct {
	File string `json:"file"`
	Line uint32 `json:"line"`
}

// RenderPointJSON is one application call site.
type RenderPointJSON struct {
	File string `json:"file"`
	Line uint32 `json:"line"`
}

// DiagnosticJSON is one diagnostic in JSON form. Location is the chain's
// final (template) element; Chain lists the full composition path,
// outermost generated layer first.
type DiagnosticJSON struct {
	Severity     string            `json:"severity"`
	Code         string            `json:"code"`
	Message      string            `json:"message"`
	Identifier   string            `json:"identifier,omitempty"`
	Tip          string            `json:"tip,omitempty"`
	Location     *LocationJSON     `json:"location,omitempty"`
	Chain        []LocationJSON    `json:"chain,omitempty"`
	RenderPoints []RenderPointJSON `json:"render_points,omitempty"`
}

// DiagnosticsOutput is the root of the JSON report.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(loc source.Loc, fs *source.FileSet, pathMode PathMode) LocationJSON {
	f := fs.Get(loc.File)
	if f == nil {
		return LocationJSON{Line: loc.Line}
	}
	return LocationJSON{
		File: f.FormatPath(pathMode.format(), fs.BaseDir()),
		Line: loc.Line,
	}
}

// BuildDiagnosticsOutput assembles the JSON structure without serializing.
func BuildDiagnosticsOutput(diags []diag.Diagnostic, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	maxItems := len(diags)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}

	out := make([]DiagnosticJSON, 0, maxItems)
	for _, d := range diags[:maxItems] {
		dj := DiagnosticJSON{
			Severity:   d.Severity.String(),
			Code:       d.Code.ID(),
			Message:    d.Message,
			Identifier: d.Identifier,
			Tip:        d.Tip,
		}
		if !d.Template().IsZero() {
			loc := makeLocation(d.Template(), fs, opts.PathMode)
			dj.Location = &loc
			for _, link := range d.Chain.Links() {
				dj.Chain = append(dj.Chain, makeLocation(link, fs, opts.PathMode))
			}
		}
		for _, rp := range d.RenderPoints {
			dj.RenderPoints = append(dj.RenderPoints, RenderPointJSON{File: rp.Path, Line: rp.Line})
		}
		out = append(out, dj)
	}
	return DiagnosticsOutput{Diagnostics: out, Count: len(out)}
}

// JSON serializes diagnostics as an indented JSON report.
func JSON(w io.Writer, diags []diag.Diagnostic, fs *source.FileSet, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(diags, fs, opts))
}
