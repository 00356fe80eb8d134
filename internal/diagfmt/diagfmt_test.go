package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

func sampleDiags(t *testing.T) ([]diag.Diagnostic, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	base := fs.AddVirtual("base.tpl", []byte("layout\n"))
	child := fs.AddVirtual("child.tpl", []byte("{{ title }}\n{{ body }}\n"))

	diags := []diag.Diagnostic{
		{
			Severity:   diag.SevError,
			Code:       diag.ChkFinding,
			Message:    "undefined variable $title",
			Identifier: "variable.undefined",
			Tip:        "pass title from the render call",
			Chain: source.NewChain(source.Loc{File: base, Line: 1}).
				Append(source.Loc{File: child, Line: 1}),
			RenderPoints: []diag.RenderPoint{{Path: "app/page.php", Line: 10}},
			Suppressible: true,
		},
		{
			Severity: diag.SevError,
			Code:     diag.ChkFileError,
			Message:  "file cannot be parsed",
		},
	}
	return diags, fs
}

func TestPrettyOutput(t *testing.T) {
	diags, fs := sampleDiags(t)
	var buf bytes.Buffer
	Pretty(&buf, diags, fs, PrettyOpts{
		PathMode:    PathModeBasename,
		ShowChain:   true,
		ShowPreview: true,
		ShowTips:    true,
	})
	out := buf.String()
	for _, want := range []string{
		"child.tpl:1: error " + diag.ChkFinding.ID() + ": undefined variable $title [variable.undefined]",
		"{{ title }}",
		"via base.tpl",
		"rendered at app/page.php:10",
		"tip: pass title from the render call",
		"error " + diag.ChkFileError.ID() + ": file cannot be parsed",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	// Color disabled: no escape sequences.
	if strings.Contains(out, "\x1b[") {
		t.Fatal("unexpected color codes")
	}
}

func TestPrettyColorCodes(t *testing.T) {
	diags, fs := sampleDiags(t)
	var buf bytes.Buffer
	Pretty(&buf, diags, fs, PrettyOpts{Color: true})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatal("expected color codes")
	}
}

func TestJSONOutput(t *testing.T) {
	diags, fs := sampleDiags(t)
	var buf bytes.Buffer
	if err := JSON(&buf, diags, fs, JSONOpts{PathMode: PathModeBasename}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("output = %+v", out)
	}
	first := out.Diagnostics[0]
	if first.Location == nil || first.Location.File != "child.tpl" || first.Location.Line != 1 {
		t.Fatalf("location = %+v", first.Location)
	}
	if len(first.Chain) != 2 || first.Chain[0].File != "base.tpl" {
		t.Fatalf("chain = %+v", first.Chain)
	}
	if len(first.RenderPoints) != 1 || first.RenderPoints[0].Line != 10 {
		t.Fatalf("render points = %+v", first.RenderPoints)
	}
	// Whole-file errors have no location.
	if out.Diagnostics[1].Location != nil {
		t.Fatalf("file error location = %+v", out.Diagnostics[1].Location)
	}
}

func TestJSONMaxTruncates(t *testing.T) {
	diags, fs := sampleDiags(t)
	out := BuildDiagnosticsOutput(diags, fs, JSONOpts{Max: 1})
	if out.Count != 1 {
		t.Fatalf("count = %d, want 1", out.Count)
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	Summary(&buf, 0, 0, false)
	if !strings.Contains(buf.String(), "no issues found") {
		t.Fatalf("summary = %q", buf.String())
	}
	buf.Reset()
	Summary(&buf, 2, 1, false)
	if !strings.Contains(buf.String(), "2 error(s), 1 warning(s)") {
		t.Fatalf("summary = %q", buf.String())
	}
}
