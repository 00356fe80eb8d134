package baseline

import (
	"path/filepath"
	"strings"
	"testing"

	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

func sampleDiags() []diag.Diagnostic {
	loc := source.Loc{File: 2, Line: 3}
	return []diag.Diagnostic{
		{Message: "undefined variable $title", Identifier: "variable.undefined", Chain: source.NewChain(loc), Suppressible: true},
		{Message: "undefined variable $title", Identifier: "variable.undefined", Chain: source.NewChain(loc), Suppressible: true},
		{Message: "other finding", Chain: source.NewChain(source.Loc{File: 2, Line: 8}), Suppressible: true},
		{Message: "not suppressible", Chain: source.NewChain(loc)},
	}
}

func relPath(source.FileID) string { return "templates/child.tpl" }

func TestGenerateGroupsAndCounts(t *testing.T) {
	entries, err := Generate(sampleDiags(), relPath)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want 2", entries)
	}
	for _, e := range entries {
		switch e.Message {
		case "undefined variable $title":
			if e.Count != 2 || e.Identifier != "variable.undefined" {
				t.Fatalf("entry = %+v", e)
			}
		case "other finding":
			if e.Count != 1 {
				t.Fatalf("entry = %+v", e)
			}
		default:
			t.Fatalf("unexpected entry %+v", e)
		}
		if e.Path != "templates/child.tpl" {
			t.Fatalf("path = %q", e.Path)
		}
	}
}

func TestGenerateFailsOnChainlessDiagnostic(t *testing.T) {
	diags := []diag.Diagnostic{{Message: "orphan", Suppressible: true}}
	if _, err := Generate(diags, relPath); err == nil {
		t.Fatal("expected internal-consistency error")
	} else if !strings.Contains(err.Error(), diag.IntUnmappableEntry.ID()) {
		t.Fatalf("error = %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	diags := sampleDiags()
	entries, err := Generate(diags, relPath)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "tplcheck-baseline.toml")
	if err := Write(path, entries); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	set, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("set size = %d, want 2", set.Len())
	}
	// Filtering the generating set through its own baseline leaves nothing
	// suppressible behind.
	for _, d := range diags {
		if !d.Suppressible {
			continue
		}
		if !set.Has(d.Message, d.Identifier, relPath(d.Template().File)) {
			t.Fatalf("diagnostic %q not suppressed by its own baseline", d.Message)
		}
	}
	if set.Has("brand new finding", "", "templates/child.tpl") {
		t.Fatal("unknown signature reported as suppressed")
	}
}

func TestLoadMissingFileYieldsEmptySet(t *testing.T) {
	set, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if set.Len() != 0 {
		t.Fatalf("set size = %d, want 0", set.Len())
	}
}

func TestWriteEnforcesExtension(t *testing.T) {
	if err := Write(filepath.Join(t.TempDir(), "baseline.json"), nil); err == nil {
		t.Fatal("expected extension error")
	}
}
