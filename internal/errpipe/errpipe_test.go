package errpipe

import (
	"reflect"
	"testing"

	"tplcheck/internal/checker"
	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

const childTpl source.FileID = 2

func testMapper() *Mapper {
	return &Mapper{
		Units: map[string]UnitMap{
			"scratch/child.php": {
				Template: childTpl,
				Map: map[uint32]source.Chain{
					8: source.NewChain(source.Loc{File: 1, Line: 2}).Append(source.Loc{File: childTpl, Line: 3}),
				},
			},
		},
		RenderPoints: checker.RenderPointTable{
			childTpl: {{Path: "page.php", Line: 10}},
		},
	}
}

func TestMapperResolvesChainAndRenderPoints(t *testing.T) {
	out := testMapper().Map([]checker.RawDiagnostic{
		{File: "scratch/child.php", Line: 8, Message: "undefined variable", Identifier: "variable.undefined"},
	})
	if len(out) != 1 {
		t.Fatalf("diagnostics = %d, want 1", len(out))
	}
	d := out[0]
	if got := d.Template(); got.File != childTpl || got.Line != 3 {
		t.Fatalf("final = %+v", got)
	}
	if len(d.RenderPoints) != 1 || d.RenderPoints[0].Path != "page.php" || d.RenderPoints[0].Line != 10 {
		t.Fatalf("render points = %+v", d.RenderPoints)
	}
	if !d.Suppressible || d.Code != diag.ChkFinding {
		t.Fatalf("diagnostic = %+v", d)
	}
}

func TestMapperDropsSyntheticLines(t *testing.T) {
	out := testMapper().Map([]checker.RawDiagnostic{
		{File: "scratch/child.php", Line: 2, Message: "on injected line"},
	})
	if len(out) != 0 {
		t.Fatalf("diagnostics = %+v, want none", out)
	}
}

func TestMapperKeepsWholeFileErrors(t *testing.T) {
	out := testMapper().Map([]checker.RawDiagnostic{
		{File: "scratch/child.php", Line: 0, Message: "file cannot be parsed"},
		{File: "unknown.php", Line: 4, Message: "stray finding"},
	})
	if len(out) != 2 {
		t.Fatalf("diagnostics = %d, want 2", len(out))
	}
	for _, d := range out {
		if d.Code != diag.ChkFileError {
			t.Fatalf("code = %v, want ChkFileError", d.Code)
		}
		if d.Chain.Len() != 0 || d.Suppressible {
			t.Fatalf("file error carries chain or is suppressible: %+v", d)
		}
	}
}

func TestFilterBuiltinScaffoldingNoise(t *testing.T) {
	f, err := NewFilter(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	in := []diag.Diagnostic{
		{Message: "Variable $__tpl_context might not be defined"},
		{Message: "Offset 'title' does not exist on $__tpl_context['title']"},
		{Message: "Undefined variable $title"},
	}
	out := f.Apply(in)
	if len(out) != 2 {
		t.Fatalf("survivors = %+v", out)
	}
	if out[0].Message != in[1].Message || out[1].Message != in[2].Message {
		t.Fatalf("wrong survivors: %+v", out)
	}
}

func TestFilterConfiguredRules(t *testing.T) {
	f, err := NewFilter([]string{"missingType.iterableValue"}, []string{`^Call to an undefined method`})
	if err != nil {
		t.Fatal(err)
	}
	in := []diag.Diagnostic{
		{Message: "anything", Identifier: "missingType.iterableValue"},
		{Message: "Call to an undefined method render()"},
		{Message: "kept", Identifier: "other"},
	}
	out := f.Apply(in)
	if len(out) != 1 || out[0].Message != "kept" {
		t.Fatalf("survivors = %+v", out)
	}
}

func TestFilterRejectsBadPattern(t *testing.T) {
	if _, err := NewFilter(nil, []string{"("}); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestCollapseMergesAndIsIdempotent(t *testing.T) {
	loc := source.Loc{File: childTpl, Line: 3}
	in := []diag.Diagnostic{
		{Message: "dup", Identifier: "x", Chain: source.NewChain(loc), RenderPoints: []diag.RenderPoint{{Path: "a.php", Line: 1}}},
		{Message: "dup", Identifier: "x", Chain: source.NewChain(source.Loc{File: 1, Line: 9}).Append(loc), RenderPoints: []diag.RenderPoint{{Path: "b.php", Line: 2}}},
		{Message: "other", Identifier: "x", Chain: source.NewChain(loc)},
	}
	once := Collapse(in)
	if len(once) != 2 {
		t.Fatalf("collapsed = %d, want 2", len(once))
	}
	if len(once[0].RenderPoints) != 2 {
		t.Fatalf("render points = %+v", once[0].RenderPoints)
	}
	twice := Collapse(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("collapse not idempotent:\n%+v\n%+v", once, twice)
	}
}

func TestTransformerRewritesContextAccess(t *testing.T) {
	tr, err := NewTransformer([][2]string{{`internal renderer`, "template engine"}})
	if err != nil {
		t.Fatal(err)
	}
	in := []diag.Diagnostic{
		{Message: `Offset 'title' does not exist on $__tpl_context['title']`},
		{Message: "internal renderer failure"},
	}
	out := tr.Apply(in)
	if out[0].Message != `Offset 'title' does not exist on $title` {
		t.Fatalf("message = %q", out[0].Message)
	}
	if out[1].Message != "template engine failure" {
		t.Fatalf("message = %q", out[1].Message)
	}
	// Input list is untouched.
	if in[0].Message == out[0].Message {
		t.Fatal("transformer mutated input")
	}
}

func TestPipelineBaselineStage(t *testing.T) {
	p := &Pipeline{
		Mapper: testMapper(),
		Suppressed: func(d diag.Diagnostic) bool {
			return d.Message == "undefined variable"
		},
	}
	out := p.Run([]checker.RawDiagnostic{
		{File: "scratch/child.php", Line: 8, Message: "undefined variable"},
		{File: "scratch/child.php", Line: 8, Message: "kept finding"},
	})
	if len(out) != 1 || out[0].Message != "kept finding" {
		t.Fatalf("resolved = %+v", out)
	}
}
