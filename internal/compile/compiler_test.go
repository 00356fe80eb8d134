package compile

import (
	"strings"
	"testing"

	"tplcheck/internal/source"
	"tplcheck/internal/tplparse"
)

func compileVirtual(t *testing.T, content string, resolved map[string]source.FileID) *Unit {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.tpl", []byte(content))
	tpl, err := tplparse.New().Parse(fs.Get(id))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	unit, err := New().Compile(tpl, resolved)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return unit
}

func TestCompileOutputAndText(t *testing.T) {
	unit := compileVirtual(t, "hello\n{{ user.name }}\n", nil)
	if len(unit.Body) != 2 {
		t.Fatalf("body = %d stmts, want 2", len(unit.Body))
	}
	if !strings.Contains(unit.Body[0].Code, `echo "hello\n"`) {
		t.Fatalf("text stmt = %q", unit.Body[0].Code)
	}
	if unit.Body[1].Code != "echo $user->name;" {
		t.Fatalf("output stmt = %q", unit.Body[1].Code)
	}
	if unit.Body[1].Origin.Line != 2 {
		t.Fatalf("origin line = %d, want 2", unit.Body[1].Origin.Line)
	}
}

func TestCompileControlFlow(t *testing.T) {
	unit := compileVirtual(t, `{% if items %}{% for item in items %}{{ item }}{% endfor %}{% else %}{% set n = 0 %}{% endif %}`, nil)
	var codes []string
	for _, s := range unit.Body {
		codes = append(codes, strings.TrimSpace(s.Code))
	}
	joined := strings.Join(codes, "\n")
	for _, want := range []string{
		"if ($items) {",
		"foreach ($items as $item) {",
		"echo $item;",
		"} else {",
		"$n = 0;",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("generated code missing %q:\n%s", want, joined)
		}
	}
	// Closers are scaffolding and carry no origin.
	last := unit.Body[len(unit.Body)-1]
	if !last.Origin.IsZero() {
		t.Fatalf("closing brace has origin %+v", last.Origin)
	}
	if unit.Body[0].Origin.Line != 1 {
		t.Fatalf("if stmt origin = %+v", unit.Body[0].Origin)
	}
}

func TestCompileBlocksAndExtends(t *testing.T) {
	resolved := map[string]source.FileID{"base.tpl": 7}
	unit := compileVirtual(t, `{% extends "base.tpl" %}
{% block content %}
{{ title }}
{% endblock %}
`, resolved)
	if !unit.HasExtends() || unit.Extends != 7 {
		t.Fatalf("extends = %v", unit.Extends)
	}
	if len(unit.BlockOrder) != 1 || unit.BlockOrder[0] != "content" {
		t.Fatalf("blocks = %v", unit.BlockOrder)
	}
	body := unit.Blocks["content"]
	if len(body) != 1 || body[0].Code != "echo $title;" {
		t.Fatalf("block body = %+v", body)
	}
	if len(unit.Body) != 1 || unit.Body[0].Kind != StmtBlockRef || unit.Body[0].Name != "content" {
		t.Fatalf("body = %+v", unit.Body)
	}
}

func TestCompileIncludeAndEmbed(t *testing.T) {
	resolved := map[string]source.FileID{"part.tpl": 3, "card.tpl": 4}
	unit := compileVirtual(t, `{% include "part.tpl" %}
{% embed "card.tpl" %}{% block title %}{{ heading }}{% endblock %}{% endembed %}
{% include "gone.tpl" %}
`, resolved)
	if unit.Body[0].Kind != StmtIncludeRef || unit.Body[0].Target != 3 {
		t.Fatalf("include stmt = %+v", unit.Body[0])
	}
	emb := unit.Body[1]
	if emb.Kind != StmtEmbedRef || emb.Target != 4 {
		t.Fatalf("embed stmt = %+v", emb)
	}
	if len(emb.Overrides["title"]) != 1 || emb.Overrides["title"][0].Code != "echo $heading;" {
		t.Fatalf("embed overrides = %+v", emb.Overrides)
	}
	// Unresolved references degrade to inert comments with no origin.
	gone := unit.Body[2]
	if gone.Kind != StmtCode || !strings.HasPrefix(gone.Code, "// unresolved include") {
		t.Fatalf("unresolved stmt = %+v", gone)
	}
	if !gone.Origin.IsZero() {
		t.Fatalf("unresolved stmt has origin %+v", gone.Origin)
	}
}

func TestExprToPHP(t *testing.T) {
	cases := []struct{ in, want string }{
		{"user.name", "$user->name"},
		{"items", "$items"},
		{"count(items)", "count($items)"},
		{"title|upper", "upper($title)"},
		{"items|join(', ')", "join($items, ', ')"},
		{"a.b.c|trim|upper", "upper(trim($a->b->c))"},
		{"x > 3 and not done", "$x > 3 && ! $done"},
		{"flag or other", "$flag || $other"},
		{"'lit|eral'", "'lit|eral'"},
		{"price * 1.5", "$price * 1.5"},
		{"true", "true"},
	}
	for _, tc := range cases {
		if got := ExprToPHP(tc.in); got != tc.want {
			t.Errorf("ExprToPHP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
