package inject

import (
	"strings"
	"testing"

	"tplcheck/internal/flatten"
	"tplcheck/internal/source"
)

func sampleUnit() *flatten.Unit {
	loc := source.Loc{File: 1, Line: 2}
	return &flatten.Unit{
		Template: 1,
		Lines:    []string{"<?php", "", "echo $title;"},
		Map:      map[uint32]source.Chain{3: source.NewChain(loc)},
	}
}

func TestInjectDeclarations(t *testing.T) {
	unit := Inject(sampleUnit(), map[string][]string{
		"title": {"string"},
		"count": {"int", "float", "int"},
	})
	text := strings.Join(unit.Lines, "\n")
	for _, want := range []string{
		"$__tpl_context = $__tpl_context ?? [];",
		"/** @var int|float $count */",
		"$count = $__tpl_context['count'];",
		"/** @var string $title */",
		"$title = $__tpl_context['title'];",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
	// Declarations sort by name: count before title.
	if strings.Index(text, "$count =") > strings.Index(text, "$title =") {
		t.Fatal("declarations not sorted by variable name")
	}
	if unit.Injected != 5 {
		t.Fatalf("injected = %d, want 5", unit.Injected)
	}
	// The block lands right after the open tag.
	if unit.Lines[0] != "<?php" || !strings.HasPrefix(unit.Lines[1], ContextVar) {
		t.Fatalf("lines = %v", unit.Lines[:2])
	}
}

func TestInjectShiftsMapKeys(t *testing.T) {
	unit := Inject(sampleUnit(), map[string][]string{"title": {"string"}})
	// 3 injected lines push the mapped echo from line 3 to line 6.
	chain, ok := unit.Map[6]
	if !ok {
		t.Fatalf("map = %+v, want key 6", unit.Map)
	}
	if chain.Final().Line != 2 {
		t.Fatalf("chain final = %+v", chain.Final())
	}
	if _, ok := unit.Map[3]; ok {
		t.Fatal("stale pre-shift key left in map")
	}
	// Injected lines themselves are unmapped.
	for line := uint32(2); line <= 4; line++ {
		if _, ok := unit.Map[line]; ok {
			t.Fatalf("injected line %d is mapped", line)
		}
	}
}

func TestInjectNoObservations(t *testing.T) {
	fu := sampleUnit()
	unit := Inject(fu, nil)
	if unit.Injected != 0 {
		t.Fatalf("injected = %d, want 0", unit.Injected)
	}
	if len(unit.Lines) != len(fu.Lines) {
		t.Fatalf("lines changed: %v", unit.Lines)
	}
	if _, ok := unit.Map[3]; !ok {
		t.Fatal("map key moved without injection")
	}
}

func TestUnionType(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{[]string{"string"}, "string"},
		{[]string{"int", "string"}, "int|string"},
		{[]string{"int", "int"}, "int"},
		{[]string{" string ", ""}, "string"},
		{nil, "mixed"},
	}
	for _, tc := range cases {
		if got := UnionType(tc.in); got != tc.want {
			t.Errorf("UnionType(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
