package depgraph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tplcheck/internal/diag"
	"tplcheck/internal/source"
	"tplcheck/internal/tplparse"
)

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func buildGraph(t *testing.T, dir string, seeds []string) (*Graph, *source.FileSet, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSetWithBase(dir)
	bag := diag.NewBag(100)
	b := &Builder{
		FileSet:  fs,
		Parser:   tplparse.New(),
		Reporter: diag.BagReporter{Bag: bag},
		Roots:    []string{dir},
	}
	abs := make([]string, len(seeds))
	for i, s := range seeds {
		abs[i] = filepath.Join(dir, s)
	}
	g, err := b.Build(abs)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return g, fs, bag
}

func TestBuildAndToposortLinearChain(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"base.tpl":   "<html>{% block content %}{% endblock %}</html>\n",
		"child.tpl":  "{% extends \"base.tpl\" %}\n{% block content %}{% include \"header.tpl\" %}{% endblock %}\n",
		"header.tpl": "<h1>{{ title }}</h1>\n",
	})
	g, fs, bag := buildGraph(t, dir, []string{"child.tpl"})
	if bag.HasErrors() || bag.HasWarnings() {
		t.Fatalf("unexpected diagnostics: %+v", bag.Items())
	}
	if g.Len() != 3 {
		t.Fatalf("node count = %d, want 3", g.Len())
	}

	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatal("unexpected cycle")
	}
	pos := make(map[string]int)
	for i, id := range topo.Order {
		pos[source.BaseName(fs.Get(g.IDToFile[id]).Path)] = i
	}
	if pos["base.tpl"] > pos["child.tpl"] {
		t.Fatalf("base.tpl must precede child.tpl: %v", pos)
	}
	if pos["header.tpl"] > pos["child.tpl"] {
		t.Fatalf("header.tpl must precede child.tpl: %v", pos)
	}
	// Independent templates land in the same batch.
	if len(topo.Batches) != 2 || len(topo.Batches[0]) != 2 {
		t.Fatalf("batches = %+v", topo.Batches)
	}
}

func TestBuildDeduplicatesRepeatedIncludes(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"page.tpl": "{% include \"part.tpl\" %}\n{% include \"part.tpl\" %}\n",
		"part.tpl": "x\n",
	})
	g, _, _ := buildGraph(t, dir, []string{"page.tpl"})
	pageID := g.FileToID[g.Entries[0]]
	if len(g.Deps[pageID]) != 1 {
		t.Fatalf("deps = %v, want single edge", g.Deps[pageID])
	}
}

func TestBuildReportsUnresolvedReference(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"page.tpl": "{% include \"missing.tpl\" %}\n",
	})
	g, _, bag := buildGraph(t, dir, []string{"page.tpl"})
	if g.Len() != 1 {
		t.Fatalf("node count = %d, want 1", g.Len())
	}
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.DepUnresolvedRef {
		t.Fatalf("diagnostics = %+v", items)
	}
	if items[0].Severity != diag.SevWarning {
		t.Fatalf("severity = %v, want warning", items[0].Severity)
	}
	if got := items[0].Template().Line; got != 1 {
		t.Fatalf("line = %d, want 1", got)
	}
}

func TestBuildReportsSelfReference(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"loop.tpl": "{% include \"loop.tpl\" %}\n",
	})
	g, _, bag := buildGraph(t, dir, []string{"loop.tpl"})
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.DepSelfReference {
		t.Fatalf("diagnostics = %+v", items)
	}
	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatal("self edge must not enter the graph")
	}
}

func TestToposortDetectsCycle(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"a.tpl": "{% include \"b.tpl\" %}\n",
		"b.tpl": "{% include \"a.tpl\" %}\n",
	})
	g, fs, _ := buildGraph(t, dir, []string{"a.tpl"})
	topo := ToposortKahn(g)
	if !topo.Cyclic {
		t.Fatal("expected cycle")
	}
	if len(topo.Cycles) != 2 {
		t.Fatalf("cycle members = %v, want 2", topo.Cycles)
	}
	summary := CycleSummary(g, fs, topo.Cycles)
	if !strings.Contains(summary, "a.tpl") || !strings.Contains(summary, "b.tpl") {
		t.Fatalf("summary = %q", summary)
	}
	if !strings.Contains(summary, " -> ") {
		t.Fatalf("summary = %q, want arrow-joined members", summary)
	}
}

func TestBuildMarksBrokenTemplates(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"page.tpl": "{% include \"bad.tpl\" %}\n",
		"bad.tpl":  "{% for x %}\n",
	})
	g, fs, bag := buildGraph(t, dir, []string{"page.tpl"})
	badID, err := fs.Load(filepath.Join(dir, "bad.tpl"))
	if err != nil {
		t.Fatal(err)
	}
	if g.Broken[badID] == nil {
		t.Fatal("bad.tpl not marked broken")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.TplSyntaxError {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics = %+v, want syntax error", bag.Items())
	}
}

func TestDependencyClosure(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"base.tpl":  "{% include \"util.tpl\" %}\n",
		"child.tpl": "{% extends \"base.tpl\" %}\n",
		"util.tpl":  "x\n",
	})
	g, fs, _ := buildGraph(t, dir, []string{"child.tpl"})
	closure := g.DependencyClosure(g.Entries[0])
	if len(closure) != 2 {
		t.Fatalf("closure = %v, want 2 files", closure)
	}
	names := make([]string, len(closure))
	for i, f := range closure {
		names[i] = source.BaseName(fs.Get(f).Path)
	}
	if names[0] != "base.tpl" || names[1] != "util.tpl" {
		t.Fatalf("closure order = %v", names)
	}
}
