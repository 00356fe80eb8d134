// Package depgraph discovers the static dependency graph of a template set
// (extends/include/embed references) and orders it for compilation.
package depgraph

import (
	"fmt"
	"path/filepath"
	"strings"

	"tplcheck/internal/diag"
	"tplcheck/internal/source"
	"tplcheck/internal/tplast"
	"tplcheck/internal/tplparse"
)

// NodeID indexes a template inside one Graph. IDs are dense and assigned in
// first-discovery order, which makes the topological tie-break stable.
type NodeID uint32

// Graph is the discovered dependency graph. Edges point from a dependency to
// its dependents, so Kahn's algorithm emits dependencies first.
type Graph struct {
	FileToID map[source.FileID]NodeID
	IDToFile []source.FileID

	Edges [][]NodeID // Edges[dep] = dependents
	Indeg []int      // Indeg[node] = number of dependencies

	// Deps[node] lists direct dependencies in reference order.
	Deps [][]NodeID

	// Templates holds the parse result per file; absent for broken nodes.
	Templates map[source.FileID]*tplast.Template

	// Broken marks templates whose source failed to parse.
	Broken map[source.FileID]error

	// Resolved maps, per template, reference strings to the canonical file
	// they resolved to. Later stages use it instead of re-resolving paths.
	Resolved map[source.FileID]map[string]source.FileID

	// Entries are the seed templates, deduplicated, in request order.
	Entries []source.FileID
}

// Node count.
func (g *Graph) Len() int {
	return len(g.IDToFile)
}

// Builder discovers the transitive dependency closure of a seed set.
type Builder struct {
	FileSet  *source.FileSet
	Parser   tplast.Parser
	Reporter diag.Reporter
	// Roots are directories searched when a reference is not found relative
	// to the referring template.
	Roots []string
}

// Build loads and parses the seeds and every transitively referenced
// template. Unresolvable references and per-template parse failures are
// reported through the Reporter and excluded from the edge set; neither is
// fatal to discovery.
func (b *Builder) Build(seeds []string) (*Graph, error) {
	if b.FileSet == nil || b.Parser == nil {
		return nil, fmt.Errorf("depgraph: builder needs a FileSet and a Parser")
	}
	reporter := b.Reporter
	if reporter == nil {
		reporter = diag.NopReporter{}
	}

	g := &Graph{
		FileToID:  make(map[source.FileID]NodeID),
		Templates: make(map[source.FileID]*tplast.Template),
		Broken:    make(map[source.FileID]error),
		Resolved:  make(map[source.FileID]map[string]source.FileID),
	}

	var queue []source.FileID
	seenEntry := make(map[source.FileID]bool)
	for _, seed := range seeds {
		id, err := b.FileSet.Load(seed)
		if err != nil {
			reporter.Report(diag.DepLoadError, diag.SevError, source.Chain{},
				fmt.Sprintf("cannot load template %q: %v", seed, err))
			continue
		}
		if !seenEntry[id] {
			seenEntry[id] = true
			g.Entries = append(g.Entries, id)
			queue = append(queue, id)
			g.intern(id)
		}
	}

	// Breadth-first over references; each template is parsed exactly once.
	for len(queue) > 0 {
		fileID := queue[0]
		queue = queue[1:]

		file := b.FileSet.Get(fileID)
		tpl, err := b.Parser.Parse(file)
		if err != nil {
			g.Broken[fileID] = err
			sev := diag.SevError
			chain := source.Chain{}
			if serr := (*tplparse.SyntaxError)(nil); asSyntaxError(err, &serr) {
				chain = source.NewChain(source.Loc{File: fileID, Line: serr.Line})
			}
			reporter.Report(diag.TplSyntaxError, sev, chain, err.Error())
			continue
		}
		g.Templates[fileID] = tpl

		fromID := g.FileToID[fileID]
		for _, ref := range tplast.Refs(tpl) {
			targetID, err := b.resolve(file, ref.Target)
			if err != nil {
				reporter.Report(diag.DepUnresolvedRef, diag.SevWarning,
					source.NewChain(source.Loc{File: fileID, Line: ref.Line}),
					fmt.Sprintf("cannot resolve template reference %q: %v", ref.Target, err))
				continue
			}
			if targetID == fileID {
				reporter.Report(diag.DepSelfReference, diag.SevError,
					source.NewChain(source.Loc{File: fileID, Line: ref.Line}),
					fmt.Sprintf("template %q references itself", ref.Target))
				continue
			}
			known := g.has(targetID)
			toID := g.intern(targetID)
			if !known {
				queue = append(queue, targetID)
			}
			if g.Resolved[fileID] == nil {
				g.Resolved[fileID] = make(map[string]source.FileID)
			}
			g.Resolved[fileID][ref.Target] = targetID
			g.addEdge(toID, fromID)
		}
	}

	g.finalize()
	return g, nil
}

func (g *Graph) has(file source.FileID) bool {
	_, ok := g.FileToID[file]
	return ok
}

func (g *Graph) intern(file source.FileID) NodeID {
	if id, ok := g.FileToID[file]; ok {
		return id
	}
	id := NodeID(len(g.IDToFile)) // #nosec G115 -- template count fits uint32
	g.FileToID[file] = id
	g.IDToFile = append(g.IDToFile, file)
	return id
}

// addEdge registers "dependent depends on dep", deduplicating repeats
// (a template may include the same fragment many times).
func (g *Graph) addEdge(dep, dependent NodeID) {
	for len(g.Edges) <= int(dep) {
		g.Edges = append(g.Edges, nil)
	}
	for len(g.Deps) <= int(dependent) {
		g.Deps = append(g.Deps, nil)
	}
	for _, existing := range g.Deps[dependent] {
		if existing == dep {
			return
		}
	}
	g.Edges[dep] = append(g.Edges[dep], dependent)
	g.Deps[dependent] = append(g.Deps[dependent], dep)
}

func (g *Graph) finalize() {
	n := len(g.IDToFile)
	for len(g.Edges) < n {
		g.Edges = append(g.Edges, nil)
	}
	for len(g.Deps) < n {
		g.Deps = append(g.Deps, nil)
	}
	g.Indeg = make([]int, n)
	for id := range g.Deps {
		g.Indeg[id] = len(g.Deps[id])
	}
}

// resolve maps a reference string to a canonical template id: first relative
// to the referring template's directory, then under each configured root.
func (b *Builder) resolve(from *source.File, target string) (source.FileID, error) {
	target = filepath.FromSlash(target)
	candidates := make([]string, 0, len(b.Roots)+1)
	if !filepath.IsAbs(target) {
		candidates = append(candidates, filepath.Join(filepath.Dir(filepath.FromSlash(from.Path)), target))
		for _, root := range b.Roots {
			candidates = append(candidates, filepath.Join(root, target))
		}
	} else {
		candidates = append(candidates, target)
	}

	var firstErr error
	for _, candidate := range candidates {
		id, err := b.FileSet.Load(candidate)
		if err == nil {
			return id, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("no candidate paths")
	}
	return source.NoFile, firstErr
}

// DependencyClosure returns file ids of node's transitive dependencies,
// excluding the node itself, in deterministic discovery order.
func (g *Graph) DependencyClosure(file source.FileID) []source.FileID {
	start, ok := g.FileToID[file]
	if !ok {
		return nil
	}
	seen := make(map[NodeID]bool)
	var out []source.FileID
	var walk func(id NodeID)
	walk = func(id NodeID) {
		for _, dep := range g.Deps[id] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, g.IDToFile[dep])
			walk(dep)
		}
	}
	walk(start)
	return out
}

func asSyntaxError(err error, target **tplparse.SyntaxError) bool {
	se, ok := err.(*tplparse.SyntaxError)
	if ok {
		*target = se
	}
	return ok
}

// CycleSummary renders cycle members as "a.tpl -> b.tpl -> a.tpl" using
// paths relative to the file set base.
func CycleSummary(g *Graph, fs *source.FileSet, cycle []NodeID) string {
	names := make([]string, 0, len(cycle)+1)
	for _, id := range cycle {
		names = append(names, fs.Get(g.IDToFile[id]).FormatPath("relative", fs.BaseDir()))
	}
	if len(names) > 0 {
		names = append(names, names[0])
	}
	return strings.Join(names, " -> ")
}
