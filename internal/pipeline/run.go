package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tplcheck/internal/baseline"
	"tplcheck/internal/checker"
	"tplcheck/internal/compile"
	"tplcheck/internal/config"
	"tplcheck/internal/depgraph"
	"tplcheck/internal/diag"
	"tplcheck/internal/errpipe"
	"tplcheck/internal/flatten"
	"tplcheck/internal/inject"
	"tplcheck/internal/source"
	"tplcheck/internal/tplparse"
)

// TemplateExt is the template file extension discovered under directories.
const TemplateExt = ".tpl"

// Request configures one run.
type Request struct {
	Config *config.Config

	// Paths restrict the analyzed scope: template files, or directories
	// walked for templates. Empty means the configured template roots.
	Paths []string

	// Jobs bounds compile/flatten parallelism; 0 means GOMAXPROCS.
	Jobs int

	// Debug turns recoverable per-template failures into fatal aborts.
	Debug bool

	// MaxDiagnostics caps the run's diagnostic bag.
	MaxDiagnostics int

	Runner   checker.Runner
	Baseline *baseline.Set
	Sink     ProgressSink

	// ScratchRoot overrides where the run directory is created.
	ScratchRoot string
	// KeepScratch leaves the run directory behind for inspection.
	KeepScratch bool
}

// Result is one run's outcome. Resolved holds the template-facing
// diagnostics; Bag holds pipeline-internal ones (unresolved references,
// syntax errors, checker failures).
type Result struct {
	Bag      *diag.Bag
	Resolved []diag.Diagnostic

	FileSet   *source.FileSet
	Graph     *depgraph.Graph
	Flattened map[source.FileID]*flatten.Unit
	Injected  map[source.FileID]*inject.Unit

	Timings    Timings
	ScratchDir string
}

// Run executes the full pipeline. Stage-local recoverable issues land in
// Result.Bag; everything else aborts with an error.
func Run(ctx context.Context, req Request) (*Result, error) {
	if req.Config == nil {
		return nil, fmt.Errorf("pipeline: nil config")
	}
	if req.Runner == nil {
		return nil, fmt.Errorf("pipeline: nil checker runner")
	}
	sink := req.Sink
	if sink == nil {
		sink = NopSink{}
	}
	if req.MaxDiagnostics <= 0 {
		req.MaxDiagnostics = 1000
	}
	jobs := req.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	res := &Result{
		Bag:       diag.NewBag(req.MaxDiagnostics),
		FileSet:   source.NewFileSetWithBase(req.Config.Dir),
		Flattened: make(map[source.FileID]*flatten.Unit),
		Injected:  make(map[source.FileID]*inject.Unit),
	}
	reporter := diag.BagReporter{Bag: res.Bag}

	// Discovery.
	start := time.Now()
	sink.OnEvent(Event{Stage: StageDiscover, Status: StatusWorking})
	seeds, err := DiscoverTemplates(req.Config, req.Paths)
	if err != nil {
		return res, err
	}
	if len(seeds) == 0 {
		return res, fmt.Errorf("no templates found")
	}
	builder := &depgraph.Builder{
		FileSet:  res.FileSet,
		Parser:   tplparse.New(),
		Reporter: reporter,
		Roots:    req.Config.AbsTemplateRoots(),
	}
	graph, err := builder.Build(seeds)
	if err != nil {
		return res, err
	}
	res.Graph = graph

	topo := depgraph.ToposortKahn(graph)
	if topo.Cyclic {
		res.Bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.DepCycle,
			Message:  "cyclic template dependency: " + depgraph.CycleSummary(graph, res.FileSet, topo.Cycles),
		})
		sink.OnEvent(Event{Stage: StageDiscover, Status: StatusError, Elapsed: time.Since(start)})
		return res, nil
	}
	if req.Debug && res.Bag.HasErrors() {
		return res, fmt.Errorf("aborting on first error (debug mode): %s", firstError(res.Bag))
	}
	res.Timings.Set(StageDiscover, time.Since(start))
	sink.OnEvent(Event{Stage: StageDiscover, Status: StatusDone, Elapsed: res.Timings.Duration(StageDiscover)})

	scratch, err := NewScratch(req.ScratchRoot)
	if err != nil {
		return res, err
	}
	res.ScratchDir = scratch.Dir
	if !req.KeepScratch {
		defer func() {
			if err := scratch.Remove(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to remove scratch dir: %v\n", err)
			}
		}()
	}

	// Compilation, batch by batch. Templates inside one batch have no data
	// dependency on each other.
	start = time.Now()
	units := make(map[source.FileID]*compile.Unit, graph.Len())
	for _, batch := range topo.Batches {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, len(batch)))
		compiled := make([]*compile.Unit, len(batch))

		for i, nodeID := range batch {
			fileID := graph.IDToFile[nodeID]
			tpl, ok := graph.Templates[fileID]
			if !ok {
				continue // broken template, already diagnosed
			}
			path := res.FileSet.Get(fileID).Path
			g.Go(func(i int, fileID source.FileID) func() error {
				return func() error {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					sink.OnEvent(Event{File: path, Stage: StageCompile, Status: StatusWorking})
					unit, err := compile.New().Compile(tpl, graph.Resolved[fileID])
					if err != nil {
						return fmt.Errorf("compile %s: %w", path, err)
					}
					compiled[i] = unit
					sink.OnEvent(Event{File: path, Stage: StageCompile, Status: StatusDone})
					return nil
				}
			}(i, fileID))
		}
		if err := g.Wait(); err != nil {
			return res, err
		}
		for i, nodeID := range batch {
			if compiled[i] != nil {
				units[graph.IDToFile[nodeID]] = compiled[i]
			}
		}
	}
	if req.Debug && len(graph.Broken) > 0 {
		return res, fmt.Errorf("aborting on first error (debug mode): %s", firstError(res.Bag))
	}
	res.Timings.Set(StageCompile, time.Since(start))

	// Flattening, one unit per entry point whose closure fully compiled.
	start = time.Now()
	entries := flattenable(graph, units)
	fl := flatten.New(units)
	{
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(jobs, max(len(entries), 1)))
		flattened := make([]*flatten.Unit, len(entries))
		for i, fileID := range entries {
			path := res.FileSet.Get(fileID).Path
			g.Go(func(i int, fileID source.FileID) func() error {
				return func() error {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					sink.OnEvent(Event{File: path, Stage: StageFlatten, Status: StatusWorking})
					unit, err := fl.Flatten(fileID)
					if err != nil {
						return fmt.Errorf("flatten %s: %w", path, err)
					}
					unit.Path = scratch.UnitPath("flattened", res.FileSet, fileID)
					if err := scratch.WriteUnit(unit.Path, unit.Lines, fileID, unit.Map); err != nil {
						return err
					}
					flattened[i] = unit
					sink.OnEvent(Event{File: path, Stage: StageFlatten, Status: StatusDone})
					return nil
				}
			}(i, fileID))
		}
		if err := g.Wait(); err != nil {
			return res, err
		}
		for i, fileID := range entries {
			res.Flattened[fileID] = flattened[i]
		}
	}
	res.Timings.Set(StageFlatten, time.Since(start))

	// Collection pass over application code.
	start = time.Now()
	sink.OnEvent(Event{Stage: StageCollect, Status: StatusWorking})
	appFiles, err := discoverAppFiles(req.Config)
	if err != nil {
		return res, err
	}
	col := &checker.Collection{}
	if len(appFiles) > 0 {
		col, err = req.Runner.Collect(ctx, appFiles)
		if err != nil {
			return res, err
		}
		if len(col.Errors) > 0 {
			return res, fmt.Errorf("checker collection pass failed: %s", strings.Join(col.Errors, "; "))
		}
	}
	resolve := templateResolver(res.FileSet, req.Config)
	renderPoints := checker.BuildRenderPoints(col, resolve, reporter)
	varTypes := checker.BuildVarTypes(col, resolve, reporter)
	res.Timings.Set(StageCollect, time.Since(start))
	sink.OnEvent(Event{Stage: StageCollect, Status: StatusDone, Elapsed: res.Timings.Duration(StageCollect)})

	// Scope injection.
	start = time.Now()
	unitMaps := make(map[string]errpipe.UnitMap, len(entries))
	var injectedPaths []string
	for _, fileID := range entries {
		path := res.FileSet.Get(fileID).Path
		sink.OnEvent(Event{File: path, Stage: StageInject, Status: StatusWorking})
		unit := inject.Inject(res.Flattened[fileID], varTypes[fileID])
		unit.Path = scratch.UnitPath("injected", res.FileSet, fileID)
		if err := scratch.WriteUnit(unit.Path, unit.Lines, fileID, unit.Map); err != nil {
			return res, err
		}
		res.Injected[fileID] = unit
		unitMaps[unit.Path] = errpipe.UnitMap{Template: fileID, Map: unit.Map}
		injectedPaths = append(injectedPaths, unit.Path)
		sink.OnEvent(Event{File: path, Stage: StageInject, Status: StatusDone})
	}
	sort.Strings(injectedPaths)
	res.Timings.Set(StageInject, time.Since(start))

	// Analysis pass over the injected units.
	start = time.Now()
	sink.OnEvent(Event{Stage: StageAnalyze, Status: StatusWorking})
	analysis, err := req.Runner.Analyze(ctx, injectedPaths)
	if err != nil {
		return res, err
	}
	for _, msg := range analysis.Errors {
		res.Bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.ChkGlobalError,
			Message:  msg,
		})
	}
	res.Timings.Set(StageAnalyze, time.Since(start))
	sink.OnEvent(Event{Stage: StageAnalyze, Status: StatusDone, Elapsed: res.Timings.Duration(StageAnalyze)})

	// Resolution.
	start = time.Now()
	filter, err := errpipe.NewFilter(req.Config.Filter.IgnoreIdentifiers, req.Config.Filter.IgnoreMessages)
	if err != nil {
		return res, err
	}
	transformer, err := errpipe.NewTransformer(req.Config.Filter.Rewrite)
	if err != nil {
		return res, err
	}
	pipe := &errpipe.Pipeline{
		Mapper:      &errpipe.Mapper{Units: unitMaps, RenderPoints: renderPoints},
		Filter:      filter,
		Transformer: transformer,
	}
	if req.Baseline != nil {
		baseDir := req.Config.Dir
		pipe.Suppressed = func(d diag.Diagnostic) bool {
			final := d.Template()
			if final.IsZero() {
				return false
			}
			rel, err := source.RelativePath(res.FileSet.Get(final.File).Path, baseDir)
			if err != nil {
				return false
			}
			return req.Baseline.Has(d.Message, d.Identifier, rel)
		}
	}
	res.Resolved = pipe.Run(analysis.Diagnostics)
	res.Timings.Set(StageResolve, time.Since(start))
	sink.OnEvent(Event{Stage: StageResolve, Status: StatusDone, Elapsed: res.Timings.Duration(StageResolve)})

	return res, nil
}

// RelTemplatePath renders a template path relative to the project base, the
// form used in baselines and output.
func (r *Result) RelTemplatePath(id source.FileID, baseDir string) string {
	f := r.FileSet.Get(id)
	if f == nil {
		return ""
	}
	if rel, err := source.RelativePath(f.Path, baseDir); err == nil {
		return rel
	}
	return f.Path
}

// DiscoverTemplates expands the requested paths into template files.
// Directories are walked for the template extension; explicit files are
// taken verbatim. Empty paths mean the configured template roots.
func DiscoverTemplates(cfg *config.Config, paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = cfg.AbsTemplateRoots()
	}
	var seeds []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot stat %q: %w", p, err)
		}
		if !info.IsDir() {
			seeds = append(seeds, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == TemplateExt {
				seeds = append(seeds, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(seeds)
	return seeds, nil
}

// discoverAppFiles walks the configured application paths for PHP sources.
func discoverAppFiles(cfg *config.Config) ([]string, error) {
	var files []string
	for _, p := range cfg.AbsAppPaths() {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot stat %q: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".php" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// templateResolver maps template names from application code to loaded file
// ids, trying the name as-is and under each template root.
func templateResolver(fileSet *source.FileSet, cfg *config.Config) checker.ResolveFunc {
	roots := cfg.AbsTemplateRoots()
	return func(name string) (source.FileID, bool) {
		if f, ok := fileSet.GetByPath(name); ok {
			return f.ID, true
		}
		for _, root := range roots {
			if f, ok := fileSet.GetByPath(filepath.Join(root, name)); ok {
				return f.ID, true
			}
		}
		if f, ok := fileSet.GetByPath(filepath.Join(cfg.Dir, name)); ok {
			return f.ID, true
		}
		return source.NoFile, false
	}
}

// flattenable returns entry templates whose dependency closure fully
// compiled, in deterministic order.
func flattenable(graph *depgraph.Graph, units map[source.FileID]*compile.Unit) []source.FileID {
	var out []source.FileID
	for _, entry := range graph.Entries {
		if units[entry] == nil {
			continue
		}
		ok := true
		for _, dep := range graph.DependencyClosure(entry) {
			if units[dep] == nil {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, entry)
		}
	}
	return out
}

func firstError(bag *diag.Bag) string {
	for _, d := range bag.Items() {
		if d.Severity >= diag.SevError {
			return d.Message
		}
	}
	return "unknown error"
}
