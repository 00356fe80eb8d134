// Package checker is the boundary to the external type checker. The checker
// runs twice per analysis: a collection pass over application code gathering
// render-call sites and variable-type observations, then an analysis pass
// over the generated units producing raw diagnostics.
package checker

import "context"

// RawDiagnostic is one finding from the analysis pass, addressed in
// generated-file coordinates.
type RawDiagnostic struct {
	File       string
	Line       uint32
	Message    string
	Identifier string
	Tip        string
}

// RenderCall is one template invocation site observed in application code.
type RenderCall struct {
	// Template is the identifier the application passed to the renderer.
	Template string
	// CallerPath and CallerLine locate the call itself.
	CallerPath string
	CallerLine uint32
}

// VarObservation ties variables and their inferred types to one template at
// one call site.
type VarObservation struct {
	Template string
	Vars     map[string]string // variable name -> inferred type
}

// Collection is the result of the collection pass.
type Collection struct {
	RenderCalls  []RenderCall
	Observations []VarObservation
	// Errors are fatal non-file-specific failures; any entry aborts the run.
	Errors []string
}

// Analysis is the result of the analysis pass.
type Analysis struct {
	Diagnostics []RawDiagnostic
	Errors      []string
}

// Runner abstracts the external checker process. Both passes are blocking
// single invocations; cancellation comes only through the context.
type Runner interface {
	Collect(ctx context.Context, files []string) (*Collection, error)
	Analyze(ctx context.Context, files []string) (*Analysis, error)
}
