package checker

import (
	"fmt"

	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

// RenderPointTable maps a template to the application call sites that render
// it. Built once per run from the collection pass, read-only afterwards.
type RenderPointTable map[source.FileID][]diag.RenderPoint

// ResolveFunc maps a template identifier as written in application code to
// a canonical file id.
type ResolveFunc func(name string) (source.FileID, bool)

// BuildRenderPoints converts collected render calls into the lookup table.
// Calls naming templates outside the analyzed set are reported as warnings
// and skipped.
func BuildRenderPoints(col *Collection, resolve ResolveFunc, reporter diag.Reporter) RenderPointTable {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	table := make(RenderPointTable)
	for _, call := range col.RenderCalls {
		id, ok := resolve(call.Template)
		if !ok {
			reporter.Report(diag.ChkBadPayload, diag.SevWarning, source.Chain{},
				fmt.Sprintf("render call in %s:%d names unknown template %q",
					call.CallerPath, call.CallerLine, call.Template))
			continue
		}
		table[id] = append(table[id], diag.RenderPoint{Path: call.CallerPath, Line: call.CallerLine})
	}
	return table
}

// BuildVarTypes merges variable observations per template, accumulating every
// observed type in call-site order for later union typing.
func BuildVarTypes(col *Collection, resolve ResolveFunc, reporter diag.Reporter) map[source.FileID]map[string][]string {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	out := make(map[source.FileID]map[string][]string)
	for _, obs := range col.Observations {
		id, ok := resolve(obs.Template)
		if !ok {
			reporter.Report(diag.ChkBadPayload, diag.SevWarning, source.Chain{},
				fmt.Sprintf("variable observation names unknown template %q", obs.Template))
			continue
		}
		vars := out[id]
		if vars == nil {
			vars = make(map[string][]string)
			out[id] = vars
		}
		for name, typ := range obs.Vars {
			vars[name] = append(vars[name], typ)
		}
	}
	return out
}
