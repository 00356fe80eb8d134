// Package inject synthesizes typed variable declarations at the top of a
// flattened unit from type observations collected at template call sites.
package inject

import (
	"fmt"
	"sort"
	"strings"

	"tplcheck/internal/flatten"
	"tplcheck/internal/source"
)

// ContextVar is the synthetic array injected declarations read from. The
// prefix keeps checker findings about it recognizable as scaffolding.
const ContextVar = "$__tpl_context"

// Unit is a flattened unit with injected scope declarations.
type Unit struct {
	Template source.FileID
	Path     string
	Lines    []string

	// Map carries the flattened unit's chains with line keys shifted past
	// the injected block. Injected lines themselves are unmapped.
	Map map[uint32]source.Chain

	// Injected is the number of inserted lines.
	Injected int
}

// UnionType joins observed types into a single declared type, deduplicating
// while preserving first-observation order. Empty input declares "mixed".
func UnionType(types []string) string {
	seen := make(map[string]bool, len(types))
	var parts []string
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return "mixed"
	}
	return strings.Join(parts, "|")
}

// Inject inserts one declaration pair per observed variable directly after
// the opening tag. vars maps variable names to the types observed across
// all call sites; a template with no observations passes through unchanged
// apart from the type conversion.
func Inject(fu *flatten.Unit, vars map[string][]string) *Unit {
	out := &Unit{
		Template: fu.Template,
		Path:     fu.Path,
	}

	if len(vars) == 0 {
		out.Lines = append(out.Lines, fu.Lines...)
		out.Map = make(map[uint32]source.Chain, len(fu.Map))
		for line, chain := range fu.Map {
			out.Map[line] = chain
		}
		return out
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var block []string
	block = append(block, ContextVar+" = "+ContextVar+" ?? [];")
	for _, name := range names {
		block = append(block, fmt.Sprintf("/** @var %s $%s */", UnionType(vars[name]), name))
		block = append(block, fmt.Sprintf("$%s = %s['%s'];", name, ContextVar, name))
	}
	out.Injected = len(block)

	insertAt := openTagLine(fu.Lines)
	out.Lines = make([]string, 0, len(fu.Lines)+len(block))
	out.Lines = append(out.Lines, fu.Lines[:insertAt]...)
	out.Lines = append(out.Lines, block...)
	out.Lines = append(out.Lines, fu.Lines[insertAt:]...)

	shift := uint32(len(block)) // #nosec G115 -- declaration count fits uint32
	at := uint32(insertAt)      // #nosec G115 -- line count fits uint32
	out.Map = make(map[uint32]source.Chain, len(fu.Map))
	for line, chain := range fu.Map {
		if line > at {
			out.Map[line+shift] = chain
		} else {
			out.Map[line] = chain
		}
	}
	return out
}

// openTagLine returns the 1-based line number of the PHP open tag, i.e. the
// number of lines to keep above the injected block.
func openTagLine(lines []string) int {
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "<?php") {
			return i + 1
		}
	}
	return 0
}
