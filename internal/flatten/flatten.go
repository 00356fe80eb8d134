// Package flatten composes compiled units linked by extends/include/embed
// into one self-contained generated unit per entry template, merging source
// maps into location chains.
package flatten

import (
	"fmt"

	"tplcheck/internal/compile"
	"tplcheck/internal/source"
)

// Unit is a self-contained generated unit for one entry template.
type Unit struct {
	Template source.FileID

	// Path is the scratch file the unit is written to; set by the pipeline.
	Path string

	Lines []string

	// Map resolves 1-based generated lines to location chains. Lines absent
	// from the map are synthetic scaffolding. Each chain's last element is a
	// real location in the template the line textually came from.
	Map map[uint32]source.Chain
}

// Flattener resolves block overrides and inlines references across the
// compiled set. It only reads the unit table and is safe to share across
// goroutines flattening different entries.
type Flattener struct {
	Units map[source.FileID]*compile.Unit
}

// New returns a Flattener over the compiled set.
func New(units map[source.FileID]*compile.Unit) *Flattener {
	return &Flattener{Units: units}
}

var prologue = []string{
	"<?php",
	"",
	"declare(strict_types=1);",
	"",
}

// Flatten produces the flattened unit for one entry template. The entry's
// dependency closure must be fully compiled; a missing unit or a reference
// cycle is an error.
func (f *Flattener) Flatten(entry source.FileID) (*Unit, error) {
	chain, err := f.inheritanceChain(entry)
	if err != nil {
		return nil, err
	}

	out := &Unit{
		Template: entry,
		Map:      make(map[uint32]source.Chain),
	}
	out.Lines = append(out.Lines, prologue...)

	st := &renderState{flattener: f, out: out, active: map[source.FileID]bool{entry: true}}
	// The root layout provides the skeleton; more-derived templates only
	// contribute block overrides.
	root := chain[len(chain)-1]
	if err := st.render(root.Body, root.Template, source.Chain{}, &blockScope{units: chain}); err != nil {
		return nil, err
	}
	return out, nil
}

// inheritanceChain returns [entry, parent, ..., root].
func (f *Flattener) inheritanceChain(entry source.FileID) ([]*compile.Unit, error) {
	var chain []*compile.Unit
	seen := make(map[source.FileID]bool)
	for id := entry; id != source.NoFile; {
		if seen[id] {
			return nil, fmt.Errorf("flatten: inheritance cycle at file %d", id)
		}
		seen[id] = true
		unit, ok := f.Units[id]
		if !ok {
			return nil, fmt.Errorf("flatten: no compiled unit for file %d", id)
		}
		chain = append(chain, unit)
		id = unit.Extends
	}
	return chain, nil
}

// blockScope resolves block names to bodies. Embeds layer local overrides
// on top of the embedded template's own inheritance chain.
type blockScope struct {
	overrides map[string][]compile.Stmt
	// ownerOf maps override names to the template that defined the body.
	ownerOf map[string]source.FileID
	units   []*compile.Unit // most-derived first
}

// resolve returns the effective body for a block plus its owning template.
func (s *blockScope) resolve(name string) ([]compile.Stmt, source.FileID, bool) {
	if body, ok := s.overrides[name]; ok {
		return body, s.ownerOf[name], true
	}
	for _, u := range s.units {
		if body, ok := u.Blocks[name]; ok {
			return body, u.Template, true
		}
	}
	return nil, source.NoFile, false
}

type renderState struct {
	flattener *Flattener
	out       *Unit
	// active guards against include/embed cycles that survived discovery.
	active map[source.FileID]bool
}

func (st *renderState) emit(code string, chain source.Chain) {
	st.out.Lines = append(st.out.Lines, code)
	if chain.Len() > 0 {
		st.out.Map[uint32(len(st.out.Lines))] = chain // #nosec G115 -- line count fits uint32
	}
}

// render walks a statement list. owner is the template the statements were
// compiled from; carried is the chain accumulated by enclosing composition
// steps. A statement's final chain is carried plus its own origin, so each
// template boundary crossed adds exactly one link.
func (st *renderState) render(stmts []compile.Stmt, owner source.FileID, carried source.Chain, scope *blockScope) error {
	for _, stmt := range stmts {
		switch stmt.Kind {
		case compile.StmtCode:
			if stmt.Origin.IsZero() {
				st.emit(stmt.Code, source.Chain{})
			} else {
				st.emit(stmt.Code, carried.Append(stmt.Origin))
			}

		case compile.StmtBlockRef:
			body, bodyOwner, ok := scope.resolve(stmt.Name)
			if !ok {
				// A block with no definition anywhere renders empty.
				continue
			}
			inner := carried
			if bodyOwner != owner {
				inner = carried.Append(stmt.Origin)
			}
			if err := st.render(body, bodyOwner, inner, scope); err != nil {
				return err
			}

		case compile.StmtIncludeRef:
			if err := st.inline(stmt.Target, carried.Append(stmt.Origin), nil, owner); err != nil {
				return err
			}

		case compile.StmtEmbedRef:
			if err := st.inline(stmt.Target, carried.Append(stmt.Origin), stmt.Overrides, owner); err != nil {
				return err
			}
		}
	}
	return nil
}

// inline renders another template's resolved skeleton at the call site.
// overrides, when non-nil, shadow the target's blocks (embed semantics).
func (st *renderState) inline(target source.FileID, carried source.Chain, overrides map[string][]compile.Stmt, from source.FileID) error {
	if st.active[target] {
		return fmt.Errorf("flatten: reference cycle at file %d", target)
	}
	chain, err := st.flattener.inheritanceChain(target)
	if err != nil {
		return err
	}
	scope := &blockScope{units: chain}
	if len(overrides) > 0 {
		scope.overrides = overrides
		scope.ownerOf = make(map[string]source.FileID, len(overrides))
		for name := range overrides {
			scope.ownerOf[name] = from
		}
	}
	st.active[target] = true
	defer delete(st.active, target)
	root := chain[len(chain)-1]
	return st.render(root.Body, root.Template, carried, scope)
}
