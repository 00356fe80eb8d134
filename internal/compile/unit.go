// Package compile translates parsed templates into host-language (PHP)
// statements plus a per-line source map. Each statement carries the template
// line it came from; scaffolding statements carry no origin.
package compile

import "tplcheck/internal/source"

type StmtKind uint8

const (
	// StmtCode is a literal generated line.
	StmtCode StmtKind = iota
	// StmtBlockRef marks where a named block's body expands.
	StmtBlockRef
	// StmtIncludeRef marks where another unit's body inlines.
	StmtIncludeRef
	// StmtEmbedRef is an include with block overrides scoped to the call site.
	StmtEmbedRef
)

// Stmt is one generated statement. A zero Origin means the line is synthetic
// and must not receive a source-map entry.
type Stmt struct {
	Kind   StmtKind
	Code   string
	Origin source.Loc

	// Name is the block name for StmtBlockRef.
	Name string
	// Target is the referenced template for include/embed.
	Target source.FileID
	// Overrides are the embed-local block bodies, keyed by block name.
	Overrides map[string][]Stmt
}

// Unit is one template's compiled form. Bodies and block bodies stay as
// statement lists; the flattener resolves references and emits final text.
type Unit struct {
	Template source.FileID

	// Extends is the parent template, or source.NoFile.
	Extends     source.FileID
	ExtendsLine uint32

	// Blocks holds each block's compiled body; BlockOrder preserves the
	// order blocks were defined in.
	Blocks     map[string][]Stmt
	BlockOrder []string

	// Body is the template's top-level statement list.
	Body []Stmt
}

// HasExtends reports whether the unit participates in an inheritance chain.
func (u *Unit) HasExtends() bool {
	return u.Extends != source.NoFile
}
