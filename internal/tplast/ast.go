// Package tplast defines the template syntax tree consumed by the pipeline.
// The tree is the contract between a template parser and the compiler; the
// pipeline never inspects template text directly.
package tplast

import (
	"tplcheck/internal/source"
)

// Template is one parsed template file.
type Template struct {
	File    source.FileID
	Extends *Ref   // nil when the template has no parent
	Nodes   []Node // document body, in source order
}

// Ref is a static reference to another template (extends/include/embed),
// spelled as the author wrote it; canonicalization happens during dependency
// discovery.
type Ref struct {
	Target string
	Line   uint32
}

// Node is any statement-level construct in a template body.
type Node interface {
	node()
	// StartLine is the 1-based template line the construct begins on.
	StartLine() uint32
}

// Text is literal output copied through verbatim.
type Text struct {
	Value string
	Line  uint32
}

// Output is an interpolated expression: {{ expr }}.
type Output struct {
	Expr string
	Line uint32
}

// Set binds a variable: {% set name = expr %}.
type Set struct {
	Name string
	Expr string
	Line uint32
}

// If is a conditional with an optional else branch.
type If struct {
	Cond string
	Line uint32
	Then []Node
	Else []Node
}

// For iterates a sequence: {% for var in seq %}.
type For struct {
	Var  string
	Seq  string
	Line uint32
	Body []Node
}

// Block is a named, overridable region: {% block name %}.
type Block struct {
	Name string
	Line uint32
	Body []Node
}

// Include inlines another template at this point: {% include "t" %}.
type Include struct {
	Ref Ref
}

// Embed inlines another template while overriding some of its blocks:
// {% embed "t" %} {% block b %}...{% endblock %} {% endembed %}.
type Embed struct {
	Ref       Ref
	Overrides []*Block
}

func (*Text) node()    {}
func (*Output) node()  {}
func (*Set) node()     {}
func (*If) node()      {}
func (*For) node()     {}
func (*Block) node()   {}
func (*Include) node() {}
func (*Embed) node()   {}

func (n *Text) StartLine() uint32    { return n.Line }
func (n *Output) StartLine() uint32  { return n.Line }
func (n *Set) StartLine() uint32     { return n.Line }
func (n *If) StartLine() uint32      { return n.Line }
func (n *For) StartLine() uint32     { return n.Line }
func (n *Block) StartLine() uint32   { return n.Line }
func (n *Include) StartLine() uint32 { return n.Ref.Line }
func (n *Embed) StartLine() uint32   { return n.Ref.Line }

// Parser produces a template tree from a registered file.
type Parser interface {
	Parse(file *source.File) (*Template, error)
}
