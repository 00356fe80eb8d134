package compile

import (
	"fmt"
	"strings"

	"tplcheck/internal/source"
	"tplcheck/internal/tplast"
)

// Compiler turns parse trees into Units. Resolved maps come from dependency
// discovery so compilation never touches the filesystem; independent
// templates can compile concurrently.
type Compiler struct{}

// New returns a ready Compiler.
func New() *Compiler {
	return &Compiler{}
}

// Compile translates one template. resolved maps the template's reference
// strings to canonical file ids; references missing from it were already
// reported during discovery and compile to inert comments.
func (c *Compiler) Compile(tpl *tplast.Template, resolved map[string]source.FileID) (*Unit, error) {
	if tpl == nil {
		return nil, fmt.Errorf("compile: nil template")
	}
	unit := &Unit{
		Template: tpl.File,
		Extends:  source.NoFile,
		Blocks:   make(map[string][]Stmt),
	}
	if tpl.Extends != nil {
		unit.Extends = resolved[tpl.Extends.Target]
		unit.ExtendsLine = tpl.Extends.Line
	}

	cc := &unitCompiler{unit: unit, file: tpl.File, resolved: resolved}
	unit.Body = cc.compileNodes(tpl.Nodes, 0)
	return unit, nil
}

type unitCompiler struct {
	unit     *Unit
	file     source.FileID
	resolved map[string]source.FileID
}

func (cc *unitCompiler) loc(line uint32) source.Loc {
	return source.Loc{File: cc.file, Line: line}
}

func indent(depth int) string {
	return strings.Repeat("    ", depth)
}

func (cc *unitCompiler) compileNodes(nodes []tplast.Node, depth int) []Stmt {
	var out []Stmt
	for _, n := range nodes {
		out = append(out, cc.compileNode(n, depth)...)
	}
	return out
}

func (cc *unitCompiler) compileNode(n tplast.Node, depth int) []Stmt {
	pad := indent(depth)
	switch n := n.(type) {
	case *tplast.Text:
		return []Stmt{{
			Kind:   StmtCode,
			Code:   pad + "echo " + quotePHP(n.Value) + ";",
			Origin: cc.loc(n.Line),
		}}

	case *tplast.Output:
		return []Stmt{{
			Kind:   StmtCode,
			Code:   pad + "echo " + ExprToPHP(n.Expr) + ";",
			Origin: cc.loc(n.Line),
		}}

	case *tplast.Set:
		return []Stmt{{
			Kind:   StmtCode,
			Code:   pad + "$" + n.Name + " = " + ExprToPHP(n.Expr) + ";",
			Origin: cc.loc(n.Line),
		}}

	case *tplast.If:
		out := []Stmt{{
			Kind:   StmtCode,
			Code:   pad + "if (" + ExprToPHP(n.Cond) + ") {",
			Origin: cc.loc(n.Line),
		}}
		out = append(out, cc.compileNodes(n.Then, depth+1)...)
		if len(n.Else) > 0 {
			out = append(out, Stmt{Kind: StmtCode, Code: pad + "} else {"})
			out = append(out, cc.compileNodes(n.Else, depth+1)...)
		}
		out = append(out, Stmt{Kind: StmtCode, Code: pad + "}"})
		return out

	case *tplast.For:
		out := []Stmt{{
			Kind:   StmtCode,
			Code:   pad + "foreach (" + ExprToPHP(n.Seq) + " as $" + n.Var + ") {",
			Origin: cc.loc(n.Line),
		}}
		out = append(out, cc.compileNodes(n.Body, depth+1)...)
		out = append(out, Stmt{Kind: StmtCode, Code: pad + "}"})
		return out

	case *tplast.Block:
		// Block bodies compile once into the unit's block table; the site
		// keeps a reference so flattening can apply overrides.
		if _, exists := cc.unit.Blocks[n.Name]; !exists {
			cc.unit.Blocks[n.Name] = cc.compileNodes(n.Body, depth)
			cc.unit.BlockOrder = append(cc.unit.BlockOrder, n.Name)
		}
		return []Stmt{{Kind: StmtBlockRef, Name: n.Name, Origin: cc.loc(n.Line)}}

	case *tplast.Include:
		target, ok := cc.resolved[n.Ref.Target]
		if !ok {
			return []Stmt{{Kind: StmtCode, Code: pad + "// unresolved include " + quotePHP(n.Ref.Target)}}
		}
		return []Stmt{{Kind: StmtIncludeRef, Target: target, Origin: cc.loc(n.Ref.Line)}}

	case *tplast.Embed:
		target, ok := cc.resolved[n.Ref.Target]
		if !ok {
			return []Stmt{{Kind: StmtCode, Code: pad + "// unresolved embed " + quotePHP(n.Ref.Target)}}
		}
		overrides := make(map[string][]Stmt, len(n.Overrides))
		for _, b := range n.Overrides {
			overrides[b.Name] = cc.compileNodes(b.Body, depth)
		}
		return []Stmt{{
			Kind:      StmtEmbedRef,
			Target:    target,
			Origin:    cc.loc(n.Ref.Line),
			Overrides: overrides,
		}}

	default:
		return nil
	}
}
