// Package tplparse is the reference parser for the Twig-like template
// syntax: {% extends %}, {% include %}, {% embed %}, {% block %}, {% if %},
// {% for %}, {% set %}, and {{ expr }} interpolation.
package tplparse

import (
	"fmt"
	"strings"

	"tplcheck/internal/source"
	"tplcheck/internal/tplast"
)

// SyntaxError is a per-template parse failure with a template line.
type SyntaxError struct {
	Path string
	Line uint32
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// Parser parses template files into tplast trees.
type Parser struct{}

// New returns a ready Parser.
func New() *Parser {
	return &Parser{}
}

var _ tplast.Parser = (*Parser)(nil)

// Parse parses the registered file. The returned error, when non-nil, is
// always a *SyntaxError carrying the template path and line.
func (p *Parser) Parse(file *source.File) (*tplast.Template, error) {
	pieces, serr := scan(string(file.Content))
	if serr != nil {
		serr.Path = file.Path
		return nil, serr
	}

	ps := &parseState{file: file, pieces: pieces}
	tpl := &tplast.Template{File: file.ID}

	nodes, err := ps.parseNodes("", 0)
	if err != nil {
		return nil, err
	}
	tpl.Extends = ps.extends
	tpl.Nodes = nodes
	return tpl, nil
}

type parseState struct {
	file    *source.File
	pieces  []piece
	pos     int
	depth   int
	extends *tplast.Ref
	// stoppedAt records which terminator keyword ended the innermost
	// parseNodes call; distinguishes else from endif.
	stoppedAt string
}

func (ps *parseState) errorf(line uint32, format string, args ...any) *SyntaxError {
	return &SyntaxError{Path: ps.file.Path, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// parseNodes consumes pieces until it sees the given terminator tag ("endif",
// "endfor", ...) or, with terminator == "", the end of input. The terminator
// piece itself is consumed. For if-bodies the caller also checks stoppedAt.
func (ps *parseState) parseNodes(terminator string, openLine uint32) ([]tplast.Node, *SyntaxError) {
	var nodes []tplast.Node
	for ps.pos < len(ps.pieces) {
		pc := ps.pieces[ps.pos]
		switch pc.kind {
		case pieceText:
			ps.pos++
			if strings.TrimSpace(pc.body) == "" {
				continue
			}
			nodes = append(nodes, &tplast.Text{Value: pc.body, Line: pc.line})

		case piecePrint:
			ps.pos++
			if pc.body == "" {
				return nil, ps.errorf(pc.line, "empty output expression")
			}
			nodes = append(nodes, &tplast.Output{Expr: pc.body, Line: pc.line})

		case pieceStmt:
			keyword, rest := splitKeyword(pc.body)
			if keyword == "" {
				return nil, ps.errorf(pc.line, "empty tag")
			}
			if keyword == terminator || (terminator == "endif" && keyword == "else") {
				ps.stoppedAt = keyword
				ps.pos++
				return nodes, nil
			}
			node, err := ps.parseStmt(keyword, rest, pc)
			if err != nil {
				return nil, err
			}
			if node != nil {
				nodes = append(nodes, node)
			}
		}
	}
	if terminator != "" {
		return nil, ps.errorf(openLine, "missing {%% %s %%}", terminator)
	}
	return nodes, nil
}

func (ps *parseState) parseStmt(keyword, rest string, pc piece) (tplast.Node, *SyntaxError) {
	ps.pos++
	switch keyword {
	case "extends":
		target, ok := unquote(rest)
		if !ok {
			return nil, ps.errorf(pc.line, "extends expects a quoted template name")
		}
		if ps.extends != nil {
			return nil, ps.errorf(pc.line, "duplicate extends tag")
		}
		if ps.depth > 0 {
			return nil, ps.errorf(pc.line, "extends must appear at top level")
		}
		ps.extends = &tplast.Ref{Target: target, Line: pc.line}
		return nil, nil

	case "include":
		target, ok := unquote(rest)
		if !ok {
			return nil, ps.errorf(pc.line, "include expects a quoted template name")
		}
		return &tplast.Include{Ref: tplast.Ref{Target: target, Line: pc.line}}, nil

	case "embed":
		return ps.parseEmbed(rest, pc)

	case "block":
		name := strings.TrimSpace(rest)
		if name == "" || strings.ContainsAny(name, " \t") {
			return nil, ps.errorf(pc.line, "block expects a single name")
		}
		ps.depth++
		body, err := ps.parseNodes("endblock", pc.line)
		ps.depth--
		if err != nil {
			return nil, err
		}
		return &tplast.Block{Name: name, Line: pc.line, Body: body}, nil

	case "if":
		if strings.TrimSpace(rest) == "" {
			return nil, ps.errorf(pc.line, "if expects a condition")
		}
		ps.depth++
		then, err := ps.parseNodes("endif", pc.line)
		if err != nil {
			ps.depth--
			return nil, err
		}
		var elseNodes []tplast.Node
		if ps.stoppedAt == "else" {
			elseNodes, err = ps.parseNodes("endif", pc.line)
			if err != nil {
				ps.depth--
				return nil, err
			}
		}
		ps.depth--
		return &tplast.If{Cond: strings.TrimSpace(rest), Line: pc.line, Then: then, Else: elseNodes}, nil

	case "for":
		loopVar, seq, ok := splitFor(rest)
		if !ok {
			return nil, ps.errorf(pc.line, "for expects '<var> in <expr>'")
		}
		ps.depth++
		body, err := ps.parseNodes("endfor", pc.line)
		ps.depth--
		if err != nil {
			return nil, err
		}
		return &tplast.For{Var: loopVar, Seq: seq, Line: pc.line, Body: body}, nil

	case "set":
		name, expr, ok := splitSet(rest)
		if !ok {
			return nil, ps.errorf(pc.line, "set expects '<name> = <expr>'")
		}
		return &tplast.Set{Name: name, Expr: expr, Line: pc.line}, nil

	case "endblock", "endif", "endfor", "endembed", "else":
		return nil, ps.errorf(pc.line, "unexpected {%% %s %%}", keyword)

	default:
		return nil, ps.errorf(pc.line, "unsupported tag %q", keyword)
	}
}

func (ps *parseState) parseEmbed(rest string, pc piece) (tplast.Node, *SyntaxError) {
	target, ok := unquote(rest)
	if !ok {
		return nil, ps.errorf(pc.line, "embed expects a quoted template name")
	}
	ps.depth++
	body, err := ps.parseNodes("endembed", pc.line)
	ps.depth--
	if err != nil {
		return nil, err
	}
	// An embed body may only override blocks; stray output has no insertion
	// point in the embedded template.
	var overrides []*tplast.Block
	for _, n := range body {
		block, ok := n.(*tplast.Block)
		if !ok {
			return nil, ps.errorf(n.StartLine(), "only block overrides are allowed inside embed")
		}
		overrides = append(overrides, block)
	}
	return &tplast.Embed{Ref: tplast.Ref{Target: target, Line: pc.line}, Overrides: overrides}, nil
}

func splitKeyword(body string) (keyword, rest string) {
	body = strings.TrimSpace(body)
	if i := strings.IndexAny(body, " \t"); i >= 0 {
		return body[:i], strings.TrimSpace(body[i+1:])
	}
	return body, ""
}

func splitFor(rest string) (loopVar, seq string, ok bool) {
	parts := strings.SplitN(rest, " in ", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	loopVar = strings.TrimSpace(parts[0])
	seq = strings.TrimSpace(parts[1])
	if loopVar == "" || seq == "" || strings.ContainsAny(loopVar, " \t") {
		return "", "", false
	}
	return loopVar, seq, true
}

func splitSet(rest string) (name, expr string, ok bool) {
	parts := strings.SplitN(rest, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	name = strings.TrimSpace(parts[0])
	expr = strings.TrimSpace(parts[1])
	if name == "" || expr == "" || strings.ContainsAny(name, " \t") {
		return "", "", false
	}
	return name, expr, true
}

func unquote(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return "", false
	}
	if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
		inner := s[1 : len(s)-1]
		if inner == "" {
			return "", false
		}
		return inner, true
	}
	return "", false
}

