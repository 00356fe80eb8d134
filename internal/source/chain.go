package source

import (
	"fmt"
	"strings"
)

// Chain is an ordered sequence of locations accumulated while a line travels
// through the pipeline: outermost generated layer first, original template
// last. Each transformation stage appends exactly one link for the line it
// received. The zero Chain is empty and usable.
//
// Append copies the backing array, so chains sharing a prefix never alias.
type Chain struct {
	locs []Loc
}

// NewChain builds a chain from the given links.
func NewChain(locs ...Loc) Chain {
	if len(locs) == 0 {
		return Chain{}
	}
	out := make([]Loc, len(locs))
	copy(out, locs)
	return Chain{locs: out}
}

// Append returns a new chain with loc added as the last link.
func (c Chain) Append(loc Loc) Chain {
	out := make([]Loc, len(c.locs)+1)
	copy(out, c.locs)
	out[len(c.locs)] = loc
	return Chain{locs: out}
}

// Empty reports whether the chain has no links.
func (c Chain) Empty() bool {
	return len(c.locs) == 0
}

// Len returns the number of links.
func (c Chain) Len() int {
	return len(c.locs)
}

// At returns the i-th link, outermost first.
func (c Chain) At(i int) Loc {
	return c.locs[i]
}

// Final returns the last link: the original template location.
// Calling Final on an empty chain returns a zero Loc.
func (c Chain) Final() Loc {
	if len(c.locs) == 0 {
		return Loc{}
	}
	return c.locs[len(c.locs)-1]
}

// Links returns a copy of the links so callers cannot mutate the chain.
func (c Chain) Links() []Loc {
	out := make([]Loc, len(c.locs))
	copy(out, c.locs)
	return out
}

func (c Chain) String() string {
	if len(c.locs) == 0 {
		return "<no location>"
	}
	parts := make([]string, len(c.locs))
	for i, l := range c.locs {
		parts[i] = fmt.Sprintf("%d:%d", l.File, l.Line)
	}
	return strings.Join(parts, " <- ")
}
