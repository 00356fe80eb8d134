package source

import "testing"

func TestChainAppendDoesNotAliasPrefix(t *testing.T) {
	base := NewChain(Loc{File: 1, Line: 10})

	left := base.Append(Loc{File: 2, Line: 20})
	right := base.Append(Loc{File: 3, Line: 30})

	if left.Len() != 2 || right.Len() != 2 {
		t.Fatalf("chain lengths = %d, %d, want 2, 2", left.Len(), right.Len())
	}
	if got := left.Final(); got != (Loc{File: 2, Line: 20}) {
		t.Fatalf("left.Final() = %v", got)
	}
	if got := right.Final(); got != (Loc{File: 3, Line: 30}) {
		t.Fatalf("right.Final() = %v", got)
	}
	if got := base.Final(); got != (Loc{File: 1, Line: 10}) {
		t.Fatalf("base mutated by Append: %v", got)
	}
}

func TestChainFinalEmpty(t *testing.T) {
	var c Chain
	if !c.Empty() {
		t.Fatal("zero chain should be empty")
	}
	if got := c.Final(); !got.IsZero() {
		t.Fatalf("Final() on empty chain = %v, want zero", got)
	}
}

func TestChainLinksCopy(t *testing.T) {
	c := NewChain(Loc{File: 1, Line: 1}, Loc{File: 2, Line: 2})
	links := c.Links()
	links[0] = Loc{File: 9, Line: 9}
	if c.At(0) != (Loc{File: 1, Line: 1}) {
		t.Fatal("Links() exposed internal storage")
	}
}
