package tplast

// Refs collects every static reference a template makes: the extends target
// plus all include/embed targets, in document order.
func Refs(t *Template) []Ref {
	var out []Ref
	if t.Extends != nil {
		out = append(out, *t.Extends)
	}
	out = append(out, refsIn(t.Nodes)...)
	return out
}

func refsIn(nodes []Node) []Ref {
	var out []Ref
	for _, n := range nodes {
		switch n := n.(type) {
		case *Include:
			out = append(out, n.Ref)
		case *Embed:
			out = append(out, n.Ref)
			for _, b := range n.Overrides {
				out = append(out, refsIn(b.Body)...)
			}
		case *If:
			out = append(out, refsIn(n.Then)...)
			out = append(out, refsIn(n.Else)...)
		case *For:
			out = append(out, refsIn(n.Body)...)
		case *Block:
			out = append(out, refsIn(n.Body)...)
		}
	}
	return out
}
