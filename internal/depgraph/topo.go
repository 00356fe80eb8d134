package depgraph

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type Topo struct {
	Order   []NodeID   // linear order, dependencies before dependents
	Batches [][]NodeID // waves of mutually independent templates
	Cyclic  bool
	Cycles  []NodeID // nodes left inside a cycle
}

// ToposortKahn orders the graph dependencies-first using Kahn's algorithm.
// Each batch contains templates whose dependencies are all in earlier
// batches, so one batch can be compiled in parallel. Ties inside a batch
// break by NodeID, i.e. first-discovery order.
func ToposortKahn(g *Graph) *Topo {
	nodeCount := g.Len()
	indeg := make([]int, len(g.Indeg))
	copy(indeg, g.Indeg)

	topo := &Topo{
		Order:   make([]NodeID, 0, nodeCount),
		Batches: make([][]NodeID, 0),
	}

	current := make([]NodeID, 0, nodeCount)
	for i := 0; i < nodeCount; i++ {
		if indeg[i] == 0 {
			nID, err := safecast.Conv[NodeID, int](i)
			if err != nil {
				panic(fmt.Errorf("node id overflow: %w", err))
			}
			current = append(current, nID)
		}
	}
	slices.Sort(current)

	visited := 0
	for len(current) > 0 {
		batch := make([]NodeID, len(current))
		copy(batch, current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]NodeID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, to := range g.Edges[int(id)] {
				indeg[int(to)]--
				if indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != nodeCount {
		topo.Cyclic = true
		for i := 0; i < nodeCount; i++ {
			if indeg[i] > 0 {
				nID, err := safecast.Conv[NodeID, int](i)
				if err != nil {
					panic(fmt.Errorf("node id overflow: %w", err))
				}
				topo.Cycles = append(topo.Cycles, nID)
			}
		}
		slices.Sort(topo.Cycles)
	}

	return topo
}
