package graph

// DefaultGridSize is the side of the synthetic fallback lattice.
const DefaultGridSize = 10

// Grid returns an undirected n×n lattice keyed by (row, col). Each
// horizontally or vertically adjacent pair is joined by one edge of length 1,
// giving 2·n·(n−1) edges. Nodes carry no coordinates.
func Grid(n int) *Graph {
	g := New(false)
	if n <= 0 {
		return g
	}
	for r := range n {
		for c := range n {
			g.AddNode(Node{ID: GridNode(r, c)})
		}
	}

	unit := EdgeAttrs{Length: 1, HasLength: true}
	for r := range n {
		for c := range n {
			i := r*n + c
			if c+1 < n {
				g.addEdge(i, i+1, g.nextKey(i, i+1), unit)
			}
			if r+1 < n {
				g.addEdge(i, i+n, g.nextKey(i, i+n), unit)
			}
		}
	}
	return g
}
