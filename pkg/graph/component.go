package graph

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []int
	rank   []byte
	size   []int
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n int) *UnionFind {
	parent := make([]int, n)
	size := make([]int, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y int) bool {
	rx, ry := uf.Find(x), uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the IDs of the nodes in the largest weakly
// connected component, in graph order. Ties go to the component whose first
// node comes earliest.
func LargestComponent(g *Graph) []NodeID {
	n := g.NumNodes()
	if n == 0 {
		return nil
	}

	uf := NewUnionFind(n)
	for u := range n {
		for _, a := range g.Arcs(u) {
			uf.Union(u, a.Head)
		}
	}

	bestRoot, bestSize := 0, 0
	for i := range n {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot, bestSize = root, uf.size[root]
		}
	}

	nodes := make([]NodeID, 0, bestSize)
	for i := range n {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, g.NodeAt(i).ID)
		}
	}
	return nodes
}

// FilterToComponent returns a new graph holding only the given nodes and the
// live edges between them. Node and edge order follow g.
func FilterToComponent(g *Graph, nodes []NodeID) *Graph {
	out := New(g.Directed())
	keep := make(map[NodeID]bool, len(nodes))
	for _, id := range nodes {
		keep[id] = true
	}
	for _, n := range g.nodes {
		if keep[n.ID] {
			out.AddNode(n)
		}
	}
	for _, e := range g.Edges() {
		if keep[e.From] && keep[e.To] {
			fi, _ := out.Index(e.From)
			ti, _ := out.Index(e.To)
			out.addEdge(fi, ti, out.nextKey(fi, ti), e.EdgeAttrs)
		}
	}
	return out
}
