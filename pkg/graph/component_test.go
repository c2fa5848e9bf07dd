package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	for i := range 5 {
		assert.Equal(t, i, uf.Find(i))
	}

	assert.True(t, uf.Union(0, 1))
	assert.True(t, uf.Union(2, 3))
	assert.Equal(t, uf.Find(0), uf.Find(1))
	assert.Equal(t, uf.Find(2), uf.Find(3))
	assert.NotEqual(t, uf.Find(0), uf.Find(2))

	assert.True(t, uf.Union(1, 3))
	assert.False(t, uf.Union(0, 2), "already merged")
	assert.Equal(t, uf.Find(0), uf.Find(3))
}

// twoComponents: 10 <-> 20 <-> 30 and 40 -> 50.
func twoComponents(t *testing.T) *Graph {
	t.Helper()
	g := New(true)
	for _, ref := range []int64{10, 20, 30, 40, 50} {
		g.AddNode(Node{ID: OSMNode(ref), Lat: float64(ref), Lon: 1, HasCoord: true})
	}
	for _, e := range [][2]int64{{10, 20}, {20, 10}, {20, 30}, {30, 20}, {40, 50}} {
		_, err := g.AddEdge(OSMNode(e[0]), OSMNode(e[1]), EdgeAttrs{Length: 1, HasLength: true})
		require.NoError(t, err)
	}
	return g
}

func TestLargestComponent(t *testing.T) {
	g := twoComponents(t)
	assert.Equal(t, []NodeID{OSMNode(10), OSMNode(20), OSMNode(30)}, LargestComponent(g))
	assert.Nil(t, LargestComponent(New(true)))
}

func TestLargestComponentIsWeak(t *testing.T) {
	// 1 -> 2 <- 3 is one weak component even though 1 cannot reach 3.
	g := New(true)
	for _, ref := range []int64{1, 2, 3, 4} {
		g.AddNode(Node{ID: OSMNode(ref)})
	}
	g.AddEdge(OSMNode(1), OSMNode(2), EdgeAttrs{})
	g.AddEdge(OSMNode(3), OSMNode(2), EdgeAttrs{})

	assert.Len(t, LargestComponent(g), 3)
}

func TestFilterToComponent(t *testing.T) {
	g := twoComponents(t)
	sub := FilterToComponent(g, LargestComponent(g))

	assert.Equal(t, 3, sub.NumNodes())
	assert.Equal(t, 4, sub.NumEdges())
	assert.False(t, sub.HasNode(OSMNode(40)))

	n, ok := sub.Node(OSMNode(30))
	require.True(t, ok)
	assert.Equal(t, 30.0, n.Lat)

	for _, e := range sub.Edges() {
		assert.True(t, sub.HasNode(e.From))
		assert.True(t, sub.HasNode(e.To))
	}
}

func TestFilterToComponentEmpty(t *testing.T) {
	sub := FilterToComponent(twoComponents(t), nil)
	assert.Zero(t, sub.NumNodes())
	assert.Zero(t, sub.NumEdges())
}
