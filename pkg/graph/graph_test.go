package graph

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEdgeUnknownNode(t *testing.T) {
	g := New(true)
	g.AddNode(Node{ID: OSMNode(1)})

	_, err := g.AddEdge(OSMNode(1), OSMNode(2), EdgeAttrs{})
	require.ErrorIs(t, err, ErrUnknownNode)
	assert.Zero(t, g.NumEdges())
}

func TestParallelEdgeKeys(t *testing.T) {
	g := New(false)
	a, b := OSMNode(1), OSMNode(2)
	g.AddNode(Node{ID: a})
	g.AddNode(Node{ID: b})

	e0, err := g.AddEdge(a, b, EdgeAttrs{Length: 5, HasLength: true})
	require.NoError(t, err)
	e1, err := g.AddEdge(b, a, EdgeAttrs{Length: 7, HasLength: true})
	require.NoError(t, err)

	first, _ := g.Edge(e0)
	second, _ := g.Edge(e1)
	assert.Equal(t, 0, first.Key)
	assert.Equal(t, 1, second.Key, "undirected parallel edges share a key space")
	assert.Len(t, g.Neighbors(a), 2)
	assert.Len(t, g.Neighbors(b), 2)
}

func TestNeighborsOrientation(t *testing.T) {
	g := New(false)
	a, b := OSMNode(1), OSMNode(2)
	g.AddNode(Node{ID: a})
	g.AddNode(Node{ID: b})
	_, err := g.AddEdge(a, b, EdgeAttrs{})
	require.NoError(t, err)

	nb := g.Neighbors(b)
	require.Len(t, nb, 1)
	assert.Equal(t, b, nb[0].From)
	assert.Equal(t, a, nb[0].To)

	d := New(true)
	d.AddNode(Node{ID: a})
	d.AddNode(Node{ID: b})
	_, err = d.AddEdge(a, b, EdgeAttrs{})
	require.NoError(t, err)
	assert.Empty(t, d.Neighbors(b))
	assert.Nil(t, d.Neighbors(OSMNode(99)))
}

func TestRemoveEdgeKeepsNodes(t *testing.T) {
	g := New(false)
	for i := range int64(3) {
		g.AddNode(Node{ID: OSMNode(i)})
	}
	e01, _ := g.AddEdge(OSMNode(0), OSMNode(1), EdgeAttrs{})
	e12, _ := g.AddEdge(OSMNode(1), OSMNode(2), EdgeAttrs{})

	require.NoError(t, g.RemoveEdge(e01))
	assert.ErrorIs(t, g.RemoveEdge(e01), ErrUnknownEdge)
	assert.ErrorIs(t, g.RemoveEdge(EdgeID(42)), ErrUnknownEdge)

	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 1, g.NumEdges())
	assert.Empty(t, g.Neighbors(OSMNode(0)))

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, e12, edges[0].ID)

	_, ok := g.Edge(e01)
	assert.False(t, ok)
}

func TestClone(t *testing.T) {
	g := New(true)
	g.AddNode(Node{ID: OSMNode(1), Lat: 9.93, Lon: 76.26, HasCoord: true})
	g.AddNode(Node{ID: OSMNode(2), Lat: 9.94, Lon: 76.27, HasCoord: true})
	id, err := g.AddEdge(OSMNode(1), OSMNode(2), EdgeAttrs{
		Length: 10, HasLength: true,
		Geometry: orb.LineString{{76.26, 9.93}, {76.27, 9.94}},
	})
	require.NoError(t, err)

	c := g.Clone()
	require.NoError(t, c.RemoveEdge(id))

	assert.Equal(t, 1, g.NumEdges(), "removal on the clone leaks into the original")
	assert.Len(t, g.Neighbors(OSMNode(1)), 1)
	assert.Zero(t, c.NumEdges())

	// New edges on the clone continue the ID sequence.
	next, err := c.AddEdge(OSMNode(2), OSMNode(1), EdgeAttrs{})
	require.NoError(t, err)
	assert.Equal(t, EdgeID(1), next)
}

func TestAttrDefaults(t *testing.T) {
	var a EdgeAttrs
	assert.Equal(t, DefaultLength, a.LengthOrDefault())
	assert.Equal(t, DefaultSpeedKPH, a.SpeedOrDefault())

	a = EdgeAttrs{Length: 0, HasLength: true, SpeedKPH: 0, HasSpeed: true}
	assert.Zero(t, a.LengthOrDefault())
	assert.Zero(t, a.SpeedOrDefault())
}

func TestNodeID(t *testing.T) {
	row, col, ok := GridNode(3, 4).GridCell()
	assert.True(t, ok)
	assert.Equal(t, 3, row)
	assert.Equal(t, 4, col)

	_, _, ok = OSMNode(3).GridCell()
	assert.False(t, ok)

	assert.NotEqual(t, OSMNode(0), GridNode(0, 0))
	assert.Equal(t, "(3,4)", GridNode(3, 4).String())
	assert.Equal(t, "n17", OSMNode(17).String())
}

func TestHasCoordinates(t *testing.T) {
	g := New(false)
	g.AddNode(Node{ID: GridNode(0, 0)})
	assert.False(t, g.HasCoordinates())

	g.AddNode(Node{ID: OSMNode(1), Lat: 1, Lon: 2, HasCoord: true})
	assert.True(t, g.HasCoordinates())
}
