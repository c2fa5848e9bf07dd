package hazard

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazard_router/pkg/geo"
	"hazard_router/pkg/graph"
)

// coordLattice builds an undirected n×n lattice of OSM nodes spaced step
// degrees apart, south-west corner at (lon0, lat0).
func coordLattice(t *testing.T, n int, lon0, lat0, step float64) *graph.Graph {
	t.Helper()
	g := graph.New(false)
	id := func(r, c int) graph.NodeID { return graph.OSMNode(int64(r*n + c)) }
	for r := range n {
		for c := range n {
			g.AddNode(graph.Node{ID: id(r, c), Lat: lat0 + float64(r)*step, Lon: lon0 + float64(c)*step, HasCoord: true})
		}
	}
	for r := range n {
		for c := range n {
			if c+1 < n {
				_, err := g.AddEdge(id(r, c), id(r, c+1), graph.EdgeAttrs{Length: 100, HasLength: true})
				require.NoError(t, err)
			}
			if r+1 < n {
				_, err := g.AddEdge(id(r, c), id(r+1, c), graph.EdgeAttrs{Length: 100, HasLength: true})
				require.NoError(t, err)
			}
		}
	}
	return g
}

func box(id string, minLon, minLat, maxLon, maxLat float64) Polygon {
	return Polygon{ID: id, Geometry: orb.Polygon{{
		{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
	}}}
}

func TestFilterEdgesSoundness(t *testing.T) {
	g := coordLattice(t, 8, 76.26, 9.93, 0.001)
	polys := []Polygon{
		box("a", 76.2615, 9.9315, 76.2635, 9.9335),
		box("b", 76.2625, 9.9325, 76.2655, 9.9345), // overlaps a
		{ID: "tri", Geometry: orb.Polygon{{{76.2660, 9.9300}, {76.2675, 9.9300}, {76.2675, 9.9320}, {76.2660, 9.9300}}}},
	}

	before := g.Edges()
	blocked := FilterEdges(g, polys)
	require.Positive(t, blocked)
	assert.Equal(t, len(before)-blocked, g.NumEdges())
	assert.Equal(t, 64, g.NumNodes(), "nodes are never removed")

	for _, e := range before {
		p, ok := RepresentativePoint(g, e)
		require.True(t, ok)
		_, inside := Match(p, polys)
		_, live := g.Edge(e.ID)
		assert.Equal(t, inside, !live, "edge %s-%s at %v", e.From, e.To, p)
	}
}

func TestFilterEdgesIdempotent(t *testing.T) {
	g := coordLattice(t, 6, 76.26, 9.93, 0.001)
	polys := []Polygon{box("a", 76.2605, 9.9305, 76.2625, 9.9325)}

	first := FilterEdges(g, polys)
	assert.Positive(t, first)
	assert.Zero(t, FilterEdges(g, polys))
}

func TestFilterEdgesFirstMatchCountsOnce(t *testing.T) {
	g := coordLattice(t, 2, 76.26, 9.93, 0.001)
	same := box("a", 76.2595, 9.9295, 76.2615, 9.9315)
	same2 := same
	same2.ID = "b"

	assert.Equal(t, 4, FilterEdges(g, []Polygon{same, same2}))
	assert.Zero(t, g.NumEdges())
}

func TestFilterEdgesUsesGeometryCentroid(t *testing.T) {
	g := graph.New(true)
	a, b := graph.OSMNode(1), graph.OSMNode(2)
	g.AddNode(graph.Node{ID: a, Lat: 9.930, Lon: 76.260, HasCoord: true})
	g.AddNode(graph.Node{ID: b, Lat: 9.930, Lon: 76.270, HasCoord: true})

	// Straight midpoint (76.265, 9.930) is outside the hazard; the curve
	// bulges north through it.
	curved, err := g.AddEdge(a, b, graph.EdgeAttrs{Geometry: orb.LineString{
		{76.260, 9.930}, {76.260, 9.940}, {76.270, 9.940}, {76.270, 9.930},
	}})
	require.NoError(t, err)
	straight, err := g.AddEdge(a, b, graph.EdgeAttrs{})
	require.NoError(t, err)

	hazard := box("north", 76.262, 9.934, 76.268, 9.940)
	assert.Equal(t, 1, FilterEdges(g, []Polygon{hazard}))

	_, ok := g.Edge(curved)
	assert.False(t, ok)
	_, ok = g.Edge(straight)
	assert.True(t, ok)
}

func TestFilterEdgesBoundaryIsInside(t *testing.T) {
	g := coordLattice(t, 2, 76.26, 9.93, 0.002)
	// The bottom edge's midpoint (76.261, 9.93) lies on the polygon's south side.
	hazard := box("edge", 76.2605, 9.93, 76.2615, 9.9305)

	p := geo.Midpoint(orb.Point{76.26, 9.93}, orb.Point{76.262, 9.93})
	require.True(t, geo.PointInPolygon(p, hazard.Geometry))
	assert.Equal(t, 1, FilterEdges(g, []Polygon{hazard}))
}

func TestFilterEdgesGridUntested(t *testing.T) {
	g := graph.Grid(graph.DefaultGridSize)
	hazard := box("everything", -180, -85, 180, 85)

	assert.Zero(t, FilterEdges(g, []Polygon{hazard}))
	assert.Equal(t, 180, g.NumEdges())
}

func TestFilterEdgesNoPolygons(t *testing.T) {
	g := coordLattice(t, 3, 76.26, 9.93, 0.001)
	assert.Zero(t, FilterEdges(g, nil))
	assert.Equal(t, 12, g.NumEdges())
}
