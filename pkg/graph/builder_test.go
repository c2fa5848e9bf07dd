package graph

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	osmparser "hazard_router/pkg/osm"
)

func TestBuildSimpleGraph(t *testing.T) {
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 10, ToNodeID: 20, WayID: 1, LengthMeters: 110},
			{FromNodeID: 20, ToNodeID: 10, WayID: 1, LengthMeters: 110},
			{
				FromNodeID: 20, ToNodeID: 30, WayID: 2, LengthMeters: 250, SpeedKPH: 20,
				ShapeLats: []float64{1.15}, ShapeLons: []float64{103.15},
			},
		},
		NodeLat: map[osm.NodeID]float64{10: 1.0, 20: 1.1, 30: 1.2},
		NodeLon: map[osm.NodeID]float64{10: 103.0, 20: 103.1, 30: 103.2},
	}

	g := Build(result)
	require.True(t, g.Directed())
	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 3, g.NumEdges())

	nodes := g.Nodes()
	assert.Equal(t, []NodeID{OSMNode(10), OSMNode(20), OSMNode(30)},
		[]NodeID{nodes[0].ID, nodes[1].ID, nodes[2].ID})
	assert.True(t, nodes[2].HasCoord)
	assert.Equal(t, 1.2, nodes[2].Lat)

	edges := g.Edges()
	assert.True(t, edges[0].HasLength)
	assert.False(t, edges[0].HasSpeed)
	assert.Nil(t, edges[0].Geometry)

	assert.True(t, edges[2].HasSpeed)
	assert.Equal(t, 20.0, edges[2].SpeedKPH)
	assert.Equal(t, orb.LineString{{103.1, 1.1}, {103.15, 1.15}, {103.2, 1.2}}, edges[2].Geometry)
}

func TestBuildEmptyGraph(t *testing.T) {
	g := Build(&osmparser.ParseResult{})
	assert.Zero(t, g.NumNodes())
	assert.Zero(t, g.NumEdges())

	g = Build(nil)
	assert.Zero(t, g.NumNodes())
}

func TestBuildFromParsedDocument(t *testing.T) {
	doc := &osm.OSM{
		Nodes: osm.Nodes{
			{ID: 1, Lat: 9.930, Lon: 76.260},
			{ID: 2, Lat: 9.931, Lon: 76.261},
			{ID: 3, Lat: 9.932, Lon: 76.262},
		},
		Ways: osm.Ways{{
			ID:    7,
			Tags:  osm.Tags{{Key: "highway", Value: "footway"}},
			Nodes: osm.WayNodes{{ID: 1}, {ID: 2}, {ID: 3}},
		}},
	}

	g := Build(osmparser.ParseOSM(doc))
	assert.Equal(t, 2, g.NumNodes(), "interior node 2 becomes shape, not a vertex")
	assert.Equal(t, 2, g.NumEdges())
	for _, e := range g.Edges() {
		assert.Len(t, e.Geometry, 3)
		assert.Greater(t, e.Length, 0.0)
	}
}
