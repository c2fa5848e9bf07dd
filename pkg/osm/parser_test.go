package osm

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWalkable(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"footway", osm.Tags{{Key: "highway", Value: "footway"}}, true},
		{"residential road", osm.Tags{{Key: "highway", Value: "residential"}}, true},
		{"path", osm.Tags{{Key: "highway", Value: "path"}}, true},
		{"primary road", osm.Tags{{Key: "highway", Value: "primary"}}, true},
		{"motorway", osm.Tags{{Key: "highway", Value: "motorway"}}, false},
		{"motorway_link", osm.Tags{{Key: "highway", Value: "motorway_link"}}, false},
		{"cycleway", osm.Tags{{Key: "highway", Value: "cycleway"}}, false},
		{"under construction", osm.Tags{{Key: "highway", Value: "construction"}}, false},
		{"foot=no", osm.Tags{
			{Key: "highway", Value: "trunk"},
			{Key: "foot", Value: "no"},
		}, false},
		{"private access", osm.Tags{
			{Key: "highway", Value: "residential"},
			{Key: "access", Value: "private"},
		}, false},
		{"private service road", osm.Tags{
			{Key: "highway", Value: "service"},
			{Key: "service", Value: "private"},
		}, false},
		{"pedestrian plaza", osm.Tags{
			{Key: "highway", Value: "pedestrian"},
			{Key: "area", Value: "yes"},
		}, false},
		{"no highway tag", osm.Tags{{Key: "name", Value: "Some Street"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isWalkable(tt.tags))
		})
	}
}

func TestFootDirection(t *testing.T) {
	tests := []struct {
		name         string
		tags         osm.Tags
		wantForward  bool
		wantBackward bool
	}{
		{"default bidirectional", osm.Tags{{Key: "highway", Value: "footway"}}, true, true},
		{"vehicle oneway ignored", osm.Tags{
			{Key: "highway", Value: "primary"},
			{Key: "oneway", Value: "yes"},
		}, true, true},
		{"oneway:foot=yes", osm.Tags{
			{Key: "highway", Value: "steps"},
			{Key: "oneway:foot", Value: "yes"},
		}, true, false},
		{"oneway:foot=-1", osm.Tags{
			{Key: "highway", Value: "steps"},
			{Key: "oneway:foot", Value: "-1"},
		}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, bwd := footDirection(tt.tags)
			assert.Equal(t, tt.wantForward, fwd, "forward")
			assert.Equal(t, tt.wantBackward, bwd, "backward")
		})
	}
}

func TestParseMaxSpeed(t *testing.T) {
	assert.Equal(t, 50.0, parseMaxSpeed("50"))
	assert.Equal(t, 40.0, parseMaxSpeed("50;30"))
	assert.InDelta(t, 48.28, parseMaxSpeed("30 mph"), 0.01)
	assert.Equal(t, 5.0, parseMaxSpeed("walk"))
	assert.Zero(t, parseMaxSpeed("none"))
	assert.Zero(t, parseMaxSpeed(""))
}

// crossDoc is a plus-shaped network: way 1 runs west to east through node 3,
// way 2 runs south to north through node 3, way 3 is a motorway.
func crossDoc() *osm.OSM {
	node := func(id osm.NodeID, lat, lon float64) *osm.Node {
		return &osm.Node{ID: id, Lat: lat, Lon: lon}
	}
	way := func(id osm.WayID, hw string, ids ...osm.NodeID) *osm.Way {
		w := &osm.Way{ID: id, Tags: osm.Tags{{Key: "highway", Value: hw}}}
		for _, n := range ids {
			w.Nodes = append(w.Nodes, osm.WayNode{ID: n})
		}
		return w
	}
	return &osm.OSM{
		Nodes: osm.Nodes{
			node(1, 9.930, 76.260),
			node(2, 9.930, 76.262),
			node(3, 9.930, 76.264),
			node(4, 9.930, 76.266),
			node(5, 9.928, 76.264),
			node(6, 9.932, 76.264),
			node(7, 9.940, 76.270),
			node(8, 9.941, 76.271),
		},
		Ways: osm.Ways{
			way(1, "residential", 1, 2, 3, 4),
			way(2, "footway", 5, 3, 6),
			way(3, "motorway", 7, 8),
		},
	}
}

func TestParseOSMSplitsAtIntersections(t *testing.T) {
	res := ParseOSM(crossDoc())

	// Way 1 splits into 1->3 (shape node 2) and 3->4; way 2 into 5->3 and 3->6.
	// Each segment appears in both directions; the motorway is dropped.
	require.Len(t, res.Edges, 8)

	var found bool
	for _, e := range res.Edges {
		assert.NotEqual(t, osm.WayID(3), e.WayID)
		if e.FromNodeID == 1 && e.ToNodeID == 3 {
			found = true
			assert.Equal(t, []float64{9.930}, e.ShapeLats)
			assert.Equal(t, []float64{76.262}, e.ShapeLons)
			assert.InDelta(t, 438, e.LengthMeters, 5)
		}
	}
	assert.True(t, found, "edge 1->3 not built")
}

func TestParseOSMReverseShape(t *testing.T) {
	doc := crossDoc()
	doc.Ways[0].Nodes = osm.WayNodes{{ID: 1}, {ID: 2}, {ID: 5}, {ID: 4}}
	doc.Ways = doc.Ways[:1]

	res := ParseOSM(doc)
	require.Len(t, res.Edges, 2)

	fwd, bwd := res.Edges[0], res.Edges[1]
	assert.Equal(t, osm.NodeID(1), fwd.FromNodeID)
	assert.Equal(t, osm.NodeID(4), bwd.FromNodeID)
	assert.Equal(t, []float64{76.262, 76.264}, fwd.ShapeLons)
	assert.Equal(t, []float64{76.264, 76.262}, bwd.ShapeLons)
	assert.Equal(t, fwd.LengthMeters, bwd.LengthMeters)
}

func TestParseOSMBBox(t *testing.T) {
	res := ParseOSM(crossDoc(), ParseOptions{BBox: BBox{
		MinLat: 9.929, MaxLat: 9.933,
		MinLng: 76.259, MaxLng: 76.265,
	}})

	// 3->4 leaves the box on the east and 5->3 on the south.
	require.Len(t, res.Edges, 4)
	for _, e := range res.Edges {
		assert.NotContains(t, []osm.NodeID{4, 5}, e.FromNodeID)
		assert.NotContains(t, []osm.NodeID{4, 5}, e.ToNodeID)
	}
}

func TestParseOSMMissingCoordinates(t *testing.T) {
	doc := crossDoc()
	doc.Nodes = doc.Nodes[1:] // drop node 1

	res := ParseOSM(doc)
	for _, e := range res.Edges {
		assert.NotEqual(t, osm.NodeID(1), e.FromNodeID)
		assert.NotEqual(t, osm.NodeID(1), e.ToNodeID)
	}
	assert.Len(t, res.Edges, 6)
}

func TestParseOSMMaxSpeed(t *testing.T) {
	doc := crossDoc()
	doc.Ways[0].Tags = append(doc.Ways[0].Tags, osm.Tag{Key: "maxspeed", Value: "40"})

	for _, e := range ParseOSM(doc).Edges {
		if e.WayID == 1 {
			assert.Equal(t, 40.0, e.SpeedKPH)
		} else {
			assert.Zero(t, e.SpeedKPH)
		}
	}
}
