package graph

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	osmparser "hazard_router/pkg/osm"
)

// Build creates a directed walk graph from parsed OSM edges. Nodes are added
// in order of first reference, so the result is deterministic for a given
// parse.
func Build(result *osmparser.ParseResult) *Graph {
	g := New(true)
	if result == nil {
		return g
	}

	addNode := func(id osm.NodeID) {
		nid := OSMNode(int64(id))
		if g.HasNode(nid) {
			return
		}
		lat, ok := result.NodeLat[id]
		lon := result.NodeLon[id]
		g.AddNode(Node{ID: nid, Lat: lat, Lon: lon, HasCoord: ok})
	}

	for i := range result.Edges {
		e := &result.Edges[i]
		addNode(e.FromNodeID)
		addNode(e.ToNodeID)

		attrs := EdgeAttrs{
			Length:    e.LengthMeters,
			HasLength: true,
			SpeedKPH:  e.SpeedKPH,
			HasSpeed:  e.SpeedKPH > 0,
		}
		if len(e.ShapeLats) > 0 {
			attrs.Geometry = shapeLine(result, e)
		}

		from, to := OSMNode(int64(e.FromNodeID)), OSMNode(int64(e.ToNodeID))
		fi, _ := g.Index(from)
		ti, _ := g.Index(to)
		g.addEdge(fi, ti, g.nextKey(fi, ti), attrs)
	}
	return g
}

// shapeLine returns the full (lon, lat) polyline of an edge.
func shapeLine(result *osmparser.ParseResult, e *osmparser.RawEdge) orb.LineString {
	ls := make(orb.LineString, 0, len(e.ShapeLats)+2)
	ls = append(ls, orb.Point{result.NodeLon[e.FromNodeID], result.NodeLat[e.FromNodeID]})
	for i := range e.ShapeLats {
		ls = append(ls, orb.Point{e.ShapeLons[i], e.ShapeLats[i]})
	}
	return append(ls, orb.Point{result.NodeLon[e.ToNodeID], result.NodeLat[e.ToNodeID]})
}
