package routing

import "hazard_router/pkg/graph"

// Materialize converts a node sequence into coordinates. Grid nodes map to
// their (row, col) key read as (lat, lng); other nodes use their stored
// coordinates, or origin when they have none. An empty sequence becomes the
// straight line origin→target.
func Materialize(g *graph.Graph, nodes []graph.NodeID, origin, target LatLng) []LatLng {
	if len(nodes) == 0 {
		return []LatLng{origin, target}
	}

	out := make([]LatLng, 0, len(nodes))
	for _, id := range nodes {
		if row, col, ok := id.GridCell(); ok {
			out = append(out, LatLng{Lat: float64(row), Lng: float64(col)})
			continue
		}
		if n, ok := g.Node(id); ok && n.HasCoord {
			out = append(out, LatLng{Lat: n.Lat, Lng: n.Lon})
			continue
		}
		out = append(out, origin)
	}
	return out
}

// Shape expands a path into a drawable polyline, inserting the interior
// shape points of every traversed edge that carries geometry. Without edge
// geometry it equals Materialize.
func Shape(g *graph.Graph, p Path, origin, target LatLng) []LatLng {
	coords := Materialize(g, p.Nodes, origin, target)
	if len(p.Edges) == 0 || len(p.Edges) != len(p.Nodes)-1 {
		return coords
	}

	out := make([]LatLng, 0, len(coords))
	out = append(out, coords[0])
	for i, eid := range p.Edges {
		geom := g.Attrs(eid).Geometry
		if len(geom) > 2 {
			interior := geom[1 : len(geom)-1]
			// Undirected edges may be walked against their stored direction.
			if e, ok := g.Edge(eid); ok && e.From != p.Nodes[i] {
				for j := len(interior) - 1; j >= 0; j-- {
					out = append(out, LatLng{Lat: interior[j][1], Lng: interior[j][0]})
				}
			} else {
				for _, pt := range interior {
					out = append(out, LatLng{Lat: pt[1], Lng: pt[0]})
				}
			}
		}
		out = append(out, coords[i+1])
	}
	return out
}
