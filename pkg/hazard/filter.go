package hazard

import (
	"github.com/paulmach/orb"

	"hazard_router/pkg/geo"
	"hazard_router/pkg/graph"
	"hazard_router/pkg/logging"
)

// RepresentativePoint returns the point an edge is tested at: the centroid
// of its geometry, else the midpoint of its endpoints. ok is false when the
// endpoints carry no coordinates.
func RepresentativePoint(g *graph.Graph, e graph.Edge) (p orb.Point, ok bool) {
	if len(e.Geometry) >= 2 {
		return geo.LineCentroid(e.Geometry), true
	}
	from, okFrom := g.Node(e.From)
	to, okTo := g.Node(e.To)
	if !okFrom || !okTo || !from.HasCoord || !to.HasCoord {
		return orb.Point{}, false
	}
	return geo.Midpoint(orb.Point{from.Lon, from.Lat}, orb.Point{to.Lon, to.Lat}), true
}

// Match returns the first polygon containing p, in slice order.
func Match(p orb.Point, polys []Polygon) (Polygon, bool) {
	for _, hp := range polys {
		if hp.Geometry.Bound().Contains(p) && geo.PointInPolygon(p, hp.Geometry) {
			return hp, true
		}
	}
	return Polygon{}, false
}

// FilterEdges removes every edge whose representative point lies inside a
// hazard polygon and returns how many were removed. Nodes are never
// removed. Edges without coordinates cannot be tested and are kept.
func FilterEdges(g *graph.Graph, polys []Polygon) int {
	if len(polys) == 0 {
		return 0
	}

	type bounded struct {
		Polygon
		bound orb.Bound
	}
	idx := make([]bounded, len(polys))
	for i, p := range polys {
		idx[i] = bounded{Polygon: p, bound: p.Geometry.Bound()}
	}

	var blocked, untested int
	for _, e := range g.Edges() {
		p, ok := RepresentativePoint(g, e)
		if !ok {
			untested++
			continue
		}
		for _, hp := range idx {
			if !hp.bound.Contains(p) || !geo.PointInPolygon(p, hp.Geometry) {
				continue
			}
			if err := g.RemoveEdge(e.ID); err == nil {
				blocked++
			}
			break
		}
	}

	if untested > 0 {
		logging.Debug("edges without coordinates kept untested", "edges", untested)
	}
	logging.Info("hazard filter applied", "polygons", len(polys), "blocked", blocked)
	return blocked
}
