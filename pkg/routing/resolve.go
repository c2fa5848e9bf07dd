package routing

import (
	"math"

	"github.com/tidwall/rtree"

	"hazard_router/pkg/geo"
	"hazard_router/pkg/graph"
)

// nearestCandidates is how many nodes the R-tree returns by box distance
// before they are re-ranked by haversine distance.
const nearestCandidates = 8

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// ResolutionKind records how a coordinate was mapped to a node.
type ResolutionKind int

const (
	// Indexed: nearest coordinate node found through the spatial index.
	Indexed ResolutionKind = iota
	// PassThrough: no index; the rounded coordinate is used as a grid key.
	PassThrough
)

func (k ResolutionKind) String() string {
	if k == PassThrough {
		return "pass_through"
	}
	return "indexed"
}

// MarshalText encodes the kind as its name.
func (k ResolutionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Resolution is the node a query coordinate was mapped to. DistanceMeters is
// the haversine distance to that node, 0 for pass-through.
type Resolution struct {
	Node           graph.NodeID
	Kind           ResolutionKind
	DistanceMeters float64
}

// NodeIndex is an R-tree over the graph's routable coordinate nodes.
type NodeIndex struct {
	tree rtree.RTreeG[int]
	g    *graph.Graph
}

// NewNodeIndex indexes the nodes of g that have coordinates and at least one
// live edge, so a query never snaps to a node the hazard filter cut off. A
// graph with no edges at all has every coordinate node indexed.
func NewNodeIndex(g *graph.Graph) *NodeIndex {
	ix := &NodeIndex{g: g}
	linked := make([]bool, g.NumNodes())
	anyEdge := false
	for i := range linked {
		for _, a := range g.Arcs(i) {
			linked[i], linked[a.Head] = true, true
			anyEdge = true
		}
	}
	for i := range g.NumNodes() {
		n := g.NodeAt(i)
		if !n.HasCoord || (anyEdge && !linked[i]) {
			continue
		}
		p := [2]float64{n.Lon, n.Lat}
		ix.tree.Insert(p, p, i)
	}
	return ix
}

// Len returns the number of indexed nodes.
func (ix *NodeIndex) Len() int {
	if ix == nil {
		return 0
	}
	return ix.tree.Len()
}

// Nearest returns the order index of the node closest to (lat, lng) by
// haversine distance, among the nearest candidates by box distance. Equal
// distances resolve to the earlier node.
func (ix *NodeIndex) Nearest(lat, lng float64) (node int, meters float64, ok bool) {
	if ix.Len() == 0 {
		return 0, 0, false
	}

	q := [2]float64{lng, lat}
	best, bestDist := -1, math.Inf(1)
	seen := 0
	ix.tree.Nearby(
		rtree.BoxDist[float64, int](q, q, nil),
		func(min, _ [2]float64, i int, _ float64) bool {
			d := geo.Haversine(lat, lng, min[1], min[0])
			if d < bestDist || (d == bestDist && i < best) {
				best, bestDist = i, d
			}
			seen++
			return seen < nearestCandidates
		},
	)
	return best, bestDist, best >= 0
}

// Resolve maps a coordinate to a graph node. With a populated index the
// nearest node is returned. Without one (a coordinate-less grid) the
// coordinate is rounded to a (row, col) grid key; if that key is not in the
// graph the subsequent search reports ErrNoPath.
func Resolve(ix *NodeIndex, coord LatLng) Resolution {
	if i, d, ok := ix.Nearest(coord.Lat, coord.Lng); ok {
		return Resolution{Node: ix.g.NodeAt(i).ID, Kind: Indexed, DistanceMeters: d}
	}
	return Resolution{
		Node: graph.GridNode(int(math.Round(coord.Lat)), int(math.Round(coord.Lng))),
		Kind: PassThrough,
	}
}
