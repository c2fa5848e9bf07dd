// Package graph holds the mutable routing multigraph, its synthetic grid
// fallback and its on-disk snapshot format.
package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/paulmach/orb"
)

// Attribute defaults applied when an edge does not carry a value.
const (
	DefaultLength   = 100.0 // meters
	DefaultSpeedKPH = 30.0
)

var (
	// ErrUnknownNode is returned when an edge references a node not in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownEdge is returned for operations on missing or removed edges.
	ErrUnknownEdge = errors.New("unknown edge")
)

// NodeID identifies a node: an OSM node reference, or a (row, col) cell of
// the synthetic grid. The zero value is OSM node 0.
type NodeID struct {
	Ref      int64
	Row, Col int32
	Grid     bool
}

// OSMNode returns the ID of the OSM node with the given reference.
func OSMNode(ref int64) NodeID {
	return NodeID{Ref: ref}
}

// GridNode returns the ID of grid cell (row, col).
func GridNode(row, col int) NodeID {
	return NodeID{Row: int32(row), Col: int32(col), Grid: true}
}

// GridCell returns the (row, col) key of a grid node.
func (id NodeID) GridCell() (row, col int, ok bool) {
	if !id.Grid {
		return 0, 0, false
	}
	return int(id.Row), int(id.Col), true
}

func (id NodeID) String() string {
	if id.Grid {
		return fmt.Sprintf("(%d,%d)", id.Row, id.Col)
	}
	return fmt.Sprintf("n%d", id.Ref)
}

// Node is a graph vertex. Lat/Lon are meaningful only when HasCoord is set.
type Node struct {
	ID       NodeID
	Lat      float64
	Lon      float64
	HasCoord bool
}

// EdgeID is stable for the lifetime of a graph and preserved by Clone.
type EdgeID uint32

// EdgeAttrs are the routing attributes of an edge. Has* flags distinguish an
// absent value from an explicit zero.
type EdgeAttrs struct {
	Length        float64 // meters
	HasLength     bool
	SpeedKPH      float64
	HasSpeed      bool
	HazardPenalty float64        // nonnegative multiplier, 0 when absent
	Geometry      orb.LineString // (lon, lat) shape including both endpoints; may be nil
}

// LengthOrDefault returns Length, or DefaultLength when absent.
func (a EdgeAttrs) LengthOrDefault() float64 {
	if a.HasLength {
		return a.Length
	}
	return DefaultLength
}

// SpeedOrDefault returns SpeedKPH, or DefaultSpeedKPH when absent.
func (a EdgeAttrs) SpeedOrDefault() float64 {
	if a.HasSpeed {
		return a.SpeedKPH
	}
	return DefaultSpeedKPH
}

// Edge connects From and To. Key numbers parallel edges between the same pair.
type Edge struct {
	ID   EdgeID
	From NodeID
	To   NodeID
	Key  int
	EdgeAttrs
}

// Arc is a live edge as seen from one endpoint: Head is the order index of
// the node it leads to.
type Arc struct {
	Edge EdgeID
	Head int
}

type edgeSlot struct {
	Edge
	from, to int
	removed  bool
}

type pairKey struct{ a, b int }

// Graph is a mutable multigraph, directed or undirected. Nodes and edges are
// reported in insertion order. It is not safe for concurrent mutation.
type Graph struct {
	directed bool
	nodes    []Node
	index    map[NodeID]int
	edges    []edgeSlot
	out      [][]Arc
	keys     map[pairKey]int
	numEdges int
}

// New returns an empty graph.
func New(directed bool) *Graph {
	return &Graph{
		directed: directed,
		index:    make(map[NodeID]int),
		keys:     make(map[pairKey]int),
	}
}

// Directed reports whether edges are one-way.
func (g *Graph) Directed() bool { return g.directed }

// AddNode inserts n, or updates its coordinates if the ID already exists.
func (g *Graph) AddNode(n Node) {
	if i, ok := g.index[n.ID]; ok {
		g.nodes[i] = n
		return
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
}

// AddEdge connects two existing nodes and returns the new edge's ID.
func (g *Graph) AddEdge(from, to NodeID, attrs EdgeAttrs) (EdgeID, error) {
	fi, ok := g.index[from]
	if !ok {
		return 0, fmt.Errorf("edge %s->%s: from %w", from, to, ErrUnknownNode)
	}
	ti, ok := g.index[to]
	if !ok {
		return 0, fmt.Errorf("edge %s->%s: to %w", from, to, ErrUnknownNode)
	}
	return g.addEdge(fi, ti, g.nextKey(fi, ti), attrs), nil
}

func (g *Graph) nextKey(fi, ti int) int {
	pk := pairKey{fi, ti}
	if !g.directed && ti < fi {
		pk = pairKey{ti, fi}
	}
	k := g.keys[pk]
	g.keys[pk] = k + 1
	return k
}

func (g *Graph) addEdge(fi, ti, key int, attrs EdgeAttrs) EdgeID {
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, edgeSlot{
		Edge: Edge{
			ID:        id,
			From:      g.nodes[fi].ID,
			To:        g.nodes[ti].ID,
			Key:       key,
			EdgeAttrs: attrs,
		},
		from: fi,
		to:   ti,
	})
	g.out[fi] = append(g.out[fi], Arc{Edge: id, Head: ti})
	if !g.directed && fi != ti {
		g.out[ti] = append(g.out[ti], Arc{Edge: id, Head: fi})
	}
	g.numEdges++
	return id
}

// RemoveEdge deletes an edge. Its endpoints stay in the graph.
func (g *Graph) RemoveEdge(id EdgeID) error {
	if int(id) >= len(g.edges) || g.edges[id].removed {
		return fmt.Errorf("remove %d: %w", id, ErrUnknownEdge)
	}
	s := &g.edges[id]
	s.removed = true
	drop := func(a Arc) bool { return a.Edge == id }
	g.out[s.from] = slices.DeleteFunc(g.out[s.from], drop)
	if !g.directed {
		g.out[s.to] = slices.DeleteFunc(g.out[s.to], drop)
	}
	g.numEdges--
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.index[id]
	return ok
}

// Index returns the insertion-order index of a node.
func (g *Graph) Index(id NodeID) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// NodeAt returns the node at insertion-order index i.
func (g *Graph) NodeAt(i int) Node { return g.nodes[i] }

// Edge returns a live edge.
func (g *Graph) Edge(id EdgeID) (Edge, bool) {
	if int(id) >= len(g.edges) || g.edges[id].removed {
		return Edge{}, false
	}
	return g.edges[id].Edge, true
}

// Attrs returns the attributes of edge id without the liveness check.
func (g *Graph) Attrs(id EdgeID) EdgeAttrs { return g.edges[id].EdgeAttrs }

// Arcs returns the live outgoing arcs of the node at index i, in edge
// insertion order. Undirected edges appear at both endpoints. The slice
// must not be modified.
func (g *Graph) Arcs(i int) []Arc { return g.out[i] }

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	return slices.Clone(g.nodes)
}

// Edges returns all live edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.numEdges)
	for i := range g.edges {
		if !g.edges[i].removed {
			out = append(out, g.edges[i].Edge)
		}
	}
	return out
}

// Neighbors returns the live edges leaving id, oriented so that From is id.
func (g *Graph) Neighbors(id NodeID) []Edge {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]Edge, 0, len(g.out[i]))
	for _, a := range g.out[i] {
		e := g.edges[a.Edge].Edge
		if e.From != id {
			e.From, e.To = e.To, e.From
		}
		out = append(out, e)
	}
	return out
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the live edge count.
func (g *Graph) NumEdges() int { return g.numEdges }

// EdgeIDBound returns one past the largest edge ID ever issued, for sizing
// per-edge tables.
func (g *Graph) EdgeIDBound() int { return len(g.edges) }

// HasCoordinates reports whether any node carries coordinates.
func (g *Graph) HasCoordinates() bool {
	for i := range g.nodes {
		if g.nodes[i].HasCoord {
			return true
		}
	}
	return false
}

// Clone returns an independent copy with the same IDs. Edge geometry is
// shared and must be treated as read-only.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		directed: g.directed,
		nodes:    slices.Clone(g.nodes),
		index:    maps.Clone(g.index),
		edges:    slices.Clone(g.edges),
		out:      make([][]Arc, len(g.out)),
		keys:     maps.Clone(g.keys),
		numEdges: g.numEdges,
	}
	for i, arcs := range g.out {
		c.out[i] = slices.Clone(arcs)
	}
	return c
}
