package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"hazard_router/pkg/graph"
)

// ErrNoPath is returned when the target cannot be reached from the origin,
// or when either endpoint is not in the graph.
var ErrNoPath = errors.New("no path")

// ctxCheckInterval is how many settled nodes pass between context checks.
const ctxCheckInterval = 1024

const noPred = -1

// Path is a search result: the node sequence from origin to target, the
// edges between consecutive nodes and the total cost under the objective.
type Path struct {
	Nodes []graph.NodeID
	Edges []graph.EdgeID
	Cost  float64
}

// MinHeap is a concrete-typed min-heap for Dijkstra priority queue.
// Entries are ordered by distance, then by node index, which makes the
// settle order deterministic when distances tie.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node int
	Dist float64
}

func (a PQItem) less(b PQItem) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.Node < b.Node
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node int, dist float64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.items[i].less(h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].less(h.items[smallest]) {
			smallest = left
		}
		if right < n && h.items[right].less(h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// Search finds the minimum-cost path from one node to another under obj.
// Weights are derived per call; the graph is only read.
func Search(ctx context.Context, g *graph.Graph, from, to graph.NodeID, obj Objective) (Path, error) {
	w, err := Weights(g, obj)
	if err != nil {
		return Path{}, err
	}
	return SearchWeighted(ctx, g, from, to, w)
}

// SearchWeighted runs Dijkstra with a caller-supplied weight table indexed by
// EdgeID. Weights must be nonnegative.
//
// Ties are broken deterministically: nodes with equal distance settle in
// graph order, arcs relax in insertion order and a predecessor is only
// replaced by a strictly shorter distance.
func SearchWeighted(ctx context.Context, g *graph.Graph, from, to graph.NodeID, w []float64) (Path, error) {
	s, ok := g.Index(from)
	if !ok {
		return Path{}, fmt.Errorf("%w: origin %s not in graph", ErrNoPath, from)
	}
	t, ok := g.Index(to)
	if !ok {
		return Path{}, fmt.Errorf("%w: target %s not in graph", ErrNoPath, to)
	}
	if s == t {
		return Path{Nodes: []graph.NodeID{from}}, nil
	}

	n := g.NumNodes()
	dist := make([]float64, n)
	pred := make([]int, n)
	predEdge := make([]graph.EdgeID, n)
	settled := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		pred[i] = noPred
	}
	dist[s] = 0

	var pq MinHeap
	pq.Push(s, 0)

	for pops := 0; pq.Len() > 0; pops++ {
		if pops%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Path{}, err
			}
		}

		item := pq.Pop()
		u := item.Node
		if settled[u] {
			continue
		}
		settled[u] = true
		if u == t {
			break
		}

		for _, a := range g.Arcs(u) {
			v := a.Head
			if settled[v] {
				continue
			}
			if nd := item.Dist + w[a.Edge]; nd < dist[v] {
				dist[v] = nd
				pred[v] = u
				predEdge[v] = a.Edge
				pq.Push(v, nd)
			}
		}
	}

	if !settled[t] {
		return Path{}, fmt.Errorf("%w: %s unreachable from %s", ErrNoPath, to, from)
	}

	var nodes []graph.NodeID
	var edges []graph.EdgeID
	for v := t; v != s; v = pred[v] {
		nodes = append(nodes, g.NodeAt(v).ID)
		edges = append(edges, predEdge[v])
	}
	nodes = append(nodes, from)
	slices.Reverse(nodes)
	slices.Reverse(edges)

	return Path{Nodes: nodes, Edges: edges, Cost: dist[t]}, nil
}
