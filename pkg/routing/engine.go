package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hazard_router/pkg/graph"
	"hazard_router/pkg/hazard"
	"hazard_router/pkg/logging"
	"hazard_router/pkg/metrics"
)

// ErrNoRoute is returned when no route exists between the two points.
var ErrNoRoute = errors.New("no route found")

// PathRequest is one routing query.
type PathRequest struct {
	Origin    LatLng
	Target    LatLng
	Objective Objective
}

// RouteResult is the output of a route query.
type RouteResult struct {
	Objective      Objective
	Coordinates    []LatLng // one per path node
	Geometry       []LatLng // Coordinates with edge shape points inserted
	Nodes          []graph.NodeID
	Cost           float64 // in the objective's unit
	DistanceMeters float64
	Origin         Resolution
	Target         Resolution
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, req PathRequest) (*RouteResult, error)
}

// Stats describes the engine's current graph.
type Stats struct {
	Source       string
	Nodes        int
	Edges        int
	BlockedEdges int
	Hazards      int
	Indexed      bool
}

// Engine serves routes over one session graph. It keeps the acquired graph
// untouched and routes over a filtered working copy, so a new hazard set
// always applies to the full network. Routes may run concurrently; hazard
// updates wait for in-flight routes.
type Engine struct {
	mu       sync.RWMutex
	source   string
	pristine *graph.Graph
	working  *graph.Graph
	index    *NodeIndex
	blocked  int
	hazards  int
}

// NewEngine creates a routing engine over g. source labels where the graph
// came from and is reported by Stats.
func NewEngine(g *graph.Graph, source string) *Engine {
	e := &Engine{
		source:   source,
		pristine: g,
		working:  g.Clone(),
	}
	e.index = NewNodeIndex(e.working)
	metrics.GraphNodes.Set(float64(g.NumNodes()))
	metrics.GraphEdges.Set(float64(g.NumEdges()))
	return e
}

// ApplyHazards replaces the active hazard set and returns how many edges it
// blocks. An empty set restores the full graph.
func (e *Engine) ApplyHazards(polys []hazard.Polygon) int {
	working := e.pristine.Clone()
	blocked := hazard.FilterEdges(working, polys)
	index := NewNodeIndex(working)

	e.mu.Lock()
	e.working, e.index = working, index
	e.blocked, e.hazards = blocked, len(polys)
	e.mu.Unlock()

	metrics.BlockedEdges.Set(float64(blocked))
	metrics.GraphEdges.Set(float64(working.NumEdges()))
	return blocked
}

// Route computes the best path between two points under req.Objective.
func (e *Engine) Route(ctx context.Context, req PathRequest) (*RouteResult, error) {
	start := time.Now()
	res, err := e.route(ctx, req)

	obj := req.Objective.String()
	metrics.RouteDuration.WithLabelValues(obj).Observe(time.Since(start).Seconds())
	metrics.RouteRequests.WithLabelValues(obj, outcome(err)).Inc()
	return res, err
}

func (e *Engine) route(ctx context.Context, req PathRequest) (*RouteResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g := e.working

	from := Resolve(e.index, req.Origin)
	to := Resolve(e.index, req.Target)
	metrics.Resolutions.WithLabelValues(from.Kind.String()).Inc()
	metrics.Resolutions.WithLabelValues(to.Kind.String()).Inc()

	path, err := Search(ctx, g, from.Node, to.Node, req.Objective)
	if errors.Is(err, ErrNoPath) {
		logging.DebugContext(ctx, "no route", "from", from.Node.String(), "to", to.Node.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNoRoute, err)
	}
	if err != nil {
		return nil, err
	}

	var meters float64
	for _, id := range path.Edges {
		meters += g.Attrs(id).LengthOrDefault()
	}

	return &RouteResult{
		Objective:      req.Objective,
		Coordinates:    Materialize(g, path.Nodes, req.Origin, req.Target),
		Geometry:       Shape(g, path, req.Origin, req.Target),
		Nodes:          path.Nodes,
		Cost:           path.Cost,
		DistanceMeters: meters,
		Origin:         from,
		Target:         to,
	}, nil
}

// Stats reports the current graph and hazard counts.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		Source:       e.source,
		Nodes:        e.working.NumNodes(),
		Edges:        e.working.NumEdges(),
		BlockedEdges: e.blocked,
		Hazards:      e.hazards,
		Indexed:      e.index.Len() > 0,
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoRoute):
		return "no_route"
	case errors.Is(err, ErrInvalidWeight):
		return "invalid_weight"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}
