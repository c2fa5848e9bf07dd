// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RouteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hazard_router_route_requests_total",
		Help: "Route requests by objective and outcome",
	}, []string{"objective", "outcome"})

	RouteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hazard_router_route_duration_seconds",
		Help:    "Route computation time including node resolution",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"objective"})

	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hazard_router_resolutions_total",
		Help: "Coordinate to node resolutions by kind",
	}, []string{"kind"})

	Acquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hazard_router_graph_acquisitions_total",
		Help: "Graph acquisitions by source",
	}, []string{"source"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hazard_router_graph_nodes",
		Help: "Nodes in the routing graph",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hazard_router_graph_edges",
		Help: "Live edges in the routing graph after hazard filtering",
	})

	BlockedEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hazard_router_blocked_edges",
		Help: "Edges removed by the current hazard set",
	})

	HazardReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hazard_router_hazard_reloads_total",
		Help: "Hazard set replacements by result",
	}, []string{"result"})
)
