package api

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start     *LatLngJSON `json:"start" validate:"required"`
	End       *LatLngJSON `json:"end" validate:"required"`
	Objective string      `json:"objective" validate:"omitempty,oneof=shortest fastest safest"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// RouteResponse is the JSON response for a successful route query.
// Coordinates are [lat, lng] pairs, one per path node; Geometry adds the
// shape points between them.
type RouteResponse struct {
	Objective        string         `json:"objective"`
	Coordinates      [][2]float64   `json:"coordinates"`
	Geometry         [][2]float64   `json:"geometry"`
	TotalCost        float64        `json:"total_cost"`
	DistanceMeters   float64        `json:"distance_meters"`
	OriginResolution ResolutionJSON `json:"origin_resolution"`
	TargetResolution ResolutionJSON `json:"target_resolution"`
}

// ResolutionJSON describes how a request coordinate was mapped to a node.
type ResolutionJSON struct {
	Node           string  `json:"node"`
	Kind           string  `json:"kind"`
	DistanceMeters float64 `json:"distance_meters"`
}

// HazardsResponse is the JSON response for PUT /api/v1/hazards.
type HazardsResponse struct {
	Polygons     int  `json:"polygons"`
	BlockedEdges int  `json:"blocked_edges"`
	Degraded     bool `json:"degraded"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Source       string `json:"source"`
	NumNodes     int    `json:"num_nodes"`
	NumEdges     int    `json:"num_edges"`
	BlockedEdges int    `json:"blocked_edges"`
	Hazards      int    `json:"hazards"`
	Indexed      bool   `json:"indexed"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
