package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"hazard_router/pkg/hazard"
	"hazard_router/pkg/logging"
	"hazard_router/pkg/metrics"
	"hazard_router/pkg/routing"
)

const (
	maxRouteBody  = 1024
	maxHazardBody = 32 << 20
)

// Service is what the handlers need from the routing engine.
// *routing.Engine satisfies it.
type Service interface {
	routing.Router
	ApplyHazards(polys []hazard.Polygon) int
	Stats() routing.Stats
}

// validate reports field errors by their JSON names.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	svc Service
}

// NewHandlers creates handlers backed by svc.
func NewHandlers(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	if !hasMediaType(r, "application/json") {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRouteBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	if err := validate.Struct(&req); err != nil {
		field := invalidField(err)
		code := "invalid_coordinates"
		if field == "objective" {
			code = "invalid_objective"
		}
		writeError(w, http.StatusBadRequest, code, field)
		return
	}
	obj, err := routing.ParseObjective(req.Objective)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_objective", "objective")
		return
	}

	result, err := h.svc.Route(r.Context(), routing.PathRequest{
		Origin:    routing.LatLng{Lat: req.Start.Lat, Lng: req.Start.Lng},
		Target:    routing.LatLng{Lat: req.End.Lat, Lng: req.End.Lng},
		Objective: obj,
	})
	if err != nil {
		switch {
		case errors.Is(err, routing.ErrNoRoute):
			writeError(w, http.StatusNotFound, "no_route_found", "")
		case errors.Is(err, routing.ErrInvalidWeight):
			logging.WarnContext(r.Context(), "route rejected", "error", err)
			writeError(w, http.StatusUnprocessableEntity, "invalid_weight", "")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
		default:
			logging.ErrorContext(r.Context(), "route failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "")
		}
		return
	}

	writeJSON(w, http.StatusOK, RouteResponse{
		Objective:        result.Objective.String(),
		Coordinates:      pairs(result.Coordinates),
		Geometry:         pairs(result.Geometry),
		TotalCost:        result.Cost,
		DistanceMeters:   result.DistanceMeters,
		OriginResolution: resolutionJSON(result.Origin),
		TargetResolution: resolutionJSON(result.Target),
	})
}

// HandleHazards handles PUT /api/v1/hazards. The body is a GeoJSON
// FeatureCollection that replaces the active hazard set; the optional
// spread_km query parameter buffers every polygon.
func (h *Handlers) HandleHazards(w http.ResponseWriter, r *http.Request) {
	if !hasMediaType(r, "application/json", "application/geo+json") {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var spreadKm float64
	if s := r.URL.Query().Get("spread_km"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || v > 100 {
			writeError(w, http.StatusBadRequest, "invalid_spread", "spread_km")
			return
		}
		spreadKm = v
	}

	res, err := hazard.LoadGeoJSON(http.MaxBytesReader(w, r.Body, maxHazardBody), spreadKm)
	if err != nil {
		metrics.HazardReloads.WithLabelValues("error").Inc()
		logging.WarnContext(r.Context(), "hazard upload rejected", "error", err)
		writeError(w, http.StatusBadRequest, "invalid_geojson", "")
		return
	}

	blocked := h.svc.ApplyHazards(res.Polygons)
	result := "ok"
	if res.Degraded {
		result = "degraded"
	}
	metrics.HazardReloads.WithLabelValues(result).Inc()
	logging.InfoContext(r.Context(), "hazards replaced", "polygons", len(res.Polygons),
		"blocked", blocked, "degraded", res.Degraded)

	writeJSON(w, http.StatusOK, HazardsResponse{
		Polygons:     len(res.Polygons),
		BlockedEdges: blocked,
		Degraded:     res.Degraded,
	})
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Stats()
	writeJSON(w, http.StatusOK, StatsResponse{
		Source:       st.Source,
		NumNodes:     st.Nodes,
		NumEdges:     st.Edges,
		BlockedEdges: st.BlockedEdges,
		Hazards:      st.Hazards,
		Indexed:      st.Indexed,
	})
}

func hasMediaType(r *http.Request, types ...string) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	for _, t := range types {
		if mediaType == t {
			return true
		}
	}
	return false
}

// invalidField returns the top-level JSON field of the first validation
// failure, e.g. "start" for RouteRequest.start.lat.
func invalidField(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return ""
	}
	parts := strings.Split(ve[0].Namespace(), ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func pairs(coords []routing.LatLng) [][2]float64 {
	out := make([][2]float64, len(coords))
	for i, c := range coords {
		out[i] = [2]float64{c.Lat, c.Lng}
	}
	return out
}

func resolutionJSON(r routing.Resolution) ResolutionJSON {
	return ResolutionJSON{Node: r.Node.String(), Kind: r.Kind.String(), DistanceMeters: r.DistanceMeters}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field})
}
