package osm

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"hazard_router/pkg/geo"
	"hazard_router/pkg/logging"
)

// RawEdge is one directed walkable segment between two intersection nodes.
type RawEdge struct {
	FromNodeID   osm.NodeID
	ToNodeID     osm.NodeID
	WayID        osm.WayID
	LengthMeters float64   // haversine length along the shape
	SpeedKPH     float64   // from maxspeed; 0 when the way carries none
	ShapeLats    []float64 // intermediate shape node latitudes (excluding from/to)
	ShapeLons    []float64 // intermediate shape node longitudes (excluding from/to)
}

// ParseResult holds the walk network extracted from an OSM document.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// excludedHighways are highway values pedestrians cannot use.
var excludedHighways = map[string]bool{
	"abandoned":    true,
	"bus_guideway": true,
	"construction": true,
	"cycleway":     true,
	"no":           true,
	"planned":      true,
	"platform":     true,
	"proposed":     true,
	"raceway":      true,
	"razed":        true,
}

// isWalkable reports whether a way belongs to the pedestrian network.
func isWalkable(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if hw == "" || excludedHighways[hw] || strings.HasPrefix(hw, "motor") {
		return false
	}

	// Pedestrian plazas are polygons, not paths.
	if tags.Find("area") == "yes" {
		return false
	}

	if tags.Find("foot") == "no" || tags.Find("service") == "private" {
		return false
	}
	access := tags.Find("access")
	if access == "private" || access == "no" {
		return false
	}

	return true
}

// footDirection returns (forward, backward) for a pedestrian. Vehicle oneway
// tags do not apply on foot; only oneway:foot restricts direction.
func footDirection(tags osm.Tags) (forward, backward bool) {
	switch tags.Find("oneway:foot") {
	case "yes", "true", "1":
		return true, false
	case "-1", "reverse":
		return false, true
	default:
		return true, true
	}
}

// parseMaxSpeed converts a maxspeed tag to km/h. Lists ("50;30") are
// averaged. Returns 0 when no numeric speed can be read.
func parseMaxSpeed(v string) float64 {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return 0
	}
	if v == "walk" {
		return 5
	}

	var sum float64
	var n int
	for _, part := range strings.Split(v, ";") {
		part = strings.TrimSpace(part)
		factor := 1.0
		if strings.HasSuffix(part, "mph") {
			factor = 1.609344
			part = strings.TrimSpace(strings.TrimSuffix(part, "mph"))
		} else {
			part = strings.TrimSpace(strings.TrimSuffix(part, "km/h"))
		}
		s, err := strconv.ParseFloat(part, 64)
		if err != nil || s <= 0 {
			continue
		}
		sum += s * factor
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// wayInfo holds the parts of a walkable way needed to build edges.
type wayInfo struct {
	ID       osm.WayID
	NodeIDs  []osm.NodeID
	SpeedKPH float64
	Forward  bool
	Backward bool
}

func newWayInfo(w *osm.Way) (wayInfo, bool) {
	if !isWalkable(w.Tags) || len(w.Nodes) < 2 {
		return wayInfo{}, false
	}
	fwd, bwd := footDirection(w.Tags)
	nodeIDs := make([]osm.NodeID, len(w.Nodes))
	for i, wn := range w.Nodes {
		nodeIDs[i] = wn.ID
	}
	return wayInfo{
		ID:       w.ID,
		NodeIDs:  nodeIDs,
		SpeedKPH: parseMaxSpeed(w.Tags.Find("maxspeed")),
		Forward:  fwd,
		Backward: bwd,
	}, true
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox // if non-zero, filter edges to this bounding box
}

func firstOption(opts []ParseOptions) ParseOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return ParseOptions{}
}

// Parse reads an OSM PBF extract and returns the directed walk network.
// The reader is consumed twice (ways, then nodes), so it must be seekable.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	referenced := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		info, ok := newWayInfo(w)
		if !ok {
			continue
		}
		for _, id := range info.NodeIDs {
			referenced[id] = struct{}{}
		}
		ways = append(ways, info)
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	logging.Info("osm ways scanned", "ways", len(ways), "nodes", len(referenced))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referenced))
	nodeLon := make(map[osm.NodeID]float64, len(referenced))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	return buildEdges(ways, nodeLat, nodeLon, firstOption(opts)), nil
}

// ParseOSM extracts the walk network from an in-memory OSM document, such as
// a decoded Overpass response.
func ParseOSM(doc *osm.OSM, opts ...ParseOptions) *ParseResult {
	var ways []wayInfo
	for _, w := range doc.Ways {
		if info, ok := newWayInfo(w); ok {
			ways = append(ways, info)
		}
	}

	nodeLat := make(map[osm.NodeID]float64, len(doc.Nodes))
	nodeLon := make(map[osm.NodeID]float64, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}

	return buildEdges(ways, nodeLat, nodeLon, firstOption(opts))
}

// buildEdges splits ways at intersections and emits one edge per direction
// for every segment. Interior nodes become shape points.
func buildEdges(ways []wayInfo, nodeLat, nodeLon map[osm.NodeID]float64, opt ParseOptions) *ParseResult {
	useBBox := !opt.BBox.IsZero()

	// A node is a split point if it ends a way or is shared by several ways.
	uses := make(map[osm.NodeID]int)
	for _, w := range ways {
		for _, id := range w.NodeIDs {
			uses[id]++
		}
	}

	var edges []RawEdge
	var skipped, bboxFiltered int

	for _, w := range ways {
		start := 0
		for i := 1; i < len(w.NodeIDs); i++ {
			last := i == len(w.NodeIDs)-1
			if !last && uses[w.NodeIDs[i]] < 2 {
				continue
			}
			seg := w.NodeIDs[start : i+1]
			start = i

			e, ok := segmentEdge(w, seg, nodeLat, nodeLon)
			if !ok {
				skipped++
				continue
			}
			fromLat, fromLon := nodeLat[e.FromNodeID], nodeLon[e.FromNodeID]
			toLat, toLon := nodeLat[e.ToNodeID], nodeLon[e.ToNodeID]
			if useBBox && (!opt.BBox.Contains(fromLat, fromLon) || !opt.BBox.Contains(toLat, toLon)) {
				bboxFiltered++
				continue
			}

			if w.Forward {
				edges = append(edges, e)
			}
			if w.Backward {
				edges = append(edges, e.reversed())
			}
		}
	}

	if skipped > 0 {
		logging.Warn("skipped segments with missing node coordinates", "segments", skipped)
	}
	if bboxFiltered > 0 {
		logging.Info("filtered segments outside bounding box", "segments", bboxFiltered)
	}
	logging.Info("walk network built", "edges", len(edges))

	return &ParseResult{
		Edges:   edges,
		NodeLat: nodeLat,
		NodeLon: nodeLon,
	}
}

// segmentEdge builds the forward edge for a run of way nodes. Self loops
// (closed ways with no other split point) are dropped.
func segmentEdge(w wayInfo, seg []osm.NodeID, nodeLat, nodeLon map[osm.NodeID]float64) (RawEdge, bool) {
	from, to := seg[0], seg[len(seg)-1]
	if from == to {
		return RawEdge{}, false
	}

	var length float64
	prevLat, ok := nodeLat[from]
	if !ok {
		return RawEdge{}, false
	}
	prevLon := nodeLon[from]

	var shapeLats, shapeLons []float64
	for j := 1; j < len(seg); j++ {
		lat, ok := nodeLat[seg[j]]
		if !ok {
			return RawEdge{}, false
		}
		lon := nodeLon[seg[j]]
		length += geo.Haversine(prevLat, prevLon, lat, lon)
		if j < len(seg)-1 {
			shapeLats = append(shapeLats, lat)
			shapeLons = append(shapeLons, lon)
		}
		prevLat, prevLon = lat, lon
	}

	return RawEdge{
		FromNodeID:   from,
		ToNodeID:     to,
		WayID:        w.ID,
		LengthMeters: length,
		SpeedKPH:     w.SpeedKPH,
		ShapeLats:    shapeLats,
		ShapeLons:    shapeLons,
	}, true
}

func (e RawEdge) reversed() RawEdge {
	r := e
	r.FromNodeID, r.ToNodeID = e.ToNodeID, e.FromNodeID
	if len(e.ShapeLats) > 0 {
		r.ShapeLats = make([]float64, len(e.ShapeLats))
		r.ShapeLons = make([]float64, len(e.ShapeLons))
		for i := range e.ShapeLats {
			r.ShapeLats[len(e.ShapeLats)-1-i] = e.ShapeLats[i]
			r.ShapeLons[len(e.ShapeLons)-1-i] = e.ShapeLons[i]
		}
	}
	return r
}
