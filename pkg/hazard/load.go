package hazard

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"hazard_router/pkg/geo"
	"hazard_router/pkg/logging"
)

// maxGeoJSONBytes caps hazard documents read from disk or HTTP bodies.
const maxGeoJSONBytes = 32 << 20

// riskKeys are the feature properties consulted for a risk label, in order.
var riskKeys = []string{"risk", "risk_level", "severity"}

// LoadResult is a loaded hazard set. Degraded is set when at least one
// polygon could not be buffered and was kept at its original extent.
type LoadResult struct {
	Polygons []Polygon
	Degraded bool
}

// LoadFile reads a GeoJSON FeatureCollection from path. A missing file yields
// an empty set.
func LoadFile(path string, spreadKm float64) (LoadResult, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Info("no hazard file, routing without hazards", "path", path)
		return LoadResult{}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("open hazards: %w", err)
	}
	defer f.Close()
	return LoadGeoJSON(f, spreadKm)
}

// LoadGeoJSON decodes a FeatureCollection of Polygon and MultiPolygon
// features. When spreadKm > 0 every polygon is buffered outward by that
// distance; a polygon that cannot be buffered is kept unbuffered and the
// result is marked Degraded. Other geometry types are ignored.
func LoadGeoJSON(r io.Reader, spreadKm float64) (LoadResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxGeoJSONBytes+1))
	if err != nil {
		return LoadResult{}, fmt.Errorf("read hazards: %w", err)
	}
	if len(data) > maxGeoJSONBytes {
		return LoadResult{}, fmt.Errorf("hazard document exceeds %d bytes", maxGeoJSONBytes)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return LoadResult{}, fmt.Errorf("decode hazards: %w", err)
	}

	var res LoadResult
	for i, f := range fc.Features {
		id := featureID(f, i)
		risk := featureRisk(f)

		var parts []orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			parts = []orb.Polygon{g}
		case orb.MultiPolygon:
			parts = g
		default:
			logging.Debug("skipping non-polygon hazard feature", "id", id, "type", fmt.Sprintf("%T", f.Geometry))
			continue
		}

		for j, poly := range parts {
			pid := id
			if len(parts) > 1 {
				pid = id + "#" + strconv.Itoa(j)
			}
			if spreadKm > 0 {
				buffered, err := geo.BufferPolygon(poly, spreadKm*1000)
				if err != nil {
					logging.Warn("hazard buffer failed, using unbuffered polygon", "id", pid, "spreadKm", spreadKm, "error", err)
					res.Degraded = true
				} else {
					poly = buffered
				}
			}
			res.Polygons = append(res.Polygons, Polygon{ID: pid, Risk: risk, Geometry: poly})
		}
	}

	logging.Info("hazards loaded", "polygons", len(res.Polygons), "spreadKm", spreadKm, "degraded", res.Degraded)
	return res, nil
}

func featureID(f *geojson.Feature, index int) string {
	switch v := f.ID.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if name, ok := f.Properties["name"].(string); ok && name != "" {
		return name
	}
	return "hazard-" + strconv.Itoa(index)
}

// featureRisk reads a risk label, or a numeric level 0-3, from the feature.
func featureRisk(f *geojson.Feature) Risk {
	for _, k := range riskKeys {
		switch v := f.Properties[k].(type) {
		case string:
			if v != "" {
				return ParseRisk(v)
			}
		case float64:
			return Risk(min(max(int(v), int(Low)), int(Critical)))
		}
	}
	return Low
}
