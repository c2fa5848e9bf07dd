package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// maxMercatorLat is the latitude at which spherical Web Mercator is clipped.
const maxMercatorLat = 85.05112878

// arcStepRadians controls how finely convex corners are rounded when buffering.
const arcStepRadians = math.Pi / 12

var (
	// ErrProjection is returned when a polygon cannot be projected into
	// Web Mercator meters (or back).
	ErrProjection = errors.New("polygon projection failed")

	// ErrDegeneratePolygon is returned, wrapped with ErrProjection, for
	// rings without area.
	ErrDegeneratePolygon = errors.New("degenerate polygon")
)

func degenerate(detail string) error {
	return fmt.Errorf("%w: %s: %w", ErrProjection, detail, ErrDegeneratePolygon)
}

// PointInPolygon reports whether p (lon, lat) lies inside poly.
//
// Rings are tested with the nonzero winding rule, so a buffered ring that
// overlaps itself still covers every region it encloses. Points on any ring,
// hole boundaries included, are inside; points strictly inside a hole are
// outside.
func PointInPolygon(p orb.Point, poly orb.Polygon) bool {
	if len(poly) == 0 || len(poly[0]) < 3 {
		return false
	}
	w, on := winding(poly[0], p)
	if on {
		return true
	}
	if w == 0 {
		return false
	}
	for _, hole := range poly[1:] {
		if w, on := winding(hole, p); !on && w != 0 {
			return false
		}
	}
	return true
}

// winding returns the winding number of r around p and whether p lies on r.
func winding(r orb.Ring, p orb.Point) (w int, on bool) {
	n := len(r)
	for i := range n {
		a, b := r[i], r[(i+1)%n]
		if a == b {
			continue
		}
		cross := (b[0]-a[0])*(p[1]-a[1]) - (p[0]-a[0])*(b[1]-a[1])
		if cross == 0 &&
			p[0] >= math.Min(a[0], b[0]) && p[0] <= math.Max(a[0], b[0]) &&
			p[1] >= math.Min(a[1], b[1]) && p[1] <= math.Max(a[1], b[1]) {
			return 0, true
		}
		if a[1] <= p[1] {
			if b[1] > p[1] && cross > 0 {
				w++
			}
		} else if b[1] <= p[1] && cross < 0 {
			w--
		}
	}
	return w, false
}

// Midpoint returns the planar midpoint of a and b.
func Midpoint(a, b orb.Point) orb.Point {
	return orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}

// LineCentroid returns the length-weighted centroid of ls.
func LineCentroid(ls orb.LineString) orb.Point {
	c, _ := planar.CentroidArea(ls)
	return c
}

// BufferPolygon expands poly outward by distanceMeters of ground distance.
//
// The outer ring is projected into spherical Web Mercator, offset there and
// projected back to lon/lat. Holes are dropped: a buffered hazard covers
// them. Each edge is pushed out by the distance, convex corners are joined
// by arcs and reflex corners are joined through the corner itself. The
// result may overlap itself where the polygon has narrow notches; under
// PointInPolygon's winding rule it covers exactly the original plus every
// point within the distance of it, less the chord error of the arcs. A zero
// distance still performs the projection round trip.
func BufferPolygon(poly orb.Polygon, distanceMeters float64) (orb.Polygon, error) {
	if distanceMeters < 0 || math.IsNaN(distanceMeters) || math.IsInf(distanceMeters, 0) {
		return nil, fmt.Errorf("buffer distance %v: %w", distanceMeters, ErrProjection)
	}
	if len(poly) == 0 {
		return nil, degenerate("empty polygon")
	}

	outer := openRing(poly[0])
	if len(outer) < 3 {
		return nil, degenerate(fmt.Sprintf("outer ring has %d distinct points", len(outer)))
	}
	for _, p := range outer {
		if err := checkProjectable(p); err != nil {
			return nil, err
		}
	}

	// Ground meters grow by 1/cos(lat) in Mercator; use the ring's centroid.
	centroid, _ := planar.CentroidArea(orb.Ring(closeRing(outer)))
	scale := 1 / math.Cos(centroid[1]*math.Pi/180)

	projected := project.Ring(orb.Ring(outer.Clone()), project.WGS84.ToMercator)
	if distanceMeters > 0 {
		var err error
		projected, err = offsetRing(projected, distanceMeters*scale)
		if err != nil {
			return nil, err
		}
	}

	back := project.Ring(projected, project.Mercator.ToWGS84)
	for _, p := range back {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			return nil, fmt.Errorf("unprojecting buffered ring: %w", ErrProjection)
		}
	}

	return orb.Polygon{closeRing(back)}, nil
}

func checkProjectable(p orb.Point) error {
	lon, lat := p[0], p[1]
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return fmt.Errorf("non-finite coordinate %v: %w", p, ErrProjection)
	}
	if lon < -180 || lon > 180 || lat <= -maxMercatorLat || lat >= maxMercatorLat {
		return fmt.Errorf("coordinate %v outside Mercator range: %w", p, ErrProjection)
	}
	return nil
}

// openRing returns r without its closing point and without consecutive duplicates.
func openRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r))
	for _, p := range r {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

func closeRing(r orb.Ring) orb.Ring {
	if len(r) == 0 || r[0] == r[len(r)-1] {
		return r
	}
	return append(r, r[0])
}

// offsetRing offsets an open planar ring outward by d. The returned ring is
// counter-clockwise.
func offsetRing(r orb.Ring, d float64) (orb.Ring, error) {
	switch orb.Ring(closeRing(r.Clone())).Orientation() {
	case 0:
		return nil, degenerate("ring without area")
	case orb.CW:
		r = r.Clone()
		r.Reverse()
	}

	// Outward normal of a→b on a counter-clockwise ring.
	normal := func(a, b orb.Point) orb.Point {
		dx, dy := b[0]-a[0], b[1]-a[1]
		l := math.Hypot(dx, dy)
		return orb.Point{dy / l, -dx / l}
	}
	at := func(c, n orb.Point) orb.Point { return orb.Point{c[0] + d*n[0], c[1] + d*n[1]} }

	n := len(r)
	out := make(orb.Ring, 0, n*4)
	for i := range n {
		prev, cur, next := r[(i-1+n)%n], r[i], r[(i+1)%n]
		n1, n2 := normal(prev, cur), normal(cur, next)

		turn := (cur[0]-prev[0])*(next[1]-cur[1]) - (cur[1]-prev[1])*(next[0]-cur[0])
		dot := n1[0]*n2[0] + n1[1]*n2[1]
		switch {
		case turn > 0 || (turn == 0 && dot < 0):
			// Convex, or a spike tip: arc from n1 to n2 around cur.
			a1 := math.Atan2(n1[1], n1[0])
			sweep := math.Atan2(n2[1], n2[0]) - a1
			for sweep < 0 {
				sweep += 2 * math.Pi
			}
			steps := max(1, int(math.Ceil(sweep/arcStepRadians)))
			for s := 0; s <= steps; s++ {
				a := a1 + sweep*float64(s)/float64(steps)
				out = append(out, orb.Point{cur[0] + d*math.Cos(a), cur[1] + d*math.Sin(a)})
			}
		case turn == 0:
			out = append(out, at(cur, n1))
		default:
			// Reflex: route through the corner so both edge bands stay closed.
			out = append(out, at(cur, n1), cur, at(cur, n2))
		}
	}
	return out, nil
}
