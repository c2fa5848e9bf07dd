// Package hazard loads hazard regions and removes the graph edges they cover.
package hazard

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// Risk is the ordinal severity of a hazard. It is carried for presentation
// and never used as a routing weight.
type Risk int

const (
	Low Risk = iota
	Medium
	High
	Critical
)

// ParseRisk maps a risk label to a Risk. Unknown labels are Low.
func ParseRisk(s string) Risk {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "medium", "moderate":
		return Medium
	case "high":
		return High
	case "critical", "severe", "extreme":
		return Critical
	default:
		return Low
	}
}

func (r Risk) String() string {
	switch r {
	case Medium:
		return "medium"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "low"
	}
}

// MarshalText encodes the risk as its label.
func (r Risk) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Polygon is a hazard region in (lon, lat) coordinates.
type Polygon struct {
	ID       string
	Risk     Risk
	Geometry orb.Polygon
}

func (p Polygon) String() string {
	return fmt.Sprintf("%s[%s]", p.ID, p.Risk)
}
