package routing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"hazard_router/pkg/graph"
)

// fallbackSpeedDivisor turns a length into the degraded travel-time estimate
// used when no positive speed is known.
const fallbackSpeedDivisor = 10.0

var (
	// ErrInvalidWeight is returned when an edge attribute cannot produce a
	// nonnegative finite weight.
	ErrInvalidWeight = errors.New("invalid edge weight")

	// ErrUnknownObjective is returned by ParseObjective.
	ErrUnknownObjective = errors.New("unknown objective")
)

// Objective selects the per-edge cost a search minimizes.
type Objective int

const (
	// Shortest minimizes length in meters.
	Shortest Objective = iota
	// Fastest minimizes travel time in seconds.
	Fastest
	// Safest minimizes length scaled by (1 + hazard penalty).
	Safest
)

// Objectives lists every objective in declaration order.
var Objectives = []Objective{Shortest, Fastest, Safest}

// ParseObjective maps a name to an Objective. The empty string is Shortest.
func ParseObjective(s string) (Objective, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "shortest":
		return Shortest, nil
	case "fastest":
		return Fastest, nil
	case "safest":
		return Safest, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownObjective, s)
	}
}

func (o Objective) String() string {
	switch o {
	case Shortest:
		return "shortest"
	case Fastest:
		return "fastest"
	case Safest:
		return "safest"
	default:
		return fmt.Sprintf("objective(%d)", int(o))
	}
}

// MarshalText encodes the objective as its name.
func (o Objective) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an objective name.
func (o *Objective) UnmarshalText(b []byte) error {
	v, err := ParseObjective(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Weight derives the cost of traversing an edge with the given attributes.
func (o Objective) Weight(a graph.EdgeAttrs) (float64, error) {
	if err := validate(a); err != nil {
		return 0, err
	}
	length := a.LengthOrDefault()

	switch o {
	case Shortest:
		return length, nil
	case Fastest:
		if speed := a.SpeedOrDefault(); a.HasLength && speed > 0 {
			return length / (speed * 1000 / 3600), nil
		}
		return length / fallbackSpeedDivisor, nil
	case Safest:
		return length * (1 + a.HazardPenalty), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownObjective, int(o))
	}
}

func validate(a graph.EdgeAttrs) error {
	bad := func(v float64) bool { return v < 0 || math.IsNaN(v) || math.IsInf(v, 0) }
	switch {
	case a.HasLength && bad(a.Length):
		return fmt.Errorf("%w: length %v", ErrInvalidWeight, a.Length)
	case a.HasSpeed && bad(a.SpeedKPH):
		return fmt.Errorf("%w: speed_kph %v", ErrInvalidWeight, a.SpeedKPH)
	case bad(a.HazardPenalty):
		return fmt.Errorf("%w: hazard_penalty %v", ErrInvalidWeight, a.HazardPenalty)
	}
	return nil
}

// Weights derives a transient weight table for every live edge of g,
// indexed by EdgeID. The graph is not modified.
func Weights(g *graph.Graph, o Objective) ([]float64, error) {
	w := make([]float64, g.EdgeIDBound())
	for _, e := range g.Edges() {
		v, err := o.Weight(e.EdgeAttrs)
		if err != nil {
			return nil, fmt.Errorf("edge %s->%s key %d: %w", e.From, e.To, e.Key, err)
		}
		w[e.ID] = v
	}
	return w, nil
}
