package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		lat1, lon1       float64
		lat2, lon2       float64
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name: "Kochi to Ernakulam Junction",
			lat1: 9.9312, lon1: 76.2673,
			lat2: 9.9700, lon2: 76.2900,
			wantMeters:       4_970,
			tolerancePercent: 1,
		},
		{
			name: "Same point",
			lat1: 9.9312, lon1: 76.2673,
			lat2: 9.9312, lon2: 76.2673,
		},
		{
			name: "London to Paris",
			lat1: 51.5074, lon1: -0.1278,
			lat2: 48.8566, lon2: 2.3522,
			wantMeters:       343_500,
			tolerancePercent: 1,
		},
		{
			name: "Short distance (~100m)",
			lat1: 9.9312, lon1: 76.2673,
			lat2: 9.9321, lon2: 76.2673,
			wantMeters:       100,
			tolerancePercent: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if tt.wantMeters == 0 {
				assert.Zero(t, got)
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			assert.LessOrEqualf(t, diff, tt.tolerancePercent, "Haversine = %f m, want ~%f m", got, tt.wantMeters)
		})
	}
}

func BenchmarkHaversine(b *testing.B) {
	for b.Loop() {
		Haversine(9.9312, 76.2673, 9.9700, 76.2900)
	}
}
