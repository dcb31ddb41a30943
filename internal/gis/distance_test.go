package gis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	paris := Point{Lat: 48.8566, Lon: 2.3522}
	london := Point{Lat: 51.5074, Lon: -0.1278}

	d := Haversine(paris, london)
	assert.InDelta(t, 344_000, d, 2_000)
	assert.InDelta(t, d, Haversine(london, paris), 1e-6)
	assert.Zero(t, Haversine(paris, paris))
}

func TestHaversine_OneDegreeOfLatitude(t *testing.T) {
	d := Haversine(Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0})
	assert.InDelta(t, EarthRadius*math.Pi/180, d, 1e-6)
}

func TestSpeed(t *testing.T) {
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 1, Lon: 0}

	assert.InDelta(t, Haversine(a, b)/10, Speed(a, b, 10), 1e-9)
	assert.True(t, math.IsInf(Speed(a, b, 0), 1))
	assert.Zero(t, Speed(a, a, 0))
}

func TestPoint_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{"origin", Point{0, 0}, true},
		{"bounds", Point{-90, 180}, true},
		{"latitude too high", Point{90.1, 0}, false},
		{"longitude too low", Point{0, -180.5}, false},
		{"nan", Point{math.NaN(), 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.point.IsValid())
		})
	}
}
