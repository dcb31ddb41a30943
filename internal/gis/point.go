package gis

import "math"

type Point struct {
	Lat float64
	Lon float64
}

// IsValid reports whether the coordinates are finite and within the WGS84 bounds.
func (p Point) IsValid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	if p.Lat < -90 || p.Lat > 90 {
		return false
	}
	if p.Lon < -180 || p.Lon > 180 {
		return false
	}
	return true
}
