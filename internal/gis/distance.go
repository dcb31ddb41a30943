package gis

import (
	"math"
)

// EarthRadius in meters
const EarthRadius = 6378137

// Haversine distance between two points in meters
func Haversine(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180.0
	dLon := (b.Lon - a.Lon) * math.Pi / 180.0

	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0

	sinDlat := math.Sin(dLat / 2)
	sinDlon := math.Sin(dLon / 2)

	aVal := sinDlat*sinDlat + sinDlon*sinDlon*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(aVal), math.Sqrt(1-aVal))
	return EarthRadius * c
}

// Speed returns the average speed in m/s needed to travel from a to b in
// the given number of seconds. A non-positive interval yields +Inf unless
// the points coincide.
func Speed(a, b Point, seconds float64) float64 {
	d := Haversine(a, b)
	if seconds <= 0 {
		if d == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return d / seconds
}
