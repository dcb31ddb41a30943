package navigation

import (
	"time"
)

// Point is a single location sample of the device.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	// Optional fields, nil when the location provider did not report them.
	Altitude *float64 `json:"altitude,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// NewPoint returns a point with only the mandatory fields set.
func NewPoint(ts time.Time, lat, lon float64) Point {
	return Point{Timestamp: ts, Lat: lat, Lon: lon}
}

// WithAccuracy returns a copy of p with the horizontal accuracy (metres) set.
func (p Point) WithAccuracy(metres float64) Point {
	p.Accuracy = &metres
	return p
}

// WithSpeed returns a copy of p with the speed (m/s) set.
func (p Point) WithSpeed(mps float64) Point {
	p.Speed = &mps
	return p
}

// WithAltitude returns a copy of p with the altitude (metres) set.
func (p Point) WithAltitude(metres float64) Point {
	p.Altitude = &metres
	return p
}
