package subscriber

import (
	"fmt"
	"supmap-tracker/internal/navigation"
	"time"
)

// LocationMessage represents any message received in the locations pub/sub channel.
type LocationMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
}

func (m *LocationMessage) Validate() error {
	if m.Timestamp.IsZero() {
		return fmt.Errorf("missing timestamp")
	}
	if m.Lat < -90 || m.Lat > 90 {
		return fmt.Errorf("invalid latitude: %f", m.Lat)
	}
	if m.Lon < -180 || m.Lon > 180 {
		return fmt.Errorf("invalid longitude: %f", m.Lon)
	}
	if m.Accuracy != nil && *m.Accuracy < 0 {
		return fmt.Errorf("invalid accuracy: %f", *m.Accuracy)
	}
	return nil
}

func (m *LocationMessage) Point() navigation.Point {
	return navigation.Point{
		Timestamp: m.Timestamp,
		Lat:       m.Lat,
		Lon:       m.Lon,
		Altitude:  m.Altitude,
		Speed:     m.Speed,
		Accuracy:  m.Accuracy,
	}
}
