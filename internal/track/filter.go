package track

import (
	"time"

	"supmap-tracker/internal/gis"
	"supmap-tracker/internal/navigation"
)

// Filter decides whether an incoming sample enters the track. It may return
// a transformed point. A Filter is owned by a single Store and is only
// called with the store lock held.
type Filter interface {
	Process(p navigation.Point) (navigation.Point, bool)
	// Reset forgets the retained state, e.g. after the track is cleared.
	Reset()
}

// FilterConfig tunes DefaultFilter. A zero value disables the matching check.
type FilterConfig struct {
	// MaxAccuracy is the worst horizontal accuracy accepted, in metres.
	MaxAccuracy float64

	// MinDistance is the minimum distance from the last accepted point, in
	// metres. Closer samples are treated as zero-movement repeats.
	MinDistance float64

	// MaxSpeed is the highest plausible speed between two samples, in m/s.
	MaxSpeed float64

	// Jumps must happen within this window to be considered implausible.
	// Past it the gap is treated as signal loss and the sample is accepted.
	TeleportWindow time.Duration
}

var DefaultFilterConfig = FilterConfig{
	MaxAccuracy:    100,
	MinDistance:    5,
	MaxSpeed:       85, // ~300 km/h
	TeleportWindow: 5 * time.Minute,
}

// DefaultFilter suppresses noisy samples: invalid coordinates, inaccurate
// fixes, duplicate timestamps, zero-movement repeats and implausible jumps.
type DefaultFilter struct {
	config FilterConfig
	last   *navigation.Point
}

func NewDefaultFilter(config FilterConfig) *DefaultFilter {
	return &DefaultFilter{config: config}
}

func (f *DefaultFilter) Process(p navigation.Point) (navigation.Point, bool) {
	if !toGIS(p).IsValid() {
		return p, false
	}
	if f.config.MaxAccuracy > 0 && p.Accuracy != nil && *p.Accuracy > f.config.MaxAccuracy {
		return p, false
	}

	if f.last != nil {
		elapsed := p.Timestamp.Sub(f.last.Timestamp)
		if elapsed <= 0 {
			return p, false
		}

		from, to := toGIS(*f.last), toGIS(p)
		if gis.Haversine(from, to) < f.config.MinDistance {
			return p, false
		}
		if f.config.MaxSpeed > 0 && elapsed <= f.config.TeleportWindow &&
			gis.Speed(from, to, elapsed.Seconds()) > f.config.MaxSpeed {
			return p, false
		}
	}

	accepted := p
	f.last = &accepted
	return p, true
}

func (f *DefaultFilter) Reset() {
	f.last = nil
}

// AcceptAll lets every sample through unchanged.
type AcceptAll struct{}

func (AcceptAll) Process(p navigation.Point) (navigation.Point, bool) { return p, true }
func (AcceptAll) Reset()                                              {}

func toGIS(p navigation.Point) gis.Point {
	return gis.Point{Lat: p.Lat, Lon: p.Lon}
}
