// Package tracker exposes the recorded track behind an enable switch and a
// configurable duration, both persisted in the settings store.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"supmap-tracker/internal/navigation"
	"supmap-tracker/internal/settings"
	"supmap-tracker/internal/track"
)

const (
	KeyEnabled  = "GpsTrackingEnabled"
	KeyDuration = "GpsTrackingDuration"

	DefaultDurationHours uint32 = 24
)

// ErrInvalidDuration is returned for durations that are not a positive
// whole number of hours.
var ErrInvalidDuration = errors.New("tracker: duration must be a positive whole number of hours")

// Store is the track store driven by the Tracker.
type Store interface {
	AddPoint(p navigation.Point) track.Diff
	Clear()
	SetDuration(d time.Duration) track.Diff
	GetDuration() time.Duration
	MaxCount() int
	IsEmpty() bool
	ForEachPoint(visitor func(navigation.Point) bool)
	SetCallback(cb track.DiffCallback)
	Subscribe(cb track.DiffCallback, initial func([]navigation.Point))
}

type Tracker struct {
	// mu serialises enable transitions against sample forwarding
	mu       sync.RWMutex
	enabled  bool
	store    Store
	settings settings.Store
	logger   *slog.Logger
}

// New builds a Tracker over store. Settings that cannot be read fall back to
// their defaults: tracking disabled, 24 hours.
func New(ctx context.Context, store Store, settingsStore settings.Store, logger *slog.Logger) *Tracker {
	enabled := settings.Bool(ctx, settingsStore, KeyEnabled, false)
	hours := settings.Uint(ctx, settingsStore, KeyDuration, DefaultDurationHours)
	if hours == 0 {
		hours = DefaultDurationHours
	}

	store.SetDuration(time.Duration(hours) * time.Hour)
	logger.Info("gps tracker ready", "enabled", enabled, "durationHours", hours)

	return &Tracker{
		enabled:  enabled,
		store:    store,
		settings: settingsStore,
		logger:   logger,
	}
}

// SetEnabled switches tracking on or off. Switching it on always starts from
// an empty track. It reports whether the state changed.
func (t *Tracker) SetEnabled(ctx context.Context, enabled bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enabled == t.enabled {
		return false
	}

	// Clearing before persisting the flag means an interruption in between
	// leaves a disabled tracker, never an enabled one with a stale track.
	if enabled {
		t.store.Clear()
	}
	if err := settings.SetBool(ctx, t.settings, KeyEnabled, enabled); err != nil {
		t.logger.Warn("failed to persist tracking state", "enabled", enabled, "error", err)
	}
	t.enabled = enabled
	t.logger.Info("gps tracking switched", "enabled", enabled)
	return true
}

func (t *Tracker) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// SetDuration persists d and applies it to the track, evicting what falls
// out of the new window.
func (t *Tracker) SetDuration(ctx context.Context, d time.Duration) error {
	if d <= 0 || d%time.Hour != 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidDuration, d)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := settings.SetUint(ctx, t.settings, KeyDuration, uint32(d/time.Hour)); err != nil {
		t.logger.Warn("failed to persist tracking duration", "duration", d, "error", err)
	}
	t.store.SetDuration(d)
	return nil
}

// HoursToDuration converts a duration given in hours, as clients send it,
// rejecting values that are not positive or would overflow a time.Duration.
func HoursToDuration(hours int64) (time.Duration, error) {
	if hours <= 0 || hours > int64(math.MaxInt64/time.Hour) {
		return 0, fmt.Errorf("%w: got %d hours", ErrInvalidDuration, hours)
	}
	return time.Duration(hours) * time.Hour, nil
}

func (t *Tracker) GetDuration() time.Duration {
	return t.store.GetDuration()
}

// MaxCount is the capacity of the track in points.
func (t *Tracker) MaxCount() int {
	return t.store.MaxCount()
}

func (t *Tracker) IsEmpty() bool {
	return t.store.IsEmpty()
}

// Connect registers the single diff subscriber, replacing any previous one.
// fn runs with the track locked and must not call back into the Tracker.
func (t *Tracker) Connect(fn track.DiffCallback) {
	t.store.SetCallback(fn)
}

// ConnectWithSnapshot is Connect, first handing the current track points to
// snapshot so that the subscriber can start from them without missing a
// change. Both run with the track locked.
func (t *Tracker) ConnectWithSnapshot(fn track.DiffCallback, snapshot func([]navigation.Point)) {
	if snapshot == nil {
		panic("tracker: ConnectWithSnapshot called with a nil snapshot func")
	}
	t.store.Subscribe(fn, snapshot)
}

func (t *Tracker) Disconnect() {
	t.store.SetCallback(nil)
}

// OnLocationUpdated feeds a location sample to the track. Samples are
// dropped while tracking is disabled.
func (t *Tracker) OnLocationUpdated(p navigation.Point) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.enabled {
		return
	}
	t.store.AddPoint(p)
}

// ForEachTrackPoint visits the track points, oldest first. It panics if
// visitor is nil.
func (t *Tracker) ForEachTrackPoint(visitor func(navigation.Point) bool) {
	if visitor == nil {
		panic("tracker: ForEachTrackPoint called with a nil visitor")
	}
	t.store.ForEachPoint(visitor)
}
