package track

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"supmap-tracker/internal/navigation"
	"supmap-tracker/internal/timeutil"
	"supmap-tracker/internal/tracklog"
)

const (
	DefaultMaxCount         = 100000 // > 24h with 1 point/s
	DefaultDuration         = 24 * time.Hour
	DefaultCompactThreshold = 4096
	DefaultMaxClockSkew     = 10 * time.Minute
)

type Options struct {
	// MaxCount bounds the number of retained points.
	MaxCount int

	// Duration bounds the age of retained points relative to now.
	Duration time.Duration

	// Filter gates incoming samples. Defaults to DefaultFilter.
	Filter Filter

	Clock  timeutil.Clock
	Logger *slog.Logger

	// CompactThreshold is the number of evicted records tolerated in the log
	// file before it gets rewritten.
	CompactThreshold int

	// MaxClockSkew is how far ahead of now a sample timestamp may be.
	MaxClockSkew time.Duration
}

// Store keeps the recent window of track points, ordered by timestamp and
// bounded both in count and in age, and mirrors it into a persistent log.
//
// Every operation runs under a single lock. Diffs are delivered to the
// subscriber while that lock is held.
type Store struct {
	mu        sync.Mutex
	points    []navigation.Point
	maxCount  int
	duration  time.Duration
	filter    Filter
	clock     timeutil.Clock
	logger    *slog.Logger
	publisher publisher
	maxSkew   time.Duration

	log              *tracklog.Log
	compactThreshold int
	// set when a log write failed; the next mutation rewrites the whole log
	logOutOfSync bool
}

// New builds a store backed by the log file at path, loading the points it
// holds. Log failures are never fatal: a missing or corrupt log yields an
// empty store and an unusable one leaves the store in memory only.
func New(path string, opts Options) *Store {
	if opts.MaxCount <= 0 {
		opts.MaxCount = DefaultMaxCount
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Filter == nil {
		opts.Filter = NewDefaultFilter(DefaultFilterConfig)
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CompactThreshold <= 0 {
		opts.CompactThreshold = DefaultCompactThreshold
	}
	if opts.MaxClockSkew <= 0 {
		opts.MaxClockSkew = DefaultMaxClockSkew
	}

	s := &Store{
		maxCount:         opts.MaxCount,
		duration:         opts.Duration,
		filter:           opts.Filter,
		clock:            opts.Clock,
		logger:           opts.Logger,
		compactThreshold: opts.CompactThreshold,
		maxSkew:          opts.MaxClockSkew,
	}
	s.openLog(path)
	return s
}

func (s *Store) openLog(path string) {
	l, err := tracklog.Open(path, s.compactThreshold)
	if errors.Is(err, tracklog.ErrCorrupt) {
		s.logger.Warn("track log is corrupt, starting with an empty track", "path", path, "error", err)
		l, err = tracklog.Create(path, s.compactThreshold)
	}
	if err != nil {
		s.logger.Warn("track log unavailable, keeping the track in memory only", "path", path, "error", err)
		return
	}

	points, err := l.Load()
	if err != nil {
		s.logger.Warn("failed to load track log, starting with an empty track", "path", path, "error", err)
		if err := l.Truncate(); err != nil {
			s.logger.Warn("failed to reset track log, keeping the track in memory only", "path", path, "error", err)
			_ = l.Close()
			return
		}
		points = nil
	}

	s.log = l
	s.points = points

	// the window may have aged while the process was down
	evicted := s.evictLocked(s.clock.Now(), true)
	s.syncLogLocked(nil, len(evicted))
	s.logger.Debug("track loaded", "path", path, "points", len(s.points), "evicted", len(evicted))
}

// AddPoint runs p through the filter and appends it. The returned diff is
// empty when the sample was rejected. A sample already outside the age
// window, older than the last point, or dated beyond now plus the allowed
// clock skew is rejected rather than added and evicted at once.
func (s *Store) AddPoint(p navigation.Point) Diff {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if !s.admissibleLocked(p, now) {
		return Diff{}
	}
	p, ok := s.filter.Process(p)
	if !ok || !s.admissibleLocked(p, now) {
		return Diff{}
	}

	s.points = append(s.points, p)
	evicted := s.evictLocked(now, true)
	s.syncLogLocked(&p, len(evicted))

	d := Diff{Added: []navigation.Point{p}, Evicted: evicted}
	s.publisher.publish(d)
	return d
}

// admissibleLocked rejects points older than the tail, which would break the
// ordering, points already out of the age window, and points from the future,
// which would hold back every later sample as out of order.
func (s *Store) admissibleLocked(p navigation.Point, now time.Time) bool {
	if n := len(s.points); n > 0 && p.Timestamp.Before(s.points[n-1].Timestamp) {
		return false
	}
	if p.Timestamp.After(now.Add(s.maxSkew)) {
		return false
	}
	return !p.Timestamp.Before(now.Add(-s.duration))
}

// evictLocked pops points from the head while the track is over capacity
// (when capacity is set) or the head is older than the age window.
func (s *Store) evictLocked(now time.Time, capacity bool) []navigation.Point {
	lowerBound := now.Add(-s.duration)

	n := 0
	for n < len(s.points) {
		overCapacity := capacity && len(s.points)-n > s.maxCount
		if !overCapacity && !s.points[n].Timestamp.Before(lowerBound) {
			break
		}
		n++
	}
	if n == 0 {
		return nil
	}

	evicted := slices.Clone(s.points[:n])
	clear(s.points[:n])
	s.points = s.points[n:]
	return evicted
}

// syncLogLocked mirrors one mutation into the log: the added point is
// appended and the window marker moved past the evicted ones.
func (s *Store) syncLogLocked(added *navigation.Point, evicted int) {
	if s.log == nil {
		return
	}

	if !s.logOutOfSync {
		err := s.writeLogLocked(added, evicted)
		if err == nil && !s.log.NeedsCompaction() {
			return
		}
		if err != nil {
			s.logger.Warn("failed to update track log", "path", s.log.Path(), "error", err)
		}
	}

	if err := s.log.Compact(s.points); err != nil {
		s.logger.Warn("failed to compact track log", "path", s.log.Path(), "error", err)
		s.logOutOfSync = true
		return
	}
	s.logOutOfSync = false
	s.logger.Debug("track log compacted", "path", s.log.Path(), "points", len(s.points))
}

func (s *Store) writeLogLocked(added *navigation.Point, evicted int) error {
	if added != nil {
		if err := s.log.Append(*added); err != nil {
			return err
		}
	}
	return s.log.Advance(evicted)
}

// Clear drops every point and truncates the log. No diff is published.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.points = nil
	s.filter.Reset()

	if s.log == nil {
		return
	}
	if err := s.log.Truncate(); err != nil {
		s.logger.Warn("failed to truncate track log", "path", s.log.Path(), "error", err)
		s.logOutOfSync = true
		return
	}
	s.logOutOfSync = false
}

// SetDuration changes the age window and evicts the points falling out of it.
func (s *Store) SetDuration(d time.Duration) Diff {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.duration = d
	evicted := s.evictLocked(s.clock.Now(), false)
	if len(evicted) == 0 {
		return Diff{}
	}
	s.syncLogLocked(nil, len(evicted))

	diff := Diff{Evicted: evicted}
	s.publisher.publish(diff)
	return diff
}

func (s *Store) GetDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Store) MaxCount() int {
	return s.maxCount
}

func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}

// ForEachPoint calls visitor for each point, oldest first, until it returns false.
func (s *Store) ForEachPoint(visitor func(navigation.Point) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.points {
		if !visitor(p) {
			return
		}
	}
}

// SetCallback installs the diff subscriber, replacing the previous one.
// A nil callback disconnects it.
func (s *Store) SetCallback(cb DiffCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher.set(cb)
}

// Subscribe installs cb and hands a copy of the current points to initial in
// the same critical section, so every later change reaches cb and none is
// already contained in what initial got. initial runs with the store locked.
func (s *Store) Subscribe(cb DiffCallback, initial func([]navigation.Point)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	initial(slices.Clone(s.points))
	s.publisher.set(cb)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.log == nil {
		return nil
	}
	err := s.log.Close()
	s.log = nil
	return err
}
