// Package tracklog persists the retained track window as an append-only file
// of fixed-size records.
//
// Evicting points from the head of the window only moves the window start
// marker stored in the file header. Once the number of dead records in front
// of the marker goes over the compaction threshold, the caller rewrites the
// file with Compact.
package tracklog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"supmap-tracker/internal/navigation"
)

const (
	magic             = "GTRK"
	version    uint16 = 1
	headerSize        = 16
	recordSize        = 56

	// offset of the window start marker inside the header
	windowStartOffset = 8
)

const (
	flagAltitude uint8 = 1 << iota
	flagSpeed
	flagAccuracy
)

var (
	// ErrCorrupt is returned when the log header or its records cannot be trusted.
	ErrCorrupt = errors.New("tracklog: corrupt log")
	// ErrClosed is returned by operations on a log whose file is no longer open.
	ErrClosed = errors.New("tracklog: log is closed")
)

type Log struct {
	path             string
	file             *os.File
	windowStart      uint64
	count            uint64
	compactThreshold uint64
}

// Open opens the log at path, creating an empty one if the file does not
// exist. A trailing partial record left by an interrupted append is cut off.
// ErrCorrupt is returned when the existing content is not a valid log; use
// Create to start over in that case.
func Open(path string, compactThreshold int) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening track log: %w", err)
	}

	l := newLog(path, f, compactThreshold)
	if err := l.readHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

// Create creates an empty log at path, discarding any previous content.
func Create(path string, compactThreshold int) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating track log: %w", err)
	}

	l := newLog(path, f, compactThreshold)
	if err := l.writeHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

func newLog(path string, f *os.File, compactThreshold int) *Log {
	if compactThreshold < 0 {
		compactThreshold = 0
	}
	return &Log{
		path:             path,
		file:             f,
		compactThreshold: uint64(compactThreshold),
	}
}

func (l *Log) readHeader() error {
	info, err := l.file.Stat()
	if err != nil {
		return fmt.Errorf("stat track log: %w", err)
	}

	size := info.Size()
	if size == 0 {
		return l.writeHeader()
	}
	if size < headerSize {
		return fmt.Errorf("%w: file is %d bytes", ErrCorrupt, size)
	}

	var hdr [headerSize]byte
	if _, err := l.file.ReadAt(hdr[:], 0); err != nil {
		return fmt.Errorf("reading track log header: %w", err)
	}
	if string(hdr[0:4]) != magic {
		return fmt.Errorf("%w: bad magic %q", ErrCorrupt, hdr[0:4])
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != version {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}

	count := uint64(size-headerSize) / recordSize
	windowStart := binary.LittleEndian.Uint64(hdr[windowStartOffset:])
	if windowStart > count {
		return fmt.Errorf("%w: window start %d beyond %d records", ErrCorrupt, windowStart, count)
	}

	if rem := (size - headerSize) % recordSize; rem != 0 {
		if err := l.file.Truncate(recordOffset(count)); err != nil {
			return fmt.Errorf("dropping partial record: %w", err)
		}
	}

	l.windowStart = windowStart
	l.count = count
	return nil
}

func (l *Log) writeHeader() error {
	var hdr [headerSize]byte
	copy(hdr[0:4], magic)
	binary.LittleEndian.PutUint16(hdr[4:6], version)
	binary.LittleEndian.PutUint64(hdr[windowStartOffset:], 0)
	if _, err := l.file.WriteAt(hdr[:], 0); err != nil {
		return fmt.Errorf("writing track log header: %w", err)
	}
	l.windowStart = 0
	l.count = 0
	return nil
}

// Load returns the live points, oldest first.
func (l *Log) Load() ([]navigation.Point, error) {
	if l.file == nil {
		return nil, ErrClosed
	}

	live := l.count - l.windowStart
	if live == 0 {
		return nil, nil
	}

	buf := make([]byte, live*recordSize)
	if _, err := l.file.ReadAt(buf, recordOffset(l.windowStart)); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading track log: %w", err)
	}

	points := make([]navigation.Point, 0, live)
	for off := 0; off < len(buf); off += recordSize {
		p := decodeRecord(buf[off : off+recordSize])
		if n := len(points); n > 0 && p.Timestamp.Before(points[n-1].Timestamp) {
			return nil, fmt.Errorf("%w: record %d is out of order", ErrCorrupt, l.windowStart+uint64(n))
		}
		points = append(points, p)
	}
	return points, nil
}

// Append writes p after the last record.
func (l *Log) Append(p navigation.Point) error {
	if l.file == nil {
		return ErrClosed
	}

	var rec [recordSize]byte
	encodeRecord(rec[:], p)
	if _, err := l.file.WriteAt(rec[:], recordOffset(l.count)); err != nil {
		return fmt.Errorf("appending to track log: %w", err)
	}
	l.count++
	return nil
}

// Advance marks the n oldest live records as evicted.
func (l *Log) Advance(n int) error {
	if n <= 0 {
		return nil
	}
	if l.file == nil {
		return ErrClosed
	}

	next := l.windowStart + uint64(n)
	if next > l.count {
		next = l.count
	}

	var marker [8]byte
	binary.LittleEndian.PutUint64(marker[:], next)
	if _, err := l.file.WriteAt(marker[:], windowStartOffset); err != nil {
		return fmt.Errorf("moving track log window: %w", err)
	}
	l.windowStart = next
	return nil
}

// NeedsCompaction reports whether the dead records in front of the window
// went over the compaction threshold.
func (l *Log) NeedsCompaction() bool {
	return l.windowStart > l.compactThreshold
}

// Compact replaces the log content with live and resets the window marker.
// The new content is written to a temporary file which is then renamed over
// the log, so a failure leaves the previous content in place.
func (l *Log) Compact(live []navigation.Point) error {
	tmpPath := l.path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating compacted log: %w", err)
	}

	w := bufio.NewWriter(tmp)
	var hdr [headerSize]byte
	copy(hdr[0:4], magic)
	binary.LittleEndian.PutUint16(hdr[4:6], version)
	if _, err := w.Write(hdr[:]); err != nil {
		return discardTemp(tmp, tmpPath, fmt.Errorf("writing compacted header: %w", err))
	}

	var rec [recordSize]byte
	for _, p := range live {
		encodeRecord(rec[:], p)
		if _, err := w.Write(rec[:]); err != nil {
			return discardTemp(tmp, tmpPath, fmt.Errorf("writing compacted record: %w", err))
		}
	}

	if err := w.Flush(); err != nil {
		return discardTemp(tmp, tmpPath, fmt.Errorf("flushing compacted log: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return discardTemp(tmp, tmpPath, fmt.Errorf("syncing compacted log: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing compacted log: %w", err)
	}

	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing track log: %w", err)
	}

	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	f, err := os.OpenFile(l.path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("reopening compacted log: %w", err)
	}
	l.file = f
	l.windowStart = 0
	l.count = uint64(len(live))
	return nil
}

func discardTemp(f *os.File, path string, err error) error {
	_ = f.Close()
	_ = os.Remove(path)
	return err
}

// Truncate drops every record.
func (l *Log) Truncate() error {
	if l.file == nil {
		return ErrClosed
	}
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("truncating track log: %w", err)
	}
	return l.writeHeader()
}

// Len returns the number of live records.
func (l *Log) Len() int {
	return int(l.count - l.windowStart)
}

// Dead returns the number of evicted records still present in the file.
func (l *Log) Dead() int {
	return int(l.windowStart)
}

func (l *Log) Path() string {
	return l.path
}

func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func recordOffset(index uint64) int64 {
	return headerSize + int64(index)*recordSize
}

func encodeRecord(buf []byte, p navigation.Point) {
	clear(buf)
	le := binary.LittleEndian
	le.PutUint64(buf[0:], uint64(p.Timestamp.UnixNano()))
	le.PutUint64(buf[8:], math.Float64bits(p.Lat))
	le.PutUint64(buf[16:], math.Float64bits(p.Lon))

	var flags uint8
	if p.Altitude != nil {
		flags |= flagAltitude
		le.PutUint64(buf[24:], math.Float64bits(*p.Altitude))
	}
	if p.Speed != nil {
		flags |= flagSpeed
		le.PutUint64(buf[32:], math.Float64bits(*p.Speed))
	}
	if p.Accuracy != nil {
		flags |= flagAccuracy
		le.PutUint64(buf[40:], math.Float64bits(*p.Accuracy))
	}
	buf[48] = flags
}

func decodeRecord(buf []byte) navigation.Point {
	le := binary.LittleEndian
	p := navigation.Point{
		Timestamp: time.Unix(0, int64(le.Uint64(buf[0:]))),
		Lat:       math.Float64frombits(le.Uint64(buf[8:])),
		Lon:       math.Float64frombits(le.Uint64(buf[16:])),
	}

	flags := buf[48]
	if flags&flagAltitude != 0 {
		p = p.WithAltitude(math.Float64frombits(le.Uint64(buf[24:])))
	}
	if flags&flagSpeed != 0 {
		p = p.WithSpeed(math.Float64frombits(le.Uint64(buf[32:])))
	}
	if flags&flagAccuracy != 0 {
		p = p.WithAccuracy(math.Float64frombits(le.Uint64(buf[40:])))
	}
	return p
}
