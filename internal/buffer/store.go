package buffer

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"reel/internal/logging"
)

// Status is a lock-protected snapshot of the store.
type Status struct {
	SegmentCount     int
	BufferedDuration time.Duration
	MaxDuration      time.Duration
	OldestCapturedAt time.Time
	NewestCapturedAt time.Time
}

// Store holds the rolling window of captured segments, ordered by CapturedAt
// ascending. Push and eviction are exclusive; status reads may run
// concurrently with each other.
type Store struct {
	mu     sync.RWMutex
	max    time.Duration
	items  []*entry
	logger *slog.Logger
	clock  func() time.Time
}

type entry struct {
	segment Segment
	leases  int
	doomed  bool
}

// NewStore constructs a store bounded by maxDuration.
func NewStore(maxDuration time.Duration, logger *slog.Logger) *Store {
	return &Store{
		max:    maxDuration,
		logger: logging.NewComponentLogger(logger, "buffer"),
		clock:  time.Now,
	}
}

// Push appends a segment and evicts oldest-first until the buffered duration
// fits the configured maximum again. Eviction deletes backing files;
// deletion failures are logged, never propagated.
func (s *Store) Push(segment Segment) {
	s.mu.Lock()

	idx := len(s.items)
	for idx > 0 && s.items[idx-1].segment.CapturedAt.After(segment.CapturedAt) {
		idx--
	}
	s.items = append(s.items, nil)
	copy(s.items[idx+1:], s.items[idx:])
	s.items[idx] = &entry{segment: segment}

	var victims []Segment
	for s.bufferedLocked() > s.max && len(s.items) > 0 {
		oldest := s.items[0]
		s.items = s.items[1:]
		if oldest.leases > 0 {
			oldest.doomed = true
			s.logger.Debug("eviction deferred for leased segment",
				logging.Int("sequence", oldest.segment.SequenceIndex),
				logging.String("path", oldest.segment.FilePath),
			)
			continue
		}
		victims = append(victims, oldest.segment)
	}
	s.mu.Unlock()

	for _, victim := range victims {
		s.removeSegmentFile(victim)
	}
}

// Status returns the current segment count, buffered duration, and bound.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		SegmentCount:     len(s.items),
		BufferedDuration: s.bufferedLocked(),
		MaxDuration:      s.max,
	}
	if len(s.items) > 0 {
		status.OldestCapturedAt = s.items[0].segment.CapturedAt
		status.NewestCapturedAt = s.items[len(s.items)-1].segment.CapturedAt
	}
	return status
}

// Select returns a leased snapshot of every segment whose age a at call time
// satisfies startAgo-duration <= a <= startAgo, ordered by CapturedAt
// ascending. The caller must Release the selection when done reading the
// backing files; eviction of a leased segment defers file deletion until the
// last lease is released.
func (s *Store) Select(startAgo, duration time.Duration) (*Selection, error) {
	if duration <= 0 || startAgo < 0 {
		return nil, fmt.Errorf("%w: start %s ago for %s", ErrInvalidWindow, startAgo, duration)
	}

	now := s.clock()
	oldestAge := startAgo
	youngestAge := startAgo - duration

	s.mu.Lock()
	defer s.mu.Unlock()

	var picked []*entry
	for _, item := range s.items {
		age := item.segment.Age(now)
		if age >= youngestAge && age <= oldestAge {
			picked = append(picked, item)
		}
	}
	if len(picked) == 0 {
		return nil, ErrNoData
	}

	segments := make([]Segment, len(picked))
	for i, item := range picked {
		item.leases++
		segments[i] = item.segment
	}
	return &Selection{store: s, entries: picked, segments: segments}, nil
}

// Clear evicts every segment and deletes backing files best-effort. Leased
// segments are doomed rather than deleted immediately.
func (s *Store) Clear() {
	s.mu.Lock()
	var victims []Segment
	for _, item := range s.items {
		if item.leases > 0 {
			item.doomed = true
			continue
		}
		victims = append(victims, item.segment)
	}
	s.items = nil
	s.mu.Unlock()

	for _, victim := range victims {
		s.removeSegmentFile(victim)
	}
}

func (s *Store) bufferedLocked() time.Duration {
	var total time.Duration
	for _, item := range s.items {
		total += item.segment.NominalDuration
	}
	return total
}

func (s *Store) removeSegmentFile(segment Segment) {
	if err := os.Remove(segment.FilePath); err != nil && !os.IsNotExist(err) {
		logging.WarnWithContext(s.logger, "segment delete failed; file remains", "segment_delete_failed",
			logging.String("path", segment.FilePath),
			logging.Int("sequence", segment.SequenceIndex),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale segment file remains on disk until session cleanup"),
		)
		return
	}
	s.logger.Debug("segment evicted",
		logging.Int("sequence", segment.SequenceIndex),
		logging.String("path", segment.FilePath),
	)
}

// Selection is a consistent, leased snapshot of segments covering one
// extraction window.
type Selection struct {
	store    *Store
	entries  []*entry
	segments []Segment
	once     sync.Once
}

// Segments returns the selected segments ordered by CapturedAt ascending.
func (sel *Selection) Segments() []Segment {
	if sel == nil {
		return nil
	}
	return sel.segments
}

// Duration sums the nominal durations of the selected segments.
func (sel *Selection) Duration() time.Duration {
	if sel == nil {
		return 0
	}
	var total time.Duration
	for _, segment := range sel.segments {
		total += segment.NominalDuration
	}
	return total
}

// Release drops the leases taken by Select and deletes any segment that was
// evicted while this selection held the last lease. Release is idempotent.
func (sel *Selection) Release() {
	if sel == nil || sel.store == nil {
		return
	}
	sel.once.Do(func() {
		var victims []Segment
		sel.store.mu.Lock()
		for _, item := range sel.entries {
			item.leases--
			if item.doomed && item.leases == 0 {
				victims = append(victims, item.segment)
			}
		}
		sel.store.mu.Unlock()

		for _, victim := range victims {
			sel.store.removeSegmentFile(victim)
		}
	})
}
