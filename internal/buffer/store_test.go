package buffer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"reel/internal/logging"
)

func writeSegmentFile(t *testing.T, dir string, sequence int) string {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("segment_%03d.ts", sequence))
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write segment file: %v", err)
	}
	return path
}

func segmentAtAge(t *testing.T, dir string, sequence int, age, nominal time.Duration, now time.Time) Segment {
	t.Helper()
	return Segment{
		FilePath:        writeSegmentFile(t, dir, sequence),
		SequenceIndex:   sequence,
		CapturedAt:      now.Add(-age),
		NominalDuration: nominal,
		Size:            2048,
	}
}

func TestPushKeepsBufferedDurationWithinMax(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(30*time.Second, logging.NewNop())
	now := time.Now()

	var paths []string
	for i := 0; i < 4; i++ {
		seg := segmentAtAge(t, dir, i, time.Duration(3-i)*10*time.Second, 10*time.Second, now)
		paths = append(paths, seg.FilePath)
		store.Push(seg)

		status := store.Status()
		if status.BufferedDuration > status.MaxDuration {
			t.Fatalf("push %d: buffered %s exceeds max %s", i, status.BufferedDuration, status.MaxDuration)
		}
	}

	status := store.Status()
	if status.SegmentCount != 3 {
		t.Fatalf("expected 3 segments after eviction, got %d", status.SegmentCount)
	}
	if status.BufferedDuration != 30*time.Second {
		t.Fatalf("expected buffered duration 30s, got %s", status.BufferedDuration)
	}

	if _, err := os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Fatal("expected oldest segment file to be deleted on eviction")
	}
	for _, path := range paths[1:] {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected surviving segment file %s: %v", path, err)
		}
	}
}

func TestSelectReturnsWindowInclusiveBothEnds(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(5*time.Minute, logging.NewNop())
	now := time.Now()
	store.clock = func() time.Time { return now }

	ages := []time.Duration{18 * time.Second, 12 * time.Second, 7 * time.Second, 2 * time.Second}
	for i, age := range ages {
		store.Push(segmentAtAge(t, dir, i, age, 5*time.Second, now))
	}

	sel, err := store.Select(10*time.Second, 10*time.Second)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	defer sel.Release()

	segments := sel.Segments()
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments in window, got %d", len(segments))
	}
	if segments[0].SequenceIndex != 2 || segments[1].SequenceIndex != 3 {
		t.Fatalf("expected ages 7s and 2s in captured order, got sequences %d, %d",
			segments[0].SequenceIndex, segments[1].SequenceIndex)
	}
	if !segments[0].CapturedAt.Before(segments[1].CapturedAt) {
		t.Fatal("expected selection ordered by CapturedAt ascending")
	}
}

func TestSelectBoundaryAgesIncluded(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(5*time.Minute, logging.NewNop())
	now := time.Now()
	store.clock = func() time.Time { return now }

	store.Push(segmentAtAge(t, dir, 0, 10*time.Second, 5*time.Second, now))
	store.Push(segmentAtAge(t, dir, 1, 0, 5*time.Second, now))

	sel, err := store.Select(10*time.Second, 10*time.Second)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	defer sel.Release()

	if len(sel.Segments()) != 2 {
		t.Fatalf("expected both boundary ages selected, got %d", len(sel.Segments()))
	}
}

func TestSelectOlderWindow(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(5*time.Minute, logging.NewNop())
	now := time.Now()
	store.clock = func() time.Time { return now }

	ages := []time.Duration{22 * time.Second, 18 * time.Second, 12 * time.Second, 7 * time.Second, 2 * time.Second}
	for i, age := range ages {
		store.Push(segmentAtAge(t, dir, i, age, 5*time.Second, now))
	}

	sel, err := store.Select(15*time.Second, 10*time.Second)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	defer sel.Release()

	segments := sel.Segments()
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments with ages in [5s,15s], got %d", len(segments))
	}
	if got := segments[0].Age(now); got != 12*time.Second {
		t.Fatalf("expected oldest selected age 12s, got %s", got)
	}
	if got := segments[1].Age(now); got != 7*time.Second {
		t.Fatalf("expected youngest selected age 7s, got %s", got)
	}
}

func TestSelectEmptyWindowFails(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(5*time.Minute, logging.NewNop())
	now := time.Now()
	store.clock = func() time.Time { return now }

	store.Push(segmentAtAge(t, dir, 0, 5*time.Second, 5*time.Second, now))

	sel, err := store.Select(120*time.Second, 10*time.Second)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if sel != nil {
		t.Fatal("expected nil selection for empty window")
	}
}

func TestSelectRejectsInvalidWindow(t *testing.T) {
	store := NewStore(time.Minute, logging.NewNop())

	if _, err := store.Select(10*time.Second, 0); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for zero duration, got %v", err)
	}
	if _, err := store.Select(-time.Second, 10*time.Second); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for negative offset, got %v", err)
	}
}

func TestLeaseDefersEvictionDeletion(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(20*time.Second, logging.NewNop())
	now := time.Now()
	store.clock = func() time.Time { return now }

	oldest := segmentAtAge(t, dir, 0, 15*time.Second, 10*time.Second, now)
	store.Push(oldest)
	store.Push(segmentAtAge(t, dir, 1, 5*time.Second, 10*time.Second, now))

	sel, err := store.Select(15*time.Second, 5*time.Second)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if len(sel.Segments()) != 1 || sel.Segments()[0].SequenceIndex != 0 {
		t.Fatalf("expected lease on oldest segment, got %+v", sel.Segments())
	}

	// Forces the leased segment out of the window.
	store.Push(segmentAtAge(t, dir, 2, 1*time.Second, 10*time.Second, now))

	if store.Status().SegmentCount != 2 {
		t.Fatalf("expected 2 live segments after eviction, got %d", store.Status().SegmentCount)
	}
	if _, err := os.Stat(oldest.FilePath); err != nil {
		t.Fatalf("leased segment file should survive eviction: %v", err)
	}

	sel.Release()
	if _, err := os.Stat(oldest.FilePath); !os.IsNotExist(err) {
		t.Fatal("expected deferred deletion after last lease release")
	}

	// Second release is a no-op.
	sel.Release()
}

func TestClearRemovesSegmentsAndFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(time.Minute, logging.NewNop())
	now := time.Now()
	store.clock = func() time.Time { return now }

	leased := segmentAtAge(t, dir, 0, 10*time.Second, 10*time.Second, now)
	plain := segmentAtAge(t, dir, 1, 5*time.Second, 10*time.Second, now)
	store.Push(leased)
	store.Push(plain)

	sel, err := store.Select(10*time.Second, 2*time.Second)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}

	store.Clear()

	if store.Status().SegmentCount != 0 {
		t.Fatalf("expected empty store after clear, got %d", store.Status().SegmentCount)
	}
	if _, err := os.Stat(plain.FilePath); !os.IsNotExist(err) {
		t.Fatal("expected unleased file removed by clear")
	}
	if _, err := os.Stat(leased.FilePath); err != nil {
		t.Fatalf("leased file should survive clear until release: %v", err)
	}

	sel.Release()
	if _, err := os.Stat(leased.FilePath); !os.IsNotExist(err) {
		t.Fatal("expected leased file removed after release")
	}
}

func TestStatusSnapshot(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(time.Minute, logging.NewNop())

	status := store.Status()
	if status.SegmentCount != 0 || status.BufferedDuration != 0 {
		t.Fatalf("expected zero status for empty store, got %+v", status)
	}
	if status.MaxDuration != time.Minute {
		t.Fatalf("expected max duration surfaced, got %s", status.MaxDuration)
	}

	now := time.Now()
	store.Push(segmentAtAge(t, dir, 0, 20*time.Second, 10*time.Second, now))
	store.Push(segmentAtAge(t, dir, 1, 10*time.Second, 10*time.Second, now))

	status = store.Status()
	if status.SegmentCount != 2 {
		t.Fatalf("expected 2 segments, got %d", status.SegmentCount)
	}
	if status.BufferedDuration != 20*time.Second {
		t.Fatalf("expected 20s buffered, got %s", status.BufferedDuration)
	}
	if !status.OldestCapturedAt.Before(status.NewestCapturedAt) {
		t.Fatal("expected oldest before newest")
	}
}

func TestConcurrentPushAndStatus(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(50*time.Millisecond, logging.NewNop())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			store.Push(Segment{
				FilePath:        filepath.Join(dir, fmt.Sprintf("seg-a-%03d.ts", i)),
				SequenceIndex:   i,
				CapturedAt:      time.Now(),
				NominalDuration: 10 * time.Millisecond,
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			status := store.Status()
			if status.BufferedDuration > status.MaxDuration {
				t.Errorf("buffered %s exceeds max %s", status.BufferedDuration, status.MaxDuration)
				return
			}
			if sel, err := store.Select(time.Second, time.Second); err == nil {
				sel.Release()
			}
		}
	}()
	wg.Wait()

	status := store.Status()
	if status.BufferedDuration > status.MaxDuration {
		t.Fatalf("final buffered %s exceeds max %s", status.BufferedDuration, status.MaxDuration)
	}
}
