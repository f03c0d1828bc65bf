package buffer

import "time"

// Segment is one captured unit of the live source. Segments are immutable
// once pushed; the store removes them but never rewrites them.
type Segment struct {
	// FilePath is the backing media file, owned by the store until evicted.
	FilePath string
	// SequenceIndex increases monotonically per session and is used for
	// diagnostics and as an ordering tie-break only.
	SequenceIndex int
	// CapturedAt is the wall-clock time capture of this unit began.
	CapturedAt time.Time
	// NominalDuration is the configured target length of the unit. Actual
	// media length may differ slightly; the store does not measure it.
	NominalDuration time.Duration
	// Size is the byte count reported when the segment was captured.
	Size int64
}

// Age reports how long ago the segment was captured relative to now.
func (s Segment) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}
