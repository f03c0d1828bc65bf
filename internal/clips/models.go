package clips

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a clip job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusExtracting Status = "extracting"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var statusSet = map[Status]struct{}{
	StatusPending:    {},
	StatusExtracting: {},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// ParseStatus normalizes a user supplied status string.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// InterruptedReason is the error message set on jobs found in flight at
// startup.
const InterruptedReason = "daemon stopped during extraction"

// Clip is one extraction request persisted in SQLite.
type Clip struct {
	ID        int64
	RequestID string
	Source    string
	SessionID string
	Title     string
	// StartAgo and Duration are the requested age window.
	StartAgo   time.Duration
	Duration   time.Duration
	Format     string
	OutputPath string
	Status     Status
	// ProgressStage and ProgressPercent track the running extraction.
	ProgressStage   string
	ProgressPercent float64
	ErrorMessage    string
	SizeBytes       int64
	// ActualDuration is probed from the finished file; zero when probing
	// was skipped or failed.
	ActualDuration time.Duration
	SegmentCount   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// Active reports whether the job is still pending or running.
func (c *Clip) Active() bool {
	return c.Status == StatusPending || c.Status == StatusExtracting
}

// NewClip describes one job to insert. Fields mirror the extraction request;
// defaults are resolved by the caller so the row reflects what actually runs.
type NewClip struct {
	RequestID  string
	Source     string
	SessionID  string
	Title      string
	StartAgo   time.Duration
	Duration   time.Duration
	Format     string
	OutputPath string
}

// CompletionInfo carries the final artifact details for MarkCompleted.
type CompletionInfo struct {
	OutputPath     string
	SizeBytes      int64
	ActualDuration time.Duration
	SegmentCount   int
}

// DatabaseHealth captures diagnostic information about the clip database.
type DatabaseHealth struct {
	Path           string
	Exists         bool
	Readable       bool
	TotalClips     int
	IntegrityCheck bool
	Error          string
}
