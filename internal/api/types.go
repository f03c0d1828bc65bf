package api

// dateTimeFormat renders timestamps with millisecond precision and a
// numeric zone offset, matching what log timestamps use.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SessionStatus describes the active capture session.
type SessionStatus struct {
	Source              string       `json:"source"`
	Quality             string       `json:"quality,omitempty"`
	SessionID           string       `json:"sessionId"`
	State               string       `json:"state"`
	StartedAt           string       `json:"startedAt,omitempty"`
	LastProgressAt      string       `json:"lastProgressAt,omitempty"`
	SegmentsCaptured    int64        `json:"segmentsCaptured"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	FailureReason       string       `json:"failureReason,omitempty"`
	Buffer              BufferStatus `json:"buffer"`
}

// BufferStatus summarizes the rolling segment window on disk.
type BufferStatus struct {
	SegmentCount    int     `json:"segmentCount"`
	BufferedSeconds float64 `json:"bufferedSeconds"`
	MaxSeconds      float64 `json:"maxSeconds"`
	OldestAt        string  `json:"oldestAt,omitempty"`
	NewestAt        string  `json:"newestAt,omitempty"`
}

// ClipProgress reports how far an extraction has advanced.
type ClipProgress struct {
	Stage   string  `json:"stage,omitempty"`
	Percent float64 `json:"percent"`
}

// Clip is the transport form of a clip job row.
type Clip struct {
	ID                    int64        `json:"id"`
	RequestID             string       `json:"requestId"`
	Source                string       `json:"source,omitempty"`
	SessionID             string       `json:"sessionId,omitempty"`
	Title                 string       `json:"title,omitempty"`
	StartAgoSeconds       float64      `json:"startAgoSeconds"`
	DurationSeconds       float64      `json:"durationSeconds"`
	Format                string       `json:"format"`
	Status                string       `json:"status"`
	Progress              ClipProgress `json:"progress"`
	OutputPath            string       `json:"outputPath,omitempty"`
	ErrorMessage          string       `json:"errorMessage,omitempty"`
	SizeBytes             int64        `json:"sizeBytes,omitempty"`
	ActualDurationSeconds float64      `json:"actualDurationSeconds,omitempty"`
	SegmentCount          int          `json:"segmentCount,omitempty"`
	CreatedAt             string       `json:"createdAt,omitempty"`
	UpdatedAt             string       `json:"updatedAt,omitempty"`
	CompletedAt           string       `json:"completedAt,omitempty"`
}

// SourceStatus describes one monitored source and its probe history.
type SourceStatus struct {
	Source           string `json:"source"`
	Status           string `json:"status"`
	Title            string `json:"title,omitempty"`
	LastCheckedAt    string `json:"lastCheckedAt,omitempty"`
	LastTransitionAt string `json:"lastTransitionAt,omitempty"`
	ProbeErrors      int    `json:"probeErrors,omitempty"`
}

// ProbeResult is the outcome of a one-shot liveness probe.
type ProbeResult struct {
	Source    string   `json:"source"`
	Live      bool     `json:"live"`
	Title     string   `json:"title,omitempty"`
	Qualities []string `json:"qualities,omitempty"`
}

// DependencyStatus captures the availability of an external tool.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// DatabaseHealth reports the result of a clip store health check.
type DatabaseHealth struct {
	Path           string `json:"path"`
	Exists         bool   `json:"exists"`
	Readable       bool   `json:"readable"`
	IntegrityCheck bool   `json:"integrityCheck"`
	TotalClips     int    `json:"totalClips"`
	Detail         string `json:"detail,omitempty"`
}

// DaemonStatus aggregates the daemon runtime view returned by the
// status endpoints.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StartedAt    string             `json:"startedAt,omitempty"`
	Version      string             `json:"version,omitempty"`
	Session      *SessionStatus     `json:"session,omitempty"`
	Sources      []SourceStatus     `json:"sources,omitempty"`
	ClipCounts   map[string]int     `json:"clipCounts,omitempty"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
	SocketPath   string             `json:"socketPath,omitempty"`
	DatabasePath string             `json:"databasePath,omitempty"`
	LogPath      string             `json:"logPath,omitempty"`
}

// LogEvent is a structured log record streamed to clients.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     string            `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"message"`
	Component     string            `json:"component,omitempty"`
	Source        string            `json:"source,omitempty"`
	SessionID     string            `json:"sessionId,omitempty"`
	ClipID        int64             `json:"clipId,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// SessionResponse wraps the active session view; Session is null when the
// daemon is idle.
type SessionResponse struct {
	Session *SessionStatus `json:"session"`
}

// ClipListResponse wraps a collection of clip jobs for API responses.
type ClipListResponse struct {
	Clips []Clip `json:"clips"`
}

// ClipResponse wraps a single clip job.
type ClipResponse struct {
	Clip Clip `json:"clip"`
}

// SourceListResponse wraps the monitored source states.
type SourceListResponse struct {
	Sources []SourceStatus `json:"sources"`
}

// LogStreamResponse carries a batch of log events plus the cursor to pass
// as since on the next poll.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}
