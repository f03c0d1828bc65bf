package ipc

import "reel/internal/api"

// SessionStatus mirrors the HTTP API session DTO for IPC callers.
type SessionStatus = api.SessionStatus

// BufferStatus mirrors the HTTP API buffer DTO.
type BufferStatus = api.BufferStatus

// Clip mirrors the HTTP API clip DTO.
type Clip = api.Clip

// SourceStatus mirrors the HTTP API monitored source DTO.
type SourceStatus = api.SourceStatus

// ProbeResult mirrors the HTTP API probe DTO.
type ProbeResult = api.ProbeResult

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and session status.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StartedAt    string             `json:"started_at,omitempty"`
	Version      string             `json:"version,omitempty"`
	Session      *SessionStatus     `json:"session,omitempty"`
	Sources      []SourceStatus     `json:"sources,omitempty"`
	ClipCounts   map[string]int     `json:"clip_counts,omitempty"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
	SocketPath   string             `json:"socket_path,omitempty"`
	DatabasePath string             `json:"database_path,omitempty"`
	LogPath      string             `json:"log_path,omitempty"`
}

// StartSessionRequest launches a capture session for a source.
type StartSessionRequest struct {
	Source  string `json:"source"`
	Quality string `json:"quality,omitempty"`
}

// StartSessionResponse carries the session snapshot after start.
type StartSessionResponse struct {
	Session SessionStatus `json:"session"`
}

// StopSessionRequest stops the active capture session.
type StopSessionRequest struct{}

// StopSessionResponse indicates stop result.
type StopSessionResponse struct {
	Stopped bool `json:"stopped"`
}

// BufferStatusRequest fetches the rolling buffer snapshot.
type BufferStatusRequest struct{}

// BufferStatusResponse carries the buffer snapshot. Active is false when
// no capture session exists.
type BufferStatusResponse struct {
	Active bool         `json:"active"`
	Buffer BufferStatus `json:"buffer"`
}

// CreateClipRequest submits a clip extraction job. Zero values use the
// configured defaults.
type CreateClipRequest struct {
	StartAgoSeconds float64 `json:"start_ago_seconds,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Format          string  `json:"format,omitempty"`
	Title           string  `json:"title,omitempty"`
	OutputPath      string  `json:"output_path,omitempty"`
}

// CreateClipResponse returns the queued job row.
type CreateClipResponse struct {
	Clip Clip `json:"clip"`
}

// ClipStatusRequest fetches one clip by numeric id or request id.
type ClipStatusRequest struct {
	ID        int64  `json:"id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ClipStatusResponse carries one clip job.
type ClipStatusResponse struct {
	Clip Clip `json:"clip"`
}

// ListClipsRequest filters clip listing by status.
type ListClipsRequest struct {
	Limit    int      `json:"limit,omitempty"`
	Statuses []string `json:"statuses,omitempty"`
}

// ListClipsResponse contains clip jobs newest first.
type ListClipsResponse struct {
	Clips []Clip `json:"clips"`
}

// RemoveClipRequest deletes one clip row by id. The output file on disk
// is left alone.
type RemoveClipRequest struct {
	ID int64 `json:"id"`
}

// RemoveClipResponse reports whether a row was removed.
type RemoveClipResponse struct {
	Removed bool `json:"removed"`
}

// ListSourcesRequest fetches monitored source states.
type ListSourcesRequest struct{}

// ListSourcesResponse contains the monitor snapshot.
type ListSourcesResponse struct {
	Sources []SourceStatus `json:"sources"`
}

// AddSourceRequest registers a source with the liveness monitor.
type AddSourceRequest struct {
	Source string `json:"source"`
}

// AddSourceResponse returns the normalized source name.
type AddSourceResponse struct {
	Source string `json:"source"`
}

// RemoveSourceRequest drops a source from the liveness monitor.
type RemoveSourceRequest struct {
	Source string `json:"source"`
}

// RemoveSourceResponse indicates removal.
type RemoveSourceResponse struct {
	Removed bool `json:"removed"`
}

// ProbeSourceRequest runs a one-off liveness probe.
type ProbeSourceRequest struct {
	Source string `json:"source"`
}

// ProbeSourceResponse carries the probe answer.
type ProbeSourceResponse struct {
	Result ProbeResult `json:"result"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse indicates whether shutdown was initiated.
type ShutdownResponse struct {
	Initiated bool   `json:"initiated"`
	Message   string `json:"message,omitempty"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// DatabaseHealthRequest fetches clip store diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports clip database health.
type DatabaseHealthResponse struct {
	Path           string `json:"path"`
	Exists         bool   `json:"exists"`
	Readable       bool   `json:"readable"`
	IntegrityCheck bool   `json:"integrity_check"`
	TotalClips     int    `json:"total_clips"`
	Error          string `json:"error,omitempty"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
