package api

import (
	"time"

	"reel/internal/buffer"
	"reel/internal/capture"
	"reel/internal/clips"
	"reel/internal/deps"
	"reel/internal/logging"
	"reel/internal/monitor"
	"reel/internal/services/streamlink"
)

// FormatTime renders a timestamp for transport. Zero times become the
// empty string so omitempty drops them.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeFormat)
}

// FromBufferStatus converts a buffer snapshot.
func FromBufferStatus(st buffer.Status) BufferStatus {
	return BufferStatus{
		SegmentCount:    st.SegmentCount,
		BufferedSeconds: st.BufferedDuration.Seconds(),
		MaxSeconds:      st.MaxDuration.Seconds(),
		OldestAt:        FormatTime(st.OldestCapturedAt),
		NewestAt:        FormatTime(st.NewestCapturedAt),
	}
}

// FromSessionStatus converts a capture session snapshot.
func FromSessionStatus(st capture.Status) SessionStatus {
	return SessionStatus{
		Source:              st.Source,
		Quality:             st.Quality,
		SessionID:           st.SessionID,
		State:               string(st.State),
		StartedAt:           FormatTime(st.StartedAt),
		LastProgressAt:      FormatTime(st.LastProgressAt),
		SegmentsCaptured:    st.SegmentsCaptured,
		ConsecutiveFailures: st.ConsecutiveFailures,
		FailureReason:       st.FailureReason,
		Buffer:              FromBufferStatus(st.Buffer),
	}
}

// FromClip converts a persisted clip job.
func FromClip(c *clips.Clip) Clip {
	out := Clip{
		ID:              c.ID,
		RequestID:       c.RequestID,
		Source:          c.Source,
		SessionID:       c.SessionID,
		Title:           c.Title,
		StartAgoSeconds: c.StartAgo.Seconds(),
		DurationSeconds: c.Duration.Seconds(),
		Format:          c.Format,
		Status:          string(c.Status),
		Progress: ClipProgress{
			Stage:   c.ProgressStage,
			Percent: c.ProgressPercent,
		},
		OutputPath:            c.OutputPath,
		ErrorMessage:          c.ErrorMessage,
		SizeBytes:             c.SizeBytes,
		ActualDurationSeconds: c.ActualDuration.Seconds(),
		SegmentCount:          c.SegmentCount,
		CreatedAt:             FormatTime(c.CreatedAt),
		UpdatedAt:             FormatTime(c.UpdatedAt),
	}
	if c.CompletedAt != nil {
		out.CompletedAt = FormatTime(*c.CompletedAt)
	}
	return out
}

// FromClips converts a result set preserving order.
func FromClips(rows []*clips.Clip) []Clip {
	out := make([]Clip, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromClip(row))
	}
	return out
}

// FromClipCounts converts store statistics keyed by status.
func FromClipCounts(stats map[clips.Status]int) map[string]int {
	if len(stats) == 0 {
		return nil
	}
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FromDatabaseHealth converts a clip store health report.
func FromDatabaseHealth(h clips.DatabaseHealth) DatabaseHealth {
	return DatabaseHealth{
		Path:           h.Path,
		Exists:         h.Exists,
		Readable:       h.Readable,
		IntegrityCheck: h.IntegrityCheck,
		TotalClips:     h.TotalClips,
		Detail:         h.Error,
	}
}

// FromSourceState converts one monitored source.
func FromSourceState(st monitor.SourceState) SourceStatus {
	return SourceStatus{
		Source:           st.Source,
		Status:           string(st.Status),
		Title:            st.Title,
		LastCheckedAt:    FormatTime(st.LastChecked),
		LastTransitionAt: FormatTime(st.LastTransition),
		ProbeErrors:      st.ProbeErrors,
	}
}

// FromSourceStates converts a monitor snapshot preserving order.
func FromSourceStates(states []monitor.SourceState) []SourceStatus {
	out := make([]SourceStatus, 0, len(states))
	for _, st := range states {
		out = append(out, FromSourceState(st))
	}
	return out
}

// FromDependency converts one external tool availability result.
func FromDependency(st deps.Status) DependencyStatus {
	return DependencyStatus{
		Name:        st.Name,
		Command:     st.Command,
		Description: st.Description,
		Optional:    st.Optional,
		Available:   st.Available,
		Version:     st.Version,
		Detail:      st.Detail,
	}
}

// FromDependencies converts a dependency snapshot preserving order.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]DependencyStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, FromDependency(st))
	}
	return out
}

// FromProbe converts a one-shot liveness probe answer.
func FromProbe(source string, p streamlink.Probe) ProbeResult {
	return ProbeResult{
		Source:    source,
		Live:      p.Live,
		Title:     p.Title,
		Qualities: p.Qualities,
	}
}

// FromLogEvent converts a buffered log record.
func FromLogEvent(ev logging.LogEvent) LogEvent {
	return LogEvent{
		Sequence:      ev.Sequence,
		Timestamp:     FormatTime(ev.Timestamp),
		Level:         ev.Level,
		Message:       ev.Message,
		Component:     ev.Component,
		Source:        ev.Source,
		SessionID:     ev.SessionID,
		ClipID:        ev.ClipID,
		CorrelationID: ev.CorrelationID,
		Fields:        ev.Fields,
	}
}

// FromLogEvents converts a batch of log records.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	out := make([]LogEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, FromLogEvent(ev))
	}
	return out
}
