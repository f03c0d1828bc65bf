package api_test

import (
	"testing"
	"time"

	"reel/internal/api"
	"reel/internal/buffer"
	"reel/internal/capture"
	"reel/internal/clips"
	"reel/internal/logging"
	"reel/internal/monitor"
	"reel/internal/services/streamlink"
)

func TestFormatTimeDropsZeroValues(t *testing.T) {
	if got := api.FormatTime(time.Time{}); got != "" {
		t.Fatalf("zero time formatted as %q, want empty", got)
	}
	ts := time.Date(2026, time.March, 14, 9, 26, 53, 589_000_000, time.UTC)
	if got := api.FormatTime(ts); got != "2026-03-14T09:26:53.589Z" {
		t.Fatalf("FormatTime returned %q", got)
	}
}

func TestFromSessionStatus(t *testing.T) {
	started := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	st := capture.Status{
		Source:              "https://twitch.tv/somechannel",
		Quality:             "best",
		SessionID:           "abcdef12",
		State:               capture.StateRunning,
		StartedAt:           started,
		LastProgressAt:      started.Add(30 * time.Second),
		SegmentsCaptured:    6,
		ConsecutiveFailures: 1,
		Buffer: buffer.Status{
			SegmentCount:     6,
			BufferedDuration: 30 * time.Second,
			MaxDuration:      5 * time.Minute,
			OldestCapturedAt: started,
			NewestCapturedAt: started.Add(25 * time.Second),
		},
	}

	got := api.FromSessionStatus(st)
	if got.Source != st.Source || got.SessionID != "abcdef12" {
		t.Fatalf("identity fields not carried: %+v", got)
	}
	if got.State != "running" {
		t.Fatalf("state = %q, want running", got.State)
	}
	if got.StartedAt != "2026-03-14T09:00:00.000Z" {
		t.Fatalf("startedAt = %q", got.StartedAt)
	}
	if got.SegmentsCaptured != 6 || got.ConsecutiveFailures != 1 {
		t.Fatalf("counters not carried: %+v", got)
	}
	if got.Buffer.SegmentCount != 6 || got.Buffer.BufferedSeconds != 30 || got.Buffer.MaxSeconds != 300 {
		t.Fatalf("buffer snapshot not carried: %+v", got.Buffer)
	}
	if got.Buffer.OldestAt == "" || got.Buffer.NewestAt == "" {
		t.Fatalf("buffer timestamps missing: %+v", got.Buffer)
	}
}

func TestFromClipCarriesLifecycleFields(t *testing.T) {
	created := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	completed := created.Add(12 * time.Second)
	row := &clips.Clip{
		ID:              7,
		RequestID:       "req-7",
		Source:          "https://twitch.tv/somechannel",
		SessionID:       "abcdef12",
		Title:           "nice play",
		StartAgo:        90 * time.Second,
		Duration:        45 * time.Second,
		Format:          "mp4",
		OutputPath:      "/clips/somechannel.mp4",
		Status:          clips.StatusCompleted,
		ProgressStage:   "finalizing",
		ProgressPercent: 100,
		SizeBytes:       2048,
		ActualDuration:  44900 * time.Millisecond,
		SegmentCount:    9,
		CreatedAt:       created,
		UpdatedAt:       completed,
		CompletedAt:     &completed,
	}

	got := api.FromClip(row)
	if got.ID != 7 || got.RequestID != "req-7" {
		t.Fatalf("identity fields not carried: %+v", got)
	}
	if got.StartAgoSeconds != 90 || got.DurationSeconds != 45 {
		t.Fatalf("window fields not carried: %+v", got)
	}
	if got.Status != "completed" || got.Progress.Stage != "finalizing" || got.Progress.Percent != 100 {
		t.Fatalf("progress fields not carried: %+v", got)
	}
	if got.ActualDurationSeconds != 44.9 {
		t.Fatalf("actualDurationSeconds = %v", got.ActualDurationSeconds)
	}
	if got.CompletedAt == "" || got.CreatedAt == "" {
		t.Fatalf("timestamps missing: %+v", got)
	}

	pending := &clips.Clip{ID: 8, RequestID: "req-8", Format: "mp4", Status: clips.StatusPending, CreatedAt: created, UpdatedAt: created}
	if got := api.FromClip(pending); got.CompletedAt != "" {
		t.Fatalf("pending clip has completedAt %q", got.CompletedAt)
	}
}

func TestFromClipsPreservesOrder(t *testing.T) {
	rows := []*clips.Clip{
		{ID: 3, RequestID: "c"},
		{ID: 1, RequestID: "a"},
	}
	got := api.FromClips(rows)
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 1 {
		t.Fatalf("order not preserved: %+v", got)
	}
}

func TestFromClipCounts(t *testing.T) {
	if got := api.FromClipCounts(nil); got != nil {
		t.Fatalf("empty stats should convert to nil, got %v", got)
	}
	got := api.FromClipCounts(map[clips.Status]int{clips.StatusPending: 2, clips.StatusFailed: 1})
	if got["pending"] != 2 || got["failed"] != 1 {
		t.Fatalf("counts not carried: %v", got)
	}
}

func TestFromSourceStates(t *testing.T) {
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	states := []monitor.SourceState{
		{Source: "https://twitch.tv/alpha", Status: monitor.StatusLive, Title: "speedrun", LastChecked: now, LastTransition: now},
		{Source: "https://twitch.tv/beta", Status: monitor.StatusUnknown, ProbeErrors: 2},
	}
	got := api.FromSourceStates(states)
	if len(got) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(got))
	}
	if got[0].Status != "live" || got[0].Title != "speedrun" || got[0].LastCheckedAt == "" {
		t.Fatalf("live source not carried: %+v", got[0])
	}
	if got[1].Status != "unknown" || got[1].ProbeErrors != 2 || got[1].LastCheckedAt != "" {
		t.Fatalf("unknown source not carried: %+v", got[1])
	}
}

func TestFromProbe(t *testing.T) {
	got := api.FromProbe("https://twitch.tv/alpha", streamlink.Probe{Live: true, Title: "speedrun", Qualities: []string{"best", "720p"}})
	if !got.Live || got.Source != "https://twitch.tv/alpha" || got.Title != "speedrun" {
		t.Fatalf("probe not carried: %+v", got)
	}
	if len(got.Qualities) != 2 {
		t.Fatalf("qualities not carried: %+v", got.Qualities)
	}
}

func TestFromLogEvents(t *testing.T) {
	ts := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	events := []logging.LogEvent{
		{Sequence: 4, Timestamp: ts, Level: "INFO", Message: "segment captured", Component: "capture", SessionID: "abcdef12", ClipID: 0},
		{Sequence: 5, Timestamp: ts, Level: "ERROR", Message: "stitch failed", Component: "extract", ClipID: 7, Fields: map[string]string{"stage": "stitching"}},
	}
	got := api.FromLogEvents(events)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Sequence != 4 || got[0].Timestamp != "2026-03-14T09:00:00.000Z" || got[0].Component != "capture" {
		t.Fatalf("first event not carried: %+v", got[0])
	}
	if got[1].ClipID != 7 || got[1].Fields["stage"] != "stitching" {
		t.Fatalf("second event not carried: %+v", got[1])
	}
}
