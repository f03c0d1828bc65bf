package daemon_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"reel/internal/capture"
	"reel/internal/clips"
	"reel/internal/config"
	"reel/internal/daemon"
	"reel/internal/logging"
	"reel/internal/services/ffmpeg"
	"reel/internal/services/streamlink"
	"reel/internal/testsupport"
)

type stubRecorder struct {
	delay time.Duration
}

func (r stubRecorder) Record(ctx context.Context, req streamlink.RecordRequest) (int64, error) {
	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	payload := make([]byte, 2048)
	if err := os.WriteFile(req.OutputPath, payload, 0o644); err != nil {
		return 0, err
	}
	return int64(len(payload)), nil
}

type stubStitcher struct{}

func (stubStitcher) Concat(ctx context.Context, req ffmpeg.ConcatRequest, progress func(ffmpeg.ProgressUpdate)) error {
	if progress != nil {
		progress(ffmpeg.ProgressUpdate{Percent: 100})
	}
	return os.WriteFile(req.OutputPath, make([]byte, 16384), 0o644)
}

func newTestDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, daemon.Tools{
		Recorder: stubRecorder{delay: 2 * time.Millisecond},
		Stitcher: stubStitcher{},
	}, nil, logging.NewNop(), "", nil)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("PID = %d, want %d", status.PID, os.Getpid())
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newTestDaemon(t, cfg)
	second := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected second instance start to fail while lock is held")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("restart after lock release failed: %v", err)
	}
	second.Stop()
}

func TestDaemonSessionLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, ok := d.SessionStatus(); ok {
		t.Fatal("expected no session before StartSession")
	}

	status, err := d.StartSession("https://twitch.tv/somechannel", "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if status.Source != "https://twitch.tv/somechannel" {
		t.Fatalf("session source = %q", status.Source)
	}
	if _, err := d.StartSession("https://twitch.tv/otherchannel", ""); !errors.Is(err, capture.ErrSessionRunning) {
		t.Fatalf("second StartSession error = %v, want ErrSessionRunning", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		buf, ok := d.BufferStatus()
		return ok && buf.SegmentCount > 0
	})

	if err := d.StopSession(ctx); err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}
	if _, ok := d.SessionStatus(); ok {
		t.Fatal("expected no session after StopSession")
	}
	if err := d.StopSession(ctx); !errors.Is(err, capture.ErrNoSession) {
		t.Fatalf("StopSession on idle daemon = %v, want ErrNoSession", err)
	}
}

func TestDaemonCreateClipRequiresSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, err := d.CreateClip(ctx, daemon.CreateClipRequest{Duration: 10 * time.Second})
	if !errors.Is(err, capture.ErrNoSession) {
		t.Fatalf("CreateClip error = %v, want ErrNoSession", err)
	}
}

func TestDaemonCreateClipCompletes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := d.StartSession("https://twitch.tv/somechannel", "720p"); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		buf, ok := d.BufferStatus()
		return ok && buf.SegmentCount >= 2
	})

	row, err := d.CreateClip(ctx, daemon.CreateClipRequest{
		StartAgo: 30 * time.Second,
		Duration: 30 * time.Second,
		Title:    "Test Clip",
	})
	if err != nil {
		t.Fatalf("CreateClip failed: %v", err)
	}
	if row.Status != clips.StatusPending {
		t.Fatalf("new clip status = %q, want pending", row.Status)
	}
	if row.RequestID == "" {
		t.Fatal("expected request id to be assigned")
	}

	var final *clips.Clip
	waitFor(t, 10*time.Second, func() bool {
		got, err := d.ClipStatus(ctx, row.ID, "")
		if err != nil || got == nil {
			return false
		}
		final = got
		return !got.Active()
	})

	if final.Status != clips.StatusCompleted {
		t.Fatalf("clip finished as %q (%s), want completed", final.Status, final.ErrorMessage)
	}
	if final.OutputPath == "" {
		t.Fatal("expected output path on completed clip")
	}
	if _, err := os.Stat(final.OutputPath); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if final.SegmentCount == 0 {
		t.Fatal("expected segment count on completed clip")
	}

	byRequest, err := d.ClipStatus(ctx, 0, row.RequestID)
	if err != nil {
		t.Fatalf("ClipStatus by request id failed: %v", err)
	}
	if byRequest == nil || byRequest.ID != row.ID {
		t.Fatalf("lookup by request id returned %+v", byRequest)
	}

	listed, err := d.ListClips(ctx, 10, clips.StatusCompleted)
	if err != nil {
		t.Fatalf("ListClips failed: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != row.ID {
		t.Fatalf("ListClips returned %d rows", len(listed))
	}
}

func TestDaemonCreateClipWindowAndFormat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := d.StartSession("https://twitch.tv/somechannel", ""); err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool {
		buf, ok := d.BufferStatus()
		return ok && buf.SegmentCount >= 1
	})

	// A window reaching past the present shrinks to end now.
	row, err := d.CreateClip(ctx, daemon.CreateClipRequest{
		StartAgo: 5 * time.Second,
		Duration: 20 * time.Second,
	})
	if err != nil {
		t.Fatalf("CreateClip with short lookback failed: %v", err)
	}
	if row.StartAgo != 5*time.Second || row.Duration != 5*time.Second {
		t.Fatalf("expected clamped window 5s/5s, got %s/%s", row.StartAgo, row.Duration)
	}

	_, err = d.CreateClip(ctx, daemon.CreateClipRequest{
		Duration: 10 * time.Second,
		Format:   "avi",
	})
	if err == nil {
		t.Fatal("expected format validation error")
	}
}

func TestDaemonShutdownCallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg)

	if d.RequestShutdown() {
		t.Fatal("expected RequestShutdown to report false with no callback")
	}

	fired := make(chan struct{}, 1)
	d.OnShutdownRequest(func() {
		fired <- struct{}{}
	})
	if !d.RequestShutdown() {
		t.Fatal("expected RequestShutdown to report true")
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("shutdown callback did not fire")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
