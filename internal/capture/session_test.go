package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"reel/internal/buffer"
	"reel/internal/logging"
	"reel/internal/services/streamlink"
)

type fakeRecorder struct {
	mu     sync.Mutex
	calls  []streamlink.RecordRequest
	script func(ctx context.Context, call int, req streamlink.RecordRequest) (int64, error)
}

func (f *fakeRecorder) Record(ctx context.Context, req streamlink.RecordRequest) (int64, error) {
	f.mu.Lock()
	call := len(f.calls)
	f.calls = append(f.calls, req)
	script := f.script
	f.mu.Unlock()
	return script(ctx, call, req)
}

func (f *fakeRecorder) request(i int) streamlink.RecordRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func blockUntilCancelled(ctx context.Context) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func writeSegment(req streamlink.RecordRequest, size int) (int64, error) {
	if err := os.WriteFile(req.OutputPath, make([]byte, size), 0o644); err != nil {
		return 0, err
	}
	return int64(size), nil
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (e *eventLog) hook(event Event) {
	e.mu.Lock()
	e.events = append(e.events, event)
	e.mu.Unlock()
}

func (e *eventLog) count(kind EventType) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, event := range e.events {
		if event.Type == kind {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func testSessionConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Source:           "https://twitch.tv/somechannel",
		Quality:          "best",
		SessionID:        "abcdef12",
		Dir:              filepath.Join(t.TempDir(), "somechannel-abcdef12"),
		SegmentDuration:  30 * time.Millisecond,
		MaxBuffer:        time.Second,
		MinSegmentBytes:  16,
		FailureThreshold: 3,
		RetryDelay:       time.Millisecond,
		WatchdogInterval: time.Hour,
		StallThreshold:   time.Hour,
	}
}

func newTestSession(cfg Config, recorder *fakeRecorder, events *eventLog) *Session {
	store := buffer.NewStore(cfg.MaxBuffer, logging.NewNop())
	var hook EventHook
	if events != nil {
		hook = events.hook
	}
	return NewSession(cfg, recorder, store, logging.NewNop(), hook)
}

func TestCaptureLoopPushesSegments(t *testing.T) {
	cfg := testSessionConfig(t)
	recorder := &fakeRecorder{script: func(ctx context.Context, call int, req streamlink.RecordRequest) (int64, error) {
		if call < 3 {
			return writeSegment(req, 64)
		}
		return blockUntilCancelled(ctx)
	}}
	events := &eventLog{}
	session := newTestSession(cfg, recorder, events)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return session.Status().SegmentsCaptured == 3 })

	status := session.Status()
	if status.State != StateRunning {
		t.Fatalf("expected running state, got %s", status.State)
	}
	if status.Buffer.SegmentCount != 3 {
		t.Fatalf("expected 3 buffered segments, got %d", status.Buffer.SegmentCount)
	}

	first := recorder.request(0)
	if got := filepath.Base(first.OutputPath); got != "segment_000000.ts" {
		t.Fatalf("unexpected first segment name: %s", got)
	}
	if first.Quality != "best" || first.Duration != cfg.SegmentDuration || first.MinBytes != cfg.MinSegmentBytes {
		t.Fatalf("request fields not propagated: %+v", first)
	}
	if got := filepath.Base(recorder.request(2).OutputPath); got != "segment_000002.ts" {
		t.Fatalf("unexpected third segment name: %s", got)
	}

	if err := session.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if got := session.Status(); got.State != StateStopped || got.Buffer.SegmentCount != 0 {
		t.Fatalf("expected stopped empty session, got %+v", got)
	}
	if _, err := os.Stat(cfg.Dir); !os.IsNotExist(err) {
		t.Fatal("expected session directory to be removed")
	}
	if events.count(EventSessionStarted) != 1 || events.count(EventSessionStopped) != 1 {
		t.Fatalf("unexpected events: %+v", events.events)
	}
}

func TestFailureThresholdFiresFatalOnce(t *testing.T) {
	cfg := testSessionConfig(t)
	recorder := &fakeRecorder{script: func(ctx context.Context, call int, req streamlink.RecordRequest) (int64, error) {
		return 0, errors.New("stream over")
	}}
	events := &eventLog{}
	session := newTestSession(cfg, recorder, events)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return session.Status().State == StateFailed })
	time.Sleep(20 * time.Millisecond)

	status := session.Status()
	if status.ConsecutiveFailures != cfg.FailureThreshold {
		t.Fatalf("expected %d failures, got %d", cfg.FailureThreshold, status.ConsecutiveFailures)
	}
	if status.FailureReason != "source ended or unreachable" {
		t.Fatalf("unexpected failure reason: %q", status.FailureReason)
	}
	if got := events.count(EventSessionFailed); got != 1 {
		t.Fatalf("expected exactly one failed event, got %d", got)
	}
	if session.Running() {
		t.Fatal("expected session to stop running")
	}
	if _, err := os.Stat(cfg.Dir); err != nil {
		t.Fatal("expected session directory to survive until Stop")
	}

	if err := session.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if got := session.Status().State; got != StateFailed {
		t.Fatalf("expected failed state to persist, got %s", got)
	}
	if _, err := os.Stat(cfg.Dir); !os.IsNotExist(err) {
		t.Fatal("expected session directory to be removed after Stop")
	}
	if events.count(EventSessionStopped) != 0 {
		t.Fatal("failed session must not emit a stopped event")
	}
}

func TestFailureCounterResetsOnSuccess(t *testing.T) {
	cfg := testSessionConfig(t)
	recorder := &fakeRecorder{script: func(ctx context.Context, call int, req streamlink.RecordRequest) (int64, error) {
		switch call {
		case 0, 2, 3:
			return 0, errors.New("hiccup")
		case 1, 4:
			return writeSegment(req, 64)
		default:
			return blockUntilCancelled(ctx)
		}
	}}
	events := &eventLog{}
	session := newTestSession(cfg, recorder, events)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return session.Status().SegmentsCaptured == 2 })

	if got := session.Status().State; got != StateRunning {
		t.Fatalf("expected session to survive two consecutive failures, got %s", got)
	}
	if events.count(EventSessionFailed) != 0 {
		t.Fatal("unexpected failed event")
	}
	if err := session.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}

func TestWatchdogAbortsStalledSession(t *testing.T) {
	cfg := testSessionConfig(t)
	cfg.WatchdogInterval = 5 * time.Millisecond
	cfg.StallThreshold = time.Millisecond
	recorder := &fakeRecorder{script: func(ctx context.Context, call int, req streamlink.RecordRequest) (int64, error) {
		return blockUntilCancelled(ctx)
	}}
	events := &eventLog{}
	session := newTestSession(cfg, recorder, events)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return session.Status().State == StateFailed })
	time.Sleep(20 * time.Millisecond)

	status := session.Status()
	if status.FailureReason != "capture stalled" {
		t.Fatalf("unexpected failure reason: %q", status.FailureReason)
	}
	if got := events.count(EventSessionFailed); got != 1 {
		t.Fatalf("expected exactly one failed event, got %d", got)
	}
	if err := session.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	cfg := testSessionConfig(t)
	recorder := &fakeRecorder{script: func(ctx context.Context, call int, req streamlink.RecordRequest) (int64, error) {
		return blockUntilCancelled(ctx)
	}}
	events := &eventLog{}
	session := newTestSession(cfg, recorder, events)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := session.Stop(context.Background()); err != nil {
		t.Fatalf("first Stop returned error: %v", err)
	}
	if err := session.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop returned error: %v", err)
	}
	if got := events.count(EventSessionStopped); got != 1 {
		t.Fatalf("expected one stopped event, got %d", got)
	}
}

func TestSessionForwardsCaptureTimeout(t *testing.T) {
	cfg := testSessionConfig(t)
	cfg.CaptureTimeout = 90 * time.Millisecond
	recorder := &fakeRecorder{script: func(ctx context.Context, call int, req streamlink.RecordRequest) (int64, error) {
		if call == 0 {
			return writeSegment(req, 64)
		}
		return blockUntilCancelled(ctx)
	}}
	session := newTestSession(cfg, recorder, nil)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return session.Status().SegmentsCaptured == 1 })
	if err := session.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	if got := recorder.request(0).Timeout; got != cfg.CaptureTimeout {
		t.Fatalf("expected capture timeout %s on the record request, got %s", cfg.CaptureTimeout, got)
	}
}

func TestStopRetriesCleanupAfterContextExpiry(t *testing.T) {
	cfg := testSessionConfig(t)
	release := make(chan struct{})
	recorder := &fakeRecorder{script: func(ctx context.Context, call int, req streamlink.RecordRequest) (int64, error) {
		<-release
		return 0, ctx.Err()
	}}
	session := newTestSession(cfg, recorder, nil)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	expired, cancel := context.WithCancel(context.Background())
	cancel()
	if err := session.Stop(expired); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error from interrupted Stop, got %v", err)
	}
	if _, err := os.Stat(cfg.Dir); err != nil {
		t.Fatalf("session directory must survive an interrupted Stop: %v", err)
	}

	close(release)
	if err := session.Stop(context.Background()); err != nil {
		t.Fatalf("retried Stop returned error: %v", err)
	}
	if _, err := os.Stat(cfg.Dir); !os.IsNotExist(err) {
		t.Fatalf("expected session directory to be removed, got %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	session := newTestSession(testSessionConfig(t), &fakeRecorder{}, nil)
	if err := session.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
}

func TestStartWhileRunningRejected(t *testing.T) {
	cfg := testSessionConfig(t)
	recorder := &fakeRecorder{script: func(ctx context.Context, call int, req streamlink.RecordRequest) (int64, error) {
		return blockUntilCancelled(ctx)
	}}
	session := newTestSession(cfg, recorder, nil)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := session.Start(context.Background()); !errors.Is(err, ErrSessionRunning) {
		t.Fatalf("expected ErrSessionRunning, got %v", err)
	}
	if err := session.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := session.Start(context.Background()); err == nil {
		t.Fatal("expected restart to be rejected")
	}
}
