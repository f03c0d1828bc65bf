package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"reel/internal/buffer"
	"reel/internal/fileutil"
	"reel/internal/logging"
	"reel/internal/services/streamlink"
)

// State identifies the lifecycle phase of a buffer session.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateFailed  State = "failed"
)

// EventType classifies session lifecycle events.
type EventType string

const (
	EventSessionStarted EventType = "session_started"
	EventSessionStopped EventType = "session_stopped"
	EventSessionFailed  EventType = "session_failed"
)

// Event describes a session lifecycle transition.
type Event struct {
	Type      EventType
	Source    string
	SessionID string
	Reason    string
	Err       error
}

// EventHook receives lifecycle events. Hooks run on session goroutines
// and must not block.
type EventHook func(Event)

// Config carries everything one session run needs.
type Config struct {
	Source           string
	Quality          string
	SessionID        string
	Dir              string
	SegmentDuration  time.Duration
	CaptureTimeout   time.Duration
	MaxBuffer        time.Duration
	MinSegmentBytes  int64
	FailureThreshold int
	RetryDelay       time.Duration
	WatchdogInterval time.Duration
	StallThreshold   time.Duration
}

// Status is a point-in-time snapshot of one session.
type Status struct {
	Source              string
	Quality             string
	SessionID           string
	State               State
	StartedAt           time.Time
	LastProgressAt      time.Time
	SegmentsCaptured    int64
	ConsecutiveFailures int
	FailureReason       string
	Buffer              buffer.Status
}

// Session owns one capture run: a segment store, the capture loop and the
// watchdog. Sessions are single use; the Manager builds a fresh one per run.
type Session struct {
	cfg      Config
	recorder streamlink.Recorder
	store    *buffer.Store
	logger   *slog.Logger
	hook     EventHook
	clock    func() time.Time

	mu        sync.Mutex
	state     State
	running   bool
	started   bool
	cleaned   bool
	startedAt time.Time
	heartbeat time.Time
	failures  int
	segments  int64
	seq       int
	reason    string
	cancel    context.CancelFunc

	wg   sync.WaitGroup
	done chan struct{}
}

// NewSession builds a session; Start launches it.
func NewSession(cfg Config, recorder streamlink.Recorder, store *buffer.Store, logger *slog.Logger, hook EventHook) *Session {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Session{
		cfg:      cfg,
		recorder: recorder,
		store:    store,
		logger: logger.With(
			logging.String(logging.FieldComponent, "capture"),
			logging.String(logging.FieldSource, cfg.Source),
			logging.String(logging.FieldSessionID, cfg.SessionID)),
		hook:  hook,
		clock: time.Now,
		state: StateStopped,
	}
}

// Start launches the capture loop and watchdog goroutines.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSessionRunning
	}
	if s.started {
		s.mu.Unlock()
		return errors.New("buffer session cannot be restarted")
	}
	s.mu.Unlock()

	if err := fileutil.EnsureDir(s.cfg.Dir); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	now := s.clock()

	s.mu.Lock()
	s.started = true
	s.running = true
	s.state = StateRunning
	s.cancel = cancel
	s.startedAt = now
	s.heartbeat = now
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(2)
	go s.captureLoop(runCtx)
	go s.watchdog(runCtx)
	go func() {
		s.wg.Wait()
		close(s.done)
	}()

	s.logger.Info("buffer session started",
		logging.String("quality", s.cfg.Quality),
		logging.Duration("segment_duration", s.cfg.SegmentDuration),
		logging.Duration("max_buffer", s.cfg.MaxBuffer))
	s.emit(Event{Type: EventSessionStarted, Source: s.cfg.Source, SessionID: s.cfg.SessionID})
	return nil
}

// Stop halts capture, waits for the loop and watchdog to exit, then
// releases the buffered segments and the session directory. Safe to call
// repeatedly and after a fatal failure.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.cleaned = true
		s.mu.Unlock()
		return nil
	}
	wasRunning := s.running
	if s.running {
		s.running = false
		s.state = StateStopped
	}
	cancel := s.cancel
	segments := s.segments
	done := s.done
	s.mu.Unlock()

	if wasRunning {
		cancel()
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Mark cleanup done only once the wait succeeded, so a Stop cut short
	// by its context leaves the release work for the next attempt.
	s.mu.Lock()
	alreadyCleaned := s.cleaned
	s.cleaned = true
	s.mu.Unlock()
	if alreadyCleaned {
		return nil
	}

	s.store.Clear()
	if err := os.Remove(s.cfg.Dir); err != nil && !os.IsNotExist(err) {
		s.logger.Debug("session directory not removed", logging.Error(err))
	}
	if wasRunning {
		s.logger.Info("buffer session stopped", logging.Int64("segments_captured", segments))
		s.emit(Event{Type: EventSessionStopped, Source: s.cfg.Source, SessionID: s.cfg.SessionID})
	}
	return nil
}

// Running reports whether the capture loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns a snapshot of the session and its buffer.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		Source:              s.cfg.Source,
		Quality:             s.cfg.Quality,
		SessionID:           s.cfg.SessionID,
		State:               s.state,
		StartedAt:           s.startedAt,
		LastProgressAt:      s.heartbeat,
		SegmentsCaptured:    s.segments,
		ConsecutiveFailures: s.failures,
		FailureReason:       s.reason,
	}
	s.mu.Unlock()
	if s.store != nil {
		st.Buffer = s.store.Status()
	}
	return st
}

// Store exposes the segment store for extraction.
func (s *Session) Store() *buffer.Store { return s.store }

// Source returns the normalized source identifier.
func (s *Session) Source() string { return s.cfg.Source }

// ID returns the session identifier.
func (s *Session) ID() string { return s.cfg.SessionID }

func (s *Session) captureLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		seq := s.nextSequence()
		outputPath := filepath.Join(s.cfg.Dir, fmt.Sprintf("segment_%06d.ts", seq))
		size, err := s.recorder.Record(ctx, streamlink.RecordRequest{
			Source:     s.cfg.Source,
			Quality:    s.cfg.Quality,
			Duration:   s.cfg.SegmentDuration,
			OutputPath: outputPath,
			MinBytes:   s.cfg.MinSegmentBytes,
			Timeout:    s.cfg.CaptureTimeout,
		})
		if err != nil {
			_ = os.Remove(outputPath)
			if ctx.Err() != nil {
				return
			}
			count, fatal := s.recordFailure("source ended or unreachable", err)
			if fatal {
				return
			}
			s.logger.Warn("segment capture failed",
				logging.Error(err),
				logging.Int("consecutive_failures", count),
				logging.Int("failure_threshold", s.cfg.FailureThreshold))
			if !s.sleep(ctx, s.cfg.RetryDelay) {
				return
			}
			continue
		}

		capturedAt := s.clock()
		s.store.Push(buffer.Segment{
			FilePath:        outputPath,
			SequenceIndex:   seq,
			CapturedAt:      capturedAt,
			NominalDuration: s.cfg.SegmentDuration,
			Size:            size,
		})
		s.recordSuccess(capturedAt)
		s.logger.Debug("segment captured",
			logging.Int("sequence", seq),
			logging.Int64("bytes", size))
	}
}

// recordFailure bumps the shared failure counter. Crossing the threshold
// transitions the session to failed exactly once; later increments from a
// racing goroutine see the changed state and report non-fatal.
func (s *Session) recordFailure(reason string, err error) (int, bool) {
	s.mu.Lock()
	s.failures++
	count := s.failures
	fatal := count >= s.cfg.FailureThreshold && s.state == StateRunning
	if !fatal {
		s.mu.Unlock()
		return count, false
	}
	s.state = StateFailed
	s.running = false
	s.reason = reason
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.logger.Error("buffer session failed",
		logging.Error(err),
		logging.String("reason", reason),
		logging.Int("consecutive_failures", count),
		logging.String(logging.FieldEventType, "session_failure"),
		logging.Alert("session_failure"))
	s.emit(Event{Type: EventSessionFailed, Source: s.cfg.Source, SessionID: s.cfg.SessionID, Reason: reason, Err: err})
	return count, true
}

func (s *Session) recordSuccess(at time.Time) {
	s.mu.Lock()
	s.failures = 0
	s.heartbeat = at
	s.segments++
	s.mu.Unlock()
}

func (s *Session) nextSequence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.seq
	s.seq++
	return seq
}

func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (s *Session) emit(event Event) {
	if s.hook != nil {
		s.hook(event)
	}
}
