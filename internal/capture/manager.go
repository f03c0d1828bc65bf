package capture

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reel/internal/buffer"
	"reel/internal/config"
	"reel/internal/fileutil"
	"reel/internal/logging"
	"reel/internal/services/streamlink"
)

// StartRequest describes a session start.
type StartRequest struct {
	Source  string
	Quality string
}

// Manager enforces the single active session rule and builds a fresh
// Session per start request.
type Manager struct {
	cfg      *config.Config
	recorder streamlink.Recorder
	logger   *slog.Logger
	hook     EventHook

	mu      sync.Mutex
	current *Session
}

// NewManager constructs a session manager.
func NewManager(cfg *config.Config, recorder streamlink.Recorder, logger *slog.Logger, hook EventHook) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{cfg: cfg, recorder: recorder, logger: logger, hook: hook}
}

// Start launches a buffer session for the requested source. The source is
// normalized first, the configured quality applies unless the request
// overrides it, and a previous finished session is released before the new
// one begins.
func (m *Manager) Start(ctx context.Context, req StartRequest) (Status, error) {
	source, err := streamlink.NormalizeSource(req.Source)
	if err != nil {
		return Status{}, err
	}
	quality := strings.TrimSpace(req.Quality)
	if quality == "" {
		quality = m.cfg.Capture.Quality
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.Running() {
		return Status{}, ErrSessionRunning
	}
	if m.current != nil {
		if err := m.current.Stop(ctx); err != nil {
			return Status{}, fmt.Errorf("release previous session: %w", err)
		}
		m.current = nil
	}

	sessionID := uuid.NewString()
	store := buffer.NewStore(m.cfg.MaxBufferDuration(), m.logger)
	session := NewSession(Config{
		Source:           source,
		Quality:          streamlink.QualityChain(quality),
		SessionID:        sessionID,
		Dir:              filepath.Join(m.cfg.Paths.BufferDir, sessionDirName(source, sessionID)),
		SegmentDuration:  m.cfg.SegmentDuration(),
		CaptureTimeout:   m.cfg.CaptureTimeout(),
		MaxBuffer:        m.cfg.MaxBufferDuration(),
		MinSegmentBytes:  m.cfg.Buffer.MinSegmentBytes,
		FailureThreshold: m.cfg.Capture.FailureThreshold,
		RetryDelay:       time.Duration(m.cfg.Capture.RetryDelaySeconds) * time.Second,
		WatchdogInterval: time.Duration(m.cfg.Watchdog.IntervalSeconds) * time.Second,
		StallThreshold:   time.Duration(m.cfg.Watchdog.StallSeconds) * time.Second,
	}, m.recorder, store, m.logger, m.hook)

	if err := session.Start(ctx); err != nil {
		return Status{}, err
	}
	m.current = session
	return session.Status(), nil
}

// Stop halts the current session and releases its buffer. A session that
// already failed is cleaned up and acknowledged the same way.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	session := m.current
	m.mu.Unlock()
	if session == nil {
		return ErrNoSession
	}
	if err := session.Stop(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	if m.current == session {
		m.current = nil
	}
	m.mu.Unlock()
	return nil
}

// Status reports the current session snapshot.
func (m *Manager) Status() (Status, bool) {
	m.mu.Lock()
	session := m.current
	m.mu.Unlock()
	if session == nil {
		return Status{}, false
	}
	return session.Status(), true
}

// Current returns the session whose buffer is available for extraction.
// A failed session still counts: its segments remain clippable until the
// session is stopped or replaced.
func (m *Manager) Current() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, false
	}
	return m.current, true
}

func sessionDirName(source, sessionID string) string {
	name := fileutil.SafeBaseName(streamlink.ChannelName(source))
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return name + "-" + short
}
