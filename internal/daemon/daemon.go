package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"reel/internal/buffer"
	"reel/internal/capture"
	"reel/internal/clips"
	"reel/internal/config"
	"reel/internal/deps"
	"reel/internal/extract"
	"reel/internal/logging"
	"reel/internal/monitor"
	"reel/internal/notifications"
	"reel/internal/preflight"
	"reel/internal/services/ffmpeg"
	"reel/internal/services/streamlink"
)

// Tools bundles the external tool clients the daemon drives. Recorder
// and Stitcher are required; Prober enables the liveness monitor and
// Inspector enriches finished clips with probed metadata.
type Tools struct {
	Recorder  streamlink.Recorder
	Prober    streamlink.Prober
	Stitcher  ffmpeg.Stitcher
	Inspector extract.Inspector
}

// Daemon coordinates capture, monitoring, and clip extraction and
// enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *clips.Store
	notifier notifications.Service
	logPath  string
	hub      *logging.StreamHub

	manager   *capture.Manager
	prober    *monitor.Prober
	probe     streamlink.Prober
	extractor *extract.Extractor
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	mu         sync.Mutex
	startedAt  time.Time
	onShutdown func()
	runCtx     context.Context

	extractions sync.WaitGroup

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	Version      string
	Session      *capture.Status
	Sources      []monitor.SourceState
	ClipCounts   map[clips.Status]int
	Dependencies []deps.Status
	DatabasePath string
	SocketPath   string
	LockFilePath string
	LogPath      string
}

// New constructs a daemon with initialized dependencies. notifier may be
// nil; a service is then built from the config.
func New(cfg *config.Config, store *clips.Store, tools Tools, notifier notifications.Service, logger *slog.Logger, logPath string, hub *logging.StreamHub) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}
	if tools.Recorder == nil || tools.Stitcher == nil {
		return nil, errors.New("daemon requires capture and encode tool clients")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		notifier: notifier,
		logPath:  logPath,
		hub:      hub,
		lockPath: cfg.Paths.LockPath,
		lock:     flock.New(cfg.Paths.LockPath),
	}
	d.manager = capture.NewManager(cfg, tools.Recorder, logger, d.handleSessionEvent)
	d.extractor = extract.New(cfg, tools.Stitcher, tools.Inspector, logger)
	if tools.Prober != nil {
		d.probe = tools.Prober
		d.prober = monitor.New(cfg, tools.Prober, logger, d.handleMonitorEvent)
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock, runs preflight checks, and launches
// the HTTP API and the liveness monitor. Capture sessions start on
// demand afterwards.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reel daemon instance is already running")
	}

	for _, check := range preflight.RunAll(ctx, d.cfg) {
		if check.Passed {
			continue
		}
		if preflight.Fatal(check) {
			_ = d.lock.Unlock()
			return fmt.Errorf("preflight %s: %s", check.Name, check.Detail)
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail))
	}

	runCtx, cancel := context.WithCancel(ctx)

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			cancel()
			_ = d.lock.Unlock()
			return err
		}
	}
	if d.prober != nil && d.cfg.Monitor.Enabled {
		if err := d.prober.Start(runCtx); err != nil {
			d.api.stop()
			cancel()
			_ = d.lock.Unlock()
			return fmt.Errorf("start monitor: %w", err)
		}
	}

	d.mu.Lock()
	d.runCtx = runCtx
	d.startedAt = time.Now()
	d.mu.Unlock()
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("reel daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the monitor, the active capture session, and in-flight
// extractions, then releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.api != nil {
		d.api.stop()
	}
	if d.prober != nil {
		d.prober.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	// The run context is already canceled, but the recorder still gets
	// its stop grace, so session teardown runs on a fresh context.
	if err := d.manager.Stop(context.Background()); err != nil && !errors.Is(err, capture.ErrNoSession) {
		d.logger.Warn("failed to stop capture session", logging.Error(err))
	}
	d.extractions.Wait()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.mu.Lock()
	d.runCtx = nil
	d.mu.Unlock()
	d.running.Store(false)
	d.logger.Info("reel daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// runContext returns the daemon-lifetime context for work that must
// outlive a single RPC call.
func (d *Daemon) runContext() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.runCtx == nil {
		return nil, errors.New("daemon not running")
	}
	return d.runCtx, nil
}

// StartSession launches a capture session for the requested source. The
// session runs on the daemon context, not the caller's.
func (d *Daemon) StartSession(source, quality string) (capture.Status, error) {
	ctx, err := d.runContext()
	if err != nil {
		return capture.Status{}, err
	}
	return d.manager.Start(ctx, capture.StartRequest{Source: source, Quality: quality})
}

// StopSession halts the active capture session and releases its buffer.
func (d *Daemon) StopSession(ctx context.Context) error {
	return d.manager.Stop(ctx)
}

// SessionStatus reports the current capture session snapshot.
func (d *Daemon) SessionStatus() (capture.Status, bool) {
	return d.manager.Status()
}

// BufferStatus reports the rolling window of the current session.
func (d *Daemon) BufferStatus() (buffer.Status, bool) {
	session, ok := d.manager.Current()
	if !ok {
		return buffer.Status{}, false
	}
	return session.Store().Status(), true
}

// DatabaseHealth returns clip store diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (clips.DatabaseHealth, error) {
	if d.store == nil {
		return clips.DatabaseHealth{}, errors.New("clip store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification sends a test event through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// OnShutdownRequest registers the callback invoked when a client asks
// the daemon process to exit. The composition root uses it to cancel
// the run context.
func (d *Daemon) OnShutdownRequest(fn func()) {
	d.mu.Lock()
	d.onShutdown = fn
	d.mu.Unlock()
}

// RequestShutdown asks the daemon process to exit. Returns false when no
// shutdown callback is registered.
func (d *Daemon) RequestShutdown() bool {
	d.mu.Lock()
	fn := d.onShutdown
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// LogStream returns the in-memory log hub, if streaming is enabled.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.hub
}

// Status returns the current daemon status. Dependency availability is
// probed fresh on every call so a tool installed after startup shows up
// without a restart.
func (d *Daemon) Status(ctx context.Context) Status {
	st := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Version:      buildVersion(),
		DatabasePath: d.store.Path(),
		SocketPath:   d.cfg.Paths.SocketPath,
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
	d.mu.Lock()
	st.StartedAt = d.startedAt
	d.mu.Unlock()

	if session, ok := d.manager.Status(); ok {
		st.Session = &session
	}
	if d.prober != nil {
		st.Sources = d.prober.Snapshot()
	}
	if counts, err := d.store.Stats(ctx); err == nil {
		st.ClipCounts = counts
	} else {
		d.logger.Warn("clip stats unavailable", logging.Error(err))
	}
	st.Dependencies = preflight.CheckSystemDeps(ctx, d.cfg)
	return st
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "unknown"
	}
	return info.Main.Version
}

// handleSessionEvent translates capture lifecycle events into
// notifications. Hooks run on session goroutines, so delivery is
// detached.
func (d *Daemon) handleSessionEvent(ev capture.Event) {
	switch ev.Type {
	case capture.EventSessionStarted:
		d.publish(notifications.EventCaptureStarted, notifications.Payload{"source": ev.Source})
	case capture.EventSessionStopped:
		d.publish(notifications.EventCaptureStopped, notifications.Payload{"source": ev.Source})
	case capture.EventSessionFailed:
		reason := ev.Reason
		if reason == "" && ev.Err != nil {
			reason = ev.Err.Error()
		}
		d.publish(notifications.EventCaptureFailed, notifications.Payload{
			"source": ev.Source,
			"reason": reason,
		})
	}
}

func (d *Daemon) publish(event notifications.Event, payload notifications.Payload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := d.notifier.Publish(ctx, event, payload); err != nil {
			d.logger.Warn("notification failed",
				logging.String("event", string(event)),
				logging.Error(err))
		}
	}()
}
