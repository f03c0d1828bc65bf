// Package daemonrun wires configuration, storage, tool clients, and the IPC
// server into a running daemon process.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"reel/internal/clips"
	"reel/internal/config"
	"reel/internal/daemon"
	"reel/internal/ipc"
	"reel/internal/logging"
	"reel/internal/media/ffprobe"
	"reel/internal/notifications"
	"reel/internal/preflight"
	"reel/internal/services/ffmpeg"
	"reel/internal/services/streamlink"
	"reel/internal/staging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the reel daemon runtime loop. It blocks until the context is
// cancelled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("reel-%s.log", runID))
	logHub := logging.NewStreamHub(cfg.Logging.StreamCapacity)

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
		Stream:           logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(signalCtx, logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update reel.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "reel-*.log", Exclude: []string{logPath}},
	)

	if err := writePIDFile(cfg.Paths.PIDPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(cfg.Paths.PIDPath)

	retention := time.Duration(cfg.Buffer.SessionRetentionHours) * time.Hour
	if result := staging.CleanStale(signalCtx, cfg.Paths.BufferDir, retention, logger); len(result.Removed) > 0 {
		logger.Info("removed stale session directories",
			logging.Int("removed", len(result.Removed)),
			logging.String(logging.FieldEventType, "stale_sessions_removed"),
		)
	}

	store, err := clips.Open(cfg)
	if err != nil {
		logger.Error("open clip store", logging.Error(err))
		return err
	}
	defer store.Close()
	if reclaimed, reclaimErr := store.FailInterrupted(signalCtx); reclaimErr != nil {
		logger.Warn("reclaim interrupted clips", logging.Error(reclaimErr))
	} else if reclaimed > 0 {
		logger.Info("marked interrupted clips as failed", logging.Int64("count", reclaimed))
	}

	recorder, err := streamlink.New(cfg.CaptureBinary(), cfg.Monitor.ProbeTimeoutSeconds, cfg.StopGrace())
	if err != nil {
		return fmt.Errorf("init capture client: %w", err)
	}
	stitcher, err := ffmpeg.New(cfg.EncodeBinary(), cfg.StopGrace())
	if err != nil {
		return fmt.Errorf("init encode client: %w", err)
	}
	inspector, err := ffprobe.New(cfg.FFprobeBinary(), cfg.StopGrace())
	if err != nil {
		return fmt.Errorf("init media inspector: %w", err)
	}

	notifier := notifications.NewService(cfg)
	d, err := daemon.New(cfg, store, daemon.Tools{
		Recorder:  recorder,
		Prober:    recorder,
		Stitcher:  stitcher,
		Inspector: inspector,
	}, notifier, logger, logPath, logHub)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	d.OnShutdownRequest(cancel)

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and database access"),
			logging.String(logging.FieldImpact, "capture sessions may be unavailable"),
		)
	}

	<-signalCtx.Done()
	logger.Info("reel daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "reel.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range preflight.CheckSystemDeps(ctx, cfg) {
		attrs = append(attrs,
			logging.Bool(status.Name+"_available", status.Available),
			logging.String(status.Name+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
