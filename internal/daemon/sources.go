package daemon

import (
	"context"
	"errors"
	"strings"

	"reel/internal/capture"
	"reel/internal/logging"
	"reel/internal/monitor"
	"reel/internal/notifications"
	"reel/internal/services/streamlink"
)

// ErrMonitorUnavailable is returned by source operations when the daemon
// was built without a probe tool.
var ErrMonitorUnavailable = errors.New("liveness monitor unavailable")

// ListSources returns the current state of every monitored source.
func (d *Daemon) ListSources() ([]monitor.SourceState, error) {
	if d.prober == nil {
		return nil, ErrMonitorUnavailable
	}
	return d.prober.Snapshot(), nil
}

// AddSource registers a source with the liveness monitor and returns the
// normalized name it is tracked under.
func (d *Daemon) AddSource(source string) (string, error) {
	if d.prober == nil {
		return "", ErrMonitorUnavailable
	}
	return d.prober.AddSource(source)
}

// RemoveSource drops a source from the liveness monitor.
func (d *Daemon) RemoveSource(source string) error {
	if d.prober == nil {
		return ErrMonitorUnavailable
	}
	return d.prober.RemoveSource(source)
}

// ProbeSource runs a one-off liveness query outside the monitor loop. The
// source does not need to be on the monitored list.
func (d *Daemon) ProbeSource(ctx context.Context, source string) (streamlink.Probe, error) {
	if d.probe == nil {
		return streamlink.Probe{}, ErrMonitorUnavailable
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return streamlink.Probe{}, errors.New("source required")
	}
	probeCtx, cancel := context.WithTimeout(ctx, d.cfg.ProbeTimeout())
	defer cancel()
	return d.probe.Probe(probeCtx, source)
}

// handleMonitorEvent runs on the prober goroutine and must not block, so
// autostart happens on its own goroutine.
func (d *Daemon) handleMonitorEvent(ev monitor.Event) {
	switch ev.Type {
	case monitor.EventWentLive:
		d.publish(notifications.EventSourceLive, notifications.Payload{
			"source": ev.Source,
			"title":  ev.Title,
		})
		if d.cfg.Monitor.Autostart {
			go d.autostartCapture(ev.Source)
		}
	case monitor.EventWentOffline:
		d.publish(notifications.EventSourceOffline, notifications.Payload{
			"source": ev.Source,
		})
	}
}

func (d *Daemon) autostartCapture(source string) {
	status, err := d.StartSession(source, "")
	if err != nil {
		if errors.Is(err, capture.ErrSessionRunning) {
			return
		}
		d.logger.Warn("autostart capture failed",
			logging.String(logging.FieldSource, source),
			logging.Error(err))
		return
	}
	d.logger.Info("autostarted capture for live source",
		logging.String(logging.FieldSource, source),
		logging.String(logging.FieldSessionID, status.SessionID))
}
