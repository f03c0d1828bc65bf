package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reel/internal/capture"
	"reel/internal/clips"
	"reel/internal/config"
	"reel/internal/extract"
	"reel/internal/logging"
	"reel/internal/notifications"
	"reel/internal/services"
)

// CreateClipRequest describes one clip job submitted over IPC or HTTP.
// Zero values fall back to the configured defaults.
type CreateClipRequest struct {
	StartAgo   time.Duration
	Duration   time.Duration
	Format     string
	Title      string
	OutputPath string
}

// CreateClip validates the request against the active session, persists a
// pending job, and starts extraction on a background worker. The returned
// row can be polled immediately by id or request id.
func (d *Daemon) CreateClip(ctx context.Context, req CreateClipRequest) (*clips.Clip, error) {
	runCtx, err := d.runContext()
	if err != nil {
		return nil, err
	}
	session, ok := d.manager.Current()
	if !ok {
		return nil, capture.ErrNoSession
	}

	duration := req.Duration
	if duration <= 0 {
		duration = time.Duration(d.cfg.Clips.DefaultDurationSeconds) * time.Second
	}
	startAgo := req.StartAgo
	if startAgo <= 0 {
		startAgo = duration
	}
	if startAgo < duration {
		// The window cannot extend past the present; shrink it to end now.
		duration = startAgo
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = d.cfg.Clips.DefaultFormat
	}
	if !config.ValidFormat(format) {
		return nil, services.Wrap(services.ErrValidation, "daemon", "create-clip",
			fmt.Sprintf("unsupported clip format %q", format), nil)
	}

	row, err := d.store.Create(ctx, clips.NewClip{
		RequestID:  uuid.NewString(),
		Source:     session.Source(),
		SessionID:  session.ID(),
		Title:      strings.TrimSpace(req.Title),
		StartAgo:   startAgo,
		Duration:   duration,
		Format:     format,
		OutputPath: strings.TrimSpace(req.OutputPath),
	})
	if err != nil {
		return nil, err
	}

	d.extractions.Add(1)
	go d.runExtraction(runCtx, session, row)

	d.logger.Info("clip job queued",
		logging.Int64(logging.FieldClipID, row.ID),
		logging.String(logging.FieldSource, row.Source),
		logging.Duration("start_ago", startAgo),
		logging.Duration("duration", duration))
	return row, nil
}

// ClipStatus fetches one clip job by numeric id or by request id.
func (d *Daemon) ClipStatus(ctx context.Context, id int64, requestID string) (*clips.Clip, error) {
	if id > 0 {
		return d.store.GetByID(ctx, id)
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return nil, errors.New("clip id or request id required")
	}
	return d.store.GetByRequestID(ctx, requestID)
}

// ListClips returns clip jobs newest first, optionally filtered by status.
func (d *Daemon) ListClips(ctx context.Context, limit int, statuses ...clips.Status) ([]*clips.Clip, error) {
	return d.store.List(ctx, limit, statuses...)
}

// RemoveClip deletes one finished job row. The output file is left alone.
func (d *Daemon) RemoveClip(ctx context.Context, id int64) (bool, error) {
	return d.store.Remove(ctx, id)
}

func (d *Daemon) runExtraction(ctx context.Context, session *capture.Session, row *clips.Clip) {
	defer d.extractions.Done()

	log := d.logger.With(
		logging.Int64(logging.FieldClipID, row.ID),
		logging.String(logging.FieldSource, row.Source),
		logging.String(logging.FieldSessionID, session.ID()))

	if err := d.store.MarkExtracting(ctx, row.ID); err != nil {
		log.Error("failed to mark clip extracting", logging.Error(err))
	}

	result, err := d.extractor.Extract(ctx, session.Store(), extract.Request{
		StartAgo:   row.StartAgo,
		Duration:   row.Duration,
		OutputPath: row.OutputPath,
		Format:     row.Format,
		Title:      row.Title,
		Source:     row.Source,
	}, d.progressRecorder(row.ID))

	// Terminal writes must land even when ctx was canceled by shutdown.
	finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err != nil {
		if markErr := d.store.MarkFailed(finishCtx, row.ID, err.Error()); markErr != nil {
			log.Error("failed to mark clip failed", logging.Error(markErr))
		}
		logging.ErrorWithContext(log, "clip extraction failed", "clip_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check buffer coverage and ffmpeg availability"),
			logging.String(logging.FieldImpact, "requested clip was not produced"))
		d.publish(notifications.EventClipFailed, notifications.Payload{
			"source": row.Source,
			"reason": err.Error(),
		})
		return
	}

	if markErr := d.store.MarkCompleted(finishCtx, row.ID, clips.CompletionInfo{
		OutputPath:     result.OutputPath,
		SizeBytes:      result.Size,
		ActualDuration: result.Duration,
		SegmentCount:   result.Segments,
	}); markErr != nil {
		log.Error("failed to mark clip completed", logging.Error(markErr))
	}
	log.Info("clip completed",
		logging.String("output", result.OutputPath),
		logging.Int("segments", result.Segments),
		logging.Int64("size_bytes", result.Size))
	d.publish(notifications.EventClipCompleted, notifications.Payload{
		"source": row.Source,
		"file":   filepath.Base(result.OutputPath),
	})

	if keep := d.cfg.Clips.HistoryLimit; keep > 0 {
		if _, pruneErr := d.store.PruneHistory(finishCtx, keep); pruneErr != nil {
			log.Warn("failed to prune clip history", logging.Error(pruneErr))
		}
	}
}

// progressRecorder persists stage changes and percent jumps of at least
// five points, keeping the write rate well below the encoder report rate.
func (d *Daemon) progressRecorder(id int64) extract.Progress {
	var mu sync.Mutex
	lastStage := extract.Stage("")
	lastPercent := -1.0
	return func(stage extract.Stage, percent float64) {
		mu.Lock()
		record := stage != lastStage ||
			percent-lastPercent >= 5 ||
			(percent >= 100 && lastPercent < 100)
		if record {
			lastStage = stage
			lastPercent = percent
		}
		mu.Unlock()
		if !record {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := d.store.SetProgress(ctx, id, string(stage), percent); err != nil {
			d.logger.Debug("failed to persist clip progress",
				logging.Int64(logging.FieldClipID, id),
				logging.Error(err))
		}
	}
}
