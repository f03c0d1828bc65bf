package editing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"reel/internal/config"
	"reel/internal/fileutil"
	"reel/internal/logging"
	"reel/internal/media/ffprobe"
	"reel/internal/services"
	"reel/internal/services/ffmpeg"
)

// Request describes one edit pass over a finished clip.
type Request struct {
	InputPath string
	// OutputPath overrides the default "<input>_edited.<ext>" sibling.
	OutputPath string
	// Start and End trim the clip when set.
	Start time.Duration
	End   time.Duration
	// Caption overlays centered text at the bottom of the frame.
	Caption string
	// Speed is the playback rate multiplier; zero keeps the original rate.
	Speed float64
}

// Result describes a finished edit.
type Result struct {
	OutputPath string
	Size       int64
	// Duration is probed from the output file; zero when probing failed.
	Duration time.Duration
}

// Inspector probes clips for metadata.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Editor re-encodes finished clips with trim, caption, and speed changes.
type Editor struct {
	cfg    *config.Config
	tool   ffmpeg.Editor
	prober Inspector
	logger *slog.Logger
}

// New builds an Editor. prober may be nil; progress is then indeterminate
// and result metadata is left zero.
func New(cfg *config.Config, tool ffmpeg.Editor, prober Inspector, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Editor{
		cfg:    cfg,
		tool:   tool,
		prober: prober,
		logger: logger.With(logging.String(logging.FieldComponent, "editing")),
	}
}

// Apply runs the edit and returns the output clip. progress receives a
// completion percentage, or -1 while the output length is unknown.
func (e *Editor) Apply(ctx context.Context, req Request, progress func(percent float64)) (*Result, error) {
	input := strings.TrimSpace(req.InputPath)
	if input == "" {
		return nil, services.Wrap(services.ErrValidation, "editing", "apply", "input clip required", nil)
	}
	if _, err := os.Stat(input); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "editing", "apply", fmt.Sprintf("input clip %s", input), err)
	}

	outputPath, err := resolveOutputPath(input, req.OutputPath)
	if err != nil {
		return nil, err
	}

	// The output length drives the percent estimate: trimmed span divided
	// by the speed factor. Without a probed input duration the estimate
	// stays indeterminate.
	var expectedOutput time.Duration
	if e.prober != nil {
		probed, err := e.prober.Inspect(ctx, input)
		if err != nil {
			e.logger.Warn("input probe failed", logging.String("clip", input), logging.Error(err))
		} else {
			expectedOutput = expectedOutputDuration(probed.Duration(), req.Start, req.End, req.Speed)
		}
	}

	partialPath := filepath.Join(filepath.Dir(outputPath), fmt.Sprintf(".reel-edit-%s%s", uuid.NewString()[:8], filepath.Ext(outputPath)))
	err = e.tool.Edit(ctx, ffmpeg.EditRequest{
		InputPath:      input,
		OutputPath:     partialPath,
		Start:          req.Start,
		End:            req.End,
		Caption:        req.Caption,
		Speed:          req.Speed,
		Timeout:        e.cfg.EncodeTimeout(),
		MinOutputBytes: e.cfg.Clips.MinClipBytes,
	}, func(update ffmpeg.ProgressUpdate) {
		if progress == nil {
			return
		}
		if expectedOutput <= 0 {
			progress(-1)
			return
		}
		percent := float64(update.Position) / float64(expectedOutput) * 100
		if percent > 100 {
			percent = 100
		}
		progress(percent)
	})
	if err != nil {
		_ = os.Remove(partialPath)
		return nil, err
	}

	if err := fileutil.MoveFile(partialPath, outputPath); err != nil {
		_ = os.Remove(partialPath)
		return nil, fmt.Errorf("move edited clip into place: %w", err)
	}

	result := &Result{OutputPath: outputPath}
	if size, err := fileutil.FileSize(outputPath); err == nil {
		result.Size = size
	}
	if e.prober != nil {
		probed, err := e.prober.Inspect(ctx, outputPath)
		if err != nil {
			e.logger.Warn("output probe failed", logging.String("clip", outputPath), logging.Error(err))
		} else {
			result.Duration = probed.Duration()
		}
	}

	e.logger.Info("clip edited",
		logging.String("input", input),
		logging.String("output", outputPath),
		logging.Int64("bytes", result.Size))
	return result, nil
}

func resolveOutputPath(input, explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if err := fileutil.EnsureDir(filepath.Dir(explicit)); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return explicit, nil
	}
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(filepath.Base(input), ext)
	return fileutil.UniquePath(filepath.Join(filepath.Dir(input), base+"_edited"+ext)), nil
}

func expectedOutputDuration(input time.Duration, start, end time.Duration, speed float64) time.Duration {
	if input <= 0 {
		return 0
	}
	span := input
	switch {
	case end > 0 && end > start:
		span = end - start
	case start > 0 && start < input:
		span = input - start
	}
	if speed > 0 && speed != 1 {
		span = time.Duration(float64(span) / speed)
	}
	return span
}
