package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"reel/internal/buffer"
	"reel/internal/config"
	"reel/internal/fileutil"
	"reel/internal/logging"
	"reel/internal/media/ffprobe"
	"reel/internal/services"
	"reel/internal/services/ffmpeg"
	"reel/internal/services/streamlink"
)

// Stage identifies the extraction phase reported through Progress.
type Stage string

const (
	StageSelecting  Stage = "selecting"
	StageStitching  Stage = "stitching"
	StageFinalizing Stage = "finalizing"
)

// Progress receives stage transitions and percent updates during extraction.
type Progress func(stage Stage, percent float64)

// Request describes one clip extraction from the rolling buffer.
type Request struct {
	// StartAgo is how far back the clip window begins, measured from now.
	// Zero means "the most recent Duration worth of buffer".
	StartAgo time.Duration
	// Duration is the clip window length; zero uses the configured default.
	Duration time.Duration
	// OutputPath overrides the default clips-directory naming when set.
	OutputPath string
	// Format picks the output container; empty uses the configured default.
	Format string
	// Title feeds default output naming; empty derives it from Source.
	Title string
	// Source labels the clip origin.
	Source string
}

// Result describes a finished extraction.
type Result struct {
	OutputPath string
	Format     string
	Segments   int
	Size       int64
	// Duration is probed from the output file; zero when probing failed.
	Duration time.Duration
}

// Inspector probes finished clips for metadata.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Extractor stitches buffered segments into standalone clips.
type Extractor struct {
	cfg      *config.Config
	stitcher ffmpeg.Stitcher
	prober   Inspector
	logger   *slog.Logger
	clock    func() time.Time
}

// New builds an Extractor. prober may be nil; result metadata is then left zero.
func New(cfg *config.Config, stitcher ffmpeg.Stitcher, prober Inspector, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		cfg:      cfg,
		stitcher: stitcher,
		prober:   prober,
		logger:   logger.With(logging.String(logging.FieldComponent, "extract")),
		clock:    time.Now,
	}
}

// Extract selects the requested window from store, stitches it into one
// output file, and verifies the result. The segment lease is held for the
// whole encode so eviction cannot delete a file mid-read; the manifest is
// removed no matter how the encode ends.
func (e *Extractor) Extract(ctx context.Context, store *buffer.Store, req Request, progress Progress) (*Result, error) {
	if store == nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "extract", "no buffer to extract from", nil)
	}

	duration := req.Duration
	if duration <= 0 {
		duration = time.Duration(e.cfg.Clips.DefaultDurationSeconds) * time.Second
	}
	startAgo := req.StartAgo
	if startAgo <= 0 {
		startAgo = duration
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = e.cfg.Clips.DefaultFormat
	}
	if !config.ValidFormat(format) {
		return nil, services.Wrap(services.ErrValidation, "extract", "extract", fmt.Sprintf("unsupported clip format %q", format), nil)
	}

	report := func(stage Stage, percent float64) {
		if progress != nil {
			progress(stage, percent)
		}
	}
	report(StageSelecting, 0)

	selection, err := store.Select(startAgo, duration)
	if err != nil {
		return nil, err
	}
	defer selection.Release()
	segments := selection.Segments()

	outputPath, err := e.resolveOutputPath(req, format)
	if err != nil {
		return nil, err
	}
	outputDir := filepath.Dir(outputPath)

	manifestPath := filepath.Join(outputDir, fmt.Sprintf(".reel-manifest-%s.txt", shortID()))
	if err := writeManifest(manifestPath, segments); err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(manifestPath); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("manifest not removed", logging.String("path", manifestPath), logging.Error(err))
		}
	}()

	// Stitch into a hidden partial first so a failed encode never leaves a
	// broken file at the final path.
	partialPath := filepath.Join(outputDir, fmt.Sprintf(".reel-partial-%s.%s", shortID(), format))
	report(StageStitching, 0)
	err = e.stitcher.Concat(ctx, ffmpeg.ConcatRequest{
		ManifestPath:   manifestPath,
		OutputPath:     partialPath,
		Format:         format,
		Duration:       duration,
		Timeout:        e.cfg.EncodeTimeout(),
		MinOutputBytes: e.cfg.Clips.MinClipBytes,
	}, func(update ffmpeg.ProgressUpdate) {
		if update.Percent >= 0 {
			report(StageStitching, update.Percent)
		}
	})
	if err != nil {
		_ = os.Remove(partialPath)
		return nil, err
	}

	report(StageFinalizing, 100)
	if err := fileutil.MoveFile(partialPath, outputPath); err != nil {
		_ = os.Remove(partialPath)
		return nil, fmt.Errorf("move clip into place: %w", err)
	}

	result := &Result{OutputPath: outputPath, Format: format, Segments: len(segments)}
	if size, err := fileutil.FileSize(outputPath); err == nil {
		result.Size = size
	}
	if e.prober != nil {
		probed, err := e.prober.Inspect(ctx, outputPath)
		if err != nil {
			e.logger.Warn("clip metadata probe failed", logging.String("clip", outputPath), logging.Error(err))
		} else {
			result.Duration = probed.Duration()
		}
	}

	e.logger.Info("clip extracted",
		logging.String("clip", outputPath),
		logging.Int("segments", len(segments)),
		logging.Int64("bytes", result.Size),
		logging.Duration("window_start_ago", startAgo),
		logging.Duration("window_duration", duration))
	return result, nil
}

func (e *Extractor) resolveOutputPath(req Request, format string) (string, error) {
	if explicit := strings.TrimSpace(req.OutputPath); explicit != "" {
		if err := fileutil.EnsureDir(filepath.Dir(explicit)); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return explicit, nil
	}
	if err := fileutil.EnsureDir(e.cfg.Paths.ClipsDir); err != nil {
		return "", fmt.Errorf("create clips directory: %w", err)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = streamlink.DisplayTitle(req.Source)
	}
	name := fmt.Sprintf("%s_%s.%s", fileutil.SafeBaseName(title), e.clock().Format("20060102-150405"), format)
	return fileutil.UniquePath(filepath.Join(e.cfg.Paths.ClipsDir, name)), nil
}

// writeManifest emits the concat demuxer file list, one segment per line in
// capture order.
func writeManifest(path string, segments []buffer.Segment) error {
	var b strings.Builder
	for _, segment := range segments {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(segment.FilePath, "'", `'\''`))
	}
	if err := fileutil.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}

func shortID() string {
	return uuid.NewString()[:8]
}
