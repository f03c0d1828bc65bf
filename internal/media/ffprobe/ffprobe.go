package ffprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"reel/internal/services"
)

// Inspector runs ffprobe against clips and segments.
type Inspector struct {
	binary string
	runner services.OutputExecutor
}

// Option adjusts how the Inspector invokes ffprobe.
type Option func(*Inspector)

// WithRunner substitutes the subprocess runner.
func WithRunner(runner services.OutputExecutor) Option {
	return func(i *Inspector) {
		if runner != nil {
			i.runner = runner
		}
	}
}

// New builds an Inspector for the given ffprobe binary.
func New(binary string, stopGrace time.Duration, opts ...Option) (*Inspector, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ffprobe", "new", "binary path required", nil)
	}
	inspector := &Inspector{
		binary: binary,
		runner: services.NewExecutor(stopGrace),
	}
	for _, opt := range opts {
		opt(inspector)
	}
	return inspector, nil
}

// Inspect executes ffprobe against the provided path and decodes the JSON report.
func (i *Inspector) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, "ffprobe", "inspect", "path required", nil)
	}

	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	stdout, stderr, err := i.runner.RunOutput(ctx, i.binary, args)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, services.Wrap(services.ErrTimeout, "ffprobe", "inspect", "inspection cancelled", ctx.Err())
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect", services.Excerpt(stderr), err)
	}

	var result Result
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect", "malformed probe payload", err)
	}
	return result, nil
}

// Result is the decoded ffprobe report.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Duration returns the container duration, or 0 when ffprobe did not report one.
func (r Result) Duration() time.Duration {
	seconds := parseFloat(r.Format.Duration)
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// HasVideo reports whether the container carries at least one video stream.
func (r Result) HasVideo() bool {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return true
		}
	}
	return false
}

// Resolution returns the first video stream's dimensions as "WxH", or "".
func (r Result) Resolution() string {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") && stream.Width > 0 && stream.Height > 0 {
			return fmt.Sprintf("%dx%d", stream.Width, stream.Height)
		}
	}
	return ""
}

// VideoCodec returns the codec name of the first video stream, or "".
func (r Result) VideoCodec() string {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream.CodecName
		}
	}
	return ""
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
