package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"reel/internal/services"
)

// Stitcher concatenates buffered segments into one clip file.
type Stitcher interface {
	Concat(ctx context.Context, req ConcatRequest, progress func(ProgressUpdate)) error
}

// Editor applies trim, caption, and speed adjustments to a finished clip.
type Editor interface {
	Edit(ctx context.Context, req EditRequest, progress func(ProgressUpdate)) error
}

// ConcatRequest describes one stitch invocation over a concat manifest.
type ConcatRequest struct {
	ManifestPath   string
	OutputPath     string
	Format         string
	Duration       time.Duration
	Timeout        time.Duration
	MinOutputBytes int64
}

// EditRequest describes one edit invocation over an existing clip.
type EditRequest struct {
	InputPath      string
	OutputPath     string
	Start          time.Duration
	End            time.Duration
	Caption        string
	Speed          float64
	Timeout        time.Duration
	MinOutputBytes int64
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary string
	exec   services.Executor
}

// New constructs an ffmpeg client. stopGrace bounds how long a cancelled
// encode may linger before a forced kill.
func New(binary string, stopGrace time.Duration, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{binary: binary, exec: services.NewExecutor(stopGrace)}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Concat stitches the manifest's files into one output capped at the
// requested duration, re-encoding when the target container requires it and
// stream-copying otherwise. A nil error guarantees the output exists and
// meets the minimum size. If the encoder never reports a position marker a
// single midpoint update is emitted so progress does not appear frozen.
func (c *Client) Concat(ctx context.Context, req ConcatRequest, progress func(ProgressUpdate)) error {
	if req.ManifestPath == "" || req.OutputPath == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "concat", "manifest and output paths required", nil)
	}
	if req.Duration <= 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "concat", "duration cap must be positive", nil)
	}

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", req.ManifestPath,
		"-t", formatSeconds(req.Duration),
	}
	args = append(args, containerArgs(req.Format)...)
	args = append(args, req.OutputPath)

	sawMarker, tail, timedOut, err := c.run(ctx, args, req.Timeout, func(position time.Duration) {
		if progress != nil {
			progress(ProgressUpdate{Percent: boundedPercent(position, req.Duration), Position: position})
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			// Partial output from a cancelled stitch is not trustworthy.
			_ = os.Remove(req.OutputPath)
			return services.Wrap(services.ErrTimeout, "ffmpeg", "concat", "stitch cancelled", ctx.Err())
		}
		if timedOut {
			_ = os.Remove(req.OutputPath)
			return services.Wrap(services.ErrTimeout, "ffmpeg", "concat",
				fmt.Sprintf("stitch exceeded %s", req.Timeout), err)
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "concat", tail.Excerpt(), err)
	}
	if !sawMarker && progress != nil {
		progress(ProgressUpdate{Percent: 50, Position: 0})
	}

	return verifyOutput("concat", req.OutputPath, req.MinOutputBytes, tail)
}

// Edit re-encodes a clip with optional trim bounds, a caption overlay, and a
// playback speed change.
func (c *Client) Edit(ctx context.Context, req EditRequest, progress func(ProgressUpdate)) error {
	if req.InputPath == "" || req.OutputPath == "" {
		return services.Wrap(services.ErrValidation, "ffmpeg", "edit", "input and output paths required", nil)
	}
	if req.End > 0 && req.End <= req.Start {
		return services.Wrap(services.ErrValidation, "ffmpeg", "edit", "end must be after start", nil)
	}
	if req.Speed < 0 || (req.Speed > 0 && (req.Speed < 0.25 || req.Speed > 4)) {
		return services.Wrap(services.ErrValidation, "ffmpeg", "edit", "speed must be between 0.25 and 4", nil)
	}

	args := []string{"-y", "-i", req.InputPath}
	if req.Start > 0 {
		args = append(args, "-ss", formatSeconds(req.Start))
	}
	if req.End > 0 {
		args = append(args, "-to", formatSeconds(req.End))
	}
	if filter := buildFilter(req.Caption, req.Speed); filter != "" {
		args = append(args, "-vf", filter)
	}
	if req.Speed > 0 && req.Speed != 1 {
		args = append(args, "-af", buildAudioFilter(req.Speed))
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		req.OutputPath,
	)

	_, tail, timedOut, err := c.run(ctx, args, req.Timeout, func(position time.Duration) {
		if progress != nil {
			progress(ProgressUpdate{Percent: -1, Position: position})
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			_ = os.Remove(req.OutputPath)
			return services.Wrap(services.ErrTimeout, "ffmpeg", "edit", "edit cancelled", ctx.Err())
		}
		if timedOut {
			_ = os.Remove(req.OutputPath)
			return services.Wrap(services.ErrTimeout, "ffmpeg", "edit",
				fmt.Sprintf("edit exceeded %s", req.Timeout), err)
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "edit", tail.Excerpt(), err)
	}

	return verifyOutput("edit", req.OutputPath, req.MinOutputBytes, tail)
}

// run executes ffmpeg with an optional deadline. timedOut reports that the
// deadline ended the invocation while the caller's context was still live.
func (c *Client) run(ctx context.Context, args []string, timeout time.Duration, onPosition func(time.Duration)) (sawMarker bool, tail *services.TailBuffer, timedOut bool, err error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var mu sync.Mutex
	tail = services.NewTailBuffer(16)
	err = c.exec.Run(runCtx, c.binary, args, func(line string) {
		mu.Lock()
		tail.Append(line)
		position, ok := parsePosition(line)
		if ok {
			sawMarker = true
		}
		mu.Unlock()
		if ok {
			onPosition(position)
		}
	})

	timedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	mu.Lock()
	defer mu.Unlock()
	return sawMarker, tail, timedOut, err
}

func verifyOutput(operation, path string, minBytes int64, tail *services.TailBuffer) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation,
			fmt.Sprintf("no output produced: %s", tail.Excerpt()), err)
	}
	if minBytes > 0 && info.Size() < minBytes {
		_ = os.Remove(path)
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation,
			fmt.Sprintf("output too small (%d bytes), encode likely failed: %s", info.Size(), tail.Excerpt()), nil)
	}
	return nil
}

// containerArgs picks codec parameters per target container: mp4 re-encodes
// for broad player compatibility, everything else stream-copies.
func containerArgs(format string) []string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "mp4":
		return []string{
			"-c:v", "libx264",
			"-preset", "fast",
			"-crf", "23",
			"-c:a", "aac",
			"-b:a", "128k",
			"-movflags", "+faststart",
		}
	default:
		return []string{"-c", "copy"}
	}
}

func buildFilter(caption string, speed float64) string {
	var filters []string
	if caption = strings.TrimSpace(caption); caption != "" {
		filters = append(filters, fmt.Sprintf(
			"drawtext=text='%s':x=(w-text_w)/2:y=h-50:fontsize=24:fontcolor=white:box=1:boxcolor=black@0.5",
			escapeDrawtext(caption)))
	}
	if speed > 0 && speed != 1 {
		filters = append(filters, fmt.Sprintf("setpts=%g*PTS", 1/speed))
	}
	return strings.Join(filters, ",")
}

// buildAudioFilter chains atempo stages so audio tracks the video speed
// change; a single atempo stage only accepts factors in [0.5, 2].
func buildAudioFilter(speed float64) string {
	var stages []string
	for speed > 2 {
		stages = append(stages, "atempo=2")
		speed /= 2
	}
	for speed < 0.5 {
		stages = append(stages, "atempo=0.5")
		speed /= 0.5
	}
	stages = append(stages, fmt.Sprintf("atempo=%g", speed))
	return strings.Join(stages, ",")
}

// escapeDrawtext neutralizes characters with meaning inside a drawtext value.
func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.2f", d.Seconds())
}
