package streamlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"reel/internal/services"
)

// Recorder captures one fixed-length segment of a live source to disk.
type Recorder interface {
	Record(ctx context.Context, req RecordRequest) (int64, error)
}

// Prober answers whether a source is currently live without capturing.
type Prober interface {
	Probe(ctx context.Context, source string) (Probe, error)
}

// RecordRequest describes one segment capture invocation.
type RecordRequest struct {
	Source     string
	Quality    string
	Duration   time.Duration
	OutputPath string
	MinBytes   int64
	// Timeout bounds the whole invocation. Zero falls back to twice Duration.
	Timeout time.Duration
}

// Probe is the result of a liveness query.
type Probe struct {
	Live      bool
	Qualities []string
	Title     string
}

// Option configures the client.
type Option func(*Client)

// WithRunner injects a custom command runner (primarily for tests).
func WithRunner(runner services.CommandRunner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// Client wraps streamlink CLI interactions.
type Client struct {
	binary       string
	probeTimeout time.Duration
	runner       services.CommandRunner
}

// New constructs a streamlink client. stopGrace bounds how long a terminated
// capture may linger before a forced kill.
func New(binary string, probeTimeoutSeconds int, stopGrace time.Duration, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("streamlink binary required")
	}
	client := &Client{
		binary:       binary,
		probeTimeout: time.Duration(probeTimeoutSeconds) * time.Second,
		runner:       services.NewExecutor(stopGrace),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Record captures one segment. It first asks the tool to limit the capture
// duration itself; builds that reject the duration flag are retried with a
// plain capture that is terminated after the segment length. A nil error
// guarantees the output file exists and meets the minimum size.
func (c *Client) Record(ctx context.Context, req RecordRequest) (int64, error) {
	if strings.TrimSpace(req.Source) == "" {
		return 0, services.Wrap(services.ErrValidation, "streamlink", "record", "source required", nil)
	}
	if req.Duration <= 0 {
		return 0, services.Wrap(services.ErrValidation, "streamlink", "record", "segment duration must be positive", nil)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 2 * req.Duration
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var mu sync.Mutex
	tail := services.NewTailBuffer(16)
	incompatible := false
	onLine := func(line string) {
		mu.Lock()
		tail.Append(line)
		if strings.Contains(line, "unrecognized arguments") {
			incompatible = true
		}
		mu.Unlock()
	}

	args := c.recordArgs(req)
	args = append(args, "--hls-duration", strconv.Itoa(int(req.Duration/time.Second)))
	err := c.runner.Run(runCtx, c.binary, args, onLine)
	if err == nil {
		return c.verifyOutput(req, tail, nil)
	}

	mu.Lock()
	fallback := incompatible
	mu.Unlock()
	if fallback {
		return c.recordByTermination(ctx, req)
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return 0, services.Wrap(services.ErrTimeout, "streamlink", "record",
			fmt.Sprintf("capture exceeded %s", timeout), err)
	}
	return 0, services.Wrap(services.ErrExternalTool, "streamlink", "record", tail.Excerpt(), err)
}

// recordByTermination starts an unbounded capture and relies on the runner's
// terminate-then-kill cancellation to end it after the segment length.
func (c *Client) recordByTermination(ctx context.Context, req RecordRequest) (int64, error) {
	runCtx, cancel := context.WithTimeout(ctx, req.Duration)
	defer cancel()

	var mu sync.Mutex
	tail := services.NewTailBuffer(16)
	onLine := func(line string) {
		mu.Lock()
		tail.Append(line)
		mu.Unlock()
	}

	err := c.runner.Run(runCtx, c.binary, c.recordArgs(req), onLine)
	if ctx.Err() != nil {
		return 0, services.Wrap(services.ErrTimeout, "streamlink", "record", "capture cancelled", ctx.Err())
	}
	// The deadline is how this invocation ends; judge success by the file.
	return c.verifyOutput(req, tail, err)
}

func (c *Client) recordArgs(req RecordRequest) []string {
	return []string{req.Source, req.Quality, "-o", req.OutputPath, "--force"}
}

func (c *Client) verifyOutput(req RecordRequest, tail *services.TailBuffer, runErr error) (int64, error) {
	info, err := os.Stat(req.OutputPath)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "streamlink", "record",
			fmt.Sprintf("no segment produced: %s", tail.Excerpt()), runErr)
	}
	if info.Size() < req.MinBytes {
		return 0, services.Wrap(services.ErrExternalTool, "streamlink", "record",
			fmt.Sprintf("segment too small (%d bytes): %s", info.Size(), tail.Excerpt()), runErr)
	}
	return info.Size(), nil
}

// Probe runs a short liveness query against the source. A definitive offline
// answer returns Live=false with a nil error; tool failures return an error
// so callers can skip the cycle without flipping the known state.
func (c *Client) Probe(ctx context.Context, source string) (Probe, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Probe{}, services.Wrap(services.ErrValidation, "streamlink", "probe", "source required", nil)
	}

	timeout := c.probeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	jsonCtx, cancel := context.WithTimeout(ctx, timeout)
	stdout, stderr, err := c.runner.RunOutput(jsonCtx, c.binary, []string{source, "--json"})
	cancel()
	if err == nil {
		if probe, ok := parseProbeJSON(stdout); ok {
			return probe, nil
		}
	}
	if offlineIndicated(stderr) {
		return Probe{}, nil
	}

	urlCtx, cancel := context.WithTimeout(ctx, timeout)
	stdout, stderr, urlErr := c.runner.RunOutput(urlCtx, c.binary, []string{source, "best", "--stream-url"})
	cancel()
	if urlErr == nil && strings.Contains(stdout, "http") {
		return Probe{Live: true, Qualities: []string{"best"}}, nil
	}
	if offlineIndicated(stderr) {
		return Probe{}, nil
	}

	if ctx.Err() != nil {
		return Probe{}, services.Wrap(services.ErrTimeout, "streamlink", "probe", "probe cancelled", ctx.Err())
	}
	combined := err
	if combined == nil {
		combined = urlErr
	}
	return Probe{}, services.Wrap(services.ErrExternalTool, "streamlink", "probe", services.Excerpt(stderr), combined)
}

func parseProbeJSON(stdout string) (Probe, bool) {
	var payload struct {
		Streams map[string]json.RawMessage `json:"streams"`
		Title   string                     `json:"title"`
	}
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		return Probe{}, false
	}
	probe := Probe{Live: len(payload.Streams) > 0, Title: strings.TrimSpace(payload.Title)}
	if len(payload.Streams) > 0 {
		probe.Qualities = make([]string, 0, len(payload.Streams))
		for name := range payload.Streams {
			probe.Qualities = append(probe.Qualities, name)
		}
		sort.Strings(probe.Qualities)
	}
	return probe, true
}

func offlineIndicated(stderr string) bool {
	return strings.Contains(stderr, "No playable streams found")
}
