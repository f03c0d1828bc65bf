package streamlink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reel/internal/services"
)

type runCall struct {
	binary string
	args   []string
}

type fakeRunner struct {
	calls      []runCall
	deadlines  []time.Time
	runFunc    func(call int, args []string, onLine func(string)) error
	outputFunc func(call int, args []string) (string, string, error)
}

func (f *fakeRunner) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	f.calls = append(f.calls, runCall{binary: binary, args: args})
	if deadline, ok := ctx.Deadline(); ok {
		f.deadlines = append(f.deadlines, deadline)
	}
	if f.runFunc == nil {
		return nil
	}
	return f.runFunc(len(f.calls), args, onLine)
}

func (f *fakeRunner) RunOutput(ctx context.Context, binary string, args []string) (string, string, error) {
	f.calls = append(f.calls, runCall{binary: binary, args: args})
	if f.outputFunc == nil {
		return "", "", nil
	}
	return f.outputFunc(len(f.calls), args)
}

func outputPath(t *testing.T, args []string) string {
	t.Helper()
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			return args[i+1]
		}
	}
	t.Fatalf("no -o flag in args %v", args)
	return ""
}

func hasArg(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}

func newTestClient(t *testing.T, runner *fakeRunner) *Client {
	t.Helper()
	client, err := New("streamlink", 10, 5*time.Second, WithRunner(runner))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestRecordUsesDurationFlag(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		runFunc: func(call int, args []string, onLine func(string)) error {
			if err := os.WriteFile(outputPath(t, args), make([]byte, 4096), 0o644); err != nil {
				t.Fatalf("write segment: %v", err)
			}
			return nil
		},
	}
	client := newTestClient(t, runner)

	size, err := client.Record(context.Background(), RecordRequest{
		Source:     "https://twitch.tv/example",
		Quality:    QualityChain("1080p"),
		Duration:   30 * time.Second,
		OutputPath: filepath.Join(dir, "segment_000000.ts"),
		MinBytes:   1000,
	})
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if size != 4096 {
		t.Fatalf("expected reported size 4096, got %d", size)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("expected a single invocation, got %d", len(runner.calls))
	}
	args := runner.calls[0].args
	if !hasArg(args, "--hls-duration") || !hasArg(args, "30") {
		t.Fatalf("expected duration-limited invocation, got %v", args)
	}
	if !hasArg(args, "1080p,1080p60,best") {
		t.Fatalf("expected quality chain in args, got %v", args)
	}
	if !hasArg(args, "--force") {
		t.Fatalf("expected --force in args, got %v", args)
	}
}

func TestRecordHonorsConfiguredTimeout(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		runFunc: func(call int, args []string, onLine func(string)) error {
			return os.WriteFile(outputPath(t, args), make([]byte, 4096), 0o644)
		},
	}
	client := newTestClient(t, runner)

	base := RecordRequest{
		Source:     "https://twitch.tv/example",
		Quality:    QualityChain("best"),
		Duration:   30 * time.Second,
		OutputPath: filepath.Join(dir, "segment_000000.ts"),
		MinBytes:   1000,
	}

	req := base
	req.Timeout = 5 * time.Minute
	start := time.Now()
	if _, err := client.Record(context.Background(), req); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if len(runner.deadlines) != 1 {
		t.Fatalf("expected a deadline-bound invocation, got %d", len(runner.deadlines))
	}
	if remain := runner.deadlines[0].Sub(start); remain < 4*time.Minute {
		t.Fatalf("expected the configured timeout to bound the capture, got %s", remain)
	}

	start = time.Now()
	if _, err := client.Record(context.Background(), base); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if len(runner.deadlines) != 2 {
		t.Fatalf("expected a deadline-bound invocation, got %d", len(runner.deadlines))
	}
	if remain := runner.deadlines[1].Sub(start); remain < 55*time.Second || remain > 65*time.Second {
		t.Fatalf("expected twice the segment duration as the fallback bound, got %s", remain)
	}
}

func TestRecordFallsBackWhenDurationFlagRejected(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		runFunc: func(call int, args []string, onLine func(string)) error {
			if call == 1 {
				onLine("error: unrecognized arguments: --hls-duration")
				return errors.New("exit status 2")
			}
			if err := os.WriteFile(outputPath(t, args), make([]byte, 2048), 0o644); err != nil {
				t.Fatalf("write segment: %v", err)
			}
			// Terminated captures surface the deadline as an error.
			return context.DeadlineExceeded
		},
	}
	client := newTestClient(t, runner)

	size, err := client.Record(context.Background(), RecordRequest{
		Source:     "https://twitch.tv/example",
		Quality:    "best",
		Duration:   time.Second,
		OutputPath: filepath.Join(dir, "segment_000001.ts"),
		MinBytes:   1000,
	})
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if size != 2048 {
		t.Fatalf("expected reported size 2048, got %d", size)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("expected fallback invocation, got %d calls", len(runner.calls))
	}
	if hasArg(runner.calls[1].args, "--hls-duration") {
		t.Fatalf("fallback should drop the duration flag, got %v", runner.calls[1].args)
	}
}

func TestRecordFailsWhenOutputTooSmall(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{
		runFunc: func(call int, args []string, onLine func(string)) error {
			if err := os.WriteFile(outputPath(t, args), []byte("tiny"), 0o644); err != nil {
				t.Fatalf("write segment: %v", err)
			}
			return nil
		},
	}
	client := newTestClient(t, runner)

	_, err := client.Record(context.Background(), RecordRequest{
		Source:     "https://twitch.tv/example",
		Quality:    "best",
		Duration:   30 * time.Second,
		OutputPath: filepath.Join(dir, "segment_000002.ts"),
		MinBytes:   1000,
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRecordRequiresSourceAndDuration(t *testing.T) {
	client := newTestClient(t, &fakeRunner{})

	if _, err := client.Record(context.Background(), RecordRequest{Duration: time.Second}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing source, got %v", err)
	}
	if _, err := client.Record(context.Background(), RecordRequest{Source: "x"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing duration, got %v", err)
	}
}

func TestProbeParsesJSON(t *testing.T) {
	runner := &fakeRunner{
		outputFunc: func(call int, args []string) (string, string, error) {
			return `{"streams":{"720p":{},"1080p":{},"best":{}},"title":"Speedrun Marathon"}`, "", nil
		},
	}
	client := newTestClient(t, runner)

	probe, err := client.Probe(context.Background(), "https://twitch.tv/example")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if !probe.Live {
		t.Fatal("expected live probe")
	}
	if probe.Title != "Speedrun Marathon" {
		t.Fatalf("unexpected title %q", probe.Title)
	}
	want := []string{"1080p", "720p", "best"}
	if len(probe.Qualities) != len(want) {
		t.Fatalf("unexpected qualities %v", probe.Qualities)
	}
	for i, quality := range want {
		if probe.Qualities[i] != quality {
			t.Fatalf("expected sorted qualities %v, got %v", want, probe.Qualities)
		}
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected single probe invocation, got %d", len(runner.calls))
	}
}

func TestProbeEmptyStreamsIsOffline(t *testing.T) {
	runner := &fakeRunner{
		outputFunc: func(call int, args []string) (string, string, error) {
			return `{"streams":{}}`, "", nil
		},
	}
	client := newTestClient(t, runner)

	probe, err := client.Probe(context.Background(), "https://twitch.tv/example")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if probe.Live {
		t.Fatal("expected offline probe for empty stream map")
	}
}

func TestProbeFallsBackToStreamURL(t *testing.T) {
	runner := &fakeRunner{
		outputFunc: func(call int, args []string) (string, string, error) {
			if call == 1 {
				return "not json", "", errors.New("exit status 1")
			}
			return "https://edge.example.com/playlist.m3u8", "", nil
		},
	}
	client := newTestClient(t, runner)

	probe, err := client.Probe(context.Background(), "https://twitch.tv/example")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if !probe.Live {
		t.Fatal("expected live probe via stream-url fallback")
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected fallback invocation, got %d calls", len(runner.calls))
	}
	if !hasArg(runner.calls[1].args, "--stream-url") {
		t.Fatalf("expected --stream-url fallback, got %v", runner.calls[1].args)
	}
}

func TestProbeOfflineMessageShortCircuits(t *testing.T) {
	runner := &fakeRunner{
		outputFunc: func(call int, args []string) (string, string, error) {
			return "", "error: No playable streams found on this URL", errors.New("exit status 1")
		},
	}
	client := newTestClient(t, runner)

	probe, err := client.Probe(context.Background(), "https://twitch.tv/example")
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if probe.Live {
		t.Fatal("expected offline probe")
	}
	if len(runner.calls) != 1 {
		t.Fatalf("offline answer should not trigger fallback, got %d calls", len(runner.calls))
	}
}

func TestProbeToolFailure(t *testing.T) {
	runner := &fakeRunner{
		outputFunc: func(call int, args []string) (string, string, error) {
			return "", "network unreachable", errors.New("exit status 1")
		},
	}
	client := newTestClient(t, runner)

	_, err := client.Probe(context.Background(), "https://twitch.tv/example")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestQualityChain(t *testing.T) {
	cases := map[string]string{
		"1080p":   "1080p,1080p60,best",
		"720p":    "720p,720p60,1080p,best",
		"480p":    "480p,720p,best",
		"360p":    "360p,480p,720p,best",
		"best":    "best",
		"  Best ": "best",
		"4k":      "best",
		"":        "best",
	}
	for input, want := range cases {
		if got := QualityChain(input); got != want {
			t.Fatalf("QualityChain(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeSource(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"ExampleChan", "https://twitch.tv/examplechan"},
		{"twitch.tv/Foo/", "https://twitch.tv/foo"},
		{"https://www.twitch.tv/foo?ref=raid", "https://twitch.tv/foo"},
		{"https://twitch.tv/bar/clips", "https://twitch.tv/bar"},
		{"youtube.com/watch?v=AbCdEf", "https://youtube.com/watch?v=AbCdEf"},
		{"https://example.com/Live", "https://example.com/Live"},
	}
	for _, tc := range cases {
		got, err := NormalizeSource(tc.input)
		if err != nil {
			t.Fatalf("NormalizeSource(%q) returned error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeSource(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}

	if _, err := NormalizeSource("https://twitch.tv/videos/12345"); !errors.Is(err, ErrVODSource) {
		t.Fatalf("expected ErrVODSource, got %v", err)
	}
	if _, err := NormalizeSource("  "); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestChannelName(t *testing.T) {
	cases := map[string]string{
		"https://twitch.tv/example":        "example",
		"https://twitch.tv/example/":       "example",
		"https://youtube.com/watch?v=AbC":  "watch",
		"example":                          "example",
		"":                                 "",
	}
	for input, want := range cases {
		if got := ChannelName(input); got != want {
			t.Fatalf("ChannelName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDisplayTitle(t *testing.T) {
	cases := map[string]string{
		"https://twitch.tv/somechannel": "Somechannel",
		"example":                       "Example",
		"":                              "Stream",
	}
	for input, want := range cases {
		if got := DisplayTitle(input); got != want {
			t.Fatalf("DisplayTitle(%q) = %q, want %q", input, got, want)
		}
	}
}
