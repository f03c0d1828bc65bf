package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reel/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantBuffer := filepath.Join(tempHome, ".local", "share", "reel", "buffer")
	if cfg.Paths.BufferDir != wantBuffer {
		t.Fatalf("unexpected buffer dir: got %q want %q", cfg.Paths.BufferDir, wantBuffer)
	}
	if cfg.Paths.ClipsDir != filepath.Join(tempHome, "clips") {
		t.Fatalf("unexpected clips dir: %q", cfg.Paths.ClipsDir)
	}
	if cfg.Paths.SocketPath != filepath.Join(tempHome, ".local", "share", "reel", "reel.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Paths.SocketPath)
	}
	if cfg.Paths.APIBind != "" {
		t.Fatalf("expected HTTP API disabled by default, got bind %q", cfg.Paths.APIBind)
	}
	if cfg.Buffer.MaxDurationSeconds != 300 || cfg.Buffer.SegmentSeconds != 30 {
		t.Fatalf("unexpected buffer defaults: %+v", cfg.Buffer)
	}
	if cfg.Capture.Quality != "1080p" {
		t.Fatalf("unexpected quality default: %q", cfg.Capture.Quality)
	}
	if cfg.Capture.FailureThreshold != 3 {
		t.Fatalf("unexpected failure threshold: %d", cfg.Capture.FailureThreshold)
	}
	if cfg.Watchdog.IntervalSeconds != 5 || cfg.Watchdog.StallSeconds != 30 {
		t.Fatalf("unexpected watchdog defaults: %+v", cfg.Watchdog)
	}
	if cfg.Clips.DefaultFormat != "mp4" {
		t.Fatalf("unexpected clip format default: %q", cfg.Clips.DefaultFormat)
	}
	if cfg.CaptureBinary() != "streamlink" || cfg.EncodeBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected tool binaries: %q %q %q", cfg.CaptureBinary(), cfg.EncodeBinary(), cfg.FFprobeBinary())
	}
}

func TestLoadReadsFileAndNormalizes(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[paths]
buffer_dir = "~/buf"

[capture]
quality = " 720P "

[monitor]
sources = [" https://twitch.tv/a ", "https://twitch.tv/a", "", "https://twitch.tv/b"]

[clips]
default_format = "MKV"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q %v", resolved, exists)
	}
	if cfg.Paths.BufferDir != filepath.Join(tempHome, "buf") {
		t.Fatalf("expected ~ expansion, got %q", cfg.Paths.BufferDir)
	}
	if cfg.Capture.Quality != "720p" {
		t.Fatalf("expected normalized quality, got %q", cfg.Capture.Quality)
	}
	want := []string{"https://twitch.tv/a", "https://twitch.tv/b"}
	if len(cfg.Monitor.Sources) != len(want) {
		t.Fatalf("expected deduped sources %v, got %v", want, cfg.Monitor.Sources)
	}
	for i, source := range want {
		if cfg.Monitor.Sources[i] != source {
			t.Fatalf("sources[%d] = %q, want %q", i, cfg.Monitor.Sources[i], source)
		}
	}
	if cfg.Clips.DefaultFormat != "mkv" {
		t.Fatalf("expected lowered format, got %q", cfg.Clips.DefaultFormat)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*config.Config)
		fragment string
	}{
		{
			name:     "segment longer than window",
			mutate:   func(c *config.Config) { c.Buffer.SegmentSeconds = 600 },
			fragment: "segment_seconds",
		},
		{
			name:     "zero failure threshold",
			mutate:   func(c *config.Config) { c.Capture.FailureThreshold = 0 },
			fragment: "failure_threshold",
		},
		{
			name:     "stall not beyond interval",
			mutate:   func(c *config.Config) { c.Watchdog.StallSeconds = 5 },
			fragment: "stall_seconds",
		},
		{
			name:     "unsupported format",
			mutate:   func(c *config.Config) { c.Clips.DefaultFormat = "avi" },
			fragment: "default_format",
		},
		{
			name:     "unsupported log format",
			mutate:   func(c *config.Config) { c.Logging.Format = "xml" },
			fragment: "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.fragment) {
				t.Fatalf("error %q does not mention %q", err, tc.fragment)
			}
		})
	}
}

func TestCreateSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Buffer.MaxDurationSeconds != 300 {
		t.Fatalf("sample buffer window = %d, want 300", cfg.Buffer.MaxDurationSeconds)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.BufferDir = filepath.Join(base, "buffer")
	cfg.Paths.ClipsDir = filepath.Join(base, "clips")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DatabasePath = filepath.Join(base, "db", "reel.db")
	cfg.Paths.SocketPath = filepath.Join(base, "run", "reel.sock")
	cfg.Paths.PIDPath = filepath.Join(base, "run", "reel.pid")
	cfg.Paths.LockPath = filepath.Join(base, "run", "reel.lock")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{
		cfg.Paths.BufferDir,
		cfg.Paths.ClipsDir,
		cfg.Paths.LogDir,
		filepath.Dir(cfg.Paths.DatabasePath),
		filepath.Dir(cfg.Paths.SocketPath),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
