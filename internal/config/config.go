package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, database, and bind address configuration.
type Paths struct {
	BufferDir    string `toml:"buffer_dir"`
	ClipsDir     string `toml:"clips_dir"`
	LogDir       string `toml:"log_dir"`
	DatabasePath string `toml:"database_path"`
	SocketPath   string `toml:"socket_path"`
	PIDPath      string `toml:"pid_path"`
	LockPath     string `toml:"lock_path"`
	APIBind      string `toml:"api_bind"`
	APIToken     string `toml:"api_token"`
}

// Buffer contains configuration for the rolling segment buffer.
type Buffer struct {
	MaxDurationSeconds    int   `toml:"max_duration_seconds"`
	SegmentSeconds        int   `toml:"segment_seconds"`
	MinSegmentBytes       int64 `toml:"min_segment_bytes"`
	SessionRetentionHours int   `toml:"session_retention_hours"`
}

// Capture contains configuration for the external capture tool.
type Capture struct {
	Binary            string `toml:"binary"`
	Quality           string `toml:"quality"`
	FailureThreshold  int    `toml:"failure_threshold"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	TimeoutFactor     int    `toml:"timeout_factor"`
	StopGraceSeconds  int    `toml:"stop_grace_seconds"`
}

// Watchdog contains configuration for capture stall detection.
type Watchdog struct {
	IntervalSeconds int `toml:"interval_seconds"`
	StallSeconds    int `toml:"stall_seconds"`
}

// Monitor contains configuration for the liveness prober.
type Monitor struct {
	Enabled             bool     `toml:"enabled"`
	IntervalSeconds     int      `toml:"interval_seconds"`
	ProbeTimeoutSeconds int      `toml:"probe_timeout_seconds"`
	Sources             []string `toml:"sources"`
	Autostart           bool     `toml:"autostart"`
}

// Clips contains configuration for clip extraction and editing.
type Clips struct {
	EncodeBinary           string `toml:"encode_binary"`
	ProbeBinary            string `toml:"probe_binary"`
	DefaultDurationSeconds int    `toml:"default_duration_seconds"`
	DefaultFormat          string `toml:"default_format"`
	MinClipBytes           int64  `toml:"min_clip_bytes"`
	EncodeTimeoutSeconds   int    `toml:"encode_timeout_seconds"`
	HistoryLimit           int    `toml:"history_limit"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	SessionEvents  bool   `toml:"session_events"`
	ClipEvents     bool   `toml:"clip_events"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string `toml:"format"`
	Level          string `toml:"level"`
	RetentionDays  int    `toml:"retention_days"`
	StreamCapacity int    `toml:"stream_capacity"`
}

// Config encapsulates all configuration values for reel.
//
// Configuration sections by subsystem:
//   - Paths: directories, clip database, and API bind address
//   - Buffer: rolling window size and per-segment length
//   - Capture: capture tool binary, quality, retry policy
//   - Watchdog: capture stall detection cadence and threshold
//   - Monitor: liveness prober interval and monitored sources
//   - Clips: extraction defaults, encode/probe binaries
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Buffer        Buffer        `toml:"buffer"`
	Capture       Capture       `toml:"capture"`
	Watchdog      Watchdog      `toml:"watchdog"`
	Monitor       Monitor       `toml:"monitor"`
	Clips         Clips         `toml:"clips"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/reel/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.BufferDir, c.Paths.ClipsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, path := range []string{c.Paths.DatabasePath, c.Paths.SocketPath, c.Paths.PIDPath, c.Paths.LockPath} {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create directory %q: %w", dir, err)
			}
		}
	}
	return nil
}

// CaptureBinary returns the capture tool executable name.
func (c *Config) CaptureBinary() string {
	if bin := strings.TrimSpace(c.Capture.Binary); bin != "" {
		return bin
	}
	return defaultCaptureBinary
}

// EncodeBinary returns the encode tool executable name used for stitching and edits.
func (c *Config) EncodeBinary() string {
	if bin := strings.TrimSpace(c.Clips.EncodeBinary); bin != "" {
		return bin
	}
	return defaultEncodeBinary
}

// FFprobeBinary returns the ffprobe executable name used for clip validation.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Clips.ProbeBinary); bin != "" {
		return bin
	}
	return defaultProbeBinary
}

// SegmentDuration returns the nominal per-segment length.
func (c *Config) SegmentDuration() time.Duration {
	return time.Duration(c.Buffer.SegmentSeconds) * time.Second
}

// MaxBufferDuration returns the configured rolling window size.
func (c *Config) MaxBufferDuration() time.Duration {
	return time.Duration(c.Buffer.MaxDurationSeconds) * time.Second
}

// CaptureTimeout bounds one capture tool invocation.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Capture.TimeoutFactor) * c.SegmentDuration()
}

// StopGrace is how long a terminated tool process may linger before a kill.
func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Capture.StopGraceSeconds) * time.Second
}

// MonitorInterval returns the liveness polling cadence.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// ProbeTimeout bounds one liveness query.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Monitor.ProbeTimeoutSeconds) * time.Second
}

// EncodeTimeout bounds one stitch or edit invocation.
func (c *Config) EncodeTimeout() time.Duration {
	return time.Duration(c.Clips.EncodeTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
