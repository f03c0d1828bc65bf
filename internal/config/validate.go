package config

import (
	"errors"
	"fmt"
)

// clipFormats lists the output containers the extractor accepts. Only mp4 is
// re-encoded; the rest are stream-copied from the captured transport stream.
var clipFormats = map[string]struct{}{
	"mp4": {},
	"mkv": {},
	"mov": {},
	"ts":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBuffer(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateWatchdog(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateClips(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBuffer() error {
	if err := ensurePositiveMap(map[string]int{
		"buffer.max_duration_seconds": c.Buffer.MaxDurationSeconds,
		"buffer.segment_seconds":      c.Buffer.SegmentSeconds,
	}); err != nil {
		return err
	}
	if c.Buffer.SegmentSeconds > c.Buffer.MaxDurationSeconds {
		return errors.New("buffer.segment_seconds must not exceed buffer.max_duration_seconds")
	}
	if c.Buffer.MinSegmentBytes < 0 {
		return errors.New("buffer.min_segment_bytes must be >= 0")
	}
	if c.Buffer.SessionRetentionHours < 0 {
		return errors.New("buffer.session_retention_hours must be >= 0")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if err := ensurePositiveMap(map[string]int{
		"capture.failure_threshold":  c.Capture.FailureThreshold,
		"capture.timeout_factor":     c.Capture.TimeoutFactor,
		"capture.stop_grace_seconds": c.Capture.StopGraceSeconds,
	}); err != nil {
		return err
	}
	if c.Capture.RetryDelaySeconds < 0 {
		return errors.New("capture.retry_delay_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateWatchdog() error {
	if c.Watchdog.IntervalSeconds <= 0 {
		return errors.New("watchdog.interval_seconds must be positive")
	}
	if c.Watchdog.StallSeconds <= 0 {
		return errors.New("watchdog.stall_seconds must be positive")
	}
	if c.Watchdog.StallSeconds <= c.Watchdog.IntervalSeconds {
		return errors.New("watchdog.stall_seconds must be greater than watchdog.interval_seconds")
	}
	return nil
}

func (c *Config) validateMonitor() error {
	if !c.Monitor.Enabled {
		return nil
	}
	return ensurePositiveMap(map[string]int{
		"monitor.interval_seconds":      c.Monitor.IntervalSeconds,
		"monitor.probe_timeout_seconds": c.Monitor.ProbeTimeoutSeconds,
	})
}

func (c *Config) validateClips() error {
	if err := ensurePositiveMap(map[string]int{
		"clips.default_duration_seconds": c.Clips.DefaultDurationSeconds,
		"clips.encode_timeout_seconds":   c.Clips.EncodeTimeoutSeconds,
	}); err != nil {
		return err
	}
	if _, ok := clipFormats[c.Clips.DefaultFormat]; !ok {
		return fmt.Errorf("clips.default_format %q is not supported (mp4, mkv, mov, ts)", c.Clips.DefaultFormat)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (auto, console, json)", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

// ValidFormat reports whether format names a supported clip container.
func ValidFormat(format string) bool {
	_, ok := clipFormats[format]
	return ok
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
