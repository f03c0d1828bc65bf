package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeMonitor()
	c.normalizeClips()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.BufferDir, err = expandPath(c.Paths.BufferDir); err != nil {
		return fmt.Errorf("paths.buffer_dir: %w", err)
	}
	if c.Paths.ClipsDir, err = expandPath(c.Paths.ClipsDir); err != nil {
		return fmt.Errorf("paths.clips_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = defaultDatabasePath
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = defaultSocketPath
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.PIDPath) == "" {
		c.Paths.PIDPath = defaultPIDPath
	}
	if c.Paths.PIDPath, err = expandPath(c.Paths.PIDPath); err != nil {
		return fmt.Errorf("paths.pid_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockPath) == "" {
		c.Paths.LockPath = defaultLockPath
	}
	if c.Paths.LockPath, err = expandPath(c.Paths.LockPath); err != nil {
		return fmt.Errorf("paths.lock_path: %w", err)
	}
	// An empty bind address keeps the HTTP API disabled.
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("REEL_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.Binary = strings.TrimSpace(c.Capture.Binary)
	c.Capture.Quality = strings.ToLower(strings.TrimSpace(c.Capture.Quality))
	if c.Capture.Quality == "" {
		c.Capture.Quality = defaultQuality
	}
}

func (c *Config) normalizeMonitor() {
	sources := make([]string, 0, len(c.Monitor.Sources))
	seen := make(map[string]struct{}, len(c.Monitor.Sources))
	for _, source := range c.Monitor.Sources {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}
	c.Monitor.Sources = sources
}

func (c *Config) normalizeClips() {
	c.Clips.EncodeBinary = strings.TrimSpace(c.Clips.EncodeBinary)
	c.Clips.ProbeBinary = strings.TrimSpace(c.Clips.ProbeBinary)
	c.Clips.DefaultFormat = strings.ToLower(strings.TrimSpace(c.Clips.DefaultFormat))
	if c.Clips.DefaultFormat == "" {
		c.Clips.DefaultFormat = defaultClipFormat
	}
	if c.Clips.MinClipBytes <= 0 {
		c.Clips.MinClipBytes = defaultMinClipBytes
	}
	if c.Clips.HistoryLimit <= 0 {
		c.Clips.HistoryLimit = defaultHistoryLimit
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("REEL_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.StreamCapacity <= 0 {
		c.Logging.StreamCapacity = defaultLogStreamCapacity
	}
}
