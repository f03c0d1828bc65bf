package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget names one directory of run logs to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	// Exclude protects specific files, typically the active run log.
	Exclude []string
}

// CleanupOldLogs deletes run logs older than retentionDays across the given
// targets. Zero or negative retention keeps everything.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, target := range targets {
		pruneTarget(logger, target, cutoff)
	}
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, cutoff time.Time) {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return
	}
	pattern := strings.TrimSpace(target.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return
	}

	keep := make(map[string]struct{}, len(target.Exclude))
	for _, path := range target.Exclude {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			keep[canonicalPath(trimmed)] = struct{}{}
		}
	}

	for _, path := range matches {
		if _, protected := keep[canonicalPath(path)]; protected {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "expired run log not removed", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check log_dir permissions and ownership"),
				String(FieldImpact, "stale log stays on disk until the next sweep"),
			)
			continue
		}
		if logger != nil {
			logger.Info("expired run log removed",
				String("path", path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
}

func canonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
