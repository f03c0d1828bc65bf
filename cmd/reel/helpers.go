package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseSpan accepts either a bare number of seconds ("90", "12.5") or a Go
// duration string ("1m30s").
func parseSpan(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("duration must not be negative: %s", value)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q (use seconds or forms like 1m30s)", value)
	}
	if dur < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", value)
	}
	return dur, nil
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	dur := time.Duration(seconds * float64(time.Second))
	return dur.Round(100 * time.Millisecond).String()
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

// formatTimestamp shortens an RFC3339-ish timestamp to local wall time.
func formatTimestamp(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000Z07:00"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Local().Format("2006-01-02 15:04:05")
		}
	}
	return value
}

func truncateText(value string, max int) string {
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
