package ffmpeg

import (
	"regexp"
	"strconv"
	"time"
)

// ProgressUpdate reports a parsed encoder position marker.
type ProgressUpdate struct {
	// Percent is the bounded completion estimate, or -1 when the total
	// duration is unknown to the invocation.
	Percent float64
	// Position is the output timestamp the encoder last reported.
	Position time.Duration
}

var timeMarker = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)

// parsePosition extracts the time= marker from one stderr line.
func parsePosition(line string) (time.Duration, bool) {
	match := timeMarker.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, false
	}
	total := float64(hours*3600+minutes*60) + seconds
	return time.Duration(total * float64(time.Second)), true
}

// boundedPercent converts a position into a capped percentage of duration.
func boundedPercent(position, duration time.Duration) float64 {
	if duration <= 0 {
		return -1
	}
	percent := float64(position) / float64(duration) * 100
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	return percent
}
