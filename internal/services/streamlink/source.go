package streamlink

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// ErrVODSource rejects recorded-video URLs; the buffer only works on live sources.
var ErrVODSource = errors.New("VOD URLs are not supported; use a live channel URL")

// NormalizeSource canonicalizes a source identifier. Twitch channel names and
// URL variants collapse to https://twitch.tv/<channel>; other URLs keep their
// casing and only gain a scheme when missing.
func NormalizeSource(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("source required")
	}

	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "twitch.tv") {
		if strings.Contains(lower, "/videos/") {
			return "", ErrVODSource
		}
		parts := strings.SplitN(lower, "twitch.tv/", 2)
		if len(parts) == 2 {
			channel := parts[1]
			channel = strings.SplitN(channel, "/", 2)[0]
			channel = strings.SplitN(channel, "?", 2)[0]
			if channel == "" {
				return "", fmt.Errorf("no channel in source %q", raw)
			}
			return "https://twitch.tv/" + channel, nil
		}
		return "https://twitch.tv", nil
	}

	// A bare word is treated as a Twitch channel name.
	if !strings.ContainsAny(trimmed, "./") {
		return "https://twitch.tv/" + lower, nil
	}

	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return "https://" + trimmed, nil
	}
	return trimmed, nil
}

// DisplayTitle renders a source as a human-readable name for notifications
// and clip file names ("https://twitch.tv/somechannel" becomes "Somechannel").
func DisplayTitle(source string) string {
	name := ChannelName(source)
	if name == "" {
		return "Stream"
	}
	return titleCaser.String(name)
}

// ChannelName extracts the trailing path element of a source for display and
// file naming.
func ChannelName(source string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(source), "/")
	if trimmed == "" {
		return ""
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
