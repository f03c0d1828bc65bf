package preflight

import (
	"context"

	"reel/internal/config"
)

// minBufferFreeBytes is the smallest amount of free space the buffer
// volume may have before startup is considered unsafe. A few minutes of
// a high bitrate stream plus one stitched clip fit comfortably in 1 GiB.
const minBufferFreeBytes = 1 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the startup checks for the given config. Directories
// are expected to exist already; call cfg.EnsureDirectories first.
// Missing tools are reported but should not abort startup, so callers
// can treat directory failures as fatal and tool failures as warnings.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Buffer directory", cfg.Paths.BufferDir))
	results = append(results, CheckDirectoryAccess("Clips directory", cfg.Paths.ClipsDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckFreeSpace("Buffer free space", cfg.Paths.BufferDir, minBufferFreeBytes))

	for _, status := range CheckSystemDeps(ctx, cfg) {
		if status.Optional {
			continue
		}
		detail := status.Detail
		if status.Available {
			detail = status.Command
			if status.Version != "" {
				detail = status.Version
			}
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}
	return results
}

// Fatal reports whether a failed result should abort daemon startup.
// Only filesystem results are fatal; tools can be installed while the
// daemon is already running.
func Fatal(r Result) bool {
	if r.Passed {
		return false
	}
	switch r.Name {
	case "Buffer directory", "Clips directory", "Log directory":
		return true
	}
	return false
}
