// Package logging assembles structured slog loggers and formatting helpers used
// across reel services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so capture and clip code can
// automatically tag log lines with source names, session IDs, and correlation
// IDs. Every record can also be mirrored into an in-memory stream hub that the
// daemon serves to `reel logs` clients. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
