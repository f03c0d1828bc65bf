// Package services defines shared utilities consumed by the capture,
// extraction, and monitoring components that drive external tools.
//
// Key responsibilities:
//   - Context helpers that stamp source names, session IDs, clip IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (transient vs fatal vs per-request) consistent.
//   - A thin command execution abstraction that makes subprocess invocation
//     and line-streamed tool output testable.
//
// Use these helpers when wiring new tool clients so operational behaviour
// (error handling, observability, cancellation) stays uniform across the
// pipeline.
package services
