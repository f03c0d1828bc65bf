// Package monitor polls configured sources for liveness and reports
// went-live and went-offline transitions. Probe failures are logged and
// skipped so a flaky network never flips the known state of a source.
package monitor
