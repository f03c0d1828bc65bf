// Package daemon coordinates the long-running Reel process.
//
// It wires configuration, the clip store, the capture manager, the
// liveness monitor, and the clip extractor into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon owns
// the async extraction workers, emits notifications on session and clip
// milestones, and optionally serves a read-only HTTP status API.
//
// Keep orchestration logic here: capture mechanics live in capture,
// stitching in extract, probing in monitor. The daemon focuses on
// startup, shutdown, and high level coordination.
package daemon
