// Package ipc exposes daemon control over a Unix domain socket using
// JSON-RPC. The server registers a single "Reel" service whose methods
// mirror the daemon facade: session start/stop, buffer status, clip
// submission and polling, source monitoring, log tailing, and shutdown.
// The client side wraps each method with a typed call used by the CLI.
package ipc
