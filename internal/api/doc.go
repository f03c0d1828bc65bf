// Package api defines the transport-level data structures shared by the
// daemon's HTTP endpoints and the unix socket RPC surface.
//
// Internal packages keep their own richer types (capture.Status,
// clips.Clip, monitor.SourceState); this package flattens them into
// JSON-friendly shapes with stable field names so CLI and HTTP clients
// see one consistent contract. Conversion helpers live in convert.go.
package api
