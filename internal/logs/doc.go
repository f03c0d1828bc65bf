// Package logs reads daemon run logs from disk. Tail supports both
// "last N lines" and offset-based forward reads so the IPC log endpoint
// can serve follow-style polling without keeping file handles open
// between calls.
package logs
