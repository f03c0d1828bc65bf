// Package capture runs buffer sessions: a capture loop that records
// fixed-length segments into the rolling buffer and a watchdog that
// aborts the session when capture stops making progress.
package capture
