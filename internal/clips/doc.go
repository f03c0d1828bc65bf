// Package clips persists extraction jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages connections, schema initialization, progress updates,
// terminal transitions, startup recovery, and history pruning. Jobs move
// pending -> extracting -> completed|failed. The buffer window a job
// references lives only in the running process, so jobs found in flight at
// startup are failed rather than retried.
//
// Schema changes bump the version in schema.go; users delete the database to
// adopt the new schema.
package clips
