// Package preflight provides readiness checks for the filesystem paths
// and external tools the daemon depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup. A failed directory check aborts
//     the start because capture cannot write segments anywhere.
//   - The CLI "reel status" command uses CheckSystemDeps to display which
//     capture and encode tools are installed.
package preflight
