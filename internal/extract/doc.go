// Package extract turns a window of buffered segments into a standalone
// clip: select and lease, write the concat manifest, run the encode tool,
// verify, and move the output into the clips directory.
package extract
