// Package editing applies post-extraction edits to finished clips: trim
// bounds, playback speed, and caption overlays, re-encoded through the
// encode tool.
package editing
