// Package ffmpeg wraps the encode tool for segment stitching and clip
// editing. Stitching concatenates buffered segments listed in a manifest into
// one bounded output; editing trims, captions, and retimes finished clips.
// Both parse the tool's stderr time markers into progress updates.
package ffmpeg
