// Package ffprobe inspects media containers and exposes typed accessors
// for the fields reel records about finished clips.
package ffprobe
