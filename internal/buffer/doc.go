// Package buffer implements the rolling segment store at the heart of reel.
//
// Capture pushes fixed-length segments into a Store bounded by a maximum
// buffered duration; the store evicts oldest-first and deletes backing files
// as part of eviction. Extraction asks the store for a leased snapshot of the
// segments covering an age window, which defers deletion of any segment that
// is evicted while an extraction still reads it.
package buffer
