package buffer

import "errors"

// ErrNoData reports that an extraction window matched no buffered segments.
var ErrNoData = errors.New("no segments available for requested window")

// ErrInvalidWindow reports a non-positive window duration or negative offset.
var ErrInvalidWindow = errors.New("invalid extraction window")
