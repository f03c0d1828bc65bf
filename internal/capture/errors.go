package capture

import "errors"

var (
	// ErrSessionRunning indicates a buffer session is already active.
	ErrSessionRunning = errors.New("buffer session already running")
	// ErrNoSession indicates no buffer session exists.
	ErrNoSession = errors.New("no buffer session")
)
