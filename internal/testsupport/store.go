package testsupport

import (
	"context"
	"testing"
	"time"

	"reel/internal/clips"
	"reel/internal/config"
)

// MustOpenStore opens a clips.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *clips.Store {
	t.Helper()

	store, err := clips.Open(cfg)
	if err != nil {
		t.Fatalf("clips.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewClip inserts a pending clip job for tests using the provided store.
func NewClip(t testing.TB, store *clips.Store, requestID, source string) *clips.Clip {
	t.Helper()

	clip, err := store.Create(context.Background(), clips.NewClip{
		RequestID: requestID,
		Source:    source,
		StartAgo:  60 * time.Second,
		Duration:  30 * time.Second,
		Format:    "mp4",
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return clip
}
