package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path with exactly size bytes of filler, making parent
// directories as needed. A size <= 0 still produces a one-byte file so size
// checks see real content.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	pattern := bytes.Repeat([]byte{0x42}, 32*1024)
	for written := int64(0); written < size; {
		chunk := int64(len(pattern))
		if remaining := size - written; remaining < chunk {
			chunk = remaining
		}
		if _, err := f.Write(pattern[:chunk]); err != nil {
			t.Fatalf("fill %s: %v", path, err)
		}
		written += chunk
	}
}
