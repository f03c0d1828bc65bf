package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for unset command: %#v", results[2])
	}
}

func TestCheckBinariesProbesVersion(t *testing.T) {
	binDir := t.TempDir()
	tool := filepath.Join(binDir, "fakecapture")
	script := []byte("#!/bin/sh\necho \"fakecapture 7.1.2\"\necho \"extra noise\"\n")
	if err := os.WriteFile(tool, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	results := CheckBinaries([]Requirement{{Name: "FakeCapture", Command: tool, VersionArg: "--version"}})
	if !results[0].Available {
		t.Fatalf("expected stub to be available, got %#v", results[0])
	}
	if results[0].Version != "fakecapture 7.1.2" {
		t.Fatalf("unexpected version: %q", results[0].Version)
	}
}

func TestCheckBinariesToleratesVersionFailure(t *testing.T) {
	binDir := t.TempDir()
	tool := filepath.Join(binDir, "grumpy")
	script := []byte("#!/bin/sh\nexit 3\n")
	if err := os.WriteFile(tool, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	results := CheckBinaries([]Requirement{{Name: "Grumpy", Command: tool, VersionArg: "--version"}})
	if !results[0].Available {
		t.Fatalf("binary refusing the version flag should still be available: %#v", results[0])
	}
	if results[0].Version != "" {
		t.Fatalf("expected empty version, got %q", results[0].Version)
	}
}
