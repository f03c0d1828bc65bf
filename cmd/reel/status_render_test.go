package main

import (
	"strings"
	"testing"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Running", statusOK, "yes", false)
	if !strings.Contains(line, "Running:") {
		t.Fatalf("missing label: %q", line)
	}
	if !strings.Contains(line, "[OK] yes") {
		t.Fatalf("missing status text: %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("unexpected ANSI codes without colorize: %q", line)
	}
}

func TestRenderStatusLineColor(t *testing.T) {
	line := renderStatusLine("Running", statusError, "no", true)
	if !strings.HasPrefix(line, ansiRed) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("expected red wrapping: %q", line)
	}
}

func TestRenderStatusLineEmptyMessage(t *testing.T) {
	line := renderStatusLine("Check", statusWarn, "", false)
	if !strings.Contains(line, "[WARN]") {
		t.Fatalf("missing bare status: %q", line)
	}
}

func TestRenderSectionHeader(t *testing.T) {
	lines := renderSectionHeader("Clips", false)
	if len(lines) != 2 {
		t.Fatalf("expected header and rule, got %d lines", len(lines))
	}
	if lines[0] != "== Clips ==" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines[1]) != len(lines[0]) {
		t.Fatalf("rule length %d != header length %d", len(lines[1]), len(lines[0]))
	}
}
