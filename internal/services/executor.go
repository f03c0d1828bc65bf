package services

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Executor abstracts command execution for testability. Implementations run
// the binary to completion, forwarding every stdout/stderr line to onLine.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// OutputExecutor runs a command to completion and captures stdout and stderr
// separately, for tools whose machine-readable output must not be interleaved
// with diagnostics.
type OutputExecutor interface {
	RunOutput(ctx context.Context, binary string, args []string) (stdout, stderr string, err error)
}

// CommandRunner combines streaming and captured execution.
type CommandRunner interface {
	Executor
	OutputExecutor
}

// NewExecutor returns the production executor. stopGrace bounds how long a
// cancelled command may linger between the terminate signal and a forced kill.
func NewExecutor(stopGrace time.Duration) CommandRunner {
	return commandExecutor{stopGrace: stopGrace}
}

type commandExecutor struct {
	stopGrace time.Duration
}

func (e commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	if e.stopGrace > 0 {
		cmd.WaitDelay = e.stopGrace
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	forward := func(line string) {
		if onLine != nil {
			onLine(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	wg.Add(2)
	go scan(stdout, forward)
	go scan(stderr, forward)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

func (e commandExecutor) RunOutput(ctx context.Context, binary string, args []string) (string, string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	if e.stopGrace > 0 {
		cmd.WaitDelay = e.stopGrace
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("run command: %w", err)
	}
	return stdout.String(), stderr.String(), nil
}

// TailBuffer retains the most recent lines of tool output so failures can
// embed a short diagnostic excerpt.
type TailBuffer struct {
	limit int
	lines []string
}

// NewTailBuffer constructs a tail buffer holding up to limit lines.
func NewTailBuffer(limit int) *TailBuffer {
	if limit <= 0 {
		limit = 16
	}
	return &TailBuffer{limit: limit}
}

// Append records one line, discarding the oldest when full.
func (t *TailBuffer) Append(line string) {
	if t == nil {
		return
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(t.lines) == t.limit {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:t.limit-1]
	}
	t.lines = append(t.lines, line)
}

// Excerpt returns the retained lines as one bounded diagnostic string.
func (t *TailBuffer) Excerpt() string {
	if t == nil || len(t.lines) == 0 {
		return ""
	}
	return Excerpt(strings.Join(t.lines, "\n"))
}
