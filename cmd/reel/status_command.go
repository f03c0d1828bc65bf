package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reel/internal/api"
	"reel/internal/ipc"
	"reel/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, session, and buffer status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			socket := ctx.socketPath()

			client, err := ipc.Dial(socket)
			if err != nil {
				if !daemonUnreachable(err) {
					return wrapDialError(err, socket)
				}
				return renderOfflineStatus(cmd, ctx, jsonOutput)
			}
			defer client.Close()

			status, err := client.Status()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			renderDaemonStatus(stdout, status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")
	return cmd
}

func renderOfflineStatus(cmd *cobra.Command, ctx *commandContext, jsonOutput bool) error {
	stdout := cmd.OutOrStdout()
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	dependencies := api.FromDependencies(preflight.CheckSystemDeps(cmd.Context(), cfg))
	if jsonOutput {
		return writeJSON(cmd, ipc.StatusResponse{
			Running:      false,
			Dependencies: dependencies,
			SocketPath:   cfg.Paths.SocketPath,
			DatabasePath: cfg.Paths.DatabasePath,
		})
	}

	colorize := shouldColorize(stdout)
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, renderStatusLine("Running", statusWarn, "no (start a capture with `reel start`)", colorize))
	fmt.Fprintln(stdout)
	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, line := range dependencyLines(dependencies, colorize) {
		fmt.Fprintln(stdout, line)
	}
	return nil
}

func renderDaemonStatus(stdout io.Writer, status *ipc.StatusResponse) {
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	runningKind := statusWarn
	if status.Running {
		runningKind = statusOK
	}
	fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, yesNo(status.Running), colorize))
	if status.PID > 0 {
		fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, strconv.Itoa(status.PID), colorize))
	}
	if status.Version != "" {
		fmt.Fprintln(stdout, renderStatusLine("Version", statusInfo, status.Version, colorize))
	}
	if status.StartedAt != "" {
		fmt.Fprintln(stdout, renderStatusLine("Started", statusInfo, formatTimestamp(status.StartedAt), colorize))
	}

	fmt.Fprintln(stdout)
	for _, line := range renderSectionHeader("Capture Session", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if status.Session == nil {
		fmt.Fprintln(stdout, renderStatusLine("Session", statusInfo, "idle", colorize))
	} else {
		session := status.Session
		fmt.Fprintln(stdout, renderStatusLine("Source", statusOK, session.Source, colorize))
		fmt.Fprintln(stdout, renderStatusLine("State", sessionStateKind(session.State), session.State, colorize))
		if session.Quality != "" {
			fmt.Fprintln(stdout, renderStatusLine("Quality", statusInfo, session.Quality, colorize))
		}
		fmt.Fprintln(stdout, renderStatusLine("Segments", statusInfo, strconv.FormatInt(session.SegmentsCaptured, 10), colorize))
		if session.ConsecutiveFailures > 0 {
			fmt.Fprintln(stdout, renderStatusLine("Failures", statusWarn, strconv.Itoa(session.ConsecutiveFailures), colorize))
		}
		buffered := fmt.Sprintf("%s of %s", formatSeconds(session.Buffer.BufferedSeconds), formatSeconds(session.Buffer.MaxSeconds))
		fmt.Fprintln(stdout, renderStatusLine("Buffered", statusInfo, buffered, colorize))
	}

	fmt.Fprintln(stdout)
	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, line := range dependencyLines(status.Dependencies, colorize) {
		fmt.Fprintln(stdout, line)
	}

	if len(status.Sources) > 0 {
		fmt.Fprintln(stdout)
		for _, line := range renderSectionHeader("Monitored Sources", colorize) {
			fmt.Fprintln(stdout, line)
		}
		for _, src := range status.Sources {
			kind := statusInfo
			if src.Status == "live" {
				kind = statusOK
			}
			fmt.Fprintln(stdout, renderStatusLine(truncateText(src.Source, statusLabelWidth-1), kind, src.Status, colorize))
		}
	}

	fmt.Fprintln(stdout)
	for _, line := range renderSectionHeader("Clips", colorize) {
		fmt.Fprintln(stdout, line)
	}
	rows := buildClipCountRows(status.ClipCounts)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "No clips recorded")
		return
	}
	fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func sessionStateKind(state string) statusKind {
	switch state {
	case "running":
		return statusOK
	case "failed", "stopped":
		return statusWarn
	default:
		return statusInfo
	}
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		if !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func buildClipCountRows(counts map[string]int) [][]string {
	if len(counts) == 0 {
		return nil
	}
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{status, strconv.Itoa(counts[status])})
	}
	return rows
}
