package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/daemonctl"
	"reel/internal/ipc"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var quality string
	cmd := &cobra.Command{
		Use:   "start SOURCE",
		Short: "Start buffering a live source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			source := strings.TrimSpace(args[0])
			if source == "" {
				return errors.New("source is required")
			}

			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			client, launched, err := daemonctl.EnsureRunning(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}
			defer client.Close()
			if launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			resp, err := client.StartSession(source, quality)
			if err != nil {
				return err
			}
			session := resp.Session
			fmt.Fprintf(stdout, "Buffering %s (session %s)\n", session.Source, session.SessionID)
			if session.Quality != "" {
				fmt.Fprintf(stdout, "Quality: %s\n", session.Quality)
			}
			fmt.Fprintf(stdout, "Rolling window: %s\n", formatSeconds(session.Buffer.MaxSeconds))
			return nil
		},
	}
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "Capture quality (e.g. best, 720p)")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active capture session",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			socket := ctx.socketPath()
			client, err := ipc.Dial(socket)
			if err != nil {
				if daemonUnreachable(err) {
					fmt.Fprintln(stdout, "Daemon is not running")
					return nil
				}
				return wrapDialError(err, socket)
			}
			defer client.Close()

			resp, err := client.StopSession()
			if err != nil {
				return err
			}
			if resp.Stopped {
				fmt.Fprintln(stdout, "Capture session stopped")
			} else {
				fmt.Fprintln(stdout, "No active capture session")
			}
			return nil
		},
	}
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.configFlag != nil {
		if path := strings.TrimSpace(*ctx.configFlag); path != "" {
			opts.ConfigPath = path
		}
	}
	return opts
}
