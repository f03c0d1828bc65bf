package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/clips"
	"reel/internal/ipc"
)

func newClipCommand(ctx *commandContext) *cobra.Command {
	var (
		lastFlag     string
		durationFlag string
		format       string
		title        string
		output       string
		wait         bool
	)

	cmd := &cobra.Command{
		Use:   "clip",
		Short: "Extract a clip from the recent buffer",
		Long: `Extract a clip covering the recent past of the active capture session.

The clip spans from --last seconds ago forward for --duration seconds. Both
accept bare seconds or duration strings like 1m30s. Omitted values fall back
to the configured defaults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			startAgo, err := parseSpan(lastFlag)
			if err != nil {
				return fmt.Errorf("parse --last: %w", err)
			}
			duration, err := parseSpan(durationFlag)
			if err != nil {
				return fmt.Errorf("parse --duration: %w", err)
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CreateClip(ipc.CreateClipRequest{
					StartAgoSeconds: startAgo.Seconds(),
					DurationSeconds: duration.Seconds(),
					Format:          format,
					Title:           title,
					OutputPath:      output,
				})
				if err != nil {
					return err
				}
				clip := resp.Clip
				fmt.Fprintf(stdout, "Clip %d queued (request %s): last %s for %s\n",
					clip.ID, clip.RequestID,
					formatSeconds(clip.StartAgoSeconds), formatSeconds(clip.DurationSeconds))

				if !wait {
					fmt.Fprintf(stdout, "Track it with `reel clips show %d`\n", clip.ID)
					return nil
				}
				return waitForClip(cmd, client, clip.ID)
			})
		},
	}

	cmd.Flags().StringVarP(&lastFlag, "last", "l", "", "How far back the clip starts (seconds or e.g. 2m)")
	cmd.Flags().StringVarP(&durationFlag, "duration", "d", "", "Clip length (seconds or e.g. 45s)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Container format (mp4, mkv, ts)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title used for the output file name")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Explicit output path")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for extraction to finish, showing progress")
	return cmd
}

func waitForClip(cmd *cobra.Command, client *ipc.Client, id int64) error {
	stdout := cmd.OutOrStdout()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastLine := ""
	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
		}

		resp, err := client.ClipStatus(ipc.ClipStatusRequest{ID: id})
		if err != nil {
			return err
		}
		clip := resp.Clip

		switch clips.Status(clip.Status) {
		case clips.StatusCompleted:
			fmt.Fprintf(stdout, "\rClip ready: %s (%s", clip.OutputPath, formatBytes(clip.SizeBytes))
			if clip.ActualDurationSeconds > 0 {
				fmt.Fprintf(stdout, ", %s", formatSeconds(clip.ActualDurationSeconds))
			}
			fmt.Fprintln(stdout, ")")
			return nil
		case clips.StatusFailed:
			fmt.Fprintln(stdout)
			if clip.ErrorMessage != "" {
				return fmt.Errorf("clip %d failed: %s", id, clip.ErrorMessage)
			}
			return fmt.Errorf("clip %d failed", id)
		default:
			line := fmt.Sprintf("%s %.0f%%", clip.Status, clip.Progress.Percent)
			if clip.Progress.Stage != "" {
				line = fmt.Sprintf("%s (%s) %.0f%%", clip.Status, clip.Progress.Stage, clip.Progress.Percent)
			}
			if line != lastLine {
				fmt.Fprintf(stdout, "\r%-40s", line)
				lastLine = line
			}
		}
	}
}
