package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/editing"
	"reel/internal/ipc"
	"reel/internal/logging"
	"reel/internal/media/ffprobe"
	"reel/internal/services/ffmpeg"
)

func newClipsCommand(ctx *commandContext) *cobra.Command {
	clipsCmd := &cobra.Command{
		Use:   "clips",
		Short: "Inspect and manage extracted clips",
	}

	clipsCmd.AddCommand(newClipsListCommand(ctx))
	clipsCmd.AddCommand(newClipsShowCommand(ctx))
	clipsCmd.AddCommand(newClipsRemoveCommand(ctx))
	clipsCmd.AddCommand(newClipsEditCommand(ctx))

	return clipsCmd
}

func newClipsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clip jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListClips(limit, statuses)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				if len(resp.Clips) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No clips recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Clips))
				for _, clip := range resp.Clips {
					rows = append(rows, []string{
						strconv.FormatInt(clip.ID, 10),
						truncateText(clipLabel(clip), 32),
						clip.Status,
						formatSeconds(clip.DurationSeconds),
						clipSizeCell(clip),
						formatTimestamp(clip.CreatedAt),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Length", "Size", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (pending, extracting, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit clips as JSON")
	return cmd
}

func newClipsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one clip job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := clipStatusRequest(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClipStatus(req)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				renderClipDetail(cmd, resp.Clip)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the clip as JSON")
	return cmd
}

func newClipsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a clip job record (output file is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid clip id %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RemoveClip(id)
				if err != nil {
					return err
				}
				if resp.Removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed clip %d\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Clip %d not found\n", id)
				}
				return nil
			})
		},
	}
}

func newClipsEditCommand(ctx *commandContext) *cobra.Command {
	var (
		startFlag string
		endFlag   string
		caption   string
		speed     float64
		output    string
	)

	cmd := &cobra.Command{
		Use:   "edit INPUT",
		Short: "Re-encode a finished clip with trim, caption, or speed changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			start, err := parseSpan(startFlag)
			if err != nil {
				return fmt.Errorf("parse --start: %w", err)
			}
			end, err := parseSpan(endFlag)
			if err != nil {
				return fmt.Errorf("parse --end: %w", err)
			}
			if end > 0 && end <= start {
				return fmt.Errorf("--end must come after --start")
			}

			tool, err := ffmpeg.New(cfg.EncodeBinary(), cfg.StopGrace())
			if err != nil {
				return fmt.Errorf("init encode client: %w", err)
			}
			prober, err := ffprobe.New(cfg.FFprobeBinary(), cfg.StopGrace())
			if err != nil {
				return fmt.Errorf("init media inspector: %w", err)
			}

			stdout := cmd.OutOrStdout()
			editor := editing.New(cfg, tool, prober, logging.NewNop())
			result, err := editor.Apply(cmd.Context(), editing.Request{
				InputPath:  args[0],
				OutputPath: output,
				Start:      start,
				End:        end,
				Caption:    caption,
				Speed:      speed,
			}, func(percent float64) {
				if percent < 0 {
					fmt.Fprintf(stdout, "\rEncoding...")
					return
				}
				fmt.Fprintf(stdout, "\rEncoding %3.0f%%", percent)
			})
			fmt.Fprintln(stdout)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Edited clip written to %s (%s", result.OutputPath, formatBytes(result.Size))
			if result.Duration > 0 {
				fmt.Fprintf(stdout, ", %s", result.Duration.Round(100*time.Millisecond))
			}
			fmt.Fprintln(stdout, ")")
			return nil
		},
	}

	cmd.Flags().StringVar(&startFlag, "start", "", "Trim start offset (seconds or e.g. 5s)")
	cmd.Flags().StringVar(&endFlag, "end", "", "Trim end offset (seconds or e.g. 25s)")
	cmd.Flags().StringVar(&caption, "caption", "", "Overlay caption text")
	cmd.Flags().Float64Var(&speed, "speed", 0, "Playback speed multiplier (e.g. 2, 0.5)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (defaults to a sibling of the input)")
	return cmd
}

func clipStatusRequest(arg string) (ipc.ClipStatusRequest, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return ipc.ClipStatusRequest{}, fmt.Errorf("clip id is required")
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return ipc.ClipStatusRequest{ID: id}, nil
	}
	return ipc.ClipStatusRequest{RequestID: arg}, nil
}

func clipLabel(clip ipc.Clip) string {
	if title := strings.TrimSpace(clip.Title); title != "" {
		return title
	}
	if clip.Source != "" {
		return clip.Source
	}
	return clip.RequestID
}

func clipSizeCell(clip ipc.Clip) string {
	if clip.SizeBytes <= 0 {
		return "-"
	}
	return formatBytes(clip.SizeBytes)
}

func renderClipDetail(cmd *cobra.Command, clip ipc.Clip) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	kind := statusInfo
	switch clip.Status {
	case "completed":
		kind = statusOK
	case "failed":
		kind = statusError
	case "extracting":
		kind = statusWarn
	}

	fmt.Fprintln(stdout, renderStatusLine("Clip", statusInfo, fmt.Sprintf("#%d (%s)", clip.ID, clip.RequestID), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Status", kind, clip.Status, colorize))
	if clip.Title != "" {
		fmt.Fprintln(stdout, renderStatusLine("Title", statusInfo, clip.Title, colorize))
	}
	if clip.Source != "" {
		fmt.Fprintln(stdout, renderStatusLine("Source", statusInfo, clip.Source, colorize))
	}
	window := fmt.Sprintf("last %s for %s", formatSeconds(clip.StartAgoSeconds), formatSeconds(clip.DurationSeconds))
	fmt.Fprintln(stdout, renderStatusLine("Window", statusInfo, window, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Format", statusInfo, clip.Format, colorize))
	if clip.Status == "extracting" {
		progress := fmt.Sprintf("%.0f%%", clip.Progress.Percent)
		if clip.Progress.Stage != "" {
			progress = fmt.Sprintf("%s (%s)", progress, clip.Progress.Stage)
		}
		fmt.Fprintln(stdout, renderStatusLine("Progress", statusInfo, progress, colorize))
	}
	if clip.OutputPath != "" {
		fmt.Fprintln(stdout, renderStatusLine("Output", statusInfo, clip.OutputPath, colorize))
	}
	if clip.SizeBytes > 0 {
		fmt.Fprintln(stdout, renderStatusLine("Size", statusInfo, formatBytes(clip.SizeBytes), colorize))
	}
	if clip.ActualDurationSeconds > 0 {
		fmt.Fprintln(stdout, renderStatusLine("Length", statusInfo, formatSeconds(clip.ActualDurationSeconds), colorize))
	}
	if clip.SegmentCount > 0 {
		fmt.Fprintln(stdout, renderStatusLine("Segments", statusInfo, strconv.Itoa(clip.SegmentCount), colorize))
	}
	if clip.ErrorMessage != "" {
		fmt.Fprintln(stdout, renderStatusLine("Error", statusError, clip.ErrorMessage, colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Created", statusInfo, formatTimestamp(clip.CreatedAt), colorize))
	if clip.CompletedAt != "" {
		fmt.Fprintln(stdout, renderStatusLine("Completed", statusInfo, formatTimestamp(clip.CompletedAt), colorize))
	}
}
