package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reel/internal/ipc"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	sourcesCmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage liveness-monitored sources",
	}

	sourcesCmd.AddCommand(newSourcesListCommand(ctx))
	sourcesCmd.AddCommand(newSourcesAddCommand(ctx))
	sourcesCmd.AddCommand(newSourcesRemoveCommand(ctx))
	sourcesCmd.AddCommand(newSourcesProbeCommand(ctx))

	return sourcesCmd
}

func newSourcesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List monitored sources and their liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListSources()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				if len(resp.Sources) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sources are being monitored")
					return nil
				}
				rows := make([][]string, 0, len(resp.Sources))
				for _, src := range resp.Sources {
					errCell := "-"
					if src.ProbeErrors > 0 {
						errCell = strconv.Itoa(src.ProbeErrors)
					}
					rows = append(rows, []string{
						src.Source,
						src.Status,
						truncateText(src.Title, 32),
						formatTimestamp(src.LastCheckedAt),
						errCell,
					})
				}
				table := renderTable(
					[]string{"Source", "Status", "Title", "Last Checked", "Errors"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit sources as JSON")
	return cmd
}

func newSourcesAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add SOURCE",
		Short: "Add a source to the liveness monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AddSource(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Monitoring %s\n", resp.Source)
				return nil
			})
		},
	}
}

func newSourcesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove SOURCE",
		Short: "Remove a source from the liveness monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RemoveSource(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if resp.Removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Stopped monitoring %s\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s was not being monitored\n", args[0])
				}
				return nil
			})
		},
	}
}

func newSourcesProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe SOURCE",
		Short: "Run a one-off liveness probe against a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ProbeSource(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				result := resp.Result
				kind := statusWarn
				liveness := "offline"
				if result.Live {
					kind = statusOK
					liveness = "live"
				}
				fmt.Fprintln(stdout, renderStatusLine("Source", statusInfo, result.Source, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Liveness", kind, liveness, colorize))
				if result.Title != "" {
					fmt.Fprintln(stdout, renderStatusLine("Title", statusInfo, result.Title, colorize))
				}
				if len(result.Qualities) > 0 {
					fmt.Fprintln(stdout, renderStatusLine("Qualities", statusInfo, strings.Join(result.Qualities, ", "), colorize))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the probe result as JSON")
	return cmd
}
