package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reel/internal/ipc"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check clip database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DatabaseHealth()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)
				fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, resp.Path, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Exists", boolKind(resp.Exists), yesNo(resp.Exists), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Readable", boolKind(resp.Readable), yesNo(resp.Readable), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Integrity", boolKind(resp.IntegrityCheck), yesNo(resp.IntegrityCheck), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Clips", statusInfo, strconv.Itoa(resp.TotalClips), colorize))
				if resp.Error != "" {
					fmt.Fprintln(stdout, renderStatusLine("Detail", statusError, resp.Error, colorize))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit health as JSON")
	return cmd
}

func boolKind(value bool) statusKind {
	if value {
		return statusOK
	}
	return statusError
}
