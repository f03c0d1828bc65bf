package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reel/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to adjust buffer sizes and tool paths before starting a capture.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolvedPath, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			sourceKind := statusOK
			sourceDetail := resolvedPath
			if !exists {
				sourceKind = statusWarn
				sourceDetail = fmt.Sprintf("%s (missing, defaults in effect)", resolvedPath)
			}

			fmt.Fprintln(stdout, renderStatusLine("Config file", sourceKind, sourceDetail, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Buffer dir", statusInfo, cfg.Paths.BufferDir, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Clips dir", statusInfo, cfg.Paths.ClipsDir, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Log dir", statusInfo, cfg.Paths.LogDir, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, cfg.Paths.DatabasePath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, cfg.Paths.SocketPath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Window", statusInfo,
				fmt.Sprintf("%s in %s segments", cfg.MaxBufferDuration(), cfg.SegmentDuration()), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Capture tool", statusInfo, cfg.CaptureBinary(), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Encode tool", statusInfo, cfg.EncodeBinary(), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Probe tool", statusInfo, cfg.FFprobeBinary(), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Log level", statusInfo, cfg.Logging.Level, colorize))
			return nil
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolvedPath, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolvedPath)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
