package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"filmpress/internal/config"
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
			fmt.Fprintln(out, "Edit the file to set library_dirs before starting the daemon.")
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
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, cfg)
			}

			target := cfg.Target()
			rows := [][]string{
				{"Library roots", strings.Join(cfg.Paths.LibraryDirs, ", ")},
				{"Staging dir", cfg.Paths.StagingDir},
				{"State dir", cfg.Paths.StateDir},
				{"Log dir", cfg.Paths.LogDir},
				{"Scan interval", cfg.ScanInterval().String()},
				{"Startup delay", cfg.StartupDelay().String()},
				{"Workers", fmt.Sprintf("%d", cfg.Workflow.Workers)},
				{"Reprocess changed", yesNo(cfg.Workflow.ReprocessChanged)},
				{"Video target", fmt.Sprintf("%s %dx%d @ %d kbps", cfg.Video.Codec, target.Video.Width, target.Video.Height, cfg.Video.BitrateKbps)},
				{"Audio target", fmt.Sprintf("%s %dch @ %d kbps", cfg.Audio.Codec, cfg.Audio.Channels, cfg.Audio.BitrateKbps)},
				{"Container", cfg.Output.Container},
				{"Min free space", fmt.Sprintf("%d MB", cfg.Output.MinFreeMB)},
				{"FFmpeg", cfg.FFmpegBinary()},
				{"FFprobe", cfg.FFprobeBinary()},
				{"Hardware accel", yesNo(cfg.Encoding.HardwareAcceleration)},
				{"Sidecar read", yesNo(cfg.Sidecar.Read)},
				{"Sidecar update", yesNo(cfg.Sidecar.Update)},
				{"Ntfy topic", valueOrDash(cfg.Notifications.NtfyTopic)},
				{"Log level", cfg.Logging.Level},
				{"Log format", cfg.Logging.Format},
			}
			table := renderTable([]string{"Setting", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if path != "" && !exists {
				return fmt.Errorf("config file %s does not exist", resolved)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Config path: %s\n", resolved)
			} else {
				fmt.Fprintf(out, "No config file at %s; built-in defaults validated\n", resolved)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
