package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"filmpress/internal/hardware"
	"filmpress/internal/logging"
)

func newHardwareCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "hardware",
		Short: "Probe CPU vendor and encoder backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()

			prober := hardware.NewProber(cfg.FFmpegBinary(), cfg.Encoding.HardwareAcceleration, logging.NewNop())
			profile := prober.Probe(cmd.Context())

			if ctx.jsonOutput() {
				return writeJSON(cmd, profile)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Hardware", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("Vendor", statusInfo, string(profile.Vendor), colorize))
			if profile.CPUName != "" {
				fmt.Fprintln(stdout, renderStatusLine("CPU", statusInfo, profile.CPUName, colorize))
			}
			fmt.Fprintln(stdout, renderStatusLine("Cores", statusInfo, fmt.Sprintf("%d", profile.Cores), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Acceleration", statusInfo, yesNo(cfg.Encoding.HardwareAcceleration), colorize))
			fmt.Fprintln(stdout)

			target := cfg.Target()
			rows := make([][]string, 0, len(profile.Backends))
			for i, backend := range profile.Backends {
				device := backend.DevicePath()
				if device == "" {
					device = "-"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					string(backend),
					backend.EncoderFor(target.Video.Codec),
					device,
				})
			}
			table := renderTable(
				[]string{"Priority", "Backend", "Encoder", "Device"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
}
