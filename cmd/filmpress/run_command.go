package main

import (
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"filmpress/internal/encode"
	"filmpress/internal/hardware"
	"filmpress/internal/logging"
	"filmpress/internal/notifications"
	"filmpress/internal/preflight"
	"filmpress/internal/store"
	"filmpress/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single scan cycle and exit",
		Long: "Scan the library roots once, transcode whatever needs it, print the cycle\n" +
			"summary, and exit. Refuses to run while a daemon holds the instance lock.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("prepare working directories: %w", err)
			}

			logger, err := logging.New(logging.Options{
				Level:  ctx.resolvedLogLevel(cfg),
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
				for _, result := range failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", result.Name, result.Detail)
				}
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire instance lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another filmpress instance holds %s; use `filmpress daemon run-now` to trigger a cycle on the running daemon", cfg.LockPath())
			}
			defer lock.Unlock()

			st, err := store.Open(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			prober := hardware.NewProber(cfg.FFmpegBinary(), cfg.Encoding.HardwareAcceleration, logger)
			profile := prober.Probe(cmd.Context())

			coordinator := encode.NewCoordinator(cfg, profile, logger)
			notifier := notifications.NewService(cfg)
			manager := workflow.NewManagerWithNotifier(cfg, st, coordinator, logger, notifier)

			summary, err := manager.RunCycle(cmd.Context())
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, summary)
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Scan cycle %s finished in %s\n", summary.RunID, humanizeDuration(summary.Duration()))
			table := renderTable(
				[]string{"Outcome", "Count"},
				[][]string{
					{"Discovered", fmt.Sprintf("%d", summary.Discovered)},
					{"Transcoded", fmt.Sprintf("%d", summary.Transcoded)},
					{"Not required", fmt.Sprintf("%d", summary.NotRequired)},
					{"Already tracked", fmt.Sprintf("%d", summary.AlreadyTracked)},
					{"Failed", fmt.Sprintf("%d", summary.Failed)},
				},
				[]columnAlignment{alignLeft, alignRight},
			)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
}
