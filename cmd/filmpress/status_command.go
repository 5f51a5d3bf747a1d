package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"filmpress/internal/config"
	"filmpress/internal/deps"
	"filmpress/internal/hardware"
	"filmpress/internal/ipc"
	"filmpress/internal/logging"
	"filmpress/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, record, and hardware status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()

			client, err := ctx.dialOptional()
			if err != nil {
				return err
			}

			var payload *ipc.StatusPayload
			if client != nil {
				defer client.Close()
				payload, err = client.Status()
				if err != nil {
					return err
				}
			} else {
				payload, err = offlineStatus(cmd, cfg)
				if err != nil {
					return err
				}
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, payload)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			renderDaemonSection(stdout, payload, colorize)
			renderLastRunSection(stdout, payload, colorize)
			renderRecordsSection(stdout, payload, colorize)
			renderDependencySection(stdout, cfg, colorize)

			for _, line := range renderSectionHeader("Hardware", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("Profile", statusInfo, payload.Hardware, colorize))
			return nil
		},
	}
}

// offlineStatus assembles the status payload without a daemon: record counts
// come straight from the store and the hardware summary from a local probe.
func offlineStatus(cmd *cobra.Command, cfg *config.Config) (*ipc.StatusPayload, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	health, err := st.Health(cmd.Context())
	if err != nil {
		return nil, err
	}

	prober := hardware.NewProber(cfg.FFmpegBinary(), cfg.Encoding.HardwareAcceleration, logging.NewNop())
	profile := prober.Probe(cmd.Context())

	return &ipc.StatusPayload{
		Running: false,
		Records: ipc.RecordCountsPayload{
			Total:       health.Total,
			Pending:     health.Pending,
			InProgress:  health.InProgress,
			Completed:   health.Completed,
			NotRequired: health.NotRequired,
			Failed:      health.Failed,
		},
		Hardware:     profile.Summary(),
		DatabasePath: cfg.DatabasePath(),
		LockPath:     cfg.LockPath(),
	}, nil
}

func renderDaemonSection(w io.Writer, payload *ipc.StatusPayload, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(w, line)
	}
	if !payload.Running {
		fmt.Fprintln(w, renderStatusLine("Running", statusWarn, "daemon not running", colorize))
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintln(w, renderStatusLine("Running", statusOK,
		fmt.Sprintf("pid %d, started %s", payload.PID, formatTime(payload.StartedAt)), colorize))
	cycle := "idle"
	if payload.CycleActive {
		cycle = "scan cycle in progress"
	}
	fmt.Fprintln(w, renderStatusLine("Cycle", statusInfo, cycle, colorize))
	if payload.LastError != "" {
		fmt.Fprintln(w, renderStatusLine("Last error", statusError, payload.LastError, colorize))
	}
	fmt.Fprintln(w)
}

func renderLastRunSection(w io.Writer, payload *ipc.StatusPayload, colorize bool) {
	if payload.LastRun == nil {
		return
	}
	run := payload.LastRun
	for _, line := range renderSectionHeader("Last Run", colorize) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, renderStatusLine("Run", statusInfo,
		fmt.Sprintf("%s finished %s (took %s)", run.RunID, formatTime(run.FinishedAt), humanizeDuration(run.FinishedAt.Sub(run.StartedAt))), colorize))
	kind := statusOK
	if run.Failed > 0 {
		kind = statusWarn
	}
	fmt.Fprintln(w, renderStatusLine("Outcome", kind,
		fmt.Sprintf("%d discovered, %d transcoded, %d not required, %d already tracked, %d failed",
			run.Discovered, run.Transcoded, run.NotRequired, run.AlreadyTracked, run.Failed), colorize))
	fmt.Fprintln(w)
}

func renderRecordsSection(w io.Writer, payload *ipc.StatusPayload, colorize bool) {
	for _, line := range renderSectionHeader("Records", colorize) {
		fmt.Fprintln(w, line)
	}
	records := payload.Records
	if records.Total == 0 {
		fmt.Fprintln(w, "No records tracked yet")
		fmt.Fprintln(w)
		return
	}

	counts := []struct {
		status store.Status
		count  int
	}{
		{store.StatusPending, records.Pending},
		{store.StatusInProgress, records.InProgress},
		{store.StatusCompleted, records.Completed},
		{store.StatusNotRequired, records.NotRequired},
		{store.StatusFailed, records.Failed},
	}
	rows := make([][]string, 0, len(counts)+1)
	for _, entry := range counts {
		if entry.count == 0 {
			continue
		}
		rows = append(rows, []string{humanizeStatus(entry.status), fmt.Sprintf("%d", entry.count)})
	}
	rows = append(rows, []string{"Total", fmt.Sprintf("%d", records.Total)})
	fmt.Fprintln(w, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintln(w)
}

func renderDependencySection(w io.Writer, cfg *config.Config, colorize bool) {
	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(w, line)
	}
	for _, status := range deps.CheckBinaries(deps.Required(cfg)) {
		if status.Available {
			detail := "Ready"
			if status.Version != "" {
				detail = fmt.Sprintf("Ready (%s)", status.Version)
			}
			fmt.Fprintln(w, renderStatusLine(status.Name, statusOK, detail, colorize))
			continue
		}
		fmt.Fprintln(w, renderStatusLine(status.Name, statusError, status.Detail, colorize))
	}
	fmt.Fprintln(w)
}
