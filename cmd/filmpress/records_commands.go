package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"filmpress/internal/config"
	"filmpress/internal/scan"
	"filmpress/internal/store"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:   "records",
		Short: "Inspect and maintain the transcoding ledger",
	}

	recordsCmd.AddCommand(newRecordsListCommand(ctx))
	recordsCmd.AddCommand(newRecordsShowCommand(ctx))
	recordsCmd.AddCommand(newRecordsRetryCommand(ctx))
	recordsCmd.AddCommand(newRecordsRequeueFailedCommand(ctx))

	return recordsCmd
}

func newRecordsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked source files",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]store.Status, 0, len(listStatuses))
			for _, raw := range listStatuses {
				parsed, ok := store.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, parsed)
			}

			return ctx.withStore(func(st *store.Store) error {
				var records []*store.Record
				var err error
				if len(statuses) > 0 {
					records, err = st.ByStatus(cmd.Context(), statuses...)
				} else {
					records, err = st.All(cmd.Context())
				}
				if err != nil {
					return err
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, records)
				}

				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No records found")
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, record := range records {
					rows = append(rows, []string{
						record.SourcePath,
						humanizeStatus(record.Status),
						record.Backend,
						formatTime(record.UpdatedAt),
					})
				}
				table := renderTable(
					[]string{"Source", "Status", "Backend", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by record status (repeatable)")
	return cmd
}

func newRecordsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <source-path>",
		Short: "Show the full record for one source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := normalizeSourcePath(args[0])
			if err != nil {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				record, err := st.Get(cmd.Context(), path)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("no record for %s", path)
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, record)
				}

				rows := [][]string{
					{"Source", record.SourcePath},
					{"Status", humanizeStatus(record.Status)},
					{"Output", record.OutputPath},
					{"Rendition", renditionLabel(record)},
					{"Backend", record.Backend},
					{"Source size", humanizeSize(record.SourceSize)},
					{"Source modified", formatTime(record.SourceModifiedAt)},
					{"Created", formatTime(record.CreatedAt)},
					{"Updated", formatTime(record.UpdatedAt)},
				}
				if record.ErrorMessage != "" {
					rows = append(rows, []string{"Error", record.ErrorMessage})
				}
				table := renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignLeft})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newRecordsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <source-path>",
		Short: "Reset a failed record so the next cycle retries it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := normalizeSourcePath(args[0])
			if err != nil {
				return err
			}

			return ctx.withStore(func(st *store.Store) error {
				updated, err := st.Retry(cmd.Context(), path)
				if err != nil {
					return err
				}
				if updated {
					fmt.Fprintln(cmd.OutOrStdout(), "Record reset for retry")
					if _, statErr := scan.Stat(path); statErr != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Warning: source is unreadable (%v); scan cycles only revisit files that still exist\n", statErr)
					}
					return nil
				}

				record, err := st.Get(cmd.Context(), path)
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("no record for %s", path)
				}
				return fmt.Errorf("record is %s, not failed", record.Status)
			})
		},
	}
}

func newRecordsRequeueFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue-failed",
		Short: "Reset every failed record to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				updated, err := st.RequeueFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d failed record(s)\n", updated)
				return nil
			})
		},
	}
}

func normalizeSourcePath(arg string) (string, error) {
	expanded, err := config.ExpandPath(strings.TrimSpace(arg))
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", arg, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", arg, err)
	}
	return abs, nil
}

func renditionLabel(record *store.Record) string {
	if record.OutputWidth == 0 && record.OutputHeight == 0 && record.OutputCodec == "" {
		return "-"
	}
	return fmt.Sprintf("%s %dx%d", record.OutputCodec, record.OutputWidth, record.OutputHeight)
}
