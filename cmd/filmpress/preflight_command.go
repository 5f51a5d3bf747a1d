package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"filmpress/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check binaries, directories, database, and hardware",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()

			results := preflight.RunAll(cmd.Context(), cfg)

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, result := range results {
					verdict := "PASS"
					if !result.Passed {
						verdict = "FAIL"
					}
					rows = append(rows, []string{result.Name, verdict, result.Detail})
				}
				table := renderTable([]string{"Check", "Result", "Detail"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft})
				fmt.Fprintln(cmd.OutOrStdout(), table)
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}
}
