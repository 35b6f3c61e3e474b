package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spooltracker/internal/pipeline"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var runID, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a run's usages and matches to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(runID) == "" || strings.TrimSpace(out) == "" {
				return fmt.Errorf("--run and --out are required")
			}
			db, err := ctx.store()
			if err != nil {
				return err
			}
			rows, err := db.GetExportRows(runID)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("no export rows for run=%s", runID)
			}
			if err := pipeline.ExportRowsToXLSX(rows, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Run id")
	cmd.Flags().StringVar(&out, "out", "", "Output xlsx path")
	return cmd
}
