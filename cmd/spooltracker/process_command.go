package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spooltracker/internal"
	"spooltracker/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <path>...",
		Short: "Parse, match and store print files as runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := ctx.store()
			if err != nil {
				return err
			}
			processor := pipeline.NewProcessingService(db, cfg)

			reports := make([]internal.PrintReport, 0, len(args))
			for _, path := range args {
				report, err := processor.ProcessPath(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				reports = append(reports, report)
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, reports)
			}
			for _, r := range reports {
				fmt.Fprintf(cmd.OutOrStdout(), "run %s\n", r.RunID)
				fmt.Fprint(cmd.OutOrStdout(), renderParsedFile(r.File))
				fmt.Fprintln(cmd.OutOrStdout(), renderMatches(r.Matches))
			}
			return nil
		},
	}
}
