package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spooltracker/internal/util"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored runs",
	}
	cmd.AddCommand(newRunsListCommand(ctx), newRunsShowCommand(ctx))
	return cmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.store()
			if err != nil {
				return err
			}
			runs, err := db.ListRuns(limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs stored")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				printTime := "-"
				if r.PrintTime != nil {
					printTime = util.FormatPrintTime(*r.PrintTime)
				}
				rows = append(rows, []string{
					r.RunID, r.CreatedAt, r.Filename, r.Format, orDash(r.ProjectName), printTime,
					strconv.Itoa(r.UsageCount), strconv.Itoa(r.ErrorCount),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Created", "File", "Format", "Project", "Time", "Usages", "Errors"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run with its matches and deductions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.store()
			if err != nil {
				return err
			}
			report, err := db.GetRunReport(args[0])
			if err != nil {
				return err
			}
			deductions, err := db.ListDeductions(args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, map[string]any{"report": report, "deductions": deductions})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s\n", report.RunID)
			fmt.Fprint(cmd.OutOrStdout(), renderParsedFile(report.File))
			fmt.Fprintln(cmd.OutOrStdout(), renderMatches(report.Matches))
			if len(deductions) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), renderDeductions(deductions))
			}
			return nil
		},
	}
}
