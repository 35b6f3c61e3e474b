package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"spooltracker/internal/pipeline"
)

func newConfirmCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var spoolFlags []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Deduct a stored run's usage from its selected spools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runID = strings.TrimSpace(runID)
			if runID == "" {
				return fmt.Errorf("--run is required")
			}
			overrides, err := parseSpoolOverrides(spoolFlags)
			if err != nil {
				return err
			}
			db, err := ctx.store()
			if err != nil {
				return err
			}

			if dryRun {
				report, err := db.GetRunReport(runID)
				if err != nil {
					return err
				}
				spools, err := db.ListSpools()
				if err != nil {
					return err
				}
				planned, err := pipeline.PlanDeductions(pipeline.AssignmentsFromReport(report, overrides), spools, cfg.EmptyThresholdGrams)
				if err != nil {
					return err
				}
				if ctx.jsonOutput {
					return writeJSON(cmd, planned)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDeductions(planned))
				return nil
			}

			processor := pipeline.NewProcessingService(db, cfg)
			applied, err := processor.ConfirmRun(cmd.Context(), runID, overrides)
			if len(applied) > 0 && !ctx.jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), renderDeductions(applied))
			}
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, applied)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run id to confirm")
	cmd.Flags().StringArrayVar(&spoolFlags, "spool", nil, "Spool override as usageIndex=spoolId (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only plan the deductions")
	return cmd
}

func parseSpoolOverrides(values []string) (map[int]int64, error) {
	out := map[int]int64{}
	for _, v := range values {
		idx, id, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --spool %q: want usageIndex=spoolId", v)
		}
		i, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil || i < 0 {
			return nil, fmt.Errorf("invalid usage index in --spool %q", v)
		}
		spoolID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid spool id in --spool %q", v)
		}
		out[i] = spoolID
	}
	return out, nil
}
