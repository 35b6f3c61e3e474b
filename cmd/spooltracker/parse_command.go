package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spooltracker/internal"
	"spooltracker/internal/inventory"
	"spooltracker/internal/pipeline"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	cmd := newParseLikeCommand(ctx, false)
	cmd.Use = "parse <path|gcode>"
	cmd.Short = "Extract filament usage from a 3MF, G-code or .eml file without storing it"
	return cmd
}

// newMatchCommand is parse with matching against the local snapshot always on.
func newMatchCommand(ctx *commandContext) *cobra.Command {
	cmd := newParseLikeCommand(ctx, true)
	cmd.Use = "match <path|gcode>"
	cmd.Short = "Parse a print file and rank candidate spools without storing a run"
	return cmd
}

func newParseLikeCommand(ctx *commandContext, match bool) *cobra.Command {
	var inputType string

	cmd := &cobra.Command{
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if inputType == "" {
				inputType = pipeline.InputTypeForPath(args[0])
			}
			files, err := pipeline.ParseInput(inputType, args[0], pipeline.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}

			reports := make([]internal.PrintReport, 0, len(files))
			var matcher *pipeline.Matcher
			if match {
				db, err := ctx.store()
				if err != nil {
					return err
				}
				spools, err := db.ListSpools()
				if err != nil {
					return err
				}
				matcher = pipeline.NewMatcher(cfg, inventory.Available(spools))
			}
			for _, f := range files {
				report := internal.PrintReport{File: f}
				if matcher != nil {
					report.Matches = matcher.MatchAll(f.FilamentUsages)
				}
				reports = append(reports, report)
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, reports)
			}
			if len(reports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No print files found")
				return nil
			}
			for _, r := range reports {
				fmt.Fprint(cmd.OutOrStdout(), renderParsedFile(r.File))
				if matcher != nil {
					fmt.Fprintln(cmd.OutOrStdout(), renderMatches(r.Matches))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputType, "type", "", "Input type: file, gcode_text or eml (guessed from the extension by default)")
	if !match {
		cmd.Flags().BoolVar(&match, "match", false, "Match usages against the local spool snapshot")
	}
	return cmd
}
