package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"spooltracker/internal/inventory"
)

func newInventoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Manage the local spool snapshot",
	}
	cmd.AddCommand(newInventorySyncCommand(ctx), newInventoryImportCommand(ctx), newInventoryListCommand(ctx))
	return cmd
}

func newInventorySyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull spools from the SpoolTracker backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := ctx.store()
			if err != nil {
				return err
			}
			count, err := inventory.NewSyncService(db, cfg).Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inventory sync complete: %d spools\n", count)
			return nil
		},
	}
}

func newInventoryImportCommand(ctx *commandContext) *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load spools from a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if xlsxPath == "" {
				return fmt.Errorf("--xlsx is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			blob, err := os.ReadFile(xlsxPath)
			if err != nil {
				return err
			}
			spools, err := inventory.ParseSpoolsXLSX(blob)
			if err != nil {
				return err
			}
			db, err := ctx.store()
			if err != nil {
				return err
			}
			count, err := inventory.NewSyncService(db, cfg).Import(spools)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d spools from %s\n", count, xlsxPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Spreadsheet with a spool header row")
	return cmd
}

func newInventoryListCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List spools in the local snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.store()
			if err != nil {
				return err
			}
			spools, err := db.ListSpools()
			if err != nil {
				return err
			}
			if !all {
				spools = inventory.Available(spools)
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, spools)
			}
			rows := make([][]string, 0, len(spools))
			for _, s := range spools {
				empty := ""
				if s.IsEmpty {
					empty = "yes"
				}
				rows = append(rows, []string{
					strconv.FormatInt(s.ID, 10), s.UID, s.ManufacturerName, s.MaterialName, s.ColorName, s.ColorHexCode,
					orDash(s.ColorProductCode), grams(s.RemainingGrams()), empty,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "UID", "Brand", "Material", "Color", "Hex", "Code", "Grams", "Empty"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include empty spools")
	return cmd
}
