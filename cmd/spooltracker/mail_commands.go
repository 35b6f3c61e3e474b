package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spooltracker/internal/connectors"
	"spooltracker/internal/listener"
	"spooltracker/internal/pipeline"
)

func newMailCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Fetch and process print jobs sent by mail",
	}
	cmd.AddCommand(newMailFetchCommand(ctx), newMailProcessCommand(ctx), newMailListenCommand(ctx))
	return cmd
}

func newMailFetchCommand(ctx *commandContext) *cobra.Command {
	var provider, label string
	var max int
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Store new messages with print attachments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := ctx.store()
			if err != nil {
				return err
			}
			conn, err := listener.NewConnector(cmd.Context(), cfg, strings.ToLower(provider))
			if err != nil {
				return err
			}
			result, err := connectors.NewFetchService(db, cfg.InboxDir, conn).FetchAndStore(cmd.Context(), label, max)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mail fetch done provider=%s fetched=%d stored=%d\n", provider, result.Fetched, result.Stored)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "imap", "gmail|imap")
	cmd.Flags().StringVar(&label, "label", "INBOX", "Mailbox or label")
	cmd.Flags().IntVar(&max, "max", 50, "Maximum messages")
	return cmd
}

func newMailProcessCommand(ctx *commandContext) *cobra.Command {
	var provider, messageID string
	var batch int
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process stored messages",
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
			if strings.TrimSpace(messageID) != "" {
				res, err := processor.ProcessByProviderMessageID(cmd.Context(), provider, messageID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "processed message id=%d runs=%d usages=%d\n", res.MessageRowID, len(res.RunIDs), res.Usages)
				for _, id := range res.RunIDs {
					fmt.Fprintf(cmd.OutOrStdout(), "  run %s\n", id)
				}
				return nil
			}
			messages, runs, err := processor.ProcessPending(cmd.Context(), batch, provider)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed pending messages=%d runs=%d\n", messages, runs)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "imap", "gmail|imap")
	cmd.Flags().StringVar(&messageID, "message-id", "", "Process one message by its Message-ID")
	cmd.Flags().IntVar(&batch, "batch", 20, "Batch size")
	return cmd
}

func newMailListenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Poll the mailbox until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := ctx.store()
			if err != nil {
				return err
			}
			return listener.NewService(db, cfg).Run(cmd.Context())
		},
	}
}
