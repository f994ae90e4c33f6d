package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/shopper-spectrum/internal/cli"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <export.csv>",
		Short: "Import a transaction export into the local database",
		Long: `Read a raw retail transaction export, clean it, and store the kept rows
in the local database for training.

Rows without a customer, returns and cancellations (non-positive quantity)
and rows with a non-positive price are dropped. Rows already imported are
skipped automatically.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: bindFlags(map[string]string{
			"input.encoding": "encoding",
		}),
		RunE: runImport,
	}

	cmd.Flags().String("encoding", "", "input encoding: latin1 or utf8 (default from config)")
	cmd.Flags().Bool("dry-run", false, "Show what would be imported without saving")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("Importing transactions", "file", args[0], "encoding", cfg.InputEncoding)
	txns, stats, err := readExport(args[0], cfg.InputEncoding)
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("  • Rows read: %d\n  • Rows kept: %d\n", stats.Read, stats.Kept) + formatDropped(stats)

	if dryRun {
		_, _ = fmt.Fprintln(out, cli.FormatWarning("Dry run mode - not saving to database"))
		_, _ = fmt.Fprintln(out, cli.RenderBox("Import Preview", summary))
		return nil
	}
	if len(txns) == 0 {
		_, _ = fmt.Fprintln(out, cli.FormatWarning("No rows survived cleaning. Nothing to import."))
		return nil
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	inserted, err := store.SaveTransactions(ctx, txns)
	if err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}
	total, err := store.GetTransactionCount(ctx)
	if err != nil {
		return err
	}

	summary += fmt.Sprintf("  • Newly imported: %d\n  • Stored in total: %d", inserted, total)
	_, _ = fmt.Fprintln(out, cli.FormatSuccess("Import complete!"))
	_, _ = fmt.Fprintln(out, cli.RenderBox("Import Summary", summary))
	return nil
}
