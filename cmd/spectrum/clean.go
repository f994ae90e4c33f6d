package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/shopper-spectrum/internal/cli"
	"github.com/Veraticus/shopper-spectrum/internal/ingest"
	"github.com/spf13/cobra"
)

func cleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean <export.csv>",
		Short: "Write a cleaned copy of a transaction export",
		Long: `Apply the import cleaning rules to an export and write the kept rows,
with a TotalSum column, as UTF-8 CSV.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: bindFlags(map[string]string{
			"input.encoding": "encoding",
		}),
		RunE: runClean,
	}

	cmd.Flags().StringP("output", "o", "cleaned_data.csv", "output file (- for stdout)")
	cmd.Flags().String("encoding", "", "input encoding: latin1 or utf8 (default from config)")

	return cmd
}

func runClean(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	txns, stats, err := readExport(args[0], cfg.InputEncoding)
	if err != nil {
		return err
	}

	if output == "-" {
		return ingest.WriteCSV(cmd.OutOrStdout(), txns)
	}

	f, err := os.Create(output) //nolint:gosec // path is user supplied on purpose
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := ingest.WriteCSV(f, txns); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", output, err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
		fmt.Sprintf("Wrote %d of %d rows to %s", stats.Kept, stats.Read, output)))
	return nil
}
