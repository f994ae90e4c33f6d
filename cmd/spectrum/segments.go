package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Veraticus/shopper-spectrum/internal/cli"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"github.com/spf13/cobra"
)

func segmentsCmd() *cobra.Command {
	bindings := map[string]string{}
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Export the segment of every trained customer as CSV",
		Long: `Write one row per customer of a training run with its RFM values,
cluster id and segment name.`,
		PreRunE: bindFlags(bindings),
		RunE:    runSegments,
	}

	cmd.Flags().StringP("output", "o", "-", "output file (- for stdout)")
	cmd.Flags().String("run", "", "training run id (default: latest)")
	addArtifactFlags(cmd, bindings)

	return cmd
}

func runSegments(cmd *cobra.Command, _ []string) error {
	output, _ := cmd.Flags().GetString("output")
	runID, _ := cmd.Flags().GetString("run")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, run, err := loadService(cmd.Context(), cfg, runID)
	if err != nil {
		return err
	}

	if output == "-" {
		return writeSegments(cmd.OutOrStdout(), run.Assignments)
	}

	f, err := os.Create(output) //nolint:gosec // path is user supplied on purpose
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := writeSegments(f, run.Assignments); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", output, err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
		fmt.Sprintf("Exported %d customers to %s", len(run.Assignments), output)))
	return nil
}

func writeSegments(w io.Writer, assignments []model.CustomerSegment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"CustomerID", "Recency", "Frequency", "Monetary", "Cluster", "Segment"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, a := range assignments {
		if err := cw.Write([]string{
			a.CustomerID,
			strconv.Itoa(a.Recency),
			strconv.Itoa(a.Frequency),
			strconv.FormatFloat(a.Monetary, 'f', 2, 64),
			strconv.Itoa(a.ClusterID),
			a.Label,
		}); err != nil {
			return fmt.Errorf("failed to write customer %s: %w", a.CustomerID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
