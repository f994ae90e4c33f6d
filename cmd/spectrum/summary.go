package main

import (
	"fmt"

	"github.com/Veraticus/shopper-spectrum/internal/cli"
	"github.com/Veraticus/shopper-spectrum/internal/segment"
	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	bindings := map[string]string{}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show mean RFM values per segment",
		Long: `Print, for each segment of a training run, how many customers it holds
and their mean recency, frequency and monetary value.`,
		PreRunE: bindFlags(bindings),
		RunE:    runSummary,
	}

	cmd.Flags().String("run", "", "training run id (default: latest)")
	addArtifactFlags(cmd, bindings)

	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	runID, _ := cmd.Flags().GetString("run")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, run, err := loadService(cmd.Context(), cfg, runID)
	if err != nil {
		return err
	}

	summaries := segment.Summarize(run.Assignments, run.Segmenter.K)
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Label,
			fmt.Sprintf("%d", s.Customers),
			fmt.Sprintf("%.1f", s.MeanRecency),
			fmt.Sprintf("%.1f", s.MeanFrequency),
			fmt.Sprintf("%.2f", s.MeanMonetary),
		})
	}

	_, _ = fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Segments of run %s", run.ID)))
	_, _ = fmt.Fprintln(out, cli.RenderTable(
		[]string{"Segment", "Customers", "Recency", "Frequency", "Monetary"}, rows))
	_, _ = fmt.Fprintln(out, cli.SubtleStyle.Render(
		fmt.Sprintf("snapshot %s, trained %s", run.SnapshotDate.Format("2006-01-02"), run.CreatedAt.Format("2006-01-02 15:04"))))
	return nil
}
