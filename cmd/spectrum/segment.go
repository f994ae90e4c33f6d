package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/shopper-spectrum/internal/cli"
	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/spf13/cobra"
)

func segmentCmd() *cobra.Command {
	bindings := map[string]string{}
	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Predict the segment of a customer from raw RFM values",
		Long: `Scale a (recency, frequency, monetary) triple with the saved scaler and
assign it to the nearest saved segment.

Recency is in days since the last purchase, frequency is the number of
distinct invoices and monetary is the total spend.`,
		Example: "  spectrum segment --recency 12 --frequency 5 --monetary 1520.40",
		PreRunE: bindFlags(bindings),
		RunE:    runSegment,
	}

	cmd.Flags().Float64P("recency", "r", 0, "days since the customer's last purchase")
	cmd.Flags().IntP("frequency", "f", 0, "number of distinct invoices")
	cmd.Flags().Float64P("monetary", "m", 0, "total spend")
	cmd.Flags().String("run", "", "training run id (default: latest)")
	addArtifactFlags(cmd, bindings)

	_ = cmd.MarkFlagRequired("recency")
	_ = cmd.MarkFlagRequired("frequency")
	_ = cmd.MarkFlagRequired("monetary")

	return cmd
}

func runSegment(cmd *cobra.Command, _ []string) error {
	recency, _ := cmd.Flags().GetFloat64("recency")
	frequency, _ := cmd.Flags().GetInt("frequency")
	monetary, _ := cmd.Flags().GetFloat64("monetary")
	runID, _ := cmd.Flags().GetString("run")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, _, err := loadService(cmd.Context(), cfg, runID)
	if err != nil {
		return err
	}

	prediction, err := svc.PredictSegment(recency, frequency, monetary)
	if err != nil {
		if errors.Is(err, common.ErrInvalidArgument) {
			return common.NewUserError("Invalid customer values", err)
		}
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
		fmt.Sprintf("This customer belongs to: %s", cli.BoldStyle.Render(prediction.Segment))))
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render(
		fmt.Sprintf("cluster %d, run %s", prediction.ClusterID, svc.RunID())))
	return nil
}
