package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/shopper-spectrum/internal/cli"
	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/spf13/cobra"
)

func recommendCmd() *cobra.Command {
	bindings := map[string]string{
		"recommend.top_n": "top",
	}
	cmd := &cobra.Command{
		Use:   "recommend <product name>",
		Short: "List products most similar to a product",
		Long: `Look up a product description in the saved similarity structure and
list the products bought most often by the same customers.

Matching ignores case and repeated whitespace.`,
		Example: `  spectrum recommend "WHITE HANGING HEART T-LIGHT HOLDER" --top 5`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: bindFlags(bindings),
		RunE:    runRecommend,
	}

	cmd.Flags().IntP("top", "n", 0, "number of recommendations (default from config)")
	cmd.Flags().Bool("scores", false, "Show similarity scores")
	cmd.Flags().String("run", "", "training run id (default: latest)")
	addArtifactFlags(cmd, bindings)

	return cmd
}

func runRecommend(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	showScores, _ := cmd.Flags().GetBool("scores")
	runID, _ := cmd.Flags().GetString("run")
	product := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, _, err := loadService(cmd.Context(), cfg, runID)
	if err != nil {
		return err
	}

	neighbors, err := svc.Recommend(product, cfg.TopN)
	if err != nil {
		if errors.Is(err, common.ErrProductNotFound) {
			return common.NewUserError(fmt.Sprintf("Product %q is not in the catalogue", product), err)
		}
		return err
	}

	if len(neighbors) == 0 {
		_, _ = fmt.Fprintln(out, cli.FormatWarning("No similar products found."))
		return nil
	}

	_, _ = fmt.Fprintln(out, cli.TitleStyle.Render(cli.CartIcon+" Customers who bought this also bought"))
	for i, n := range neighbors {
		line := fmt.Sprintf("%2d. %s", i+1, n.Product)
		if showScores {
			line += cli.SubtleStyle.Render(fmt.Sprintf("  (%.4f)", n.Score))
		}
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}
