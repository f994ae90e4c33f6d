package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/shopper-spectrum/internal/cli"
	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/config"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"github.com/Veraticus/shopper-spectrum/internal/pipeline"
	"github.com/Veraticus/shopper-spectrum/internal/segment"
	"github.com/spf13/cobra"
)

func trainCmd() *cobra.Command {
	bindings := map[string]string{
		"input.encoding":     "encoding",
		"model.k":            "k",
		"model.seed":         "seed",
		"similarity.workers": "workers",
	}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit customer segments and product similarity",
		Long: `Build RFM features for every customer, fit the scaler and k-means
segmenter, compute item-to-item cosine similarity, and save the result
as a new training run.

Transactions come from the local database unless --input names an export.`,
		PreRunE: bindFlags(bindings),
		RunE:    runTrain,
	}

	cmd.Flags().StringP("input", "i", "", "train from this export instead of the database")
	cmd.Flags().String("encoding", "", "input encoding: latin1 or utf8 (default from config)")
	cmd.Flags().Int("k", 0, "number of segments; names come from model.segment_names, or the first k defaults when unset (default from config)")
	cmd.Flags().Uint64("seed", 0, "random seed (default from config)")
	cmd.Flags().Int("workers", 0, "similarity workers (default GOMAXPROCS)")
	cmd.Flags().Bool("no-progress", false, "Disable the progress bar")
	addArtifactFlags(cmd, bindings)

	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	input, _ := cmd.Flags().GetString("input")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Training")
	ctx := interrupts.HandleInterrupts(cmd.Context())

	txns, err := trainingTransactions(ctx, cfg, input)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		return common.NewUserError("No transactions to train on. Run 'spectrum import' first", common.ErrMissingData)
	}

	opts := pipeline.Options{
		Segment: segmentOptions(cfg),
		Workers: cfg.Workers,
	}
	if !noProgress {
		opts.Progress = cli.NewProgressBar(cmd.ErrOrStderr())
	}

	slog.Info("Training model",
		"transactions", len(txns),
		"k", cfg.Model.K,
		"seed", cfg.Model.Seed,
		"workers", cfg.Workers)

	run, err := pipeline.Train(ctx, txns, opts)
	if err != nil {
		if interrupts.WasInterrupted() {
			return nil
		}
		if errors.Is(err, common.ErrInsufficientData) {
			return common.NewUserError("Not enough distinct customers for the requested number of segments", err)
		}
		return err
	}

	store, err := openArtifactStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}

	_, _ = fmt.Fprintln(out, cli.FormatSuccess("Training complete!"))
	_, _ = fmt.Fprintln(out, cli.RenderBox("Training Run "+run.ID, trainingSummary(run)))
	return nil
}

func trainingTransactions(ctx context.Context, cfg *config.Config, input string) ([]model.Transaction, error) {
	if input != "" {
		txns, _, err := readExport(input, cfg.InputEncoding)
		return txns, err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()
	return store.GetTransactions(ctx)
}

func segmentOptions(cfg *config.Config) segment.Options {
	opts := segment.DefaultOptions(cfg.Model.SegmentNames)
	opts.K = cfg.Model.K
	opts.Seed = cfg.Model.Seed
	opts.NInit = cfg.Model.NInit
	opts.MaxIter = cfg.Model.MaxIter
	opts.Tolerance = cfg.Model.Tolerance
	return opts
}

func trainingSummary(run *model.TrainingRun) string {
	summary := fmt.Sprintf("  • Transactions: %d\n", run.Transactions) +
		fmt.Sprintf("  • Customers: %d\n", run.Customers) +
		fmt.Sprintf("  • Products: %d\n", run.Products) +
		fmt.Sprintf("  • Snapshot date: %s\n", run.SnapshotDate.Format("2006-01-02")) +
		fmt.Sprintf("  • Inertia: %.4f after %d iterations\n", run.Segmenter.Inertia, run.Segmenter.Iterations)

	for _, s := range segment.Summarize(run.Assignments, run.Segmenter.K) {
		summary += fmt.Sprintf("  • %s: %d customers\n", s.Label, s.Customers)
	}
	return summary
}
