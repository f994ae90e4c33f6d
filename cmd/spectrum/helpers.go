package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/config"
	"github.com/Veraticus/shopper-spectrum/internal/ingest"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"github.com/Veraticus/shopper-spectrum/internal/service"
	"github.com/Veraticus/shopper-spectrum/internal/serving"
	"github.com/Veraticus/shopper-spectrum/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadConfig builds the typed configuration from flags, env and config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("Invalid configuration", err)
	}
	return cfg, nil
}

// initStorage opens the SQLite database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// openArtifactStore returns the configured training run store.
func openArtifactStore(ctx context.Context, cfg *config.Config) (service.ArtifactStore, error) {
	if cfg.ArtifactBackend == config.BackendJSON {
		store, err := storage.NewFileStore(cfg.ArtifactPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// loadService loads a training run, the latest unless runID is set, and
// prepares it for queries.
func loadService(ctx context.Context, cfg *config.Config, runID string) (*serving.Service, *model.TrainingRun, error) {
	store, err := openArtifactStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = store.Close() }()

	var run *model.TrainingRun
	if runID != "" {
		run, err = store.LoadRun(ctx, runID)
	} else {
		run, err = store.LoadLatestRun(ctx)
	}
	if err != nil {
		return nil, nil, common.NewUserError("No trained model found. Run 'spectrum train' first", err)
	}

	svc, err := serving.New(run)
	if err != nil {
		return nil, nil, err
	}
	return svc, run, nil
}

// readExport reads and cleans a raw transaction export.
func readExport(path, encoding string) ([]model.Transaction, ingest.CleanStats, error) {
	f, err := os.Open(path) //nolint:gosec // path is user supplied on purpose
	if err != nil {
		return nil, ingest.CleanStats{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := ingest.ReadCSV(f, ingest.Options{Encoding: encoding})
	if err != nil {
		return nil, ingest.CleanStats{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	txns, stats := ingest.Clean(rows)
	return txns, stats, nil
}

// formatDropped renders drop counts in a stable order.
func formatDropped(stats ingest.CleanStats) string {
	out := ""
	for _, reason := range []string{
		ingest.DropMissingCustomer,
		ingest.DropMissingInvoice,
		ingest.DropMissingDate,
		ingest.DropMissingQuantity,
		ingest.DropMissingPrice,
		ingest.DropNonPositiveQuantity,
		ingest.DropNonPositivePrice,
	} {
		if n := stats.Dropped[reason]; n > 0 {
			out += fmt.Sprintf("  • %s: %d\n", reason, n)
		}
	}
	return out
}

// bindFlags binds flags to config keys when the command runs. Several
// commands share a key, so binding at construction would let the last
// registered command win.
func bindFlags(bindings map[string]string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		for key, name := range bindings {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
		return nil
	}
}

// addArtifactFlags registers the flags selecting where training runs live.
func addArtifactFlags(cmd *cobra.Command, bindings map[string]string) {
	cmd.Flags().String("backend", "", "artifact backend: sqlite or json (default from config)")
	cmd.Flags().String("artifacts", "", "artifact file for the json backend")
	bindings["artifacts.backend"] = "backend"
	bindings["artifacts.path"] = "artifacts"
}
