// Package pipeline runs a full training pass over cleaned transactions.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/shopper-spectrum/internal/features"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"github.com/Veraticus/shopper-spectrum/internal/scaler"
	"github.com/Veraticus/shopper-spectrum/internal/segment"
	"github.com/Veraticus/shopper-spectrum/internal/service"
	"github.com/Veraticus/shopper-spectrum/internal/similarity"
	"github.com/google/uuid"
)

// Options configures Train.
type Options struct {
	// Progress reports similarity rows as they finish. Optional.
	Progress service.ProgressReporter
	// Now stamps the run. Defaults to time.Now.
	Now     func() time.Time
	Segment segment.Options
	Workers int
}

// Train fits the scaler, segmenter and similarity structure from txns and
// assigns every fitted customer to a segment.
func Train(ctx context.Context, txns []model.Transaction, opts Options) (*model.TrainingRun, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	start := time.Now()

	table, err := features.Build(txns)
	if err != nil {
		return nil, fmt.Errorf("failed to build RFM features: %w", err)
	}

	raw := table.Matrix()
	state, err := scaler.Fit(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	scaled, err := scaler.TransformAll(state, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to scale features: %w", err)
	}

	segmenter, err := segment.Fit(scaled, opts.Segment)
	if err != nil {
		return nil, fmt.Errorf("failed to fit segments: %w", err)
	}

	assignments, err := assign(table.Records, scaled, segmenter)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matrix, err := similarity.Build(txns)
	if err != nil {
		return nil, fmt.Errorf("failed to build interaction matrix: %w", err)
	}
	products, customers := matrix.Dims()

	simOpts := similarity.Options{Workers: opts.Workers}
	if opts.Progress != nil {
		opts.Progress.Start(products, "Computing product similarity")
		simOpts.Progress = opts.Progress.Increment
	}
	structure, err := similarity.Compute(ctx, matrix, simOpts)
	if opts.Progress != nil {
		opts.Progress.Finish()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to compute similarity: %w", err)
	}

	run := &model.TrainingRun{
		ID:           uuid.NewString(),
		CreatedAt:    now().UTC(),
		SnapshotDate: table.Snapshot,
		Scaler:       state,
		Segmenter:    segmenter,
		Similarity:   structure.State(),
		Assignments:  assignments,
		Transactions: len(txns),
		Customers:    len(table.Records),
		Products:     products,
	}

	slog.Info("Training complete",
		"run_id", run.ID,
		"customers", run.Customers,
		"excluded_customers", table.Excluded,
		"products", products,
		"matrix_customers", customers,
		"inertia", segmenter.Inertia,
		"duration", time.Since(start))
	return run, nil
}

func assign(records []model.RFMRecord, scaled [][]float64, m *model.SegmentModel) ([]model.CustomerSegment, error) {
	out := make([]model.CustomerSegment, len(records))
	for i, rec := range records {
		id, err := segment.Predict(m, scaled[i])
		if err != nil {
			return nil, fmt.Errorf("failed to assign customer %s: %w", rec.CustomerID, err)
		}
		label, err := segment.Label(m, id)
		if err != nil {
			return nil, fmt.Errorf("failed to label customer %s: %w", rec.CustomerID, err)
		}
		out[i] = model.CustomerSegment{RFMRecord: rec, ClusterID: id, Label: label}
	}
	return out, nil
}
