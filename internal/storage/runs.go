package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"github.com/goccy/go-json"
)

// SaveRun stores every artifact of a training run in one transaction.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.TrainingRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	meanJSON, err := json.Marshal(run.Scaler.Mean)
	if err != nil {
		return fmt.Errorf("failed to encode scaler mean: %w", err)
	}
	stdJSON, err := json.Marshal(run.Scaler.Std)
	if err != nil {
		return fmt.Errorf("failed to encode scaler std: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seg := run.Segmenter
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO training_runs (
			id, created_at, snapshot_date, transaction_count, customer_count, product_count,
			scaler_mean, scaler_std, scaler_samples, k, seed, inertia, iterations
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.CreatedAt.UTC(),
		run.SnapshotDate.UTC(),
		run.Transactions,
		run.Customers,
		run.Products,
		string(meanJSON),
		string(stdJSON),
		run.Scaler.Samples,
		seg.K,
		int64(seg.Seed), // SQLite integers are signed; the bit pattern is preserved
		seg.Inertia,
		seg.Iterations,
	); err != nil {
		return fmt.Errorf("failed to insert training run %s: %w", run.ID, err)
	}

	for id, centroid := range seg.Centroids {
		coords, marshalErr := json.Marshal(centroid)
		if marshalErr != nil {
			return fmt.Errorf("failed to encode centroid %d: %w", id, marshalErr)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO segment_centroids (run_id, cluster_id, coordinates, label) VALUES (?, ?, ?, ?)`,
			run.ID, id, string(coords), seg.Labels[id],
		); err != nil {
			return fmt.Errorf("failed to insert centroid %d: %w", id, err)
		}
	}

	if err := insertRows(ctx, tx, `INSERT INTO products (run_id, idx, name) VALUES (?, ?, ?)`,
		len(run.Similarity.Products), func(i int) []any {
			return []any{run.ID, i, run.Similarity.Products[i]}
		}); err != nil {
		return fmt.Errorf("failed to insert products: %w", err)
	}

	if err := insertRows(ctx, tx, `INSERT INTO product_similarity (run_id, a, b, score) VALUES (?, ?, ?, ?)`,
		len(run.Similarity.Pairs), func(i int) []any {
			p := run.Similarity.Pairs[i]
			return []any{run.ID, p.A, p.B, p.Score}
		}); err != nil {
		return fmt.Errorf("failed to insert product similarity: %w", err)
	}

	if err := insertRows(ctx, tx, `
		INSERT INTO customer_segments (run_id, customer_id, recency, frequency, monetary, cluster_id, label)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(run.Assignments), func(i int) []any {
			a := run.Assignments[i]
			return []any{run.ID, a.CustomerID, a.Recency, a.Frequency, a.Monetary, a.ClusterID, a.Label}
		}); err != nil {
		return fmt.Errorf("failed to insert customer segments: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit training run: %w", err)
	}

	slog.Debug("Saved training run",
		"run_id", run.ID,
		"pairs", len(run.Similarity.Pairs),
		"assignments", len(run.Assignments))
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, query string, n int, args func(int) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// LoadLatestRun returns the most recently created training run.
func (s *SQLiteStorage) LoadLatestRun(ctx context.Context) (*model.TrainingRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM training_runs ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no training runs", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest training run: %w", err)
	}
	return s.LoadRun(ctx, id)
}

// LoadRun returns the training run with the given id.
func (s *SQLiteStorage) LoadRun(ctx context.Context, id string) (*model.TrainingRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	run := &model.TrainingRun{
		Scaler:     &model.ScalerState{},
		Segmenter:  &model.SegmentModel{},
		Similarity: &model.SimilarityState{},
	}
	var meanJSON, stdJSON string
	var seed int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, snapshot_date, transaction_count, customer_count, product_count,
		       scaler_mean, scaler_std, scaler_samples, k, seed, inertia, iterations
		FROM training_runs WHERE id = ?
	`, id).Scan(
		&run.ID,
		&run.CreatedAt,
		&run.SnapshotDate,
		&run.Transactions,
		&run.Customers,
		&run.Products,
		&meanJSON,
		&stdJSON,
		&run.Scaler.Samples,
		&run.Segmenter.K,
		&seed,
		&run.Segmenter.Inertia,
		&run.Segmenter.Iterations,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: training run %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load training run %s: %w", id, err)
	}
	run.CreatedAt = run.CreatedAt.UTC()
	run.SnapshotDate = run.SnapshotDate.UTC()
	run.Segmenter.Seed = uint64(seed)

	if err := json.Unmarshal([]byte(meanJSON), &run.Scaler.Mean); err != nil {
		return nil, fmt.Errorf("failed to decode scaler mean: %w", err)
	}
	if err := json.Unmarshal([]byte(stdJSON), &run.Scaler.Std); err != nil {
		return nil, fmt.Errorf("failed to decode scaler std: %w", err)
	}

	if err := s.loadCentroids(ctx, run); err != nil {
		return nil, err
	}
	if err := s.loadSimilarity(ctx, run); err != nil {
		return nil, err
	}
	if err := s.loadAssignments(ctx, run); err != nil {
		return nil, err
	}
	if err := validateRun(run); err != nil {
		return nil, fmt.Errorf("training run %s: %w", id, err)
	}
	return run, nil
}

func (s *SQLiteStorage) loadCentroids(ctx context.Context, run *model.TrainingRun) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT coordinates, label FROM segment_centroids WHERE run_id = ? ORDER BY cluster_id`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query centroids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var coordsJSON, label string
		if err := rows.Scan(&coordsJSON, &label); err != nil {
			return fmt.Errorf("failed to scan centroid: %w", err)
		}
		var coords []float64
		if err := json.Unmarshal([]byte(coordsJSON), &coords); err != nil {
			return fmt.Errorf("failed to decode centroid: %w", err)
		}
		run.Segmenter.Centroids = append(run.Segmenter.Centroids, coords)
		run.Segmenter.Labels = append(run.Segmenter.Labels, label)
	}
	return rows.Err()
}

func (s *SQLiteStorage) loadSimilarity(ctx context.Context, run *model.TrainingRun) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM products WHERE run_id = ? ORDER BY idx`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query products: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan product: %w", err)
		}
		run.Similarity.Products = append(run.Similarity.Products, name)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	pairs, err := s.db.QueryContext(ctx,
		`SELECT a, b, score FROM product_similarity WHERE run_id = ? ORDER BY a, b`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query product similarity: %w", err)
	}
	defer func() { _ = pairs.Close() }()

	for pairs.Next() {
		var p model.SimilarityPair
		if err := pairs.Scan(&p.A, &p.B, &p.Score); err != nil {
			return fmt.Errorf("failed to scan similarity pair: %w", err)
		}
		run.Similarity.Pairs = append(run.Similarity.Pairs, p)
	}
	return pairs.Err()
}

func (s *SQLiteStorage) loadAssignments(ctx context.Context, run *model.TrainingRun) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, recency, frequency, monetary, cluster_id, label
		FROM customer_segments WHERE run_id = ? ORDER BY customer_id
	`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query customer segments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var a model.CustomerSegment
		if err := rows.Scan(&a.CustomerID, &a.Recency, &a.Frequency, &a.Monetary, &a.ClusterID, &a.Label); err != nil {
			return fmt.Errorf("failed to scan customer segment: %w", err)
		}
		run.Assignments = append(run.Assignments, a)
	}
	return rows.Err()
}
