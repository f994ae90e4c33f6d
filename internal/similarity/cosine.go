package similarity

import (
	"context"
	"log/slog"
	"math"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"golang.org/x/sync/errgroup"
)

// Options configures Compute.
type Options struct {
	// Progress, when set, is called once per finished product row. It may be
	// called from several goroutines at once.
	Progress func()
	// Workers bounds the number of rows computed concurrently; values below 1 mean 1.
	Workers int
}

// Compute derives pairwise cosine similarity between all product rows.
// Cost grows with the square of the product count.
func Compute(ctx context.Context, m *InteractionMatrix, opts Options) (*Structure, error) {
	if m == nil || len(m.Products) == 0 {
		return nil, common.ErrMissingData
	}

	n := len(m.Products)
	slog.Info("Computing product similarity",
		"products", n,
		"customers", len(m.Customers),
		"cells", n*(n+1)/2)

	norms := make([]float64, n)
	for i, row := range m.rows {
		norms[i] = floats.Norm(row.vals, 2)
	}

	scores := mat.NewSymDense(n, nil)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(opts.Workers, 1))

	for i := 0; i < n; i++ {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			// Each goroutine writes only row i of the upper triangle.
			scores.SetSym(i, i, 1)
			for j := i + 1; j < n; j++ {
				if norms[i] == 0 || norms[j] == 0 {
					continue
				}
				s := dot(m.rows[i], m.rows[j]) / (norms[i] * norms[j])
				scores.SetSym(i, j, math.Max(-1, math.Min(1, s)))
			}
			if opts.Progress != nil {
				opts.Progress()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return newStructure(m.Products, scores), nil
}

// dot multiplies two sparse rows by merging their sorted column indexes.
func dot(a, b sparseRow) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.cols) && j < len(b.cols) {
		switch {
		case a.cols[i] == b.cols[j]:
			sum += a.vals[i] * b.vals[j]
			i++
			j++
		case a.cols[i] < b.cols[j]:
			i++
		default:
			j++
		}
	}
	return sum
}
