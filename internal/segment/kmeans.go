// Package segment partitions scaled RFM vectors into customer segments with
// seeded k-means and maps cluster ids to segment names.
package segment

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Options configures Fit.
type Options struct {
	// Names are assigned to clusters in descending order of the RankFeature
	// centroid coordinate. len(Names) must equal K.
	Names       []string
	Tolerance   float64
	Seed        uint64
	K           int
	NInit       int
	MaxIter     int
	RankFeature int
}

// DefaultOptions returns the settings used for RFM segmentation.
func DefaultOptions(names []string) Options {
	return Options{
		Names:       names,
		Tolerance:   1e-4,
		Seed:        42,
		K:           len(names),
		NInit:       10,
		MaxIter:     300,
		RankFeature: model.FeatureMonetary,
	}
}

type run struct {
	centroids  [][]float64
	inertia    float64
	iterations int
}

// Fit clusters rows into opts.K groups. Identical rows, options and seed
// always produce identical centroids and ids.
func Fit(rows [][]float64, opts Options) (*model.SegmentModel, error) {
	if err := validate(rows, opts); err != nil {
		return nil, err
	}

	tol := opts.Tolerance * meanVariance(rows)
	nInit := max(opts.NInit, 1)
	maxIter := max(opts.MaxIter, 1)

	master := rand.New(rand.NewPCG(opts.Seed, 0))
	var best *run
	for attempt := 0; attempt < nInit; attempt++ {
		rng := rand.New(rand.NewPCG(master.Uint64(), uint64(attempt)))
		r := lloyd(rows, seedCentroids(rows, opts.K, rng), maxIter, tol)
		slog.Debug("k-means restart finished",
			"attempt", attempt,
			"inertia", r.inertia,
			"iterations", r.iterations)
		if best == nil || r.inertia < best.inertia {
			best = r
		}
	}

	m := &model.SegmentModel{
		Centroids:  best.centroids,
		Seed:       opts.Seed,
		Inertia:    best.inertia,
		K:          opts.K,
		Iterations: best.iterations,
	}
	m.Labels = DeriveLabels(m.Centroids, opts.Names, opts.RankFeature)

	slog.Info("Fitted segment model",
		"k", m.K,
		"inertia", m.Inertia,
		"iterations", m.Iterations)
	return m, nil
}

func validate(rows [][]float64, opts Options) error {
	if opts.K < 1 {
		return fmt.Errorf("%w: k must be at least 1, got %d", common.ErrInvalidArgument, opts.K)
	}
	if len(opts.Names) != opts.K {
		return fmt.Errorf("%w: %d segment names for %d clusters", common.ErrInvalidArgument, len(opts.Names), opts.K)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: no rows to cluster", common.ErrMissingData)
	}

	dims := len(rows[0])
	if opts.RankFeature < 0 || opts.RankFeature >= dims {
		return fmt.Errorf("%w: rank feature %d outside %d features", common.ErrShapeMismatch, opts.RankFeature, dims)
	}

	distinct := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		if len(row) != dims {
			return fmt.Errorf("%w: row %d has %d features, expected %d", common.ErrShapeMismatch, i, len(row), dims)
		}
		distinct[pointKey(row)] = struct{}{}
	}
	if len(distinct) < opts.K {
		return fmt.Errorf("%w: %d distinct points for %d clusters", common.ErrInsufficientData, len(distinct), opts.K)
	}
	return nil
}

func pointKey(row []float64) string {
	parts := make([]string, len(row))
	for j, v := range row {
		parts[j] = strconv.FormatUint(math.Float64bits(v), 16)
	}
	return strings.Join(parts, ",")
}

func meanVariance(rows [][]float64) float64 {
	col := make([]float64, len(rows))
	var total float64
	for j := range rows[0] {
		for i, row := range rows {
			col[i] = row[j]
		}
		total += stat.PopVariance(col, nil)
	}
	return total / float64(len(rows[0]))
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// seedCentroids picks k starting centroids with k-means++ sampling.
func seedCentroids(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(rows[rng.IntN(len(rows))]))

	closest := make([]float64, len(rows))
	for i, row := range rows {
		closest[i] = sqDist(row, centroids[0])
	}

	for len(centroids) < k {
		sum := floats.Sum(closest)
		next := -1
		if sum > 0 {
			target := rng.Float64() * sum
			var acc float64
			for i, d := range closest {
				acc += d
				if d > 0 && acc >= target {
					next = i
					break
				}
			}
		}
		if next < 0 {
			next = floats.MaxIdx(closest)
		}

		c := clone(rows[next])
		centroids = append(centroids, c)
		for i, row := range rows {
			if d := sqDist(row, c); d < closest[i] {
				closest[i] = d
			}
		}
	}
	return centroids
}

func lloyd(rows [][]float64, centroids [][]float64, maxIter int, tol float64) *run {
	k := len(centroids)
	dims := len(rows[0])
	labels := make([]int, len(rows))
	for i := range labels {
		labels[i] = -1
	}

	iterations := 0
	for iterations < maxIter {
		iterations++
		changed := assign(rows, centroids, labels)

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, row := range rows {
			floats.Add(sums[labels[i]], row)
			counts[labels[i]]++
		}

		var shift float64
		for c := range centroids {
			if counts[c] == 0 {
				// Re-seed an empty cluster on the worst-served point.
				idx := farthest(rows, centroids, labels)
				sums[c] = clone(rows[idx])
				labels[idx] = c
			} else {
				floats.Scale(1/float64(counts[c]), sums[c])
			}
			shift += sqDist(centroids[c], sums[c])
			centroids[c] = sums[c]
		}

		if !changed || shift <= tol {
			break
		}
	}

	assign(rows, centroids, labels)
	var inertia float64
	for i, row := range rows {
		inertia += sqDist(row, centroids[labels[i]])
	}
	return &run{centroids: centroids, inertia: inertia, iterations: iterations}
}

// assign labels every row with its nearest centroid and reports whether any label changed.
func assign(rows [][]float64, centroids [][]float64, labels []int) bool {
	changed := false
	for i, row := range rows {
		c := nearest(centroids, row)
		if labels[i] != c {
			labels[i] = c
			changed = true
		}
	}
	return changed
}

func nearest(centroids [][]float64, vec []float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := floats.Distance(vec, centroid, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func farthest(rows [][]float64, centroids [][]float64, labels []int) int {
	idx, worst := 0, -1.0
	for i, row := range rows {
		if d := sqDist(row, centroids[labels[i]]); d > worst {
			idx, worst = i, d
		}
	}
	return idx
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// Predict returns the id of the centroid nearest to vec; ties go to the lowest id.
func Predict(m *model.SegmentModel, vec []float64) (int, error) {
	if !m.Fitted() {
		return 0, fmt.Errorf("%w: segment model", common.ErrNotFitted)
	}
	if err := checkCentroids(m, len(m.Centroids[0])); err != nil {
		return 0, err
	}
	if len(vec) != len(m.Centroids[0]) {
		return 0, fmt.Errorf("%w: got %d features, model expects %d", common.ErrShapeMismatch, len(vec), len(m.Centroids[0]))
	}
	for j, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: feature %d is %v", common.ErrInvalidArgument, j, v)
		}
	}
	return nearest(m.Centroids, vec), nil
}

// Validate checks that m can serve predictions over vectors of the given
// width: K centroids of that width with finite coordinates and K labels.
func Validate(m *model.SegmentModel, features int) error {
	if !m.Fitted() {
		return fmt.Errorf("%w: segment model", common.ErrNotFitted)
	}
	if len(m.Labels) != m.K {
		return fmt.Errorf("%w: %d labels for %d clusters", common.ErrShapeMismatch, len(m.Labels), m.K)
	}
	return checkCentroids(m, features)
}

func checkCentroids(m *model.SegmentModel, features int) error {
	for i, c := range m.Centroids {
		if len(c) != features {
			return fmt.Errorf("%w: centroid %d has %d features, expected %d", common.ErrShapeMismatch, i, len(c), features)
		}
		for j, v := range c {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: centroid %d feature %d is %v", common.ErrShapeMismatch, i, j, v)
			}
		}
	}
	return nil
}
