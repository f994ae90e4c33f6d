// Package scaler standardizes feature vectors with a per-column mean and
// population standard deviation.
package scaler

import (
	"fmt"
	"math"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"gonum.org/v1/gonum/stat"
)

const epsilon = 2.220446049250313e-16

// Fit learns the mean and standard deviation of every column in rows.
// A column with zero variance gets a std of 1.
func Fit(rows [][]float64) (*model.ScalerState, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows to fit", common.ErrMissingData)
	}
	dims := len(rows[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: rows have no features", common.ErrShapeMismatch)
	}

	columns := make([][]float64, dims)
	for j := range columns {
		columns[j] = make([]float64, len(rows))
	}
	for i, row := range rows {
		if len(row) != dims {
			return nil, fmt.Errorf("%w: row %d has %d features, expected %d", common.ErrShapeMismatch, i, len(row), dims)
		}
		for j, v := range row {
			columns[j][i] = v
		}
	}

	state := &model.ScalerState{
		Mean:    make([]float64, dims),
		Std:     make([]float64, dims),
		Samples: len(rows),
	}
	for j, col := range columns {
		mean, std := stat.PopMeanStdDev(col, nil)
		if degenerate(mean, std) {
			std = 1
		}
		state.Mean[j] = mean
		state.Std[j] = std
	}
	return state, nil
}

// degenerate reports a std indistinguishable from rounding noise around mean.
func degenerate(mean, std float64) bool {
	if math.IsNaN(std) {
		return true
	}
	return std < 10*epsilon*math.Max(1, math.Abs(mean))
}

// Validate checks that state standardizes vectors of the given width with
// finite means and finite, positive deviations.
func Validate(state *model.ScalerState, features int) error {
	if !state.Fitted() {
		return fmt.Errorf("%w: scaler", common.ErrNotFitted)
	}
	if len(state.Mean) != features {
		return fmt.Errorf("%w: scaler has %d features, expected %d", common.ErrShapeMismatch, len(state.Mean), features)
	}
	for j := range state.Mean {
		mean, std := state.Mean[j], state.Std[j]
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			return fmt.Errorf("%w: mean of feature %d is %v", common.ErrShapeMismatch, j, mean)
		}
		if math.IsNaN(std) || math.IsInf(std, 0) || std <= 0 {
			return fmt.Errorf("%w: std of feature %d is %v", common.ErrShapeMismatch, j, std)
		}
	}
	return nil
}

// Transform standardizes a single vector. The input is not modified.
func Transform(state *model.ScalerState, vec []float64) ([]float64, error) {
	if !state.Fitted() {
		return nil, fmt.Errorf("%w: scaler", common.ErrNotFitted)
	}
	if len(vec) != len(state.Mean) {
		return nil, fmt.Errorf("%w: got %d features, scaler expects %d", common.ErrShapeMismatch, len(vec), len(state.Mean))
	}

	out := make([]float64, len(vec))
	for j, v := range vec {
		out[j] = (v - state.Mean[j]) / state.Std[j]
	}
	return out, nil
}

// TransformAll standardizes every row.
func TransformAll(state *model.ScalerState, rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := Transform(state, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}
