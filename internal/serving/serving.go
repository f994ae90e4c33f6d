// Package serving answers segment and recommendation queries against a
// fitted training run.
package serving

import (
	"fmt"
	"math"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"github.com/Veraticus/shopper-spectrum/internal/scaler"
	"github.com/Veraticus/shopper-spectrum/internal/segment"
	"github.com/Veraticus/shopper-spectrum/internal/similarity"
)

// Prediction is the segment assigned to one RFM triple.
type Prediction struct {
	Segment   string
	ClusterID int
}

// Service is immutable after New and safe for concurrent use.
type Service struct {
	scaler    *model.ScalerState
	segmenter *model.SegmentModel
	items     *similarity.Structure
	runID     string
}

// New prepares a training run for serving.
func New(run *model.TrainingRun) (*Service, error) {
	if run == nil {
		return nil, fmt.Errorf("%w: no training run", common.ErrNotFitted)
	}
	if err := scaler.Validate(run.Scaler, model.FeatureCount); err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if err := segment.Validate(run.Segmenter, model.FeatureCount); err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	items, err := similarity.FromState(run.Similarity)
	if err != nil {
		return nil, fmt.Errorf("failed to load similarity for run %s: %w", run.ID, err)
	}

	return &Service{
		scaler:    run.Scaler,
		segmenter: run.Segmenter,
		items:     items,
		runID:     run.ID,
	}, nil
}

// RunID returns the id of the training run being served.
func (s *Service) RunID() string {
	return s.runID
}

// PredictSegment scales a raw RFM triple and maps it to a segment.
func (s *Service) PredictSegment(recency float64, frequency int, monetary float64) (Prediction, error) {
	switch {
	case math.IsNaN(recency) || math.IsInf(recency, 0) || recency < 0:
		return Prediction{}, fmt.Errorf("%w: recency must be a non-negative number of days, got %v", common.ErrInvalidArgument, recency)
	case frequency < 0:
		return Prediction{}, fmt.Errorf("%w: frequency must not be negative, got %d", common.ErrInvalidArgument, frequency)
	case math.IsNaN(monetary) || math.IsInf(monetary, 0) || monetary <= 0:
		return Prediction{}, fmt.Errorf("%w: monetary must be positive, got %v", common.ErrInvalidArgument, monetary)
	}

	vec := make([]float64, model.FeatureCount)
	vec[model.FeatureRecency] = recency
	vec[model.FeatureFrequency] = float64(frequency)
	vec[model.FeatureMonetary] = monetary

	scaled, err := scaler.Transform(s.scaler, vec)
	if err != nil {
		return Prediction{}, err
	}
	id, err := segment.Predict(s.segmenter, scaled)
	if err != nil {
		return Prediction{}, err
	}
	label, err := segment.Label(s.segmenter, id)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{ClusterID: id, Segment: label}, nil
}

// Recommend returns up to topN products most similar to name, with scores.
// Neighbours with a score of zero or less are left out.
func (s *Service) Recommend(name string, topN int) ([]similarity.Neighbor, error) {
	return s.items.Recommend(name, topN)
}

// RecommendSimilarItems returns up to topN product names most similar to name.
// The queried product is never part of the result. Only products with a
// positive similarity are returned, so a product sharing no customers with any
// other yields fewer than topN names or an empty list, never an error.
func (s *Service) RecommendSimilarItems(name string, topN int) ([]string, error) {
	neighbors, err := s.items.Recommend(name, topN)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(neighbors))
	for i, n := range neighbors {
		names[i] = n.Product
	}
	return names, nil
}

// Segments returns the segment names indexed by cluster id.
func (s *Service) Segments() []string {
	out := make([]string, len(s.segmenter.Labels))
	copy(out, s.segmenter.Labels)
	return out
}

// Products returns the catalogue known to the similarity structure.
func (s *Service) Products() []string {
	return s.items.Products()
}
