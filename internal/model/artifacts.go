package model

import "time"

// ScalerState holds a fitted standardization transform.
// Std entries are never zero; degenerate columns are stored as 1.
type ScalerState struct {
	Mean    []float64
	Std     []float64
	Samples int
}

// Fitted reports whether the state can be used to transform vectors.
func (s *ScalerState) Fitted() bool {
	return s != nil && len(s.Mean) > 0 && len(s.Mean) == len(s.Std)
}

// SegmentModel is a fitted partition of scaled RFM space.
type SegmentModel struct {
	Centroids  [][]float64
	Labels     []string // Indexed by cluster id
	Seed       uint64
	Inertia    float64
	K          int
	Iterations int
}

// Fitted reports whether the model has centroids to predict against.
func (m *SegmentModel) Fitted() bool {
	return m != nil && m.K > 0 && len(m.Centroids) == m.K
}

// SimilarityPair is one off-diagonal entry of the product similarity matrix.
// A is always less than B.
type SimilarityPair struct {
	A     int
	B     int
	Score float64
}

// SimilarityState is the persisted form of a similarity structure.
// Pairs omitted from the list have a score of zero.
type SimilarityState struct {
	Products []string
	Pairs    []SimilarityPair
}

// CustomerSegment is the segment assignment of a single fitted customer.
type CustomerSegment struct {
	RFMRecord
	Label     string
	ClusterID int
}

// TrainingRun bundles every artifact produced by one training pass.
type TrainingRun struct {
	CreatedAt    time.Time
	SnapshotDate time.Time
	Scaler       *ScalerState
	Segmenter    *SegmentModel
	Similarity   *SimilarityState
	ID           string
	Assignments  []CustomerSegment
	Transactions int
	Customers    int
	Products     int
}
