package model

// Feature order used by every RFM vector in the application.
const (
	FeatureRecency = iota
	FeatureFrequency
	FeatureMonetary

	// FeatureCount is the dimensionality of an RFM vector.
	FeatureCount
)

// FeatureNames lists the RFM columns in vector order.
var FeatureNames = [FeatureCount]string{"Recency", "Frequency", "Monetary"}

// RFMRecord summarizes one customer's purchase history.
type RFMRecord struct {
	CustomerID string
	Recency    int // Days between the snapshot date and the latest invoice
	Frequency  int // Distinct invoices
	Monetary   float64
}

// Vector returns the record as a feature vector in FeatureNames order.
func (r RFMRecord) Vector() []float64 {
	return []float64{float64(r.Recency), float64(r.Frequency), r.Monetary}
}
