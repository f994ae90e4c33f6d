package segment

import (
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"gonum.org/v1/gonum/stat"
)

// ClusterSummary holds the mean raw RFM values of one cluster.
type ClusterSummary struct {
	Label         string
	ClusterID     int
	Customers     int
	MeanRecency   float64
	MeanFrequency float64
	MeanMonetary  float64
}

// Summarize groups assignments by cluster id, in ascending id order.
// Clusters without members are omitted.
func Summarize(assignments []model.CustomerSegment, k int) []ClusterSummary {
	recency := make([][]float64, k)
	frequency := make([][]float64, k)
	monetary := make([][]float64, k)
	labels := make([]string, k)

	for _, a := range assignments {
		if a.ClusterID < 0 || a.ClusterID >= k {
			continue
		}
		recency[a.ClusterID] = append(recency[a.ClusterID], float64(a.Recency))
		frequency[a.ClusterID] = append(frequency[a.ClusterID], float64(a.Frequency))
		monetary[a.ClusterID] = append(monetary[a.ClusterID], a.Monetary)
		labels[a.ClusterID] = a.Label
	}

	out := make([]ClusterSummary, 0, k)
	for c := 0; c < k; c++ {
		if len(recency[c]) == 0 {
			continue
		}
		out = append(out, ClusterSummary{
			Label:         labels[c],
			ClusterID:     c,
			Customers:     len(recency[c]),
			MeanRecency:   stat.Mean(recency[c], nil),
			MeanFrequency: stat.Mean(frequency[c], nil),
			MeanMonetary:  stat.Mean(monetary[c], nil),
		})
	}
	return out
}
