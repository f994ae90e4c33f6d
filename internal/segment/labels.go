package segment

import (
	"fmt"
	"sort"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/model"
)

// DeriveLabels binds names to cluster ids by ranking centroids on the feature
// at index rank, highest first. Equal coordinates rank by lower id.
func DeriveLabels(centroids [][]float64, names []string, rank int) []string {
	order := make([]int, len(centroids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return centroids[order[a]][rank] > centroids[order[b]][rank]
	})

	labels := make([]string, len(centroids))
	for position, id := range order {
		if position < len(names) {
			labels[id] = names[position]
		}
	}
	return labels
}

// Label returns the segment name for a cluster id.
func Label(m *model.SegmentModel, clusterID int) (string, error) {
	if m == nil || clusterID < 0 || clusterID >= len(m.Labels) || m.Labels[clusterID] == "" {
		return "", fmt.Errorf("%w: cluster id %d", common.ErrUnknownSegment, clusterID)
	}
	return m.Labels[clusterID], nil
}
