package similarity

import (
	"fmt"
	"sort"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"gonum.org/v1/gonum/mat"
)

// Neighbor is one recommended product.
type Neighbor struct {
	Product string
	Score   float64
}

// Structure is a symmetric product similarity matrix with a name index.
// It is immutable once built and safe for concurrent reads.
type Structure struct {
	index    map[string]int
	scores   *mat.SymDense
	products []string
}

func newStructure(products []string, scores *mat.SymDense) *Structure {
	index := make(map[string]int, len(products))
	for i, p := range products {
		index[p] = i
	}
	return &Structure{products: products, index: index, scores: scores}
}

// Products returns the indexed product names in index order.
func (s *Structure) Products() []string {
	out := make([]string, len(s.products))
	copy(out, s.products)
	return out
}

// Len returns the number of indexed products.
func (s *Structure) Len() int {
	return len(s.products)
}

func (s *Structure) lookup(name string) (int, error) {
	i, ok := s.index[common.NormalizeProductName(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", common.ErrProductNotFound, name)
	}
	return i, nil
}

// Similarity returns the cosine similarity between two products.
func (s *Structure) Similarity(a, b string) (float64, error) {
	i, err := s.lookup(a)
	if err != nil {
		return 0, err
	}
	j, err := s.lookup(b)
	if err != nil {
		return 0, err
	}
	return s.scores.At(i, j), nil
}

// Recommend returns up to topN products most similar to name. The query
// product and products with no positive similarity are never included.
// Equal scores are ordered by product name.
func (s *Structure) Recommend(name string, topN int) ([]Neighbor, error) {
	if topN < 1 {
		return nil, fmt.Errorf("%w: top_n must be at least 1, got %d", common.ErrInvalidArgument, topN)
	}
	i, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	candidates := make([]Neighbor, 0)
	for j, product := range s.products {
		if j == i {
			continue
		}
		if score := s.scores.At(i, j); score > 0 {
			candidates = append(candidates, Neighbor{Product: product, Score: score})
		}
	}
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].Score != candidates[b].Score {
			return candidates[a].Score > candidates[b].Score
		}
		return candidates[a].Product < candidates[b].Product
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates, nil
}

// State returns the persisted form: products plus every non-zero pair above the diagonal.
func (s *Structure) State() *model.SimilarityState {
	state := &model.SimilarityState{Products: s.Products()}
	n := len(s.products)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if score := s.scores.At(i, j); score != 0 {
				state.Pairs = append(state.Pairs, model.SimilarityPair{A: i, B: j, Score: score})
			}
		}
	}
	return state
}

// FromState rebuilds a Structure from its persisted form.
func FromState(state *model.SimilarityState) (*Structure, error) {
	if state == nil || len(state.Products) == 0 {
		return nil, fmt.Errorf("%w: similarity structure", common.ErrNotFitted)
	}

	n := len(state.Products)
	seen := make(map[string]struct{}, n)
	for _, p := range state.Products {
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("%w: duplicate product %q", common.ErrShapeMismatch, p)
		}
		seen[p] = struct{}{}
	}

	scores := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		scores.SetSym(i, i, 1)
	}
	for _, pair := range state.Pairs {
		if pair.A < 0 || pair.B >= n || pair.A >= pair.B {
			return nil, fmt.Errorf("%w: pair (%d, %d) outside %d products", common.ErrShapeMismatch, pair.A, pair.B, n)
		}
		scores.SetSym(pair.A, pair.B, pair.Score)
	}

	products := make([]string, n)
	copy(products, state.Products)
	return newStructure(products, scores), nil
}
