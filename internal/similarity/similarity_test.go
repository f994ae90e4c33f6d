package similarity

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func purchase(customer, product string, qty int) model.Transaction {
	return model.Transaction{
		CustomerID:  customer,
		InvoiceID:   "INV-" + customer,
		InvoiceDate: time.Date(2011, 6, 1, 9, 0, 0, 0, time.UTC),
		Description: product,
		Quantity:    qty,
		UnitPrice:   1.25,
	}
}

func basket() []model.Transaction {
	return []model.Transaction{
		purchase("c1", "GREEN VINTAGE SPOT BEAKER", 2),
		purchase("c1", "BLUE VINTAGE SPOT BEAKER", 2),
		purchase("c1", "PINK VINTAGE SPOT BEAKER", 1),
		purchase("c2", "GREEN VINTAGE SPOT BEAKER", 1),
		purchase("c2", "BLUE VINTAGE SPOT BEAKER", 1),
		purchase("c3", "pink vintage spot beaker ", 3),
		purchase("c3", "PANTRY CHOPPING BOARD", 1),
		purchase("c4", "POTTING SHED ROSE CANDLE", 5),
	}
}

func compute(t *testing.T, txns []model.Transaction) *Structure {
	t.Helper()
	m, err := Build(txns)
	require.NoError(t, err)
	s, err := Compute(context.Background(), m, Options{Workers: 3})
	require.NoError(t, err)
	return s
}

func TestBuild(t *testing.T) {
	m, err := Build(basket())
	require.NoError(t, err)

	products, customers := m.Dims()
	assert.Equal(t, 5, products)
	assert.Equal(t, 4, customers)
	assert.Equal(t, []string{
		"BLUE VINTAGE SPOT BEAKER",
		"GREEN VINTAGE SPOT BEAKER",
		"PANTRY CHOPPING BOARD",
		"PINK VINTAGE SPOT BEAKER",
		"POTTING SHED ROSE CANDLE",
	}, m.Products)
	assert.Equal(t, []string{"c1", "c2", "c3", "c4"}, m.Customers)
	assert.Equal(t, 8, m.NonZero())

	assert.InDelta(t, 3.0, m.Quantity("Pink Vintage Spot Beaker", "c3"), 1e-12)
	assert.Zero(t, m.Quantity("PANTRY CHOPPING BOARD", "c1"))
	assert.Zero(t, m.Quantity("NO SUCH THING", "c1"))
	assert.Zero(t, m.Quantity("PANTRY CHOPPING BOARD", "c99"))
}

func TestBuild_SumsRepeatedPurchases(t *testing.T) {
	m, err := Build([]model.Transaction{
		purchase("c1", "TEA SET", 2),
		purchase("c1", "TEA SET", 3),
	})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, m.Quantity("TEA SET", "c1"), 1e-12)
}

func TestBuild_MissingData(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, common.ErrMissingData)

	_, err = Build([]model.Transaction{purchase("c1", "  ", 1)})
	assert.ErrorIs(t, err, common.ErrMissingData, "no row names a product")

	_, err = Build([]model.Transaction{purchase("", "MUG", 1)})
	assert.ErrorIs(t, err, common.ErrMissingData)
}

func TestBuild_SkipsBlankDescriptions(t *testing.T) {
	m, err := Build([]model.Transaction{
		purchase("c1", "TEA SET", 2),
		purchase("c2", "", 100),
		purchase("c2", "TEA SET", 1),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"TEA SET"}, m.Products)
	assert.Equal(t, []string{"c1", "c2"}, m.Customers)
	assert.Equal(t, 1, m.Skipped)
	assert.InDelta(t, 1.0, m.Quantity("TEA SET", "c2"), 1e-12)
}

func TestCompute_CosineValues(t *testing.T) {
	s := compute(t, basket())

	// GREEN = (2,1,0,0), BLUE = (2,1,0,0): identical direction.
	sim, err := s.Similarity("GREEN VINTAGE SPOT BEAKER", "BLUE VINTAGE SPOT BEAKER")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-12)

	// GREEN = (2,1,0,0), PINK = (1,0,3,0): 2 / (sqrt(5) * sqrt(10)).
	sim, err = s.Similarity("green vintage spot beaker", "PINK VINTAGE SPOT BEAKER")
	require.NoError(t, err)
	assert.InDelta(t, 2/(math.Sqrt(5)*math.Sqrt(10)), sim, 1e-12)
}

func TestCompute_DisjointCustomersAreOrthogonal(t *testing.T) {
	s := compute(t, []model.Transaction{
		purchase("c1", "RED MUG", 4),
		purchase("c2", "RED MUG", 1),
		purchase("c3", "BLUE MUG", 2),
		purchase("c4", "BLUE MUG", 7),
	})

	sim, err := s.Similarity("RED MUG", "BLUE MUG")
	require.NoError(t, err)
	assert.Zero(t, sim)
}

func TestCompute_SymmetricWithUnitDiagonal(t *testing.T) {
	var txns []model.Transaction
	for c := 0; c < 25; c++ {
		for p := 0; p < 12; p++ {
			if (c*7+p*3)%5 < 2 {
				txns = append(txns, purchase(fmt.Sprintf("c%02d", c), fmt.Sprintf("PRODUCT %02d", p), 1+(c+p)%4))
			}
		}
	}
	s := compute(t, txns)
	products := s.Products()

	for _, a := range products {
		self, err := s.Similarity(a, a)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, self, 1e-12)

		for _, b := range products {
			ab, err := s.Similarity(a, b)
			require.NoError(t, err)
			ba, err := s.Similarity(b, a)
			require.NoError(t, err)
			assert.InDelta(t, ab, ba, 1e-12)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.LessOrEqual(t, ab, 1.0)
		}
	}
}

func TestCompute_ReportsProgressAndHonorsCancel(t *testing.T) {
	m, err := Build(basket())
	require.NoError(t, err)

	var done atomic.Int64
	_, err = Compute(context.Background(), m, Options{Workers: 2, Progress: func() { done.Add(1) }})
	require.NoError(t, err)
	assert.Equal(t, int64(5), done.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Compute(ctx, m, Options{Workers: 1})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Compute(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, common.ErrMissingData)
}

func TestRecommend(t *testing.T) {
	s := compute(t, basket())

	recs, err := s.Recommend("  green vintage spot beaker", 5)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "BLUE VINTAGE SPOT BEAKER", recs[0].Product)
	assert.Equal(t, "PINK VINTAGE SPOT BEAKER", recs[1].Product)
	assert.Greater(t, recs[0].Score, recs[1].Score)

	for _, rec := range recs {
		assert.NotEqual(t, "GREEN VINTAGE SPOT BEAKER", rec.Product)
	}

	recs, err = s.Recommend("GREEN VINTAGE SPOT BEAKER", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	recs, err = s.Recommend("POTTING SHED ROSE CANDLE", 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecommend_TiesOrderedByName(t *testing.T) {
	s := compute(t, []model.Transaction{
		purchase("c1", "ANCHOR", 1),
		purchase("c1", "ZEBRA MUG", 1),
		purchase("c1", "APPLE MUG", 1),
		purchase("c1", "MANGO MUG", 1),
	})

	recs, err := s.Recommend("ANCHOR", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"APPLE MUG", "MANGO MUG", "ZEBRA MUG"},
		[]string{recs[0].Product, recs[1].Product, recs[2].Product})
}

func TestRecommend_Errors(t *testing.T) {
	s := compute(t, basket())

	_, err := s.Recommend("NOT A REAL PRODUCT", 5)
	require.ErrorIs(t, err, common.ErrProductNotFound)
	assert.Contains(t, err.Error(), "NOT A REAL PRODUCT")

	_, err = s.Recommend("GREEN VINTAGE SPOT BEAKER", 0)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = s.Similarity("GREEN VINTAGE SPOT BEAKER", "NOT A REAL PRODUCT")
	assert.ErrorIs(t, err, common.ErrProductNotFound)
}

func TestState_RoundTrip(t *testing.T) {
	s := compute(t, basket())
	state := s.State()

	assert.Equal(t, s.Products(), state.Products)
	for _, pair := range state.Pairs {
		assert.Less(t, pair.A, pair.B)
		assert.NotZero(t, pair.Score)
	}

	restored, err := FromState(state)
	require.NoError(t, err)
	assert.Equal(t, s.Len(), restored.Len())

	for _, a := range s.Products() {
		for _, b := range s.Products() {
			want, err := s.Similarity(a, b)
			require.NoError(t, err)
			got, err := restored.Similarity(a, b)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	}
}

func TestFromState_Invalid(t *testing.T) {
	_, err := FromState(nil)
	assert.ErrorIs(t, err, common.ErrNotFitted)

	_, err = FromState(&model.SimilarityState{})
	assert.ErrorIs(t, err, common.ErrNotFitted)

	_, err = FromState(&model.SimilarityState{Products: []string{"A", "A"}})
	assert.ErrorIs(t, err, common.ErrShapeMismatch)

	_, err = FromState(&model.SimilarityState{
		Products: []string{"A", "B"},
		Pairs:    []model.SimilarityPair{{A: 0, B: 2, Score: 0.5}},
	})
	assert.ErrorIs(t, err, common.ErrShapeMismatch)

	_, err = FromState(&model.SimilarityState{
		Products: []string{"A", "B"},
		Pairs:    []model.SimilarityPair{{A: 1, B: 0, Score: 0.5}},
	})
	assert.ErrorIs(t, err, common.ErrShapeMismatch)
}
