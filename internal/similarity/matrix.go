// Package similarity builds the product by customer interaction matrix and the
// item-item cosine similarity structure used for recommendations.
package similarity

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/model"
)

// InteractionMatrix holds total purchased quantity per product and customer.
// Rows are stored sparse; absent cells are zero.
type InteractionMatrix struct {
	Products  []string // Normalized descriptions, sorted
	Customers []string // Sorted
	rows      []sparseRow
	// Skipped counts transactions left out for having no product description.
	Skipped int
}

type sparseRow struct {
	cols []int // Ascending customer indexes
	vals []float64
}

// Build pivots transactions into an interaction matrix. Transactions with a
// blank description still count towards RFM but name no product, so they are
// skipped here.
func Build(txns []model.Transaction) (*InteractionMatrix, error) {
	if len(txns) == 0 {
		return nil, fmt.Errorf("%w: no transactions", common.ErrMissingData)
	}

	cells := make(map[string]map[string]float64)
	customers := make(map[string]struct{})
	skipped := 0
	for i := range txns {
		txn := &txns[i]
		if txn.CustomerID == "" {
			return nil, fmt.Errorf("%w: transaction %d has no customer_id", common.ErrMissingData, i)
		}
		product := common.NormalizeProductName(txn.Description)
		if product == "" {
			skipped++
			continue
		}

		row, ok := cells[product]
		if !ok {
			row = make(map[string]float64)
			cells[product] = row
		}
		row[txn.CustomerID] += float64(txn.Quantity)
		customers[txn.CustomerID] = struct{}{}
	}

	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: no transaction has a product_description", common.ErrMissingData)
	}
	if skipped > 0 {
		slog.Debug("Skipped transactions without a description", "count", skipped)
	}

	m := &InteractionMatrix{
		Products:  sortedKeys(cells),
		Customers: sortedKeys(customers),
		Skipped:   skipped,
	}
	customerIndex := make(map[string]int, len(m.Customers))
	for i, c := range m.Customers {
		customerIndex[c] = i
	}

	m.rows = make([]sparseRow, len(m.Products))
	for i, product := range m.Products {
		cols := make([]int, 0, len(cells[product]))
		for customer := range cells[product] {
			cols = append(cols, customerIndex[customer])
		}
		sort.Ints(cols)

		vals := make([]float64, len(cols))
		for k, col := range cols {
			vals[k] = cells[product][m.Customers[col]]
		}
		m.rows[i] = sparseRow{cols: cols, vals: vals}
	}
	return m, nil
}

func sortedKeys[V any](set map[string]V) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dims returns the number of products and customers.
func (m *InteractionMatrix) Dims() (products, customers int) {
	return len(m.Products), len(m.Customers)
}

// NonZero returns the number of stored cells.
func (m *InteractionMatrix) NonZero() int {
	n := 0
	for _, row := range m.rows {
		n += len(row.cols)
	}
	return n
}

// Quantity returns the total quantity a customer bought of a product.
func (m *InteractionMatrix) Quantity(product, customer string) float64 {
	p := sort.SearchStrings(m.Products, common.NormalizeProductName(product))
	if p >= len(m.Products) || m.Products[p] != common.NormalizeProductName(product) {
		return 0
	}
	c := sort.SearchStrings(m.Customers, customer)
	if c >= len(m.Customers) || m.Customers[c] != customer {
		return 0
	}
	row := m.rows[p]
	k := sort.SearchInts(row.cols, c)
	if k < len(row.cols) && row.cols[k] == c {
		return row.vals[k]
	}
	return 0
}
