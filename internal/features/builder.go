// Package features aggregates cleaned transactions into per-customer RFM records.
package features

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/model"
)

// SnapshotOffset is added to the latest invoice date to anchor recency.
const SnapshotOffset = 24 * time.Hour

// Table is the RFM table produced by one Build call.
type Table struct {
	Snapshot time.Time
	Records  []model.RFMRecord // Sorted by customer id
	// Excluded counts customers dropped for a non-positive monetary total.
	Excluded int
}

type accumulator struct {
	last     time.Time
	invoices map[string]struct{}
	monetary float64
}

// Build computes one RFM record per customer present in txns.
func Build(txns []model.Transaction) (*Table, error) {
	if len(txns) == 0 {
		return nil, fmt.Errorf("%w: no transactions", common.ErrMissingData)
	}

	var latest time.Time
	for i := range txns {
		if err := validate(i, &txns[i]); err != nil {
			return nil, err
		}
		if txns[i].InvoiceDate.After(latest) {
			latest = txns[i].InvoiceDate
		}
	}
	snapshot := latest.Add(SnapshotOffset)

	groups := make(map[string]*accumulator)
	for i := range txns {
		txn := &txns[i]
		acc, ok := groups[txn.CustomerID]
		if !ok {
			acc = &accumulator{invoices: make(map[string]struct{})}
			groups[txn.CustomerID] = acc
		}
		if txn.InvoiceDate.After(acc.last) {
			acc.last = txn.InvoiceDate
		}
		acc.invoices[txn.InvoiceID] = struct{}{}
		acc.monetary += txn.LineTotal()
	}

	table := &Table{
		Snapshot: snapshot,
		Records:  make([]model.RFMRecord, 0, len(groups)),
	}
	for customerID, acc := range groups {
		if acc.monetary <= 0 {
			table.Excluded++
			continue
		}
		table.Records = append(table.Records, model.RFMRecord{
			CustomerID: customerID,
			Recency:    int(snapshot.Sub(acc.last) / (24 * time.Hour)),
			Frequency:  len(acc.invoices),
			Monetary:   acc.monetary,
		})
	}
	sort.Slice(table.Records, func(i, j int) bool {
		return table.Records[i].CustomerID < table.Records[j].CustomerID
	})

	if len(table.Records) == 0 {
		return nil, fmt.Errorf("%w: no customer has a positive monetary total", common.ErrMissingData)
	}

	slog.Debug("Built RFM table",
		"customers", len(table.Records),
		"excluded", table.Excluded,
		"snapshot", snapshot.Format(time.DateOnly))
	return table, nil
}

func validate(i int, txn *model.Transaction) error {
	switch {
	case txn.CustomerID == "":
		return fmt.Errorf("%w: transaction %d has no customer_id", common.ErrMissingData, i)
	case txn.InvoiceID == "":
		return fmt.Errorf("%w: transaction %d has no invoice_id", common.ErrMissingData, i)
	case txn.InvoiceDate.IsZero():
		return fmt.Errorf("%w: transaction %d has no invoice_date", common.ErrMissingData, i)
	case txn.Quantity <= 0:
		return fmt.Errorf("%w: transaction %d has non-positive quantity %d", common.ErrMissingData, i, txn.Quantity)
	case txn.UnitPrice <= 0:
		return fmt.Errorf("%w: transaction %d has non-positive unit_price %g", common.ErrMissingData, i, txn.UnitPrice)
	}
	return nil
}

// Matrix returns the feature vectors in record order.
func (t *Table) Matrix() [][]float64 {
	rows := make([][]float64, len(t.Records))
	for i, r := range t.Records {
		rows[i] = r.Vector()
	}
	return rows
}

// Lookup returns the record for a customer.
func (t *Table) Lookup(customerID string) (model.RFMRecord, bool) {
	i := sort.Search(len(t.Records), func(i int) bool {
		return t.Records[i].CustomerID >= customerID
	})
	if i < len(t.Records) && t.Records[i].CustomerID == customerID {
		return t.Records[i], true
	}
	return model.RFMRecord{}, false
}
