package features

import (
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"github.com/Veraticus/shopper-spectrum/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseDate = time.Date(2011, 3, 14, 10, 30, 0, 0, time.UTC)

func txn(customer, invoice string, day int, qty int, price float64) model.Transaction {
	return model.Transaction{
		CustomerID:  customer,
		InvoiceID:   invoice,
		InvoiceDate: baseDate.AddDate(0, 0, day),
		Description: "PRODUCT " + invoice,
		Quantity:    qty,
		UnitPrice:   price,
	}
}

func TestBuild_SingleCustomerScenario(t *testing.T) {
	table, err := Build([]model.Transaction{
		txn("1", "100", 0, 2, 5.0),
		txn("1", "101", 3, 1, 5.0),
	})
	require.NoError(t, err)
	require.Len(t, table.Records, 1)

	rec := table.Records[0]
	assert.Equal(t, "1", rec.CustomerID)
	assert.Equal(t, 1, rec.Recency)
	assert.Equal(t, 2, rec.Frequency)
	assert.InDelta(t, 15.0, rec.Monetary, 1e-9)
	assert.Equal(t, baseDate.AddDate(0, 0, 4), table.Snapshot)
}

func TestBuild_SnapshotIsGlobal(t *testing.T) {
	table, err := Build([]model.Transaction{
		txn("a", "1", 0, 1, 10),
		txn("b", "2", 10, 1, 10),
		txn("c", "3", 20, 1, 10),
		txn("c", "3", 20, 4, 2.5),
	})
	require.NoError(t, err)
	require.Len(t, table.Records, 3)

	snapshot := baseDate.AddDate(0, 0, 21)
	assert.Equal(t, snapshot, table.Snapshot)

	want := map[string]model.RFMRecord{
		"a": {CustomerID: "a", Recency: 21, Frequency: 1, Monetary: 10},
		"b": {CustomerID: "b", Recency: 11, Frequency: 1, Monetary: 10},
		"c": {CustomerID: "c", Recency: 1, Frequency: 1, Monetary: 20},
	}
	for _, rec := range table.Records {
		assert.Equal(t, want[rec.CustomerID], rec)
	}
}

func TestBuild_RecencyFloorsPartialDays(t *testing.T) {
	late := txn("x", "9", 5, 1, 1)
	early := txn("y", "8", 0, 1, 1)
	early.InvoiceDate = early.InvoiceDate.Add(-6 * time.Hour)

	table, err := Build([]model.Transaction{late, early})
	require.NoError(t, err)

	rec, ok := table.Lookup("y")
	require.True(t, ok)
	// 6 days and 6 hours before the snapshot.
	assert.Equal(t, 6, rec.Recency)
}

func TestBuild_Invariants(t *testing.T) {
	var txns []model.Transaction
	for i := 0; i < 200; i++ {
		customer := fmt.Sprintf("C%03d", i%37)
		invoice := fmt.Sprintf("INV%04d", i/3)
		txns = append(txns, txn(customer, invoice, i%90, 1+i%7, 0.5+float64(i%11)))
	}

	table, err := Build(txns)
	require.NoError(t, err)
	assert.Len(t, table.Records, 37)

	for i, rec := range table.Records {
		assert.GreaterOrEqual(t, rec.Recency, 0)
		assert.GreaterOrEqual(t, rec.Frequency, 1)
		assert.Positive(t, rec.Monetary)
		if i > 0 {
			assert.Less(t, table.Records[i-1].CustomerID, rec.CustomerID)
		}
	}
}

func TestBuild_MissingData(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.Transaction)
		txns    []model.Transaction
		wantMsg string
	}{
		{name: "empty input", txns: []model.Transaction{}, wantMsg: "no transactions"},
		{name: "missing customer", mutate: func(t *model.Transaction) { t.CustomerID = "" }, wantMsg: "customer_id"},
		{name: "missing invoice", mutate: func(t *model.Transaction) { t.InvoiceID = "" }, wantMsg: "invoice_id"},
		{name: "missing date", mutate: func(t *model.Transaction) { t.InvoiceDate = time.Time{} }, wantMsg: "invoice_date"},
		{name: "return line", mutate: func(t *model.Transaction) { t.Quantity = -2 }, wantMsg: "quantity"},
		{name: "free item", mutate: func(t *model.Transaction) { t.UnitPrice = 0 }, wantMsg: "unit_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns := tt.txns
			if tt.mutate != nil {
				txns = []model.Transaction{txn("1", "1", 0, 1, 1), txn("2", "2", 1, 1, 1)}
				tt.mutate(&txns[1])
			}
			_, err := Build(txns)
			require.ErrorIs(t, err, common.ErrMissingData)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestTable_Matrix(t *testing.T) {
	table, err := Build([]model.Transaction{
		txn("b", "2", 0, 3, 2),
		txn("a", "1", 1, 1, 4),
	})
	require.NoError(t, err)

	assert.Equal(t, [][]float64{
		{1, 1, 4},
		{2, 1, 6},
	}, table.Matrix())

	_, ok := table.Lookup("zzz")
	assert.False(t, ok)
}
