package ingest

import (
	"log/slog"

	"github.com/Veraticus/shopper-spectrum/internal/model"
)

// Reasons a row is dropped by Clean.
const (
	DropMissingCustomer     = "missing_customer"
	DropMissingInvoice      = "missing_invoice"
	DropMissingDate         = "missing_date"
	DropMissingQuantity     = "missing_quantity"
	DropMissingPrice        = "missing_price"
	DropNonPositiveQuantity = "non_positive_quantity"
	DropNonPositivePrice    = "non_positive_price"
)

// CleanStats reports what Clean kept and why rows were dropped.
type CleanStats struct {
	Dropped map[string]int
	Read    int
	Kept    int
}

// Clean keeps rows that carry a customer, invoice and date with a positive
// quantity and price, in input order. Returns and cancellations are removed by
// the quantity rule. A blank description is kept; it still counts towards RFM.
func Clean(rows []Row) ([]model.Transaction, CleanStats) {
	stats := CleanStats{Read: len(rows), Dropped: make(map[string]int)}
	kept := make([]model.Transaction, 0, len(rows))

	for _, row := range rows {
		if reason := dropReason(row); reason != "" {
			stats.Dropped[reason]++
			continue
		}
		txn := model.Transaction{
			InvoiceDate: row.InvoiceDate,
			CustomerID:  row.CustomerID,
			InvoiceID:   row.InvoiceNo,
			StockCode:   row.StockCode,
			Description: row.Description,
			Country:     row.Country,
			Quantity:    row.Quantity,
			UnitPrice:   row.UnitPrice,
		}
		txn.Hash = txn.GenerateHash()
		kept = append(kept, txn)
	}
	stats.Kept = len(kept)

	slog.Info("Cleaned transactions",
		"read", stats.Read,
		"kept", stats.Kept,
		"dropped", stats.Read-stats.Kept)
	return kept, stats
}

func dropReason(row Row) string {
	switch {
	case row.CustomerID == "":
		return DropMissingCustomer
	case row.InvoiceNo == "":
		return DropMissingInvoice
	case !row.HasInvoiceDate:
		return DropMissingDate
	case !row.HasQuantity:
		return DropMissingQuantity
	case !row.HasUnitPrice:
		return DropMissingPrice
	case row.Quantity <= 0:
		return DropNonPositiveQuantity
	case row.UnitPrice <= 0:
		return DropNonPositivePrice
	default:
		return ""
	}
}
