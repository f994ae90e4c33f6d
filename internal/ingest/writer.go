package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/Veraticus/shopper-spectrum/internal/model"
)

const cleanedDateLayout = "2006-01-02 15:04:05"

// WriteCSV writes cleaned transactions as UTF-8 CSV with a TotalSum column.
func WriteCSV(w io.Writer, txns []model.Transaction) error {
	writer := csv.NewWriter(w)

	header := []string{
		ColInvoiceNo, ColStockCode, ColDescription, ColQuantity,
		ColInvoiceDate, ColUnitPrice, ColCustomerID, ColCountry, "TotalSum",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, txn := range txns {
		record := []string{
			txn.InvoiceID,
			txn.StockCode,
			txn.Description,
			strconv.Itoa(txn.Quantity),
			txn.InvoiceDate.Format(cleanedDateLayout),
			strconv.FormatFloat(txn.UnitPrice, 'f', -1, 64),
			txn.CustomerID,
			txn.Country,
			strconv.FormatFloat(txn.LineTotal(), 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write transaction %s: %w", txn.InvoiceID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
