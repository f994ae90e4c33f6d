// Package ingest reads Online Retail CSV exports and applies the cleaning rules
// the analytical pipeline relies on.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/shopper-spectrum/internal/common"
	"golang.org/x/text/encoding/charmap"
)

// Column names recognized in the export header, compared case-insensitively.
const (
	ColInvoiceNo   = "InvoiceNo"
	ColStockCode   = "StockCode"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColInvoiceDate = "InvoiceDate"
	ColUnitPrice   = "UnitPrice"
	ColCustomerID  = "CustomerID"
	ColCountry     = "Country"
)

var requiredColumns = []string{ColInvoiceNo, ColDescription, ColQuantity, ColInvoiceDate, ColUnitPrice, ColCustomerID}

var dateLayouts = []string{
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// Row is one raw export line. Numeric fields that failed to parse are left
// unset so the cleaning filter can account for them.
type Row struct {
	InvoiceDate    time.Time
	InvoiceNo      string
	StockCode      string
	Description    string
	CustomerID     string
	Country        string
	Quantity       int
	UnitPrice      float64
	HasQuantity    bool
	HasUnitPrice   bool
	HasInvoiceDate bool
}

// Options configures CSV decoding.
type Options struct {
	// Encoding is "latin1" for the raw UCI export or "utf8".
	Encoding string
}

// ReadCSV parses all rows of an export.
func ReadCSV(r io.Reader, opts Options) ([]Row, error) {
	if strings.EqualFold(opts.Encoding, "latin1") {
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", common.ErrMissingData)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	line := 1
	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		line++
		if readErr != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, readErr)
		}
		rows = append(rows, parseRow(record, index))
	}

	slog.Debug("Read transaction export", "rows", len(rows))
	return rows, nil
}

func mapHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		index[strings.ToLower(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[strings.ToLower(col)]; !ok {
			return nil, fmt.Errorf("%w: required column %s not found in header", common.ErrMissingData, col)
		}
	}
	return index, nil
}

func field(record []string, index map[string]int, col string) string {
	i, ok := index[strings.ToLower(col)]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRow(record []string, index map[string]int) Row {
	row := Row{
		InvoiceNo:   field(record, index, ColInvoiceNo),
		StockCode:   field(record, index, ColStockCode),
		Description: field(record, index, ColDescription),
		CustomerID:  normalizeCustomerID(field(record, index, ColCustomerID)),
		Country:     field(record, index, ColCountry),
	}

	if q, err := strconv.ParseFloat(field(record, index, ColQuantity), 64); err == nil && q == float64(int(q)) {
		row.Quantity = int(q)
		row.HasQuantity = true
	}
	if p, err := strconv.ParseFloat(field(record, index, ColUnitPrice), 64); err == nil {
		row.UnitPrice = p
		row.HasUnitPrice = true
	}
	if d, err := ParseDate(field(record, index, ColInvoiceDate)); err == nil {
		row.InvoiceDate = d
		row.HasInvoiceDate = true
	}
	return row
}

// normalizeCustomerID turns float renderings such as "17850.0" into "17850".
func normalizeCustomerID(id string) string {
	if strings.EqualFold(id, "nan") {
		return ""
	}
	if whole, frac, ok := strings.Cut(id, "."); ok && strings.Trim(frac, "0") == "" {
		return whole
	}
	return id
}

// ParseDate parses an invoice date in any of the layouts seen in exports.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty invoice date", common.ErrMissingData)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized invoice date %q", common.ErrMissingData, s)
}
