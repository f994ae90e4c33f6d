// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction is a single cleaned retail line item.
type Transaction struct {
	InvoiceDate time.Time
	CustomerID  string
	InvoiceID   string
	StockCode   string
	Description string // Product description as exported; normalized before indexing
	Country     string
	Hash        string
	Quantity    int
	UnitPrice   float64
}

// LineTotal returns quantity times unit price.
func (t *Transaction) LineTotal() float64 {
	return float64(t.Quantity) * t.UnitPrice
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%d:%.4f",
		t.InvoiceID,
		t.StockCode,
		t.Description,
		t.CustomerID,
		t.InvoiceDate.UTC().Format(time.RFC3339),
		t.Quantity,
		t.UnitPrice)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
