package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/shopper-spectrum/internal/model"
)

// SaveTransactions stores cleaned transactions, ignoring rows already present
// by hash. It returns the number of newly inserted rows.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			hash, invoice_id, stock_code, description, quantity,
			unit_price, customer_id, country, invoice_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, txn := range transactions {
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		result, execErr := stmt.ExecContext(ctx,
			txn.Hash,
			txn.InvoiceID,
			txn.StockCode,
			txn.Description,
			txn.Quantity,
			txn.UnitPrice,
			txn.CustomerID,
			txn.Country,
			txn.InvoiceDate.UTC(),
		)
		if execErr != nil {
			return 0, fmt.Errorf("failed to insert transaction %s: %w", txn.InvoiceID, execErr)
		}
		if n, rowsErr := result.RowsAffected(); rowsErr == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return inserted, nil
}

// GetTransactions returns every stored transaction ordered by invoice date.
func (s *SQLiteStorage) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, invoice_id, stock_code, description, quantity,
		       unit_price, customer_id, country, invoice_date
		FROM transactions
		ORDER BY invoice_date, invoice_id, hash
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		if err := rows.Scan(
			&txn.Hash,
			&txn.InvoiceID,
			&txn.StockCode,
			&txn.Description,
			&txn.Quantity,
			&txn.UnitPrice,
			&txn.CustomerID,
			&txn.Country,
			&txn.InvoiceDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.InvoiceDate = txn.InvoiceDate.UTC()
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// GetTransactionCount returns the number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
