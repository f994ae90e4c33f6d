// Package testutil provides shared test fixtures: an in-memory database and
// synthetic retail transactions.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/shopper-spectrum/internal/model"
	"github.com/Veraticus/shopper-spectrum/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database seeded with txns.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, retail.NewBuilder().
//		WithCustomers(8, retail.Profiles...).
//		Build(),
//	)
func SetupTestDB(t *testing.T, txns []model.Transaction) *TestDB {
	t.Helper()

	// Create in-memory SQLite storage
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Register cleanup
	t.Cleanup(func() {
		_ = store.Close()
	})

	// Run migrations
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Seed transactions if provided
	if len(txns) > 0 {
		if _, err := store.SaveTransactions(ctx, txns); err != nil {
			t.Fatalf("failed to seed transactions: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustTransactions returns every stored transaction or fails the test.
func (db *TestDB) MustTransactions() []model.Transaction {
	db.t.Helper()
	txns, err := db.Storage.GetTransactions(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load transactions: %v", err)
	}
	return txns
}
