package storage

import (
	"context"
	"errors"
	"testing"
)

func TestSQLiteStorage_SaveTransactions(t *testing.T) {
	tests := []struct {
		setup        func(*SQLiteStorage, context.Context)
		name         string
		wantErr      error
		count        int
		wantInserted int
		wantStored   int
	}{
		{
			name:         "save new transactions",
			count:        5,
			wantInserted: 5,
			wantStored:   5,
		},
		{
			name:  "ignore duplicate transactions",
			count: 4,
			setup: func(s *SQLiteStorage, ctx context.Context) {
				_, _ = s.SaveTransactions(ctx, createTestTransactions(2))
			},
			wantInserted: 2,
			wantStored:   4,
		},
		{
			name:    "save empty list",
			count:   0,
			wantErr: ErrEmptySlice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStorage(t)
			defer cleanup()
			ctx := context.Background()

			if tt.setup != nil {
				tt.setup(store, ctx)
			}

			inserted, err := store.SaveTransactions(ctx, createTestTransactions(tt.count))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SaveTransactions() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SaveTransactions() unexpected error: %v", err)
			}
			if inserted != tt.wantInserted {
				t.Errorf("inserted = %d, want %d", inserted, tt.wantInserted)
			}

			stored, err := store.GetTransactionCount(ctx)
			if err != nil {
				t.Fatalf("GetTransactionCount() error: %v", err)
			}
			if stored != tt.wantStored {
				t.Errorf("stored = %d, want %d", stored, tt.wantStored)
			}
		})
	}
}

func TestSQLiteStorage_GetTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	want := createTestTransactions(6)
	if _, err := store.SaveTransactions(ctx, want); err != nil {
		t.Fatalf("SaveTransactions() error: %v", err)
	}

	got, err := store.GetTransactions(ctx)
	if err != nil {
		t.Fatalf("GetTransactions() error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d transactions, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i].Hash != want[i].Hash {
			t.Errorf("transaction %d hash = %s, want %s", i, got[i].Hash, want[i].Hash)
		}
		if !got[i].InvoiceDate.Equal(want[i].InvoiceDate) {
			t.Errorf("transaction %d date = %v, want %v", i, got[i].InvoiceDate, want[i].InvoiceDate)
		}
		if got[i].Quantity != want[i].Quantity || got[i].UnitPrice != want[i].UnitPrice {
			t.Errorf("transaction %d amounts = %d x %v, want %d x %v",
				i, got[i].Quantity, got[i].UnitPrice, want[i].Quantity, want[i].UnitPrice)
		}
		if got[i].GenerateHash() != want[i].Hash {
			t.Errorf("transaction %d did not round-trip its hashed fields", i)
		}
	}
}

func TestSQLiteStorage_SaveTransactionsGeneratesHash(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(1)
	txns[0].Hash = ""
	if _, err := store.SaveTransactions(ctx, txns); err != nil {
		t.Fatalf("SaveTransactions() error: %v", err)
	}

	got, err := store.GetTransactions(ctx)
	if err != nil {
		t.Fatalf("GetTransactions() error: %v", err)
	}
	if len(got) != 1 || got[0].Hash != txns[0].GenerateHash() {
		t.Errorf("expected stored hash to be generated from transaction fields")
	}
}
