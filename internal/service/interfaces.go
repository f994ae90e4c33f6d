// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/shopper-spectrum/internal/model"
)

// ArtifactStore persists fitted training runs. Implementations must reload
// every numeric artifact exactly as saved.
type ArtifactStore interface {
	SaveRun(ctx context.Context, run *model.TrainingRun) error
	LoadRun(ctx context.Context, id string) (*model.TrainingRun, error)
	LoadLatestRun(ctx context.Context) (*model.TrainingRun, error)
	Close() error
}

// TransactionStore holds cleaned transactions between import and training.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransactionCount(ctx context.Context) (int, error)
}

// ProgressReporter receives progress of long running pipeline steps.
type ProgressReporter interface {
	Start(total int, description string)
	Increment()
	Finish()
}
