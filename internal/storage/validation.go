// Package storage provides the persistence layer for transactions and fitted models.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/shopper-spectrum/internal/model"
	"github.com/Veraticus/shopper-spectrum/internal/scaler"
	"github.com/Veraticus/shopper-spectrum/internal/segment"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrEmptySlice      = errors.New("slice cannot be empty")
	ErrInvalidRun      = errors.New("invalid training run")
	ErrInvalidTxn      = errors.New("invalid transaction")
	ErrIncompleteModel = errors.New("incomplete model artifacts")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}
	for i := range transactions {
		txn := &transactions[i]
		switch {
		case txn.CustomerID == "":
			return fmt.Errorf("transaction at index %d: %w: missing customer ID", i, ErrInvalidTxn)
		case txn.InvoiceID == "":
			return fmt.Errorf("transaction at index %d: %w: missing invoice ID", i, ErrInvalidTxn)
		case txn.InvoiceDate.IsZero():
			return fmt.Errorf("transaction at index %d: %w: missing invoice date", i, ErrInvalidTxn)
		}
	}
	return nil
}

// validateRun ensures a run carries every artifact the serving layer needs.
func validateRun(run *model.TrainingRun) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if err := validateString(run.ID, "run ID"); err != nil {
		return err
	}
	if !run.Scaler.Fitted() {
		return fmt.Errorf("%w: scaler state", ErrIncompleteModel)
	}
	if !run.Segmenter.Fitted() {
		return fmt.Errorf("%w: segment model", ErrIncompleteModel)
	}
	if len(run.Segmenter.Labels) != run.Segmenter.K {
		return fmt.Errorf("%w: %d labels for %d clusters", ErrInvalidRun, len(run.Segmenter.Labels), run.Segmenter.K)
	}
	if err := scaler.Validate(run.Scaler, model.FeatureCount); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRun, err)
	}
	if err := segment.Validate(run.Segmenter, model.FeatureCount); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRun, err)
	}
	if run.Similarity == nil || len(run.Similarity.Products) == 0 {
		return fmt.Errorf("%w: similarity structure", ErrIncompleteModel)
	}
	return nil
}
