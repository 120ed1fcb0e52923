package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmather/budgetd/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidBudget      = errors.New("invalid budget")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateBudget validates a budget before it hits the database.
func validateBudget(budget *model.Budget) error {
	if budget == nil {
		return fmt.Errorf("%w: budget", ErrNilParameter)
	}
	if budget.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidBudget)
	}
	if budget.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidBudget)
	}
	if strings.TrimSpace(budget.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidBudget)
	}
	if budget.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing period anchor", ErrInvalidBudget)
	}
	return nil
}

// validateTransaction validates a manual transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	return nil
}

// validateExternalTransaction validates a synced transaction.
func validateExternalTransaction(txn *model.ExternalTransaction) error {
	if txn == nil {
		return fmt.Errorf("%w: external transaction", ErrNilParameter)
	}
	if txn.ExternalID == "" {
		return fmt.Errorf("%w: missing external ID", ErrInvalidTransaction)
	}
	if txn.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	return nil
}
