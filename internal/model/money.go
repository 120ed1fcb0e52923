// Package model defines the domain entities for budgets and transactions.
package model

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Domain validation errors shared by all entities.
var (
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrEmptyCategory     = errors.New("category cannot be empty")
	ErrEmptyTitle        = errors.New("title cannot be empty")
	ErrEmptyPayee        = errors.New("payee cannot be empty")
)

// ParseAmount parses a positive decimal amount from its string form.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ErrNonPositiveAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects zero and negative amounts. Amounts in budgetd are
// magnitudes; direction is carried by the transaction type (manual entries)
// or the sign convention of the external feed.
func ValidateAmount(d decimal.Decimal) error {
	if d.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	return nil
}

// ValidateCategory rejects empty or whitespace-only category labels.
func ValidateCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// CategoryMatches reports whether a transaction's category label counts
// toward a budget with the given category. Matching is a case-insensitive
// substring test: a "Rent" budget collects "Rent Payment" and "Apartment
// Rent". External taxonomies are richer than user-entered labels, so exact
// matching would lose most synced transactions.
func CategoryMatches(budgetCategory, transactionCategory string) bool {
	return strings.Contains(
		strings.ToLower(transactionCategory),
		strings.ToLower(budgetCategory),
	)
}
