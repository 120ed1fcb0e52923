package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget-specific domain rule violations.
var (
	ErrRollbackExceedsSpent = errors.New("cannot rollback more than was spent")
	ErrLimitBelowSpent      = errors.New("total amount cannot be below spent amount")
)

// Budget is a per-category monthly spending limit with a running spent
// total. The period is anchored to CreatedAt: only transactions dated in the
// same month and year count toward the budget.
type Budget struct {
	CreatedAt   time.Time
	ID          string
	UserID      string
	Title       string
	Category    string
	TotalAmount decimal.Decimal
	SpentAmount decimal.Decimal
	Version     int64
	Active      bool
}

// BudgetExceededAlert is raised when an apply pushes the spent total past
// the limit. It is a notification, not an error: budgets may run over.
type BudgetExceededAlert struct {
	UserID      string
	BudgetID    string
	Category    string
	SpentAmount decimal.Decimal
	Limit       decimal.Decimal
}

// NewBudget creates an active budget with a zero spent total, anchored to
// the month of createdAt.
func NewBudget(userID, title string, totalAmount decimal.Decimal, category string, createdAt time.Time) (*Budget, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}
	if err := ValidateAmount(totalAmount); err != nil {
		return nil, err
	}
	if err := ValidateCategory(category); err != nil {
		return nil, err
	}

	return &Budget{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Category:    strings.TrimSpace(category),
		TotalAmount: totalAmount,
		SpentAmount: decimal.Zero,
		Active:      true,
		CreatedAt:   createdAt,
		Version:     1,
	}, nil
}

// ApplyTransaction adds an outflow magnitude to the spent total. When the
// apply pushes the total past the limit it returns a non-nil alert; the
// alert fires only on the apply that crosses the limit, not on every apply
// while already over it.
func (b *Budget) ApplyTransaction(amount decimal.Decimal) (*BudgetExceededAlert, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	wasWithinLimit := b.SpentAmount.LessThanOrEqual(b.TotalAmount)
	b.SpentAmount = b.SpentAmount.Add(amount)

	if wasWithinLimit && b.SpentAmount.GreaterThan(b.TotalAmount) {
		return b.exceededAlert(), nil
	}
	return nil, nil
}

// RollbackTransaction removes a previously applied amount from the spent
// total. Rolling back more than was spent is rejected without mutation.
func (b *Budget) RollbackTransaction(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(b.SpentAmount) {
		return ErrRollbackExceedsSpent
	}
	b.SpentAmount = b.SpentAmount.Sub(amount)
	return nil
}

// Rename changes the budget's title.
func (b *Budget) Rename(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	b.Title = strings.TrimSpace(title)
	return nil
}

// SetLimit changes the total amount. Shrinking the limit below the already
// committed spend is rejected.
func (b *Budget) SetLimit(totalAmount decimal.Decimal) error {
	if err := ValidateAmount(totalAmount); err != nil {
		return err
	}
	if totalAmount.LessThan(b.SpentAmount) {
		return ErrLimitBelowSpent
	}
	b.TotalAmount = totalAmount
	return nil
}

// ResetForNewMonth zeroes the spent total and re-anchors the period. Called
// by the monthly reset scheduler, never by reconciliation.
func (b *Budget) ResetForNewMonth(now time.Time) {
	b.SpentAmount = decimal.Zero
	b.CreatedAt = now
}

// Deactivate soft-disables the budget. Inactive budgets are skipped by
// reconciliation lookups; budgets are never hard-deleted.
func (b *Budget) Deactivate() {
	b.Active = false
}

// ContainsDate reports whether a business date falls inside the budget's
// active period (same month and year as the anchor).
func (b *Budget) ContainsDate(date time.Time) bool {
	return b.CreatedAt.Year() == date.Year() && b.CreatedAt.Month() == date.Month()
}

// ApplyPastTransactions backfills the spent total from manual transactions
// that already existed when the budget was created. Only outflows dated in
// the budget's period whose category matches count.
func (b *Budget) ApplyPastTransactions(transactions []Transaction) *BudgetExceededAlert {
	total := decimal.Zero
	for _, txn := range transactions {
		if !txn.IsOutflow() {
			continue
		}
		if !b.ContainsDate(txn.Date) {
			continue
		}
		if !CategoryMatches(b.Category, txn.Category) {
			continue
		}
		total = total.Add(txn.Amount)
	}
	return b.backfill(total)
}

// ApplyPastExternalTransactions backfills the spent total from synced
// transactions. External amounts are outflow-negative; inflows and removed
// records are skipped, and matching is against the primary category.
func (b *Budget) ApplyPastExternalTransactions(transactions []ExternalTransaction) *BudgetExceededAlert {
	total := decimal.Zero
	for _, txn := range transactions {
		outflow, ok := txn.Outflow()
		if !ok || txn.Removed {
			continue
		}
		if !b.ContainsDate(txn.Date) {
			continue
		}
		if !CategoryMatches(b.Category, txn.PrimaryCategory()) {
			continue
		}
		total = total.Add(outflow)
	}
	return b.backfill(total)
}

func (b *Budget) backfill(total decimal.Decimal) *BudgetExceededAlert {
	if total.Sign() <= 0 {
		return nil
	}
	alert, _ := b.ApplyTransaction(total)
	return alert
}

func (b *Budget) exceededAlert() *BudgetExceededAlert {
	return &BudgetExceededAlert{
		UserID:      b.UserID,
		BudgetID:    b.ID,
		Category:    b.Category,
		SpentAmount: b.SpentAmount,
		Limit:       b.TotalAmount,
	}
}
