package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExternalTransaction is a money movement ingested from the bank-data
// aggregator. ExternalID is the provider's key and drives idempotent
// upserts during sync. Amount keeps the provider's sign convention:
// outflows are negative, inflows positive.
type ExternalTransaction struct {
	Date       time.Time
	CreatedAt  time.Time
	ModifiedAt time.Time
	ID         string
	ExternalID string
	UserID     string
	AccountID  string
	Name       string
	CategoryID string
	Merchant   string
	Categories []string
	Amount     decimal.Decimal
	Version    int64
	Removed    bool
}

// PrimaryCategory returns the first category label, the one budgets match
// against. Empty when the provider supplied no categories.
func (e *ExternalTransaction) PrimaryCategory() string {
	if len(e.Categories) == 0 {
		return ""
	}
	return e.Categories[0]
}

// Outflow returns the spend magnitude and true when the transaction is an
// outflow. Inflows (positive amounts) never count toward budgets.
func (e *ExternalTransaction) Outflow() (decimal.Decimal, bool) {
	if e.Amount.Sign() >= 0 {
		return decimal.Zero, false
	}
	return e.Amount.Neg(), true
}

// Differs reports whether an incoming sync record carries a change that
// matters to reconciliation. Updates that touch neither the amount nor the
// primary category are suppressed.
func (e *ExternalTransaction) Differs(amount decimal.Decimal, primaryCategory string) bool {
	return !e.Amount.Equal(amount) || e.PrimaryCategory() != primaryCategory
}
