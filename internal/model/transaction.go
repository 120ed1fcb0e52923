package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType captures the direction of a manual transaction. Manual
// amounts are unsigned magnitudes; direction lives here. This deliberately
// differs from ExternalTransaction's signed convention.
type TransactionType string

const (
	// TransactionInflow is money coming in (income, refunds).
	TransactionInflow TransactionType = "inflow"
	// TransactionOutflow is money going out; only outflows count toward budgets.
	TransactionOutflow TransactionType = "outflow"
)

// ErrInvalidTransactionType indicates a type other than inflow or outflow.
var ErrInvalidTransactionType = errors.New("transaction type must be inflow or outflow")

// Transaction is a money movement entered directly by the user. Date is the
// business date, distinct from the record's CreatedAt.
type Transaction struct {
	Date      time.Time
	CreatedAt time.Time
	ID        string
	UserID    string
	Category  string
	Payee     string
	Type      TransactionType
	Amount    decimal.Decimal
	Version   int64
}

// NewTransaction creates a manual transaction after validating its fields.
func NewTransaction(userID, category string, amount decimal.Decimal, date time.Time, payee string, txType TransactionType) (*Transaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if err := ValidateCategory(category); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payee) == "" {
		return nil, ErrEmptyPayee
	}
	if txType != TransactionInflow && txType != TransactionOutflow {
		return nil, ErrInvalidTransactionType
	}

	return &Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Category:  strings.TrimSpace(category),
		Amount:    amount,
		Date:      date,
		Payee:     strings.TrimSpace(payee),
		Type:      txType,
		CreatedAt: time.Now().UTC(),
		Version:   1,
	}, nil
}

// IsOutflow reports whether the transaction spends money.
func (t *Transaction) IsOutflow() bool {
	return t.Type == TransactionOutflow
}
