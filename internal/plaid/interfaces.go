package plaid

import (
	"context"
	"time"

	"github.com/cmather/budgetd/internal/model"
)

// TransactionFetcher defines the contract for fetching external transaction
// data. This interface allows for easy mocking in tests and swapping data
// sources.
type TransactionFetcher interface {
	GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.ExternalTransaction, error)
	GetAccounts(ctx context.Context) ([]string, error)
}
