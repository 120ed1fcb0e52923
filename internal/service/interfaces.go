// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/cmather/budgetd/internal/model"
)

// BudgetStore is the persistence seam the reconciliation core depends on.
type BudgetStore interface {
	CreateBudget(ctx context.Context, budget *model.Budget) error
	GetBudgetByID(ctx context.Context, id string) (*model.Budget, error)

	// GetBudgetByCategory returns the single active budget for the
	// user/category whose period contains date, or nil when none matches.
	// A nil result is not an error: transactions without a budget are
	// simply not tracked against any limit.
	GetBudgetByCategory(ctx context.Context, category, userID string, date time.Time) (*model.Budget, error)

	GetBudgetsByUserID(ctx context.Context, userID string) ([]model.Budget, error)

	// GetAllBudgets returns every active budget; used only by the monthly
	// reset scheduler.
	GetAllBudgets(ctx context.Context) ([]model.Budget, error)

	// UpdateBudget persists mutated state with a compare-and-swap on the
	// budget's version, returning common.ErrConflict on a stale write.
	UpdateBudget(ctx context.Context, budget *model.Budget) error

	// UpdateBudgetForEvent is UpdateBudget plus recording the event's
	// idempotency key against the budget in the same store transaction.
	UpdateBudgetForEvent(ctx context.Context, budget *model.Budget, eventKey string) error

	// EventApplied reports whether an idempotency key was already recorded
	// against the budget, short-circuiting duplicate redelivery.
	EventApplied(ctx context.Context, budgetID, eventKey string) (bool, error)
}

// TransactionStore persists manual transactions.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	GetTransactionsByMonth(ctx context.Context, userID string, month time.Time) ([]model.Transaction, error)
}

// ExternalTransactionStore persists synced transactions. Upserts key on the
// provider-assigned external ID; provider deletions only flag the record.
type ExternalTransactionStore interface {
	UpsertExternalTransaction(ctx context.Context, txn *model.ExternalTransaction) error
	GetExternalTransaction(ctx context.Context, userID, externalID string) (*model.ExternalTransaction, error)
	GetExternalTransactionsByMonth(ctx context.Context, userID string, month time.Time) ([]model.ExternalTransaction, error)
	MarkExternalTransactionRemoved(ctx context.Context, userID, externalID string) error
}

// Store is the full persistence contract implemented by the SQLite layer.
type Store interface {
	BudgetStore
	TransactionStore
	ExternalTransactionStore

	Migrate(ctx context.Context) error
	Close() error
}

// EventPublisher hands transaction lifecycle events to the reconciliation
// dispatcher. Delivery is at-least-once; handlers are idempotent.
type EventPublisher interface {
	Publish(ctx context.Context, events ...model.Event) error
}

// AlertSink receives budget-exceeded notifications. The delivery transport
// (push, email) is an external collaborator; implementations here only relay.
type AlertSink interface {
	Notify(ctx context.Context, alert model.BudgetExceededAlert) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
