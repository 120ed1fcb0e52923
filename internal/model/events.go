package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event is a transaction lifecycle notification consumed by budget
// reconciliation. Amounts on events are always outflow magnitudes: the
// external feed's signed convention is translated at the ingest boundary so
// reconciliation operates on a single canonical representation.
//
// Key is a deterministic idempotency key (source id + revision + kind) used
// to short-circuit duplicate redelivery; User routes the event onto its
// per-user ordered queue.
type Event interface {
	Key() string
	User() string
}

// TransactionCreatedEvent is raised when a manual outflow is recorded.
type TransactionCreatedEvent struct {
	Date          time.Time
	UserID        string
	TransactionID string
	Category      string
	Amount        decimal.Decimal
}

func (e TransactionCreatedEvent) Key() string { return fmt.Sprintf("txn/%s/1/created", e.TransactionID) }
func (e TransactionCreatedEvent) User() string { return e.UserID }

// TransactionUpdatedEvent is raised when a manual outflow's amount changes.
// Revision is the transaction's version after the update, so successive
// edits produce distinct keys.
type TransactionUpdatedEvent struct {
	Date          time.Time
	UserID        string
	TransactionID string
	Category      string
	OldAmount     decimal.Decimal
	NewAmount     decimal.Decimal
	Revision      int64
}

func (e TransactionUpdatedEvent) Key() string {
	return fmt.Sprintf("txn/%s/%d/updated", e.TransactionID, e.Revision)
}
func (e TransactionUpdatedEvent) User() string { return e.UserID }

// TransactionDeletedEvent is raised when a manual outflow is deleted.
type TransactionDeletedEvent struct {
	Date          time.Time
	UserID        string
	TransactionID string
	Category      string
	Amount        decimal.Decimal
}

func (e TransactionDeletedEvent) Key() string { return fmt.Sprintf("txn/%s/1/deleted", e.TransactionID) }
func (e TransactionDeletedEvent) User() string { return e.UserID }

// ExternalTransactionModifiedEvent is raised when a sync run finds a stored
// external transaction whose amount or primary category changed. When the
// category changed, the rollback targets the budget matching OldCategory and
// the apply targets the budget matching Category; those may be two different
// budgets.
type ExternalTransactionModifiedEvent struct {
	Date        time.Time
	UserID      string
	ExternalID  string
	OldCategory string
	Category    string
	OldAmount   decimal.Decimal
	Amount      decimal.Decimal
	Revision    int64
}

func (e ExternalTransactionModifiedEvent) Key() string {
	return fmt.Sprintf("ext/%s/%d/modified", e.ExternalID, e.Revision)
}
func (e ExternalTransactionModifiedEvent) User() string { return e.UserID }

// ExternalTransactionRemovedEvent is raised when the provider reports a
// transaction as deleted. The stored record is only flagged, never erased.
type ExternalTransactionRemovedEvent struct {
	Date       time.Time
	UserID     string
	ExternalID string
	Category   string
	Amount     decimal.Decimal
}

func (e ExternalTransactionRemovedEvent) Key() string {
	return fmt.Sprintf("ext/%s/1/removed", e.ExternalID)
}
func (e ExternalTransactionRemovedEvent) User() string { return e.UserID }
