// Package reconcile keeps budget spent totals consistent with the
// transaction stream. Handlers consume transaction lifecycle events and
// translate them into budget apply/rollback operations.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmather/budgetd/internal/common"
	"github.com/cmather/budgetd/internal/model"
	"github.com/cmather/budgetd/internal/service"
)

// Reconciler resolves the budget owning an event and applies the matching
// bookkeeping operation. Updates are compare-and-swap writes: a conflict
// re-fetches the budget and reapplies the same operation from a fresh read.
type Reconciler struct {
	budgets   service.BudgetStore
	alerts    service.AlertSink
	logger    *slog.Logger
	retryOpts service.RetryOptions
}

// NewReconciler creates a reconciler over the given budget store and alert sink.
func NewReconciler(budgets service.BudgetStore, alerts service.AlertSink) *Reconciler {
	return &Reconciler{
		budgets: budgets,
		alerts:  alerts,
		logger:  slog.Default().With("component", "reconcile"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  5,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Handle dispatches one event to its handler. Unknown event types are
// rejected so a wiring mistake surfaces instead of dropping bookkeeping.
func (r *Reconciler) Handle(ctx context.Context, event model.Event) error {
	switch ev := event.(type) {
	case model.TransactionCreatedEvent:
		return r.handleCreated(ctx, ev)
	case model.TransactionUpdatedEvent:
		return r.handleUpdated(ctx, ev)
	case model.TransactionDeletedEvent:
		return r.handleDeleted(ctx, ev)
	case model.ExternalTransactionModifiedEvent:
		return r.handleExternalModified(ctx, ev)
	case model.ExternalTransactionRemovedEvent:
		return r.handleExternalRemoved(ctx, ev)
	default:
		return fmt.Errorf("unhandled event type %T", event)
	}
}

func (r *Reconciler) handleCreated(ctx context.Context, ev model.TransactionCreatedEvent) error {
	return r.reconcile(ctx, ev.UserID, ev.Category, ev.Date, ev.Key(),
		func(b *model.Budget) (*model.BudgetExceededAlert, error) {
			return b.ApplyTransaction(ev.Amount)
		})
}

func (r *Reconciler) handleUpdated(ctx context.Context, ev model.TransactionUpdatedEvent) error {
	return r.reconcile(ctx, ev.UserID, ev.Category, ev.Date, ev.Key(),
		func(b *model.Budget) (*model.BudgetExceededAlert, error) {
			if err := b.RollbackTransaction(ev.OldAmount); err != nil {
				return nil, err
			}
			return b.ApplyTransaction(ev.NewAmount)
		})
}

func (r *Reconciler) handleDeleted(ctx context.Context, ev model.TransactionDeletedEvent) error {
	return r.reconcile(ctx, ev.UserID, ev.Category, ev.Date, ev.Key(),
		func(b *model.Budget) (*model.BudgetExceededAlert, error) {
			return nil, b.RollbackTransaction(ev.Amount)
		})
}

// handleExternalModified rolls back against the budget matching the old
// category and applies against the budget matching the new one. When the
// category did not change those are the same budget and the pair runs as a
// single store write; when it did, each phase records its own idempotency
// key so a crash between them redelivers only the missing half.
//
// A zero magnitude on either side marks a sign flip at the provider: an
// update that turned an outflow into a refund carries a zero new amount
// (rollback only), and one that turned a refund into an outflow carries a
// zero old amount (apply only).
func (r *Reconciler) handleExternalModified(ctx context.Context, ev model.ExternalTransactionModifiedEvent) error {
	if ev.OldCategory == ev.Category {
		return r.reconcile(ctx, ev.UserID, ev.Category, ev.Date, ev.Key(),
			func(b *model.Budget) (*model.BudgetExceededAlert, error) {
				if !ev.OldAmount.IsZero() {
					if err := b.RollbackTransaction(ev.OldAmount); err != nil {
						return nil, err
					}
				}
				if ev.Amount.IsZero() {
					return nil, nil
				}
				return b.ApplyTransaction(ev.Amount)
			})
	}

	if !ev.OldAmount.IsZero() {
		if err := r.reconcile(ctx, ev.UserID, ev.OldCategory, ev.Date, ev.Key()+"/rollback",
			func(b *model.Budget) (*model.BudgetExceededAlert, error) {
				return nil, b.RollbackTransaction(ev.OldAmount)
			}); err != nil {
			return err
		}
	}

	if ev.Amount.IsZero() {
		return nil
	}
	return r.reconcile(ctx, ev.UserID, ev.Category, ev.Date, ev.Key()+"/apply",
		func(b *model.Budget) (*model.BudgetExceededAlert, error) {
			return b.ApplyTransaction(ev.Amount)
		})
}

func (r *Reconciler) handleExternalRemoved(ctx context.Context, ev model.ExternalTransactionRemovedEvent) error {
	return r.reconcile(ctx, ev.UserID, ev.Category, ev.Date, ev.Key(),
		func(b *model.Budget) (*model.BudgetExceededAlert, error) {
			return nil, b.RollbackTransaction(ev.Amount)
		})
}

// reconcile is the shared load-mutate-save cycle. No matching active budget
// means nothing to reconcile; a seen idempotency key means a duplicate
// redelivery. Both complete without a write. CAS conflicts retry from a
// fresh read; domain-rule violations abort immediately.
func (r *Reconciler) reconcile(
	ctx context.Context,
	userID, category string,
	date time.Time,
	eventKey string,
	mutate func(*model.Budget) (*model.BudgetExceededAlert, error),
) error {
	var alert *model.BudgetExceededAlert

	err := common.WithRetry(ctx, func() error {
		alert = nil

		budget, err := r.budgets.GetBudgetByCategory(ctx, category, userID, date)
		if err != nil {
			return fmt.Errorf("resolve budget: %w", err)
		}
		if budget == nil {
			r.logger.Debug("no active budget for event",
				"user_id", userID,
				"category", category,
				"event_key", eventKey)
			return nil
		}

		applied, err := r.budgets.EventApplied(ctx, budget.ID, eventKey)
		if err != nil {
			return fmt.Errorf("check idempotency key: %w", err)
		}
		if applied {
			r.logger.Debug("duplicate event delivery skipped",
				"budget_id", budget.ID,
				"event_key", eventKey)
			return nil
		}

		a, err := mutate(budget)
		if err != nil {
			return err
		}

		if err := r.budgets.UpdateBudgetForEvent(ctx, budget, eventKey); err != nil {
			return fmt.Errorf("persist budget: %w", err)
		}

		alert = a
		return nil
	}, r.retryOpts)
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", eventKey, err)
	}

	if alert != nil {
		// Alert delivery is best effort; a sink failure must not fail the
		// already-persisted reconciliation.
		if err := r.alerts.Notify(ctx, *alert); err != nil {
			common.LogError(err, "failed to deliver budget exceeded alert", common.Fields{
				"budget_id": alert.BudgetID,
				"user_id":   alert.UserID,
			})
		}
	}

	return nil
}
