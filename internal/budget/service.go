// Package budget manages budget lifecycle outside of event reconciliation:
// creation with historical backfill, limit and title changes, deactivation,
// and the monthly reset.
package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmather/budgetd/internal/common"
	"github.com/cmather/budgetd/internal/model"
	"github.com/cmather/budgetd/internal/service"
)

// Service coordinates budget lifecycle operations against the store.
type Service struct {
	budgets   service.BudgetStore
	txns      service.TransactionStore
	external  service.ExternalTransactionStore
	alerts    service.AlertSink
	logger    *slog.Logger
	retryOpts service.RetryOptions
}

// NewService creates a budget service.
func NewService(budgets service.BudgetStore, txns service.TransactionStore, external service.ExternalTransactionStore, alerts service.AlertSink) *Service {
	return &Service{
		budgets:  budgets,
		txns:     txns,
		external: external,
		alerts:   alerts,
		logger:   slog.Default().With("component", "budget"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  5,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Create makes a new budget for the month containing now, backfilling the
// spent total from transactions that already exist in that month. A user
// gets at most one active budget per category and period.
func (s *Service) Create(ctx context.Context, userID, title, category string, limit decimal.Decimal, now time.Time) (*model.Budget, error) {
	existing, err := s.budgets.GetBudgetByCategory(ctx, category, userID, now)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("category %s: %w", category, common.ErrBudgetExists)
	}

	b, err := model.NewBudget(userID, title, limit, category, now)
	if err != nil {
		return nil, err
	}

	manual, err := s.txns.GetTransactionsByMonth(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for backfill: %w", err)
	}
	synced, err := s.external.GetExternalTransactionsByMonth(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load external transactions for backfill: %w", err)
	}

	alert := b.ApplyPastTransactions(manual)
	if extAlert := b.ApplyPastExternalTransactions(synced); alert == nil {
		alert = extAlert
	}

	if err := s.budgets.CreateBudget(ctx, b); err != nil {
		return nil, err
	}

	s.logger.Info("Created budget",
		"budget_id", b.ID,
		"user_id", userID,
		"category", b.Category,
		"limit", b.TotalAmount.String(),
		"backfilled_spent", b.SpentAmount.String())

	if alert != nil {
		s.notify(ctx, *alert)
	}
	return b, nil
}

// Rename changes a budget's title.
func (s *Service) Rename(ctx context.Context, budgetID, title string) (*model.Budget, error) {
	return s.mutate(ctx, budgetID, func(b *model.Budget) error {
		return b.Rename(title)
	})
}

// SetLimit changes a budget's total amount. Lowering the limit below the
// committed spend is rejected.
func (s *Service) SetLimit(ctx context.Context, budgetID string, limit decimal.Decimal) (*model.Budget, error) {
	return s.mutate(ctx, budgetID, func(b *model.Budget) error {
		return b.SetLimit(limit)
	})
}

// Deactivate soft-disables a budget. Reconciliation stops matching it but
// the row and its history stay.
func (s *Service) Deactivate(ctx context.Context, budgetID string) (*model.Budget, error) {
	return s.mutate(ctx, budgetID, func(b *model.Budget) error {
		b.Deactivate()
		return nil
	})
}

// Get returns a budget by ID.
func (s *Service) Get(ctx context.Context, budgetID string) (*model.Budget, error) {
	return s.budgets.GetBudgetByID(ctx, budgetID)
}

// List returns a user's budgets.
func (s *Service) List(ctx context.Context, userID string) ([]model.Budget, error) {
	return s.budgets.GetBudgetsByUserID(ctx, userID)
}

// ResetAllForNewMonth zeroes every active budget's spent total and anchors
// it to the month containing now. Invoked by the monthly scheduler, never
// by reconciliation. Returns the number of budgets reset.
func (s *Service) ResetAllForNewMonth(ctx context.Context, now time.Time) (int, error) {
	budgets, err := s.budgets.GetAllBudgets(ctx)
	if err != nil {
		return 0, err
	}

	reset := 0
	for i := range budgets {
		id := budgets[i].ID
		if _, err := s.mutate(ctx, id, func(b *model.Budget) error {
			b.ResetForNewMonth(now)
			return nil
		}); err != nil {
			return reset, fmt.Errorf("failed to reset budget %s: %w", id, err)
		}
		reset++
	}

	s.logger.Info("Reset budgets for new month", "count", reset, "month", now.Format("2006-01"))
	return reset, nil
}

// mutate runs the load-mutate-save cycle with retry on write conflicts.
// Each attempt re-reads, so a conflicting writer's changes are never lost.
func (s *Service) mutate(ctx context.Context, budgetID string, fn func(*model.Budget) error) (*model.Budget, error) {
	var result *model.Budget
	err := common.WithRetry(ctx, func() error {
		b, err := s.budgets.GetBudgetByID(ctx, budgetID)
		if err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
		if err := s.budgets.UpdateBudget(ctx, b); err != nil {
			return err
		}
		result = b
		return nil
	}, s.retryOpts)
	if err != nil {
		if errors.Is(err, common.ErrMaxRetries) {
			return nil, fmt.Errorf("budget %s kept conflicting: %w", budgetID, err)
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) notify(ctx context.Context, alert model.BudgetExceededAlert) {
	if s.alerts == nil {
		return
	}
	if err := s.alerts.Notify(ctx, alert); err != nil {
		s.logger.Error("Failed to deliver budget exceeded alert",
			"budget_id", alert.BudgetID,
			"error", err)
	}
}
