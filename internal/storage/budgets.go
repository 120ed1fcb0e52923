package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmather/budgetd/internal/common"
	"github.com/cmather/budgetd/internal/model"
)

// CreateBudget inserts a new budget row.
func (s *SQLiteStore) CreateBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, title, category, total_amount, spent_amount, active, created_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		budget.ID,
		budget.UserID,
		budget.Title,
		budget.Category,
		budget.TotalAmount.String(),
		budget.SpentAmount.String(),
		budget.Active,
		budget.CreatedAt,
		budget.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	return nil
}

// GetBudgetByID returns a budget by its id, or common.ErrNotFound.
func (s *SQLiteStore) GetBudgetByID(ctx context.Context, id string) (*model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, category, total_amount, spent_amount, active, created_at, version
		FROM budgets WHERE id = ?
	`, id)

	budget, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget %s: %w", id, common.ErrNotFound)
	}
	return budget, err
}

// GetBudgetByCategory returns the single active budget for the user and
// category whose period contains the date, or nil when no budget matches.
// Category comparison is case-insensitive; the period check runs in Go so
// it cannot drift from the entity's own ContainsDate.
func (s *SQLiteStore) GetBudgetByCategory(ctx context.Context, category, userID string, date time.Time) (*model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(category, "category"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, category, total_amount, spent_amount, active, created_at, version
		FROM budgets
		WHERE user_id = ? AND active = 1 AND LOWER(category) = LOWER(?)
	`, userID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		budget, scanErr := scanBudget(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		if budget.ContainsDate(date) {
			return budget, nil
		}
	}
	return nil, rows.Err()
}

// GetBudgetsByUserID returns every budget owned by a user, newest first.
func (s *SQLiteStore) GetBudgetsByUserID(ctx context.Context, userID string) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	return s.queryBudgets(ctx, `
		SELECT id, user_id, title, category, total_amount, spent_amount, active, created_at, version
		FROM budgets WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
}

// GetAllBudgets returns every active budget. Used by the monthly reset
// scheduler, never by reconciliation.
func (s *SQLiteStore) GetAllBudgets(ctx context.Context) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryBudgets(ctx, `
		SELECT id, user_id, title, category, total_amount, spent_amount, active, created_at, version
		FROM budgets WHERE active = 1
	`)
}

// UpdateBudget persists a mutated budget with a compare-and-swap on its
// version. A stale version returns common.ErrConflict.
func (s *SQLiteStore) UpdateBudget(ctx context.Context, budget *model.Budget) error {
	return s.UpdateBudgetForEvent(ctx, budget, "")
}

// UpdateBudgetForEvent is UpdateBudget plus recording the reconciliation
// event key in the same database transaction, so the write and its
// idempotency marker commit or roll back together.
func (s *SQLiteStore) UpdateBudgetForEvent(ctx context.Context, budget *model.Budget, eventKey string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE budgets
		SET title = ?, category = ?, total_amount = ?, spent_amount = ?, active = ?, created_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`,
		budget.Title,
		budget.Category,
		budget.TotalAmount.String(),
		budget.SpentAmount.String(),
		budget.Active,
		budget.CreatedAt,
		budget.ID,
		budget.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		// Either the row vanished or someone won the race; both resolve
		// by re-fetching.
		return fmt.Errorf("budget %s version %d: %w", budget.ID, budget.Version, common.ErrConflict)
	}

	if eventKey != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO applied_events (budget_id, event_key) VALUES (?, ?)
		`, budget.ID, eventKey); err != nil {
			return fmt.Errorf("failed to record event key: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit budget update: %w", err)
	}

	budget.Version++
	return nil
}

// EventApplied reports whether the event key was already applied to the budget.
func (s *SQLiteStore) EventApplied(ctx context.Context, budgetID, eventKey string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(budgetID, "budgetID"); err != nil {
		return false, err
	}
	if err := validateString(eventKey, "eventKey"); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM applied_events WHERE budget_id = ? AND event_key = ?
	`, budgetID, eventKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query applied events: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) queryBudgets(ctx context.Context, query string, args ...any) ([]model.Budget, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		budget, scanErr := scanBudget(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		budgets = append(budgets, *budget)
	}
	return budgets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBudget(row rowScanner) (*model.Budget, error) {
	var (
		b           model.Budget
		totalAmount string
		spentAmount string
	)

	err := row.Scan(&b.ID, &b.UserID, &b.Title, &b.Category, &totalAmount, &spentAmount, &b.Active, &b.CreatedAt, &b.Version)
	if err != nil {
		return nil, err
	}

	if b.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("corrupt total amount %q: %w", totalAmount, err)
	}
	if b.SpentAmount, err = decimal.NewFromString(spentAmount); err != nil {
		return nil, fmt.Errorf("corrupt spent amount %q: %w", spentAmount, err)
	}

	b.Category = strings.TrimSpace(b.Category)
	return &b, nil
}
