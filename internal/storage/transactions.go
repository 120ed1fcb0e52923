package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmather/budgetd/internal/common"
	"github.com/cmather/budgetd/internal/model"
)

// SaveTransaction inserts a manual transaction.
func (s *SQLiteStore) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, category, amount, date, payee, type, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.ID,
		txn.UserID,
		txn.Category,
		txn.Amount.String(),
		txn.Date,
		txn.Payee,
		string(txn.Type),
		txn.Version,
		txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// GetTransactionByID returns a manual transaction, or common.ErrNotFound.
func (s *SQLiteStore) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, category, amount, date, payee, type, version, created_at
		FROM transactions WHERE id = ?
	`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return txn, err
}

// UpdateTransaction persists edits to a manual transaction and bumps its
// version so the resulting event key is distinct per revision.
func (s *SQLiteStore) UpdateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET category = ?, amount = ?, date = ?, payee = ?, type = ?, version = ?
		WHERE id = ?
	`,
		txn.Category,
		txn.Amount.String(),
		txn.Date,
		txn.Payee,
		string(txn.Type),
		txn.Version,
		txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes a manual transaction row.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetTransactionsByMonth returns a user's manual transactions whose business
// date falls in the same month as the given anchor. Used by the budget
// creation backfill.
func (s *SQLiteStore) GetTransactionsByMonth(ctx context.Context, userID string, month time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, amount, date, payee, type, version, created_at
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?
		ORDER BY date
	`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		t       model.Transaction
		amount  string
		txnType string
	)

	err := row.Scan(&t.ID, &t.UserID, &t.Category, &amount, &t.Date, &t.Payee, &txnType, &t.Version, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	t.Type = model.TransactionType(txnType)
	return &t, nil
}
