package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmather/budgetd/internal/common"
	"github.com/cmather/budgetd/internal/model"
)

// UpsertExternalTransaction inserts or updates a synced transaction, keyed
// on (user_id, external_id). The provider's record is the source of truth;
// repeated syncs of the same page are harmless.
func (s *SQLiteStore) UpsertExternalTransaction(ctx context.Context, txn *model.ExternalTransaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExternalTransaction(txn); err != nil {
		return err
	}

	categoriesJSON := ""
	if len(txn.Categories) > 0 {
		raw, err := json.Marshal(txn.Categories)
		if err != nil {
			return fmt.Errorf("failed to marshal categories: %w", err)
		}
		categoriesJSON = string(raw)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO external_transactions
			(id, external_id, user_id, account_id, amount, name, date, categories, category_id, merchant_name, removed, version, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, external_id) DO UPDATE SET
			account_id = excluded.account_id,
			amount = excluded.amount,
			name = excluded.name,
			date = excluded.date,
			categories = excluded.categories,
			category_id = excluded.category_id,
			merchant_name = excluded.merchant_name,
			removed = excluded.removed,
			version = external_transactions.version + 1,
			modified_at = excluded.modified_at
	`,
		txn.ID,
		txn.ExternalID,
		txn.UserID,
		txn.AccountID,
		txn.Amount.String(),
		txn.Name,
		txn.Date,
		categoriesJSON,
		txn.CategoryID,
		txn.Merchant,
		txn.Removed,
		txn.Version,
		txn.CreatedAt,
		txn.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert external transaction: %w", err)
	}
	return nil
}

// GetExternalTransaction returns a synced transaction by its provider key,
// or nil when the provider key has never been seen.
func (s *SQLiteStore) GetExternalTransaction(ctx context.Context, userID, externalID string) (*model.ExternalTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(externalID, "externalID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, user_id, account_id, amount, name, date, categories, category_id, merchant_name, removed, version, created_at, modified_at
		FROM external_transactions
		WHERE user_id = ? AND external_id = ?
	`, userID, externalID)

	txn, err := scanExternalTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return txn, err
}

// GetExternalTransactionsByMonth returns a user's synced transactions dated
// in the same month as the anchor, including removed ones; callers filter.
func (s *SQLiteStore) GetExternalTransactionsByMonth(ctx context.Context, userID string, month time.Time) ([]model.ExternalTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id, user_id, account_id, amount, name, date, categories, category_id, merchant_name, removed, version, created_at, modified_at
		FROM external_transactions
		WHERE user_id = ? AND date >= ? AND date < ?
		ORDER BY date
	`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query external transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.ExternalTransaction
	for rows.Next() {
		txn, scanErr := scanExternalTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// MarkExternalTransactionRemoved flags a provider-deleted transaction. The
// row stays; external records are never physically deleted.
func (s *SQLiteStore) MarkExternalTransactionRemoved(ctx context.Context, userID, externalID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if err := validateString(externalID, "externalID"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE external_transactions
		SET removed = 1, version = version + 1, modified_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND external_id = ?
	`, userID, externalID)
	if err != nil {
		return fmt.Errorf("failed to mark external transaction removed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("external transaction %s: %w", externalID, common.ErrNotFound)
	}
	return nil
}

func scanExternalTransaction(row rowScanner) (*model.ExternalTransaction, error) {
	var (
		t              model.ExternalTransaction
		amount         string
		categoriesJSON sql.NullString
		accountID      sql.NullString
		name           sql.NullString
		categoryID     sql.NullString
		merchant       sql.NullString
	)

	err := row.Scan(
		&t.ID, &t.ExternalID, &t.UserID, &accountID, &amount, &name, &t.Date,
		&categoriesJSON, &categoryID, &merchant, &t.Removed, &t.Version,
		&t.CreatedAt, &t.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	if categoriesJSON.Valid && categoriesJSON.String != "" {
		if err := json.Unmarshal([]byte(categoriesJSON.String), &t.Categories); err != nil {
			return nil, fmt.Errorf("corrupt categories %q: %w", categoriesJSON.String, err)
		}
	}
	t.AccountID = accountID.String
	t.Name = name.String
	t.CategoryID = categoryID.String
	t.Merchant = merchant.String
	return &t, nil
}
