// Package ledger manages manually entered transactions. Every mutation is
// persisted first and then announced as a lifecycle event; only outflows
// raise events, because inflows never count toward a budget.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmather/budgetd/internal/model"
	"github.com/cmather/budgetd/internal/service"
)

// Service is the manual transaction ledger.
type Service struct {
	store     service.TransactionStore
	publisher service.EventPublisher
	logger    *slog.Logger
}

// NewService creates a ledger service.
func NewService(store service.TransactionStore, publisher service.EventPublisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		logger:    slog.Default().With("component", "ledger"),
	}
}

// Create records a new manual transaction and, for outflows, applies it to
// the matching budget.
func (s *Service) Create(ctx context.Context, userID, category string, amount decimal.Decimal, date time.Time, payee string, txType model.TransactionType) (*model.Transaction, error) {
	txn, err := model.NewTransaction(userID, category, amount, date, payee, txType)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	s.logger.Info("Recorded transaction",
		"transaction_id", txn.ID,
		"user_id", userID,
		"category", txn.Category,
		"type", txn.Type)

	if !txn.IsOutflow() {
		return txn, nil
	}

	if err := s.publisher.Publish(ctx, model.TransactionCreatedEvent{
		UserID:        txn.UserID,
		TransactionID: txn.ID,
		Category:      txn.Category,
		Amount:        txn.Amount,
		Date:          txn.Date,
	}); err != nil {
		return txn, err
	}
	return txn, nil
}

// UpdateAmount changes a transaction's amount. The old and new amounts ride
// the event together so reconciliation can roll back before reapplying.
func (s *Service) UpdateAmount(ctx context.Context, id string, amount decimal.Decimal) (*model.Transaction, error) {
	if err := model.ValidateAmount(amount); err != nil {
		return nil, err
	}

	txn, err := s.store.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldAmount := txn.Amount
	if oldAmount.Equal(amount) {
		return txn, nil
	}

	txn.Amount = amount
	txn.Version++
	if err := s.store.UpdateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	s.logger.Info("Updated transaction amount",
		"transaction_id", txn.ID,
		"old_amount", oldAmount.String(),
		"new_amount", amount.String())

	if !txn.IsOutflow() {
		return txn, nil
	}

	if err := s.publisher.Publish(ctx, model.TransactionUpdatedEvent{
		UserID:        txn.UserID,
		TransactionID: txn.ID,
		Category:      txn.Category,
		OldAmount:     oldAmount,
		NewAmount:     amount,
		Revision:      txn.Version,
		Date:          txn.Date,
	}); err != nil {
		return txn, err
	}
	return txn, nil
}

// Delete removes a transaction and rolls its outflow back off the budget.
func (s *Service) Delete(ctx context.Context, id string) error {
	txn, err := s.store.GetTransactionByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	s.logger.Info("Deleted transaction", "transaction_id", id, "user_id", txn.UserID)

	if !txn.IsOutflow() {
		return nil
	}

	return s.publisher.Publish(ctx, model.TransactionDeletedEvent{
		UserID:        txn.UserID,
		TransactionID: txn.ID,
		Category:      txn.Category,
		Amount:        txn.Amount,
		Date:          txn.Date,
	})
}

// Import bulk-loads parsed statement transactions, publishing created
// events for the outflows. Returns the number of stored transactions.
func (s *Service) Import(ctx context.Context, txns []model.Transaction) (int, error) {
	stored := 0
	for i := range txns {
		txn := txns[i]
		if err := s.store.SaveTransaction(ctx, &txn); err != nil {
			return stored, fmt.Errorf("failed to save imported transaction %s: %w", txn.ID, err)
		}
		stored++

		if !txn.IsOutflow() {
			continue
		}
		if err := s.publisher.Publish(ctx, model.TransactionCreatedEvent{
			UserID:        txn.UserID,
			TransactionID: txn.ID,
			Category:      txn.Category,
			Amount:        txn.Amount,
			Date:          txn.Date,
		}); err != nil {
			return stored, err
		}
	}

	s.logger.Info("Imported transactions", "count", stored)
	return stored, nil
}

// ListMonth returns a user's manual transactions for the month containing
// the anchor date.
func (s *Service) ListMonth(ctx context.Context, userID string, month time.Time) ([]model.Transaction, error) {
	return s.store.GetTransactionsByMonth(ctx, userID, month)
}
