// Package ingest reconciles the bank-data provider's transaction feed with
// the locally stored external transactions, emitting lifecycle events for
// every change that can affect a budget.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmather/budgetd/internal/model"
	"github.com/cmather/budgetd/internal/plaid"
	"github.com/cmather/budgetd/internal/service"
)

// SyncResult summarizes one sync run.
type SyncResult struct {
	Fetched   int
	New       int
	Modified  int
	Removed   int
	Unchanged int
}

// Service diffs the provider feed against stored external transactions.
// Each run is idempotent: re-syncing an unchanged window produces no events.
type Service struct {
	fetcher   plaid.TransactionFetcher
	store     service.ExternalTransactionStore
	publisher service.EventPublisher
	logger    *slog.Logger
}

// NewService creates an ingest service.
func NewService(fetcher plaid.TransactionFetcher, store service.ExternalTransactionStore, publisher service.EventPublisher) *Service {
	return &Service{
		fetcher:   fetcher,
		store:     store,
		publisher: publisher,
		logger:    slog.Default().With("component", "ingest"),
	}
}

// Sync fetches the provider feed for [start, end) and reconciles it for the
// given user. New records are stored and applied, changed records raise
// modified events, and stored records the provider no longer reports in the
// window are flagged removed. Events publish after the store write, so a
// crash between the two is healed by the dispatcher's idempotency keys on
// redelivery, not by re-diffing.
func (s *Service) Sync(ctx context.Context, userID string, start, end time.Time) (*SyncResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}

	feed, err := s.fetcher.GetTransactions(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider feed: %w", err)
	}

	s.logger.Info("Starting sync",
		"user_id", userID,
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"fetched", len(feed))

	result := &SyncResult{Fetched: len(feed)}
	seen := make(map[string]bool, len(feed))

	for i := range feed {
		incoming := feed[i]
		seen[incoming.ExternalID] = true

		stored, err := s.store.GetExternalTransaction(ctx, userID, incoming.ExternalID)
		if err != nil {
			return result, fmt.Errorf("failed to look up external transaction %s: %w", incoming.ExternalID, err)
		}

		switch {
		case stored == nil:
			if err := s.ingestNew(ctx, &incoming, result); err != nil {
				return result, err
			}
		case stored.Removed:
			// Once the provider reported a deletion the record stays
			// removed even if it resurfaces in a later feed.
			s.logger.Debug("Skipping removed external transaction", "external_id", incoming.ExternalID)
			result.Unchanged++
		case !stored.Differs(incoming.Amount, incoming.PrimaryCategory()):
			result.Unchanged++
		default:
			if err := s.ingestModified(ctx, stored, &incoming, result); err != nil {
				return result, err
			}
		}
	}

	if err := s.flagMissing(ctx, userID, start, end, seen, result); err != nil {
		return result, err
	}

	s.logger.Info("Sync complete",
		"user_id", userID,
		"new", result.New,
		"modified", result.Modified,
		"removed", result.Removed,
		"unchanged", result.Unchanged)
	return result, nil
}

// ingestNew stores a first-seen provider transaction and, when it is an
// outflow, applies it to the matching budget through a created event. Both
// transaction sources affect budgets uniformly, so the synced outflow rides
// the same event the manual ledger raises.
func (s *Service) ingestNew(ctx context.Context, incoming *model.ExternalTransaction, result *SyncResult) error {
	if err := s.store.UpsertExternalTransaction(ctx, incoming); err != nil {
		return fmt.Errorf("failed to store external transaction %s: %w", incoming.ExternalID, err)
	}
	result.New++

	magnitude, isOutflow := incoming.Outflow()
	if !isOutflow {
		return nil
	}

	return s.publisher.Publish(ctx, model.TransactionCreatedEvent{
		UserID:        incoming.UserID,
		TransactionID: incoming.ID,
		Category:      incoming.PrimaryCategory(),
		Amount:        magnitude,
		Date:          incoming.Date,
	})
}

// ingestModified overwrites the stored record with the provider's version
// and raises a modified event carrying the old and new outflow magnitudes.
// A side that was an inflow contributes a zero magnitude, which the
// reconciler treats as a skipped phase.
func (s *Service) ingestModified(ctx context.Context, stored, incoming *model.ExternalTransaction, result *SyncResult) error {
	revision := stored.Version + 1

	incoming.ID = stored.ID
	incoming.CreatedAt = stored.CreatedAt
	incoming.Version = revision
	if err := s.store.UpsertExternalTransaction(ctx, incoming); err != nil {
		return fmt.Errorf("failed to update external transaction %s: %w", incoming.ExternalID, err)
	}
	result.Modified++

	oldMagnitude, oldOutflow := stored.Outflow()
	newMagnitude, newOutflow := incoming.Outflow()
	if !oldOutflow && !newOutflow {
		// Refund metadata shuffles never touch a budget.
		return nil
	}

	return s.publisher.Publish(ctx, model.ExternalTransactionModifiedEvent{
		UserID:      stored.UserID,
		ExternalID:  stored.ExternalID,
		OldCategory: stored.PrimaryCategory(),
		Category:    incoming.PrimaryCategory(),
		OldAmount:   oldMagnitude,
		Amount:      newMagnitude,
		Revision:    revision,
		Date:        incoming.Date,
	})
}

// flagMissing marks stored transactions in the sync window that the
// provider no longer reports, rolling back any outflow they had applied.
func (s *Service) flagMissing(ctx context.Context, userID string, start, end time.Time, seen map[string]bool, result *SyncResult) error {
	for month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); month.Before(end); month = month.AddDate(0, 1, 0) {
		stored, err := s.store.GetExternalTransactionsByMonth(ctx, userID, month)
		if err != nil {
			return fmt.Errorf("failed to list stored transactions for %s: %w", month.Format("2006-01"), err)
		}

		for i := range stored {
			txn := stored[i]
			if txn.Removed || seen[txn.ExternalID] {
				continue
			}
			if txn.Date.Before(start) || !txn.Date.Before(end) {
				continue
			}

			if err := s.store.MarkExternalTransactionRemoved(ctx, userID, txn.ExternalID); err != nil {
				return fmt.Errorf("failed to mark external transaction %s removed: %w", txn.ExternalID, err)
			}
			result.Removed++

			magnitude, isOutflow := txn.Outflow()
			if !isOutflow {
				continue
			}
			if err := s.publisher.Publish(ctx, model.ExternalTransactionRemovedEvent{
				UserID:     txn.UserID,
				ExternalID: txn.ExternalID,
				Category:   txn.PrimaryCategory(),
				Amount:     magnitude,
				Date:       txn.Date,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
