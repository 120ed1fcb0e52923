package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmather/budgetd/internal/common"
	"github.com/cmather/budgetd/internal/model"
)

type memTransactionStore struct {
	records map[string]*model.Transaction
}

func newMemTransactionStore() *memTransactionStore {
	return &memTransactionStore{records: make(map[string]*model.Transaction)}
}

func (m *memTransactionStore) SaveTransaction(_ context.Context, txn *model.Transaction) error {
	cp := *txn
	m.records[txn.ID] = &cp
	return nil
}

func (m *memTransactionStore) GetTransactionByID(_ context.Context, id string) (*model.Transaction, error) {
	txn, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	cp := *txn
	return &cp, nil
}

func (m *memTransactionStore) UpdateTransaction(_ context.Context, txn *model.Transaction) error {
	if _, ok := m.records[txn.ID]; !ok {
		return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrNotFound)
	}
	cp := *txn
	m.records[txn.ID] = &cp
	return nil
}

func (m *memTransactionStore) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	delete(m.records, id)
	return nil
}

func (m *memTransactionStore) GetTransactionsByMonth(_ context.Context, userID string, month time.Time) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, txn := range m.records {
		if txn.UserID == userID && txn.Date.Year() == month.Year() && txn.Date.Month() == month.Month() {
			out = append(out, *txn)
		}
	}
	return out, nil
}

type capturePublisher struct {
	events []model.Event
}

func (p *capturePublisher) Publish(_ context.Context, events ...model.Event) error {
	p.events = append(p.events, events...)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var august = time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memTransactionStore, *capturePublisher) {
	store := newMemTransactionStore()
	publisher := &capturePublisher{}
	return NewService(store, publisher), store, publisher
}

func TestCreate_OutflowPublishesCreated(t *testing.T) {
	svc, store, publisher := newTestService()

	txn, err := svc.Create(context.Background(), "user-1", "Groceries", dec("52.30"), august, "Whole Foods", model.TransactionOutflow)
	require.NoError(t, err)
	require.NotNil(t, txn)
	assert.Contains(t, store.records, txn.ID)

	require.Len(t, publisher.events, 1)
	ev, ok := publisher.events[0].(model.TransactionCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, txn.ID, ev.TransactionID)
	assert.Equal(t, "Groceries", ev.Category)
	assert.True(t, ev.Amount.Equal(dec("52.30")))
}

func TestCreate_InflowStoredSilently(t *testing.T) {
	svc, store, publisher := newTestService()

	txn, err := svc.Create(context.Background(), "user-1", "Income", dec("2500"), august, "Employer", model.TransactionInflow)
	require.NoError(t, err)
	assert.Contains(t, store.records, txn.ID)
	assert.Empty(t, publisher.events)
}

func TestCreate_InvalidInputsRejected(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", "Groceries", dec("0"), august, "X", model.TransactionOutflow)
	assert.ErrorIs(t, err, model.ErrNonPositiveAmount)

	_, err = svc.Create(ctx, "user-1", "", dec("10"), august, "X", model.TransactionOutflow)
	assert.ErrorIs(t, err, model.ErrEmptyCategory)

	_, err = svc.Create(ctx, "user-1", "Groceries", dec("10"), august, "X", model.TransactionType("transfer"))
	assert.ErrorIs(t, err, model.ErrInvalidTransactionType)

	assert.Empty(t, store.records, "nothing persisted on validation failure")
}

func TestUpdateAmount_PublishesOldAndNew(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	txn, err := svc.Create(ctx, "user-1", "Groceries", dec("50"), august, "Market", model.TransactionOutflow)
	require.NoError(t, err)

	updated, err := svc.UpdateAmount(ctx, txn.ID, dec("70"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	require.Len(t, publisher.events, 2)
	ev, ok := publisher.events[1].(model.TransactionUpdatedEvent)
	require.True(t, ok)
	assert.True(t, ev.OldAmount.Equal(dec("50")))
	assert.True(t, ev.NewAmount.Equal(dec("70")))
	assert.Equal(t, int64(2), ev.Revision)
}

func TestUpdateAmount_SuccessiveEditsGetDistinctKeys(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	txn, err := svc.Create(ctx, "user-1", "Groceries", dec("50"), august, "Market", model.TransactionOutflow)
	require.NoError(t, err)

	_, err = svc.UpdateAmount(ctx, txn.ID, dec("70"))
	require.NoError(t, err)
	_, err = svc.UpdateAmount(ctx, txn.ID, dec("80"))
	require.NoError(t, err)

	require.Len(t, publisher.events, 3)
	assert.NotEqual(t, publisher.events[1].Key(), publisher.events[2].Key())
}

func TestUpdateAmount_NoOpIsSilent(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	txn, err := svc.Create(ctx, "user-1", "Groceries", dec("50"), august, "Market", model.TransactionOutflow)
	require.NoError(t, err)

	updated, err := svc.UpdateAmount(ctx, txn.ID, dec("50"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)
	assert.Len(t, publisher.events, 1, "only the create published")
}

func TestUpdateAmount_InflowStaysSilent(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	txn, err := svc.Create(ctx, "user-1", "Income", dec("2500"), august, "Employer", model.TransactionInflow)
	require.NoError(t, err)

	_, err = svc.UpdateAmount(ctx, txn.ID, dec("2600"))
	require.NoError(t, err)
	assert.Empty(t, publisher.events)
}

func TestUpdateAmount_MissingTransaction(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.UpdateAmount(context.Background(), "nope", dec("10"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete_OutflowPublishesDeleted(t *testing.T) {
	svc, store, publisher := newTestService()
	ctx := context.Background()

	txn, err := svc.Create(ctx, "user-1", "Groceries", dec("50"), august, "Market", model.TransactionOutflow)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, txn.ID))
	assert.NotContains(t, store.records, txn.ID)

	require.Len(t, publisher.events, 2)
	ev, ok := publisher.events[1].(model.TransactionDeletedEvent)
	require.True(t, ok)
	assert.True(t, ev.Amount.Equal(dec("50")))
}

func TestImport_PublishesOutflowsOnly(t *testing.T) {
	svc, store, publisher := newTestService()
	ctx := context.Background()

	outflow, err := model.NewTransaction("user-1", "Uncategorized", dec("25.50"), august, "Starbucks", model.TransactionOutflow)
	require.NoError(t, err)
	inflow, err := model.NewTransaction("user-1", "Uncategorized", dec("2000"), august, "Payroll", model.TransactionInflow)
	require.NoError(t, err)

	count, err := svc.Import(ctx, []model.Transaction{*outflow, *inflow})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, store.records, 2)
	require.Len(t, publisher.events, 1)
	assert.IsType(t, model.TransactionCreatedEvent{}, publisher.events[0])
}

func TestListMonth(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", "Groceries", dec("50"), august, "Market", model.TransactionOutflow)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-1", "Groceries", dec("10"), august.AddDate(0, -1, 0), "Market", model.TransactionOutflow)
	require.NoError(t, err)

	txns, err := svc.ListMonth(ctx, "user-1", august)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}
