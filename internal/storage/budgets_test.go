package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmather/budgetd/internal/common"
	"github.com/cmather/budgetd/internal/model"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newStoredBudget(t *testing.T, store *SQLiteStore, userID, category string) *model.Budget {
	t.Helper()

	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	budget, err := model.NewBudget(userID, category, dec("200"), category, created)
	require.NoError(t, err)
	require.NoError(t, store.CreateBudget(context.Background(), budget))
	return budget
}

func TestBudgetRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	budget := newStoredBudget(t, store, "user-1", "Groceries")

	got, err := store.GetBudgetByID(ctx, budget.ID)
	require.NoError(t, err)
	assert.Equal(t, budget.ID, got.ID)
	assert.Equal(t, "Groceries", got.Category)
	assert.True(t, got.TotalAmount.Equal(dec("200")))
	assert.True(t, got.SpentAmount.IsZero())
	assert.True(t, got.Active)
	assert.Equal(t, int64(1), got.Version)

	_, err = store.GetBudgetByID(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetBudgetByCategory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	budget := newStoredBudget(t, store, "user-1", "Groceries")
	newStoredBudget(t, store, "user-2", "Groceries")

	inPeriod := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	got, err := store.GetBudgetByCategory(ctx, "groceries", "user-1", inPeriod)
	require.NoError(t, err)
	require.NotNil(t, got, "category match is case-insensitive")
	assert.Equal(t, budget.ID, got.ID)

	got, err = store.GetBudgetByCategory(ctx, "Groceries", "user-1", inPeriod.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Nil(t, got, "date outside the budget's period")

	got, err = store.GetBudgetByCategory(ctx, "Travel", "user-1", inPeriod)
	require.NoError(t, err)
	assert.Nil(t, got, "unknown category is not an error")

	budget.Deactivate()
	require.NoError(t, store.UpdateBudget(ctx, budget))

	got, err = store.GetBudgetByCategory(ctx, "Groceries", "user-1", inPeriod)
	require.NoError(t, err)
	assert.Nil(t, got, "inactive budgets are invisible to reconciliation")
}

func TestUpdateBudgetCompareAndSwap(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	budget := newStoredBudget(t, store, "user-1", "Groceries")

	stale := *budget

	_, err := budget.ApplyTransaction(dec("50"))
	require.NoError(t, err)
	require.NoError(t, store.UpdateBudget(ctx, budget))
	assert.Equal(t, int64(2), budget.Version, "successful update advances the in-memory version")

	_, err = stale.ApplyTransaction(dec("30"))
	require.NoError(t, err)
	err = store.UpdateBudget(ctx, &stale)
	require.ErrorIs(t, err, common.ErrConflict, "stale version loses the race")

	got, err := store.GetBudgetByID(ctx, budget.ID)
	require.NoError(t, err)
	assert.True(t, got.SpentAmount.Equal(dec("50")), "losing write left no trace")
}

func TestUpdateBudgetForEventRecordsKey(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	budget := newStoredBudget(t, store, "user-1", "Groceries")

	applied, err := store.EventApplied(ctx, budget.ID, "txn/t1/1/created")
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = budget.ApplyTransaction(dec("50"))
	require.NoError(t, err)
	require.NoError(t, store.UpdateBudgetForEvent(ctx, budget, "txn/t1/1/created"))

	applied, err = store.EventApplied(ctx, budget.ID, "txn/t1/1/created")
	require.NoError(t, err)
	assert.True(t, applied)

	// Recording the same key again is harmless.
	require.NoError(t, store.UpdateBudgetForEvent(ctx, budget, "txn/t1/1/created"))
}

func TestGetBudgetsByUserIDAndGetAllBudgets(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := newStoredBudget(t, store, "user-1", "Groceries")
	b := newStoredBudget(t, store, "user-1", "Rent")
	newStoredBudget(t, store, "user-2", "Travel")

	b.Deactivate()
	require.NoError(t, store.UpdateBudget(ctx, b))

	mine, err := store.GetBudgetsByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2, "user listing includes inactive budgets")

	active, err := store.GetAllBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, budget := range active {
		assert.NotEqual(t, b.ID, budget.ID)
	}
	assert.Contains(t, []string{active[0].ID, active[1].ID}, a.ID)
}
