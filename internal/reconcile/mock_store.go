package reconcile

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cmather/budgetd/internal/common"
	"github.com/cmather/budgetd/internal/model"
)

// MockBudgetStore is an in-memory BudgetStore for tests. Its default
// behavior mimics the SQLite store (copy-on-read, version CAS, applied-key
// bookkeeping); individual methods can be overridden via function fields.
type MockBudgetStore struct {
	GetBudgetByCategoryFn  func(ctx context.Context, category, userID string, date time.Time) (*model.Budget, error)
	UpdateBudgetForEventFn func(ctx context.Context, budget *model.Budget, eventKey string) error

	budgets map[string]*model.Budget
	applied map[string]map[string]bool

	UpdateCalls int
	GetCalls    int

	mu sync.Mutex
}

// NewMockBudgetStore creates an empty in-memory store.
func NewMockBudgetStore() *MockBudgetStore {
	return &MockBudgetStore{
		budgets: make(map[string]*model.Budget),
		applied: make(map[string]map[string]bool),
	}
}

// Seed stores a budget directly.
func (m *MockBudgetStore) Seed(budget *model.Budget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *budget
	m.budgets[budget.ID] = &clone
}

// Stored returns the current persisted state of a budget.
func (m *MockBudgetStore) Stored(id string) *model.Budget {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.budgets[id]
	if !ok {
		return nil
	}
	clone := *b
	return &clone
}

// CreateBudget implements service.BudgetStore.
func (m *MockBudgetStore) CreateBudget(_ context.Context, budget *model.Budget) error {
	m.Seed(budget)
	return nil
}

// GetBudgetByID implements service.BudgetStore.
func (m *MockBudgetStore) GetBudgetByID(_ context.Context, id string) (*model.Budget, error) {
	b := m.Stored(id)
	if b == nil {
		return nil, common.ErrNotFound
	}
	return b, nil
}

// GetBudgetByCategory implements service.BudgetStore. Matching follows the
// store contract: case-insensitive category equality, active budgets only,
// period containing the date.
func (m *MockBudgetStore) GetBudgetByCategory(ctx context.Context, category, userID string, date time.Time) (*model.Budget, error) {
	if m.GetBudgetByCategoryFn != nil {
		return m.GetBudgetByCategoryFn(ctx, category, userID, date)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++

	for _, b := range m.budgets {
		if !b.Active || b.UserID != userID {
			continue
		}
		if !strings.EqualFold(b.Category, category) {
			continue
		}
		if !b.ContainsDate(date) {
			continue
		}
		clone := *b
		return &clone, nil
	}
	return nil, nil
}

// GetBudgetsByUserID implements service.BudgetStore.
func (m *MockBudgetStore) GetBudgetsByUserID(_ context.Context, userID string) ([]model.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Budget
	for _, b := range m.budgets {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

// GetAllBudgets implements service.BudgetStore.
func (m *MockBudgetStore) GetAllBudgets(_ context.Context) ([]model.Budget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Budget
	for _, b := range m.budgets {
		if b.Active {
			out = append(out, *b)
		}
	}
	return out, nil
}

// UpdateBudget implements service.BudgetStore with version CAS.
func (m *MockBudgetStore) UpdateBudget(ctx context.Context, budget *model.Budget) error {
	return m.UpdateBudgetForEvent(ctx, budget, "")
}

// UpdateBudgetForEvent implements service.BudgetStore.
func (m *MockBudgetStore) UpdateBudgetForEvent(ctx context.Context, budget *model.Budget, eventKey string) error {
	if m.UpdateBudgetForEventFn != nil {
		return m.UpdateBudgetForEventFn(ctx, budget, eventKey)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++

	stored, ok := m.budgets[budget.ID]
	if !ok {
		return common.ErrNotFound
	}
	if stored.Version != budget.Version {
		return common.ErrConflict
	}

	clone := *budget
	clone.Version++
	m.budgets[budget.ID] = &clone

	if eventKey != "" {
		if m.applied[budget.ID] == nil {
			m.applied[budget.ID] = make(map[string]bool)
		}
		m.applied[budget.ID][eventKey] = true
	}
	return nil
}

// EventApplied implements service.BudgetStore.
func (m *MockBudgetStore) EventApplied(_ context.Context, budgetID, eventKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied[budgetID][eventKey], nil
}

// MockAlertSink records delivered alerts.
type MockAlertSink struct {
	NotifyFn func(ctx context.Context, alert model.BudgetExceededAlert) error

	Alerts []model.BudgetExceededAlert
	mu     sync.Mutex
}

// Notify implements service.AlertSink.
func (m *MockAlertSink) Notify(ctx context.Context, alert model.BudgetExceededAlert) error {
	m.mu.Lock()
	m.Alerts = append(m.Alerts, alert)
	m.mu.Unlock()

	if m.NotifyFn != nil {
		return m.NotifyFn(ctx, alert)
	}
	return nil
}
