package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cmather/budgetd/internal/model"
)

// Handler consumes one reconciliation event.
type Handler interface {
	Handle(ctx context.Context, event model.Event) error
}

// Dispatcher delivers events to the reconciler in-process, serialized per
// user. Per-user ordering subsumes per-(user, category) ordering and keeps
// the two phases of a cross-category modification ordered against both
// budgets. Delivery is synchronous: the triggering operation observes
// reconciliation failures instead of losing them.
//
// Budget writes race only through redelivery, which the store-level
// compare-and-swap and idempotency keys absorb; nothing here claims
// serializability across processes.
type Dispatcher struct {
	handler Handler
	logger  *slog.Logger
	users   map[string]*sync.Mutex
	mu      sync.Mutex
}

// NewDispatcher creates a dispatcher delivering to the given handler.
func NewDispatcher(handler Handler) *Dispatcher {
	return &Dispatcher{
		handler: handler,
		logger:  slog.Default().With("component", "dispatch"),
		users:   make(map[string]*sync.Mutex),
	}
}

// Publish delivers events in order. A failed delivery stops the batch and
// surfaces the error so the caller can redeliver; events are never silently
// dropped.
func (d *Dispatcher) Publish(ctx context.Context, events ...model.Event) error {
	for _, event := range events {
		if err := d.deliver(ctx, event); err != nil {
			d.logger.Error("event delivery failed, redelivery required",
				"event_key", event.Key(),
				"user_id", event.User(),
				"error", err)
			return fmt.Errorf("deliver %s: %w", event.Key(), err)
		}
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, event model.Event) error {
	lock := d.userLock(event.User())
	lock.Lock()
	defer lock.Unlock()

	return d.handler.Handle(ctx, event)
}

func (d *Dispatcher) userLock(userID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	lock, ok := d.users[userID]
	if !ok {
		lock = &sync.Mutex{}
		d.users[userID] = lock
	}
	return lock
}
