package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmather/budgetd/internal/model"
)

type recordingHandler struct {
	fail map[string]error
	keys []string
	mu   sync.Mutex
}

func (h *recordingHandler) Handle(_ context.Context, event model.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys = append(h.keys, event.Key())
	if err, ok := h.fail[event.Key()]; ok {
		return err
	}
	return nil
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	handler := &recordingHandler{}
	d := NewDispatcher(handler)

	events := []model.Event{
		model.TransactionCreatedEvent{UserID: "u1", TransactionID: "a"},
		model.TransactionUpdatedEvent{UserID: "u1", TransactionID: "a", Revision: 2},
		model.TransactionDeletedEvent{UserID: "u1", TransactionID: "a"},
	}

	require.NoError(t, d.Publish(context.Background(), events...))
	assert.Equal(t, []string{"txn/a/1/created", "txn/a/2/updated", "txn/a/1/deleted"}, handler.keys)
}

func TestDispatcherStopsBatchOnFailure(t *testing.T) {
	boom := errors.New("store unavailable")
	handler := &recordingHandler{fail: map[string]error{"txn/b/1/created": boom}}
	d := NewDispatcher(handler)

	err := d.Publish(context.Background(),
		model.TransactionCreatedEvent{UserID: "u1", TransactionID: "a"},
		model.TransactionCreatedEvent{UserID: "u1", TransactionID: "b"},
		model.TransactionCreatedEvent{UserID: "u1", TransactionID: "c"},
	)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"txn/a/1/created", "txn/b/1/created"}, handler.keys,
		"events after the failure wait for redelivery")
}

func TestDispatcherSerializesPerUser(t *testing.T) {
	var active, maxActive int
	var mu sync.Mutex

	handler := handlerFunc(func(_ context.Context, event model.Event) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return nil
	})
	d := NewDispatcher(handler)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = d.Publish(context.Background(), model.TransactionCreatedEvent{
				UserID:        "u1",
				TransactionID: "t",
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "same-user events never overlap")
}

type handlerFunc func(ctx context.Context, event model.Event) error

func (f handlerFunc) Handle(ctx context.Context, event model.Event) error { return f(ctx, event) }
