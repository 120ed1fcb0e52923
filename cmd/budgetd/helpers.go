package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/cmather/budgetd/internal/budget"
	"github.com/cmather/budgetd/internal/config"
	"github.com/cmather/budgetd/internal/ledger"
	"github.com/cmather/budgetd/internal/notify"
	"github.com/cmather/budgetd/internal/reconcile"
	"github.com/cmather/budgetd/internal/service"
	"github.com/cmather/budgetd/internal/storage"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (service.Store, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/budgetd/budgetd.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// services bundles the application services sharing one store.
type services struct {
	store   service.Store
	budgets *budget.Service
	ledger  *ledger.Service
	bus     *reconcile.Dispatcher
}

// initServices wires the reconciliation stack: every transaction mutation
// publishes onto the dispatcher, which drives the reconciler against the
// same store.
func initServices(ctx context.Context) (*services, func(), error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = store.Close() }

	sink := notify.NewLogSink()
	bus := reconcile.NewDispatcher(reconcile.NewReconciler(store, sink))

	return &services{
		store:   store,
		budgets: budget.NewService(store, store, store, sink),
		ledger:  ledger.NewService(store, bus),
		bus:     bus,
	}, cleanup, nil
}

// requireUser resolves the acting user from the --user flag or config.
func requireUser() (string, error) {
	user := viper.GetString("user")
	if user == "" {
		return "", fmt.Errorf("no user configured: pass --user or set user in the config file")
	}
	return user, nil
}
