package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmather/budgetd/internal/cli"
	"github.com/cmather/budgetd/internal/config"
	"github.com/cmather/budgetd/internal/ingest"
	"github.com/cmather/budgetd/internal/plaid"
)

func syncCmd() *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync transactions from the linked bank account",
		Long: `Fetch transactions from Plaid and reconcile them with the local store.
New outflows apply to matching budgets, changed ones roll back and reapply,
and transactions the provider deleted roll back off their budgets.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadPlaidConfig()
			if err != nil {
				return err
			}

			client, err := plaid.NewClient(*cfg)
			if err != nil {
				return err
			}

			svcs, cleanup, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			now := time.Now().UTC()
			start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1-months, 0)
			end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)

			svc := ingest.NewService(client, svcs.store, svcs.bus)
			result, err := svc.Sync(cmd.Context(), cfg.UserID, start, end)
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render("Sync complete"))
			fmt.Printf("  fetched:   %d\n", result.Fetched)
			fmt.Printf("  new:       %d\n", result.New)
			fmt.Printf("  modified:  %d\n", result.Modified)
			fmt.Printf("  removed:   %d\n", result.Removed)
			fmt.Printf("  unchanged: %d\n", result.Unchanged)
			return nil
		},
	}

	cmd.Flags().IntVar(&months, "months", 1, "number of months to sync, ending with the current one")
	return cmd
}
