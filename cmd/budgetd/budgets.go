package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmather/budgetd/internal/cli"
	"github.com/cmather/budgetd/internal/model"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Manage monthly category budgets",
	}

	cmd.AddCommand(budgetsCreateCmd())
	cmd.AddCommand(budgetsListCmd())
	cmd.AddCommand(budgetsRenameCmd())
	cmd.AddCommand(budgetsSetLimitCmd())
	cmd.AddCommand(budgetsDeactivateCmd())

	return cmd
}

func budgetsCreateCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "create <category> <limit>",
		Short: "Create a budget for the current month",
		Long: `Create a budget limiting spend in a category for the current month.
Outflows already recorded this month, manual or synced, are counted into
the budget's spent total immediately.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			limit, err := model.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[1], err)
			}

			svcs, cleanup, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			category := args[0]
			if title == "" {
				title = category
			}

			b, err := svcs.budgets.Create(cmd.Context(), user, title, category, limit, time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Created budget %s: %s %s/month (spent so far: %s)",
				b.ID, b.Category, b.TotalAmount.StringFixed(2), b.SpentAmount.StringFixed(2))))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "display title (defaults to the category)")
	return cmd
}

func budgetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your budgets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}

			svcs, cleanup, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			budgets, err := svcs.budgets.List(cmd.Context(), user)
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render("Budgets"))
			fmt.Print(cli.RenderBudgets(budgets))
			return nil
		},
	}
}

func budgetsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <budget-id> <title>",
		Short: "Change a budget's title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, cleanup, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			b, err := svcs.budgets.Rename(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Renamed budget %s to %q", b.ID, b.Title)))
			return nil
		},
	}
}

func budgetsSetLimitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-limit <budget-id> <limit>",
		Short: "Change a budget's monthly limit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := model.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[1], err)
			}

			svcs, cleanup, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			b, err := svcs.budgets.SetLimit(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Budget %s limit is now %s", b.ID, b.TotalAmount.StringFixed(2))))
			return nil
		},
	}
}

func budgetsDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <budget-id>",
		Short: "Deactivate a budget",
		Long: `Deactivate a budget. The budget stops tracking new transactions but its
history is kept; the category is freed for a replacement budget.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, cleanup, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			b, err := svcs.budgets.Deactivate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(cli.WarningStyle.Render(fmt.Sprintf("Deactivated budget %s (%s)", b.ID, b.Category)))
			return nil
		},
	}
}
