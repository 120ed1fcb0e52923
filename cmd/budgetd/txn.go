package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmather/budgetd/internal/cli"
	"github.com/cmather/budgetd/internal/model"
)

func txnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "txn",
		Short: "Manage manual transactions",
	}

	cmd.AddCommand(txnAddCmd())
	cmd.AddCommand(txnEditCmd())
	cmd.AddCommand(txnDeleteCmd())
	cmd.AddCommand(txnListCmd())

	return cmd
}

func txnAddCmd() *cobra.Command {
	var (
		dateStr string
		inflow  bool
	)

	cmd := &cobra.Command{
		Use:   "add <category> <amount> <payee>",
		Short: "Record a manual transaction",
		Long: `Record a manual transaction. Amounts are unsigned; outflow is the default
direction and --inflow flips it. Outflows count toward the matching budget
immediately.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}
			amount, err := model.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			date := time.Now().UTC()
			if dateStr != "" {
				date, err = time.Parse("2006-01-02", dateStr)
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", dateStr, err)
				}
			}

			txType := model.TransactionOutflow
			if inflow {
				txType = model.TransactionInflow
			}

			svcs, cleanup, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			txn, err := svcs.ledger.Create(cmd.Context(), user, args[0], amount, date, args[2], txType)
			if err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Recorded %s %s: %s to %s",
				txn.Type, txn.Amount.StringFixed(2), txn.Category, txn.Payee)))
			fmt.Println(cli.SubtleStyle.Render("id: " + txn.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "business date (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&inflow, "inflow", false, "record an inflow instead of an outflow")
	return cmd
}

func txnEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <transaction-id> <amount>",
		Short: "Change a transaction's amount",
		Long: `Change a transaction's amount. For outflows, the matching budget rolls the
old amount back and applies the new one.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := model.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			svcs, cleanup, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			txn, err := svcs.ledger.UpdateAmount(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Transaction %s amount is now %s", txn.ID, txn.Amount.StringFixed(2))))
			return nil
		},
	}
}

func txnDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <transaction-id>",
		Short: "Delete a transaction",
		Long:  "Delete a transaction. For outflows, the matching budget rolls the amount back.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, cleanup, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svcs.ledger.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println(cli.WarningStyle.Render("Deleted transaction " + args[0]))
			return nil
		},
	}
}

func txnListCmd() *cobra.Command {
	var monthStr string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List manual transactions for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := requireUser()
			if err != nil {
				return err
			}

			month := time.Now().UTC()
			if monthStr != "" {
				month, err = time.Parse("2006-01", monthStr)
				if err != nil {
					return fmt.Errorf("invalid month %q: %w", monthStr, err)
				}
			}

			svcs, cleanup, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			txns, err := svcs.ledger.ListMonth(cmd.Context(), user, month)
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render("Transactions " + month.Format("2006-01")))
			fmt.Print(cli.RenderTransactions(txns))
			return nil
		},
	}

	cmd.Flags().StringVar(&monthStr, "month", "", "month to list (YYYY-MM, default current)")
	return cmd
}
