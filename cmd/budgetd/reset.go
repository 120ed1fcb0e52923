package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmather/budgetd/internal/cli"
)

func resetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Start a new budget month",
		Long: `Zero every active budget's spent total and anchor it to the current month.
Meant to run from a scheduler at the start of each month; transaction
history is untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				fmt.Print(cli.WarningStyle.Render("Reset all budgets for a new month?") + " [y/N] ")
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
					fmt.Println("Aborted.")
					return nil
				}
			}

			svcs, cleanup, err := initServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			count, err := svcs.budgets.ResetAllForNewMonth(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Reset %d budgets for %s", count, time.Now().UTC().Format("January 2006"))))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}
