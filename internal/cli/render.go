package cli

import (
	"fmt"
	"strings"

	"github.com/cmather/budgetd/internal/model"
)

// RenderBudgets formats a budget list as an aligned table. Over-limit
// budgets render their spent column in the error style.
func RenderBudgets(budgets []model.Budget) string {
	if len(budgets) == 0 {
		return SubtleStyle.Render("No budgets.")
	}

	var b strings.Builder
	header := fmt.Sprintf("%-36s  %-15s  %-15s  %10s  %10s  %-8s",
		"ID", "TITLE", "CATEGORY", "SPENT", "LIMIT", "STATUS")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for i := range budgets {
		budget := budgets[i]
		spent := fmt.Sprintf("%10s", budget.SpentAmount.StringFixed(2))
		if budget.SpentAmount.GreaterThan(budget.TotalAmount) {
			spent = ErrorStyle.Render(spent)
		}

		status := "active"
		if !budget.Active {
			status = SubtleStyle.Render("inactive")
		}

		b.WriteString(fmt.Sprintf("%-36s  %-15s  %-15s  %s  %10s  %s\n",
			budget.ID,
			truncate(budget.Title, 15),
			truncate(budget.Category, 15),
			spent,
			budget.TotalAmount.StringFixed(2),
			status))
	}
	return b.String()
}

// RenderTransactions formats manual transactions as an aligned table.
func RenderTransactions(txns []model.Transaction) string {
	if len(txns) == 0 {
		return SubtleStyle.Render("No transactions.")
	}

	var b strings.Builder
	header := fmt.Sprintf("%-36s  %-10s  %-15s  %-20s  %10s  %-7s",
		"ID", "DATE", "CATEGORY", "PAYEE", "AMOUNT", "TYPE")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for i := range txns {
		txn := txns[i]
		b.WriteString(fmt.Sprintf("%-36s  %-10s  %-15s  %-20s  %10s  %-7s\n",
			txn.ID,
			txn.Date.Format("2006-01-02"),
			truncate(txn.Category, 15),
			truncate(txn.Payee, 20),
			txn.Amount.StringFixed(2),
			txn.Type))
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
