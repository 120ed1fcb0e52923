package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cmather/budgetd/internal/cli"
	"github.com/cmather/budgetd/internal/model"
	"github.com/cmather/budgetd/internal/ofx"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.ofx>",
		Short: "Import an OFX/QFX statement as manual transactions",
		Long: `Import an OFX or QFX statement file. Each statement entry becomes a manual
transaction; outflows count toward matching budgets as they are stored.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open statement file: %w", err)
	}
	defer func() { _ = f.Close() }()

	txns, err := ofx.NewParser().ParseFile(f, user)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No transactions in statement."))
		return nil
	}

	svcs, cleanup, err := initServices(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	bar := progressbar.NewOptions(len(txns),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Importing transactions..."),
	)

	imported := 0
	for i := range txns {
		if _, err := svcs.ledger.Import(cmd.Context(), []model.Transaction{txns[i]}); err != nil {
			_ = bar.Finish()
			return fmt.Errorf("import stopped after %d transactions: %w", imported, err)
		}
		imported++
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Println()

	fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Imported %d transactions from %s", imported, args[0])))
	return nil
}
