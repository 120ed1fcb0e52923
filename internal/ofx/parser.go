// Package ofx parses OFX/QFX statement files into manual ledger
// transactions, so historical bank exports can be bulk-loaded without the
// provider sync.
package ofx

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/cmather/budgetd/internal/model"
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML-style files sometimes drop the closing angle bracket on a tag
	// that ends its line
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX file into manual transactions owned by the
// given user. OFX signs debits negative; the result uses unsigned
// magnitudes with an explicit inflow/outflow type.
func (p *Parser) ParseFile(reader io.Reader, userID string) ([]model.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID cannot be empty")
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			txns, err := p.processStatement(stmt.BankTranList, userID)
			if err != nil {
				slog.Warn("Failed to process bank statement",
					"account", stmt.BankAcctFrom.AcctID,
					"error", err)
				continue
			}
			transactions = append(transactions, txns...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			txns, err := p.processStatement(stmt.BankTranList, userID)
			if err != nil {
				slog.Warn("Failed to process credit card statement",
					"account", stmt.CCAcctFrom.AcctID,
					"error", err)
				continue
			}
			transactions = append(transactions, txns...)
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

func (p *Parser) processStatement(list *ofxgo.TransactionList, userID string) ([]model.Transaction, error) {
	if list == nil {
		return nil, nil
	}

	var transactions []model.Transaction
	for _, ofxTx := range list.Transactions {
		tx, err := p.convertTransaction(ofxTx, userID)
		if err != nil {
			slog.Warn("Skipping unconvertible OFX transaction",
				"fitid", ofxTx.FiTID,
				"error", err)
			continue
		}
		transactions = append(transactions, *tx)
	}
	return transactions, nil
}

// convertTransaction maps one OFX record onto the manual transaction model.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, userID string) (*model.Transaction, error) {
	amount := decimal.NewFromBigRat(&ofxTx.TrnAmt.Rat, 2)

	txType := model.TransactionInflow
	if amount.Sign() < 0 {
		txType = model.TransactionOutflow
		amount = amount.Neg()
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("zero-amount transaction")
	}

	payee := p.extractPayee(ofxTx)
	if payee == "" {
		payee = "Unknown"
	}

	tx, err := model.NewTransaction(userID, categoryForType(fmt.Sprintf("%v", ofxTx.TrnType)), amount, ofxTx.DtPosted.Time, payee, txType)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// categoryForType infers a category from the OFX transaction type. OFX
// carries no category taxonomy, so only a few types map to something more
// useful than the catch-all.
func categoryForType(trnType string) string {
	switch trnType {
	case "INT":
		return "Interest"
	case "FEE", "SRVCHG":
		return "Bank Fees"
	case "ATM", "CASH":
		return "Cash & ATM"
	default:
		return "Uncategorized"
	}
}

// extractPayee tries to get a clean payee name from OFX data.
func (p *Parser) extractPayee(tx ofxgo.Transaction) string {
	// PAYEE is the cleanest source when present
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)

	// Sometimes MEMO has better merchant info than a generic NAME
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}

	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " date stamps add nothing
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}

	upperName := strings.ToUpper(name)
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}
