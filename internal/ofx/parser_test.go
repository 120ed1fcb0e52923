package ofx

import (
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmather/budgetd/internal/model"
)

const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240118120000[0:GMT]
<TRNAMT>2000.00
<FITID>2024011801
<NAME>PAYROLL DEPOSIT
</STMTTRN>
<STMTTRN>
<TRNTYPE>ATM
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-60.00
<FITID>2024012001
<NAME>ATM WITHDRAWAL
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>POS PURCHASE AMAZON.COM*RT4Y7HG2
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile_BankStatement(t *testing.T) {
	p := NewParser()

	txns, err := p.ParseFile(strings.NewReader(sampleBankOFX), "user-1")
	require.NoError(t, err)
	require.Len(t, txns, 3)

	coffee := txns[0]
	assert.Equal(t, "user-1", coffee.UserID)
	assert.NotEmpty(t, coffee.ID)
	assert.Equal(t, "STARBUCKS STORE #1234", coffee.Payee)
	assert.Equal(t, model.TransactionOutflow, coffee.Type)
	assert.True(t, coffee.Amount.Equal(decimal.RequireFromString("25.50")), "debits become unsigned outflows, got %s", coffee.Amount)
	assert.Equal(t, "Uncategorized", coffee.Category)
	assert.Equal(t, 2024, coffee.Date.Year())
	assert.Equal(t, time.January, coffee.Date.Month())

	payroll := txns[1]
	assert.Equal(t, model.TransactionInflow, payroll.Type)
	assert.True(t, payroll.Amount.Equal(decimal.RequireFromString("2000.00")))

	atm := txns[2]
	assert.Equal(t, model.TransactionOutflow, atm.Type)
	assert.Equal(t, "Cash & ATM", atm.Category)
}

func TestParseFile_CreditCardStatement(t *testing.T) {
	p := NewParser()

	txns, err := p.ParseFile(strings.NewReader(sampleCreditCardOFX), "user-1")
	require.NoError(t, err)
	require.Len(t, txns, 1)

	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", txns[0].Payee, "POS prefix stripped")
	assert.Equal(t, model.TransactionOutflow, txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("45.99")))
}

func TestParseFile_EmptyUserRejected(t *testing.T) {
	p := NewParser()
	_, err := p.ParseFile(strings.NewReader(sampleBankOFX), "")
	require.Error(t, err)
}

func TestParseFile_Garbage(t *testing.T) {
	p := NewParser()
	_, err := p.ParseFile(strings.NewReader("not an ofx file"), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse OFX file")
}

func TestPreprocessOFX(t *testing.T) {
	p := NewParser()

	t.Run("uppercases severity", func(t *testing.T) {
		out := p.preprocessOFX("<SEVERITY>Info</SEVERITY>")
		assert.Equal(t, "<SEVERITY>INFO</SEVERITY>", out)
	})

	t.Run("closes dangling tags", func(t *testing.T) {
		out := p.preprocessOFX("<OFX>\n<STMTTRN\n</OFX>")
		assert.Contains(t, out, "<STMTTRN>")
	})

	t.Run("trims leading whitespace", func(t *testing.T) {
		out := p.preprocessOFX("\n\n  OFXHEADER:100")
		assert.True(t, strings.HasPrefix(out, "OFXHEADER:100"))
	})
}

func TestExtractPayee(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain merchant", "WHOLE FOODS MARKET", "WHOLE FOODS MARKET"},
		{"pos prefix", "POS PURCHASE TRADER JOES", "TRADER JOES"},
		{"check card prefix", "CHECK CARD SHELL OIL", "SHELL OIL"},
		{"leading date stamp", "01/15 CORNER BAKERY", "CORNER BAKERY"},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{Name: ofxgo.String(tt.in)}
			assert.Equal(t, tt.want, p.extractPayee(tx))
		})
	}
}

func TestIsGenericDescription(t *testing.T) {
	assert.True(t, isGenericDescription("DEBIT"))
	assert.True(t, isGenericDescription("purchase"))
	assert.False(t, isGenericDescription("WHOLE FOODS"))
}

func TestCategoryForType(t *testing.T) {
	assert.Equal(t, "Interest", categoryForType("INT"))
	assert.Equal(t, "Bank Fees", categoryForType("FEE"))
	assert.Equal(t, "Cash & ATM", categoryForType("ATM"))
	assert.Equal(t, "Uncategorized", categoryForType("DEBIT"))
}
