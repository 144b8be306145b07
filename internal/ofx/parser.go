// Package ofx imports bank and credit card statements from OFX/QFX files.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/moneyplanner/internal/model"
)

// ItemPrefix marks transactions imported from files rather than an aggregator.
const ItemPrefix = "ofx:"

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagPattern  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// rawCategory maps the OFX transaction type onto the aggregator taxonomy so
// imported rows classify like synced ones.
func rawCategory(tx ofxgo.Transaction) string {
	switch tx.TrnType {
	case ofxgo.TrnTypeInt:
		return "INCOME_INTEREST_EARNED"
	case ofxgo.TrnTypeDiv:
		return "INCOME_DIVIDENDS"
	case ofxgo.TrnTypeDirectDep:
		return "INCOME_WAGES"
	case ofxgo.TrnTypeXfer:
		return "TRANSFER_INTERNAL_ACCOUNT_TRANSFER"
	case ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg:
		return "BANK_FEES"
	default:
		return ""
	}
}

// Statement is the content of one imported file.
type Statement struct {
	Accounts     []string
	Transactions []model.Transaction
}

// Parser implements OFX/QFX file parsing.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{logger: slog.Default().With("component", "ofx")}
}

// ItemID returns the item id used for transactions from an account.
func ItemID(accountID string) string {
	return ItemPrefix + accountID
}

// preprocess fixes formatting issues some banks ship in their files.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagPattern.ReplaceAllString(content, "$1>")
}

// Parse reads a statement file. Amounts are converted to the aggregator
// convention: money out is positive, money in is negative.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) (*Statement, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	stmt := &Statement{}
	seen := make(map[string]bool)
	addAccount := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			stmt.Accounts = append(stmt.Accounts, id)
		}
	}

	for _, msg := range resp.Bank {
		if bank, ok := msg.(*ofxgo.StatementResponse); ok {
			accountID := string(bank.BankAcctFrom.AcctID)
			addAccount(accountID)
			stmt.Transactions = append(stmt.Transactions, p.convertList(bank.BankTranList, accountID)...)
		}
	}

	for _, msg := range resp.CreditCard {
		if cc, ok := msg.(*ofxgo.CCStatementResponse); ok {
			accountID := string(cc.CCAcctFrom.AcctID)
			addAccount(accountID)
			stmt.Transactions = append(stmt.Transactions, p.convertList(cc.BankTranList, accountID)...)
		}
	}

	p.logger.Info("Parsed OFX file",
		"transactions", len(stmt.Transactions),
		"accounts", len(stmt.Accounts))

	return stmt, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList, accountID string) []model.Transaction {
	if list == nil {
		return nil
	}

	out := make([]model.Transaction, 0, len(list.Transactions))
	for _, ofxTx := range list.Transactions {
		out = append(out, convertTransaction(ofxTx, accountID))
	}
	return out
}

func convertTransaction(ofxTx ofxgo.Transaction, accountID string) model.Transaction {
	amount, _ := ofxTx.TrnAmt.Float64()
	posted := ofxTx.DtPosted.Time

	tx := model.Transaction{
		ID:          string(ofxTx.FiTID),
		ItemID:      ItemID(accountID),
		AccountID:   accountID,
		Date:        time.Date(posted.Year(), posted.Month(), posted.Day(), 0, 0, 0, 0, time.UTC),
		Name:        strings.TrimSpace(string(ofxTx.Name)),
		Merchant:    merchantName(ofxTx),
		RawCategory: rawCategory(ofxTx),
		Amount:      -amount,
	}
	tx.Hash = tx.GenerateHash()

	return tx
}

var cardPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
}

// merchantName prefers PAYEE and otherwise strips card-network noise from NAME.
func merchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := strings.TrimSpace(string(tx.Name))
	upper := strings.ToUpper(name)
	for _, prefix := range cardPrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Drop a leading "MM/DD " posting date.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}
