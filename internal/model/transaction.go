package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// TransactionDirection describes which way money moved.
type TransactionDirection string

// Direction constants.
const (
	DirectionIncome  TransactionDirection = "income"
	DirectionExpense TransactionDirection = "expense"
)

// Transaction represents a single financial transaction from any source.
//
// Amount follows the aggregator sign convention: positive amounts are money
// leaving the account, negative amounts are money arriving.
type Transaction struct {
	Date        time.Time `json:"date"`
	ID          string    `json:"transaction_id"`
	ItemID      string    `json:"item_id"`
	AccountID   string    `json:"account_id"`
	Name        string    `json:"name"`     // Raw transaction description
	Merchant    string    `json:"merchant"` // Merchant name when the source provides one
	RawCategory string    `json:"category"` // Category hint from the source
	Hash        string    `json:"-"`
	Amount      float64   `json:"amount"`
	Pending     bool      `json:"pending"`
}

// Direction reports whether the transaction is money in or money out.
// Zero-amount transactions have no direction.
func (t *Transaction) Direction() TransactionDirection {
	switch {
	case t.Amount > 0:
		return DirectionExpense
	case t.Amount < 0:
		return DirectionIncome
	default:
		return ""
	}
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Merchant,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// CategorizedTransaction is a transaction enriched with its derived budget
// category. The category is recomputed on every read and never stored.
type CategorizedTransaction struct {
	Transaction
	BudgetCategory string `json:"budget_category"`
	Overridden     bool   `json:"overridden,omitempty"`
}

// CategoryOverride pins a single transaction to a user-chosen category.
type CategoryOverride struct {
	OverriddenAt  time.Time `json:"overridden_at"`
	TransactionID string    `json:"transaction_id"`
	Category      string    `json:"category"`
}

// Account is a bank account behind a connected item.
type Account struct {
	ID               string  `json:"id"`
	ItemID           string  `json:"item_id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Subtype          string  `json:"subtype,omitempty"`
	Mask             string  `json:"mask,omitempty"`
	InstitutionName  string  `json:"institution_name"`
	CurrentBalance   float64 `json:"current_balance"`
	AvailableBalance float64 `json:"available_balance"`
}
