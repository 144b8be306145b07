// Package categorize maps raw transactions to budget categories.
package categorize

import (
	"math"
	"strings"

	"github.com/Veraticus/moneyplanner/internal/model"
)

// IncomeThreshold is the money-in magnitude above which an unmatched
// transaction is treated as income rather than a transfer.
const IncomeThreshold = 500.0

// Input is the subset of a transaction the classifier looks at.
// Amount uses the aggregator convention: negative is money in.
type Input struct {
	Merchant    string
	Name        string
	RawCategory string
	Amount      float64
}

// FromTransaction builds classifier input from a stored transaction.
func FromTransaction(txn model.Transaction) Input {
	return Input{
		Merchant:    txn.Merchant,
		Name:        txn.Name,
		RawCategory: txn.RawCategory,
		Amount:      txn.Amount,
	}
}

// Classify returns the budget category for in. It always returns a category.
//
// Rules are tried in order and the first match wins: merchant overrides
// against merchant and name, then the aggregator taxonomy against the
// normalized raw category, then the amount sign, then Other.
func Classify(in Input) string {
	merchant := strings.ToUpper(in.Merchant)
	name := strings.ToUpper(in.Name)
	for _, r := range merchantOverrides {
		if strings.Contains(merchant, r.Pattern) || strings.Contains(name, r.Pattern) {
			return r.Category
		}
	}

	raw := strings.ReplaceAll(strings.ToUpper(in.RawCategory), " ", "_")
	for _, r := range taxonomy {
		if strings.Contains(raw, r.Pattern) {
			return r.Category
		}
	}

	if in.Amount < 0 {
		if math.Abs(in.Amount) > IncomeThreshold {
			return CategoryIncome
		}
		return CategoryETransfersIn
	}

	return CategoryOther
}

// Apply classifies each transaction, letting per-transaction overrides win.
func Apply(txns []model.Transaction, overrides map[string]model.CategoryOverride) []model.CategorizedTransaction {
	out := make([]model.CategorizedTransaction, 0, len(txns))
	for _, txn := range txns {
		ct := model.CategorizedTransaction{Transaction: txn}
		if o, ok := overrides[txn.ID]; ok && o.Category != "" {
			ct.BudgetCategory = o.Category
			ct.Overridden = true
		} else {
			ct.BudgetCategory = Classify(FromTransaction(txn))
		}
		out = append(out, ct)
	}
	return out
}

// IsIncome reports whether category counts as money in rather than spending.
func IsIncome(category string) bool {
	return category == CategoryIncome || category == CategoryETransfersIn
}

// Envelopes returns the display grouping of budget categories.
func Envelopes() []Envelope {
	out := make([]Envelope, len(envelopes))
	for i, e := range envelopes {
		out[i] = Envelope{Name: e.Name, Categories: append([]string(nil), e.Categories...)}
	}
	return out
}

// EnvelopeFor returns the envelope a category belongs to, or "" if none.
func EnvelopeFor(category string) string {
	for _, e := range envelopes {
		for _, c := range e.Categories {
			if c == category {
				return e.Name
			}
		}
	}
	return ""
}
