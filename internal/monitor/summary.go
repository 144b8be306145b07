package monitor

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/moneyplanner/internal/categorize"
	"github.com/Veraticus/moneyplanner/internal/model"
)

// CategorySummary is one category's share of an envelope.
type CategorySummary struct {
	Name       string  `json:"name"`
	MonthlyAvg float64 `json:"monthly_avg"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
}

// EnvelopeSummary is the monthly spending of one budget envelope.
type EnvelopeSummary struct {
	Name       string            `json:"name"`
	Categories []CategorySummary `json:"categories"`
	Subtotal   float64           `json:"subtotal"`
}

// Summary is the average monthly picture across all transactions.
type Summary struct {
	Envelopes      []EnvelopeSummary `json:"envelopes"`
	MonthlyIncome  float64           `json:"monthly_income"`
	MonthlyExpense float64           `json:"monthly_expense"`
	MonthlyBalance float64           `json:"monthly_balance"`
	MonthsAnalyzed int               `json:"months_analyzed"`
}

type categoryAccumulator struct {
	total decimal.Decimal
	count int
}

// Summarize averages income and spending over the calendar months present
// in txns. Income categories count toward income regardless of sign; any
// other money out counts as spending in its category.
func Summarize(txns []model.CategorizedTransaction) Summary {
	months := make(map[string]struct{})
	byCategory := make(map[string]*categoryAccumulator)
	income := decimal.Zero
	expense := decimal.Zero

	for _, txn := range txns {
		months[txn.Date.Format("2006-01")] = struct{}{}

		amount := decimal.NewFromFloat(txn.Amount)
		switch {
		case categorize.IsIncome(txn.BudgetCategory):
			income = income.Add(amount.Abs())
		case txn.Amount > 0:
			acc := byCategory[txn.BudgetCategory]
			if acc == nil {
				acc = &categoryAccumulator{}
				byCategory[txn.BudgetCategory] = acc
			}
			acc.total = acc.total.Add(amount)
			acc.count++
			expense = expense.Add(amount)
		}
	}

	numMonths := len(months)
	if numMonths == 0 {
		numMonths = 1
	}
	divisor := decimal.NewFromInt(int64(numMonths))

	envelopes := make([]EnvelopeSummary, 0, len(categorize.Envelopes()))
	for _, env := range categorize.Envelopes() {
		summary := EnvelopeSummary{Name: env.Name, Categories: []CategorySummary{}}
		subtotal := decimal.Zero
		for _, name := range env.Categories {
			acc := byCategory[name]
			if acc == nil || !acc.total.IsPositive() {
				continue
			}
			avg := acc.total.Div(divisor)
			summary.Categories = append(summary.Categories, CategorySummary{
				Name:       name,
				MonthlyAvg: round2(avg),
				Total:      round2(acc.total),
				Count:      acc.count,
			})
			subtotal = subtotal.Add(avg)
		}
		summary.Subtotal = round2(subtotal)
		envelopes = append(envelopes, summary)
	}

	return Summary{
		Envelopes:      envelopes,
		MonthlyIncome:  round2(income.Div(divisor)),
		MonthlyExpense: round2(expense.Div(divisor)),
		MonthlyBalance: round2(income.Sub(expense).Div(divisor)),
		MonthsAnalyzed: numMonths,
	}
}
