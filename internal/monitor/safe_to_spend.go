// Package monitor aggregates spending into the user-facing budget views:
// safe-to-spend, weekly reviews, monthly summaries and savings adherence.
package monitor

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/moneyplanner/internal/model"
)

// Default shares of monthly income used when no explicit budget is set.
const (
	DefaultFixedShare   = 0.50
	DefaultSavingsShare = 0.10
)

// SafeToSpend is the discretionary money left for the rest of the month.
type SafeToSpend struct {
	MonthlyIncome       float64 `json:"monthly_income"`
	FixedExpenses       float64 `json:"fixed_expenses"`
	SavingsTarget       float64 `json:"savings_target"`
	DiscretionaryBudget float64 `json:"discretionary_budget"`
	MonthSpending       float64 `json:"month_spending"`
	SafeToSpend         float64 `json:"safe_to_spend"`
	DailyAllowance      float64 `json:"daily_allowance"`
	DaysRemaining       int     `json:"days_remaining"`
}

// ComputeSafeToSpend derives the safe-to-spend figure for the month containing
// now. averageIncome is used unless budget sets an explicit monthly income;
// budget may be nil. The result is never negative.
func ComputeSafeToSpend(averageIncome float64, budget *model.Budget, txns []model.Transaction, now time.Time) SafeToSpend {
	if budget == nil {
		budget = &model.Budget{}
	}

	income := averageIncome
	if budget.MonthlyIncome != nil {
		income = *budget.MonthlyIncome
	}
	fixed := income * DefaultFixedShare
	if budget.FixedExpenses != nil {
		fixed = *budget.FixedExpenses
	}
	savings := income * DefaultSavingsShare
	if budget.SavingsTarget != nil {
		savings = *budget.SavingsTarget
	}

	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	spent := decimal.Zero
	for _, txn := range txns {
		if txn.Direction() == model.DirectionExpense && !txn.Date.Before(monthStart) {
			spent = spent.Add(decimal.NewFromFloat(txn.Amount))
		}
	}

	discretionary := decimal.NewFromFloat(income).
		Sub(decimal.NewFromFloat(fixed)).
		Sub(decimal.NewFromFloat(savings))
	safe := decimal.Max(discretionary.Sub(spent), decimal.Zero)

	days := int(nextMonth.Sub(now).Hours() / 24)
	daily := safe
	if days > 0 {
		daily = safe.Div(decimal.NewFromInt(int64(days)))
	}

	return SafeToSpend{
		MonthlyIncome:       round2(decimal.NewFromFloat(income)),
		FixedExpenses:       round2(decimal.NewFromFloat(fixed)),
		SavingsTarget:       round2(decimal.NewFromFloat(savings)),
		DiscretionaryBudget: round2(discretionary),
		MonthSpending:       round2(spent),
		SafeToSpend:         round2(safe),
		DailyAllowance:      round2(daily),
		DaysRemaining:       days,
	}
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
