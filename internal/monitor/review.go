package monitor

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/moneyplanner/internal/categorize"
	"github.com/Veraticus/moneyplanner/internal/model"
)

// ReviewWindow is the trailing period a weekly review covers.
const ReviewWindow = 7 * 24 * time.Hour

// NewWeeklyReview summarizes the money spent in the week ending at now.
//
// A transaction counts when it is money out and its date falls on or after
// the day seven days before now, up to and including today. Categories are
// ordered by total, largest first, with ties broken by name.
func NewWeeklyReview(txns []model.CategorizedTransaction, now time.Time) *model.WeeklyReview {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-ReviewWindow)
	start := time.Date(weekAgo.Year(), weekAgo.Month(), weekAgo.Day(), 0, 0, 0, 0, time.UTC)

	totals := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	total := decimal.Zero

	for _, txn := range txns {
		if txn.Direction() != model.DirectionExpense || txn.Date.Before(start) || txn.Date.After(end) {
			continue
		}
		category := txn.BudgetCategory
		if category == "" {
			category = categorize.CategoryOther
		}
		amount := decimal.NewFromFloat(txn.Amount)
		totals[category] = totals[category].Add(amount)
		counts[category]++
		total = total.Add(amount)
	}

	categories := make([]model.CategoryTotal, 0, len(totals))
	for name, sum := range totals {
		categories = append(categories, model.CategoryTotal{
			Category: name,
			Total:    round2(sum),
			Count:    counts[name],
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Total != categories[j].Total {
			return categories[i].Total > categories[j].Total
		}
		return categories[i].Category < categories[j].Category
	})

	return &model.WeeklyReview{
		ID:          uuid.NewString(),
		PeriodStart: start,
		PeriodEnd:   end,
		GeneratedAt: now,
		Total:       round2(total),
		Categories:  categories,
	}
}

// TransactionCount is the number of transactions a review covers.
func TransactionCount(review *model.WeeklyReview) int {
	n := 0
	for _, c := range review.Categories {
		n += c.Count
	}
	return n
}
