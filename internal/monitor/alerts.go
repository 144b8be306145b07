package monitor

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/moneyplanner/internal/model"
)

// AlertThreshold is the share of a budget line that triggers a warning.
const AlertThreshold = 0.80

// AlertLevel grades how far spending has gone against a budget line.
type AlertLevel string

// Alert levels.
const (
	AlertWarning  AlertLevel = "warning"
	AlertExceeded AlertLevel = "exceeded"
	// AlertStop is an exceeded line whose hard stop is on.
	AlertStop AlertLevel = "stop"
)

// BudgetAlert reports a budget line whose month-to-date spending has crossed
// AlertThreshold.
type BudgetAlert struct {
	ItemID   string     `json:"item_id"`
	Name     string     `json:"name"`
	Category string     `json:"category_id"`
	Level    AlertLevel `json:"level"`
	Budget   float64    `json:"budget_amount"`
	Spent    float64    `json:"spent"`
	HardStop bool       `json:"hard_stop"`
}

// BudgetAlerts compares this month's spending per category with each
// budget line. Lines without a positive amount never alert. Category names
// match case-insensitively.
func BudgetAlerts(items []model.BudgetItem, txns []model.CategorizedTransaction, now time.Time) []BudgetAlert {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	spent := make(map[string]decimal.Decimal)
	for _, txn := range txns {
		if txn.Direction() != model.DirectionExpense || txn.Date.Before(monthStart) {
			continue
		}
		key := strings.ToLower(txn.BudgetCategory)
		spent[key] = spent[key].Add(decimal.NewFromFloat(txn.Amount))
	}

	threshold := decimal.NewFromFloat(AlertThreshold)
	alerts := []BudgetAlert{}
	for _, item := range items {
		if item.BudgetAmount <= 0 {
			continue
		}
		budget := decimal.NewFromFloat(item.BudgetAmount)
		total := spent[strings.ToLower(item.Category)]
		if total.LessThan(budget.Mul(threshold)) {
			continue
		}

		level := AlertWarning
		if total.GreaterThanOrEqual(budget) {
			level = AlertExceeded
			if item.HardStop {
				level = AlertStop
			}
		}
		alerts = append(alerts, BudgetAlert{
			ItemID:   item.ID,
			Name:     item.Name,
			Category: item.Category,
			Level:    level,
			Budget:   item.BudgetAmount,
			Spent:    round2(total),
			HardStop: item.HardStop,
		})
	}
	return alerts
}
