package income

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/moneyplanner/internal/categorize"
	"github.com/Veraticus/moneyplanner/internal/model"
)

// StreamMinAmount is the smallest deposit considered part of an income stream.
const StreamMinAmount = 200.0

// DetectStreams groups sizable deposits classified as income or incoming
// transfers by payer. Streams are returned in the order their payer first appears.
func DetectStreams(txns []model.Transaction) []model.IncomeStream {
	var (
		order   []string
		amounts = make(map[string][]float64)
	)

	for _, txn := range txns {
		if txn.Direction() != model.DirectionIncome || math.Abs(txn.Amount) <= StreamMinAmount {
			continue
		}
		if !categorize.IsIncome(categorize.Classify(categorize.FromTransaction(txn))) {
			continue
		}

		key := txn.Merchant
		if key == "" {
			key = txn.Name
		}
		if key == "" {
			key = "Unknown"
		}

		if _, seen := amounts[key]; !seen {
			order = append(order, key)
		}
		amounts[key] = append(amounts[key], math.Abs(txn.Amount))
	}

	streams := make([]model.IncomeStream, 0, len(order))
	for _, key := range order {
		values := amounts[key]

		sum := decimal.Zero
		for _, v := range values {
			sum = sum.Add(decimal.NewFromFloat(v))
		}
		avg := sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2)

		frequency := "one-time"
		if len(values) >= 2 {
			frequency = "monthly"
		}

		streams = append(streams, model.IncomeStream{
			Name:        key,
			Amount:      avg.InexactFloat64(),
			Frequency:   frequency,
			Occurrences: len(values),
			IsActive:    true,
		})
	}

	return streams
}
