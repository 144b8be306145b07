package monitor

import "github.com/shopspring/decimal"

// DefaultSavingsRate is the target rate assumed when no transfer is configured.
const DefaultSavingsRate = 0.10

// SavingsAdherence is the ratio of amount saved to the amount the target
// rate asks for out of latestIncome, rounded to four places. rate is a
// fraction, not a percentage. The result is nil when the target is zero.
func SavingsAdherence(amount, latestIncome, rate float64) *float64 {
	if latestIncome <= 0 || rate <= 0 {
		return nil
	}

	target := decimal.NewFromFloat(latestIncome).Mul(decimal.NewFromFloat(rate))
	ratio := decimal.NewFromFloat(amount).Div(target).Round(4).InexactFloat64()
	return &ratio
}
