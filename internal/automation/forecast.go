package automation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/moneyplanner/internal/common"
)

// Forecast defaults.
const (
	DefaultForecastYears  = 10
	DefaultForecastIncome = 5000.0
	MaxForecastYears      = 50

	// ForecastAnnualReturn is the yearly growth assumed for the compound
	// projection, compounded monthly.
	ForecastAnnualReturn = 0.05
)

// Forecast projects savings at the current rate against a proposed one.
type Forecast struct {
	CurrentRate      float64 `json:"current_rate"`
	ProposedRate     float64 `json:"proposed_rate"`
	Years            int     `json:"years"`
	MonthlyIncome    float64 `json:"monthly_income"`
	CurrentSimple    float64 `json:"current_simple"`
	ProposedSimple   float64 `json:"proposed_simple"`
	CurrentCompound  float64 `json:"current_compound"`
	ProposedCompound float64 `json:"proposed_compound"`
	Difference       float64 `json:"difference"`
}

// ProjectEscalation compares saving currentRate and proposedRate percent of
// monthlyIncome every month for years. Simple totals ignore growth; compound
// totals grow at ForecastAnnualReturn. Difference is between the compound
// totals.
func ProjectEscalation(currentRate, proposedRate float64, years int, monthlyIncome float64) (Forecast, error) {
	for _, rate := range []float64{currentRate, proposedRate} {
		if rate < 0 || rate > 100 {
			return Forecast{}, fmt.Errorf("%w: savings rate %.1f must be between 0 and 100", common.ErrInvalidInput, rate)
		}
	}
	if years < 1 || years > MaxForecastYears {
		return Forecast{}, fmt.Errorf("%w: forecast years must be between 1 and %d", common.ErrInvalidInput, MaxForecastYears)
	}
	if monthlyIncome <= 0 {
		return Forecast{}, fmt.Errorf("%w: monthly income must be positive", common.ErrInvalidInput)
	}

	months := decimal.NewFromInt(int64(years * 12))
	income := decimal.NewFromFloat(monthlyIncome)
	hundred := decimal.NewFromInt(100)
	current := income.Mul(decimal.NewFromFloat(currentRate)).Div(hundred)
	proposed := income.Mul(decimal.NewFromFloat(proposedRate)).Div(hundred)

	// Future value of a monthly annuity: ((1+r)^n - 1) / r.
	r := decimal.NewFromFloat(ForecastAnnualReturn).Div(decimal.NewFromInt(12))
	growth := decimal.NewFromInt(1).Add(r).Pow(months).Sub(decimal.NewFromInt(1)).Div(r)

	currentCompound := current.Mul(growth).Round(2)
	proposedCompound := proposed.Mul(growth).Round(2)

	return Forecast{
		CurrentRate:      currentRate,
		ProposedRate:     proposedRate,
		Years:            years,
		MonthlyIncome:    monthlyIncome,
		CurrentSimple:    current.Mul(months).Round(2).InexactFloat64(),
		ProposedSimple:   proposed.Mul(months).Round(2).InexactFloat64(),
		CurrentCompound:  currentCompound.InexactFloat64(),
		ProposedCompound: proposedCompound.InexactFloat64(),
		Difference:       proposedCompound.Sub(currentCompound).InexactFloat64(),
	}, nil
}
