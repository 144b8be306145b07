// Package model defines the core domain models used throughout the application.
package model

import "time"

// DateLayout is the day-precision layout used for all business dates.
const DateLayout = "2006-01-02"

// IncomeChange is the direction of a detected change in income.
type IncomeChange string

// Income change flags. An empty flag means no signal.
const (
	IncomeIncrease IncomeChange = "increase"
	IncomeDecrease IncomeChange = "decrease"
	IncomeNoChange IncomeChange = ""
)

// IncomeSource identifies where an income event came from.
type IncomeSource string

// Income sources.
const (
	IncomeSourceManual IncomeSource = "manual"
	IncomeSourcePlaid  IncomeSource = "plaid"
)

// IncomeEvent is a single observed income payment.
// RollingAverage and ChangeFlag are derived once, at creation time, from
// the history that was already persisted.
type IncomeEvent struct {
	CreatedAt         time.Time    `json:"created_at"`
	Date              time.Time    `json:"date"`
	RollingAverage    *float64     `json:"rolling_3mo_average"`
	ID                string       `json:"id"`
	Source            IncomeSource `json:"source"`
	SourceDescription string       `json:"source_description"`
	ChangeFlag        IncomeChange `json:"income_change_flag,omitempty"`
	Amount            float64      `json:"amount"`
	IsRecurring       bool         `json:"is_recurring"`
}

// ManualIncomeLog records an income amount entered by hand.
type ManualIncomeLog struct {
	CreatedAt         time.Time `json:"created_at"`
	Date              time.Time `json:"date"`
	ID                string    `json:"id"`
	SourceDescription string    `json:"source_description"`
	Amount            float64   `json:"amount"`
	IsRecurring       bool      `json:"is_recurring"`
}

// IncomeStream is a recurring source of income inferred from transactions.
type IncomeStream struct {
	Name        string  `json:"name"`
	Frequency   string  `json:"frequency"`
	Amount      float64 `json:"amount"`
	Occurrences int     `json:"occurrences"`
	IsActive    bool    `json:"is_active"`
}

// ManualSavingsLog records money the user moved into savings by hand.
// RateAdherence is nil when it cannot be computed.
type ManualSavingsLog struct {
	CreatedAt              time.Time `json:"created_at"`
	Date                   time.Time `json:"date"`
	RateAdherence          *float64  `json:"rate_adherence"`
	ID                     string    `json:"id"`
	DestinationDescription string    `json:"destination_description"`
	Amount                 float64   `json:"amount"`
	SavingsRateAtTime      float64   `json:"savings_rate_at_time"`
}
