package model

import "time"

// Budget is a user's explicit monthly budget. Nil fields fall back to defaults.
type Budget struct {
	UpdatedAt     time.Time `json:"updated_at"`
	MonthlyIncome *float64  `json:"monthly_income"`
	FixedExpenses *float64  `json:"fixed_expenses"`
	SavingsTarget *float64  `json:"savings_target"`
}

// SpendingClass describes how predictable a budget line is.
type SpendingClass string

// Spending classes.
const (
	SpendingFixed             SpendingClass = "FIXED"
	SpendingRecurringVariable SpendingClass = "RECURRING_VARIABLE"
	SpendingTrueVariable      SpendingClass = "TRUE_VARIABLE"
	SpendingUnclassified      SpendingClass = "UNCLASSIFIED"
)

// Valid reports whether c is a known spending class.
func (c SpendingClass) Valid() bool {
	switch c {
	case SpendingFixed, SpendingRecurringVariable, SpendingTrueVariable, SpendingUnclassified:
		return true
	}
	return false
}

// BudgetItem is a single planned line within a budget category.
type BudgetItem struct {
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      *time.Time    `json:"updated_at,omitempty"`
	ID             string        `json:"id"`
	Category       string        `json:"category_id"`
	Name           string        `json:"name"`
	Classification SpendingClass `json:"classification"`
	BudgetAmount   float64       `json:"budget_amount"`
	// HardStop asks for spending in the category to stop once the line is
	// used up.
	HardStop bool `json:"hard_stop"`
}

// CategoryTotal is the spending attributed to one budget category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// WeeklyReview is an immutable snapshot of a week's spending.
// Only the acknowledgment fields change after creation.
type WeeklyReview struct {
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	GeneratedAt    time.Time       `json:"generated_at"`
	AcknowledgedAt *time.Time      `json:"acknowledged_at"`
	ID             string          `json:"id"`
	Categories     []CategoryTotal `json:"categories"`
	Total          float64         `json:"total"`
	Acknowledged   bool            `json:"acknowledged"`
}

// Safeguards holds the user's protective settings.
type Safeguards struct {
	HolidayUntil       *time.Time `json:"gamification_holiday_until"`
	GamificationActive bool       `json:"gamification_active"`
}

// BenchmarkSettings records whether a user shares in peer benchmarks.
type BenchmarkSettings struct {
	UpdatedAt time.Time `json:"updated_at"`
	OptIn     bool      `json:"opt_in"`
}

// GroupGoal is a savings target shared with other members. Progress is
// the creator's savings logged since the goal was created.
type GroupGoal struct {
	CreatedAt       time.Time `json:"created_at"`
	ID              string    `json:"id"`
	CreatorID       string    `json:"creator_id"`
	Name            string    `json:"name"`
	MemberIDs       []string  `json:"member_ids"`
	Target          float64   `json:"target"`
	Progress        float64   `json:"progress"`
	PercentComplete float64   `json:"percent_complete"`
}

// PlaidItem is a bank connection made through Plaid Link.
// AccessToken is stored encrypted.
type PlaidItem struct {
	ConnectedAt     time.Time  `json:"connected_at"`
	LastSync        *time.Time `json:"last_sync"`
	ItemID          string     `json:"item_id"`
	AccessToken     string     `json:"-"`
	InstitutionName string     `json:"institution_name"`
	InstitutionID   string     `json:"institution_id"`
	Cursor          string     `json:"-"`
}
