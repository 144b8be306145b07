package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/moneyplanner/internal/categorize"
	"github.com/Veraticus/moneyplanner/internal/model"
)

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func txn(id, date, name string, amount float64) model.Transaction {
	return model.Transaction{ID: id, Date: day(date), Name: name, Amount: amount}
}

func ptr(f float64) *float64 { return &f }

func TestComputeSafeToSpend_Defaults(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		txn("1", "2024-06-02", "LOBLAWS", 200),
		txn("2", "2024-06-10", "DOORDASH", 100),
		// Previous month.
		txn("3", "2024-05-30", "LOBLAWS", 999),
		// Money in.
		txn("4", "2024-06-05", "PAYROLL", -3000),
	}

	got := ComputeSafeToSpend(4000, nil, txns, now)

	assert.InDelta(t, 4000.0, got.MonthlyIncome, 1e-9)
	assert.InDelta(t, 2000.0, got.FixedExpenses, 1e-9)
	assert.InDelta(t, 400.0, got.SavingsTarget, 1e-9)
	assert.InDelta(t, 1600.0, got.DiscretionaryBudget, 1e-9)
	assert.InDelta(t, 300.0, got.MonthSpending, 1e-9)
	assert.InDelta(t, 1300.0, got.SafeToSpend, 1e-9)
	assert.Equal(t, 15, got.DaysRemaining)
	assert.InDelta(t, 86.67, got.DailyAllowance, 1e-9)
}

func TestComputeSafeToSpend_ExplicitBudget(t *testing.T) {
	now := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
	budget := &model.Budget{
		MonthlyIncome: ptr(5000),
		FixedExpenses: ptr(1800),
		SavingsTarget: ptr(700),
	}

	got := ComputeSafeToSpend(1234, budget, nil, now)

	assert.InDelta(t, 5000.0, got.MonthlyIncome, 1e-9)
	assert.InDelta(t, 2500.0, got.SafeToSpend, 1e-9)
	assert.Equal(t, 12, got.DaysRemaining)
}

func TestComputeSafeToSpend_NeverNegative(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{txn("1", "2024-06-01", "RENT", 10_000)}

	got := ComputeSafeToSpend(3000, nil, txns, now)

	assert.InDelta(t, 0.0, got.SafeToSpend, 0)
	assert.InDelta(t, 0.0, got.DailyAllowance, 0)
	assert.InDelta(t, 1200.0, got.DiscretionaryBudget, 1e-9)
}

func TestComputeSafeToSpend_NoIncome(t *testing.T) {
	got := ComputeSafeToSpend(0, nil, nil, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))

	assert.InDelta(t, 0.0, got.SafeToSpend, 0)
	assert.Equal(t, 20, got.DaysRemaining)
}

func TestNewWeeklyReview(t *testing.T) {
	now := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)
	txns := categorize.Apply([]model.Transaction{
		txn("1", "2024-06-14", "LOBLAWS", 80),
		txn("2", "2024-06-12", "COSTCO", 120.5),
		txn("3", "2024-06-10", "DOORDASH", 45),
		txn("4", "2024-06-08", "UBER EATS", 155),
		// Outside the window.
		txn("5", "2024-06-07", "LOBLAWS", 500),
		// Money in is not spending.
		txn("6", "2024-06-13", "PAYROLL", -2000),
	}, nil)

	review := NewWeeklyReview(txns, now)

	assert.NotEmpty(t, review.ID)
	assert.Equal(t, day("2024-06-08"), review.PeriodStart)
	assert.Equal(t, day("2024-06-15"), review.PeriodEnd)
	assert.InDelta(t, 400.5, review.Total, 1e-9)
	assert.False(t, review.Acknowledged)
	assert.Equal(t, 4, TransactionCount(review))

	require.Len(t, review.Categories, 2)
	assert.Equal(t, "Groceries", review.Categories[0].Category)
	assert.InDelta(t, 200.5, review.Categories[0].Total, 1e-9)
	assert.Equal(t, 2, review.Categories[0].Count)
	assert.Equal(t, "Dining Out", review.Categories[1].Category)
	assert.InDelta(t, 200.0, review.Categories[1].Total, 1e-9)
}

func TestNewWeeklyReview_TiesSortByName(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	txns := []model.CategorizedTransaction{
		{Transaction: txn("1", "2024-06-14", "x", 50), BudgetCategory: "Shopping"},
		{Transaction: txn("2", "2024-06-14", "y", 50), BudgetCategory: "Gas"},
		{Transaction: txn("3", "2024-06-14", "z", 10)},
	}

	review := NewWeeklyReview(txns, now)

	require.Len(t, review.Categories, 3)
	assert.Equal(t, "Gas", review.Categories[0].Category)
	assert.Equal(t, "Shopping", review.Categories[1].Category)
	assert.Equal(t, categorize.CategoryOther, review.Categories[2].Category)
}

func TestSummarize(t *testing.T) {
	txns := []model.CategorizedTransaction{
		{Transaction: txn("1", "2024-04-03", "", 300), BudgetCategory: "Groceries"},
		{Transaction: txn("2", "2024-05-03", "", 100), BudgetCategory: "Groceries"},
		{Transaction: txn("3", "2024-05-05", "", 1500), BudgetCategory: "Rent/Mortgage"},
		{Transaction: txn("4", "2024-04-15", "", -4000), BudgetCategory: categorize.CategoryIncome},
		{Transaction: txn("5", "2024-05-15", "", -2000), BudgetCategory: categorize.CategoryETransfersIn},
		// Refunds are neither income nor spending.
		{Transaction: txn("6", "2024-05-20", "", -25), BudgetCategory: "Shopping"},
	}

	s := Summarize(txns)

	assert.Equal(t, 2, s.MonthsAnalyzed)
	assert.InDelta(t, 3000.0, s.MonthlyIncome, 1e-9)
	assert.InDelta(t, 950.0, s.MonthlyExpense, 1e-9)
	assert.InDelta(t, 2050.0, s.MonthlyBalance, 1e-9)
	require.Len(t, s.Envelopes, len(categorize.Envelopes()))

	byName := make(map[string]EnvelopeSummary)
	for _, env := range s.Envelopes {
		byName[env.Name] = env
	}

	housing := byName["Housing"]
	require.Len(t, housing.Categories, 1)
	assert.InDelta(t, 750.0, housing.Subtotal, 1e-9)

	food := byName["Food & Dining"]
	require.Len(t, food.Categories, 1)
	assert.Equal(t, CategorySummary{Name: "Groceries", MonthlyAvg: 200, Total: 400, Count: 2}, food.Categories[0])

	assert.Empty(t, byName["Lifestyle"].Categories)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	assert.Equal(t, 1, s.MonthsAnalyzed)
	assert.InDelta(t, 0.0, s.MonthlyBalance, 0)
}

func TestSavingsAdherence(t *testing.T) {
	tests := []struct {
		want   *float64
		name   string
		amount float64
		income float64
		rate   float64
	}{
		{name: "on target", amount: 500, income: 5000, rate: 0.10, want: ptr(1)},
		{name: "partial", amount: 100, income: 3000, rate: 0.10, want: ptr(0.3333)},
		{name: "over target", amount: 750, income: 5000, rate: 0.10, want: ptr(1.5)},
		{name: "no income", amount: 100, income: 0, rate: 0.10},
		{name: "no rate", amount: 100, income: 5000, rate: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SavingsAdherence(tt.amount, tt.income, tt.rate)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func categorized(id, date, category string, amount float64) model.CategorizedTransaction {
	return model.CategorizedTransaction{Transaction: txn(id, date, id, amount), BudgetCategory: category}
}

func TestBudgetAlerts(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	items := []model.BudgetItem{
		{ID: "groceries", Name: "Food", Category: "groceries", BudgetAmount: 400},
		{ID: "dining", Name: "Eating out", Category: "Dining Out", BudgetAmount: 100, HardStop: true},
		{ID: "fun", Name: "Fun", Category: "Entertainment", BudgetAmount: 200},
		{ID: "unset", Name: "Unset", Category: "Shopping"},
	}
	txns := []model.CategorizedTransaction{
		categorized("t1", "2024-06-02", "Groceries", 250),
		categorized("t2", "2024-06-10", "Groceries", 80),
		categorized("t3", "2024-05-30", "Groceries", 500), // last month
		categorized("t4", "2024-06-05", "Dining Out", 120),
		categorized("t5", "2024-06-06", "Entertainment", 40),
		categorized("t6", "2024-06-07", "Entertainment", -300), // refund
		categorized("t7", "2024-06-08", "Shopping", 75),
	}

	alerts := BudgetAlerts(items, txns, now)
	require.Len(t, alerts, 2)

	assert.Equal(t, "groceries", alerts[0].ItemID)
	assert.Equal(t, AlertWarning, alerts[0].Level)
	assert.InDelta(t, 330.0, alerts[0].Spent, 0.001)

	assert.Equal(t, "dining", alerts[1].ItemID)
	assert.Equal(t, AlertStop, alerts[1].Level)
	assert.True(t, alerts[1].HardStop)
}

func TestBudgetAlerts_ExceededWithoutHardStop(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	items := []model.BudgetItem{{ID: "i1", Name: "Gas", Category: "Gas", BudgetAmount: 50}}
	txns := []model.CategorizedTransaction{categorized("t1", "2024-06-02", "Gas", 50)}

	alerts := BudgetAlerts(items, txns, now)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertExceeded, alerts[0].Level)
	assert.False(t, alerts[0].HardStop)
}

func TestPeerBenchmark(t *testing.T) {
	b := PeerBenchmark(10, false, false)
	assert.False(t, b.OptedIn)
	assert.NotEmpty(t, b.Message)
	assert.Zero(t, b.Percentile)

	b = PeerBenchmark(PeerAverageRate, true, false)
	assert.True(t, b.OptedIn)
	assert.Equal(t, 50, b.Percentile)
	assert.InDelta(t, PeerAverageRate, b.PeerAverageRate, 1e-9)

	assert.Equal(t, 84, PeerBenchmark(PeerAverageRate+PeerRateSpread, true, false).Percentile)
	assert.Equal(t, 31, PeerBenchmark(10, true, false).Percentile)
	assert.Equal(t, 99, PeerBenchmark(100, true, false).Percentile)
	assert.Equal(t, 1, PeerBenchmark(0, true, false).Percentile)

	b = PeerBenchmark(20, true, true)
	assert.True(t, b.Suppressed)
	assert.Zero(t, b.Percentile)
}
