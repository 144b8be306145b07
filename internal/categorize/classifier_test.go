package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/moneyplanner/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want string
		in   Input
	}{
		{
			name: "merchant override beats taxonomy",
			in:   Input{Merchant: "Starbucks #123", RawCategory: "FOOD_AND_DRINK_RESTAURANTS", Amount: 6},
			want: "Coffee & Snacks",
		},
		{
			name: "override matches name when merchant is empty",
			in:   Input{Name: "NETFLIX.COM 866-579", Amount: 16.99},
			want: "Subscriptions",
		},
		{
			name: "first override in table order wins",
			in:   Input{Name: "INTERAC E-TRANSFER FROM JANE", Amount: -40},
			want: CategoryETransfersIn,
		},
		{
			name: "payroll is income regardless of amount",
			in:   Input{Name: "ACME PAYROLL", Amount: -20},
			want: CategoryIncome,
		},
		{
			name: "taxonomy with spaces is normalized",
			in:   Input{Name: "Corner store", RawCategory: "Food And Drink Groceries", Amount: 22},
			want: "Groceries",
		},
		{
			name: "taxonomy key contained in longer value",
			in:   Input{Name: "City", RawCategory: "TRANSPORTATION_PUBLIC_TRANSIT_SUBWAY", Amount: 3},
			want: "Transit",
		},
		{
			name: "large money in is income",
			in:   Input{Name: "DEPOSIT", Amount: -1500},
			want: CategoryIncome,
		},
		{
			name: "exactly the threshold is a transfer",
			in:   Input{Name: "DEPOSIT", Amount: -500},
			want: CategoryETransfersIn,
		},
		{
			name: "small money in is a transfer",
			in:   Input{Name: "REFUND", Amount: -12},
			want: CategoryETransfersIn,
		},
		{
			name: "unmatched spending falls back to other",
			in:   Input{Name: "MYSTERY SHOP", Amount: 30},
			want: CategoryOther,
		},
		{
			name: "empty input is other",
			in:   Input{},
			want: CategoryOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

func TestApply_OverrideWins(t *testing.T) {
	txns := []model.Transaction{
		{ID: "t1", Name: "COSTCO WHOLESALE", Amount: 120},
		{ID: "t2", Name: "COSTCO GAS", Amount: 60},
	}
	overrides := map[string]model.CategoryOverride{
		"t2": {TransactionID: "t2", Category: "Gas"},
	}

	got := Apply(txns, overrides)

	assert.Equal(t, "Groceries", got[0].BudgetCategory)
	assert.False(t, got[0].Overridden)
	assert.Equal(t, "Gas", got[1].BudgetCategory)
	assert.True(t, got[1].Overridden)
}

func TestEnvelopes(t *testing.T) {
	envs := Envelopes()
	assert.Len(t, envs, 6)
	assert.Equal(t, "Housing", envs[0].Name)

	envs[0].Categories[0] = "mutated"
	assert.Equal(t, "Rent/Mortgage", Envelopes()[0].Categories[0])

	assert.Equal(t, "Food & Dining", EnvelopeFor("Groceries"))
	assert.Equal(t, "", EnvelopeFor("Income"))
	assert.True(t, IsIncome("E-Transfers In"))
	assert.False(t, IsIncome("Groceries"))
}
