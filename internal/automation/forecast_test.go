package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/moneyplanner/internal/common"
)

func TestProjectEscalation(t *testing.T) {
	f, err := ProjectEscalation(10, 11, 10, 5000)
	require.NoError(t, err)

	assert.InDelta(t, 60000.0, f.CurrentSimple, 0.001)
	assert.InDelta(t, 66000.0, f.ProposedSimple, 0.001)
	assert.InDelta(t, 77641.14, f.CurrentCompound, 0.05)
	assert.InDelta(t, 85405.25, f.ProposedCompound, 0.05)
	assert.InDelta(t, 7764.11, f.Difference, 0.05)
	assert.Equal(t, 10, f.Years)
}

func TestProjectEscalation_SameRateHasNoDifference(t *testing.T) {
	f, err := ProjectEscalation(15, 15, 1, 4000)
	require.NoError(t, err)
	assert.Zero(t, f.Difference)
	assert.InDelta(t, 7200.0, f.CurrentSimple, 0.001)
	assert.Greater(t, f.CurrentCompound, f.CurrentSimple)
}

func TestProjectEscalation_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		proposed float64
		years    int
		income   float64
	}{
		{"negative rate", -1, 10, 10, 5000},
		{"rate over 100", 10, 120, 10, 5000},
		{"zero years", 10, 11, 0, 5000},
		{"too many years", 10, 11, MaxForecastYears + 1, 5000},
		{"no income", 10, 11, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProjectEscalation(tt.current, tt.proposed, tt.years, tt.income)
			assert.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}
