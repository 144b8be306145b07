package income

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/moneyplanner/internal/model"
)

func TestDetectStreams(t *testing.T) {
	txns := []model.Transaction{
		{ID: "1", Merchant: "Acme Corp", Name: "ACME PAYROLL", Amount: -2500},
		{ID: "2", Name: "INTERAC E-TRANSFER JANE", Amount: -300},
		{ID: "3", Merchant: "Acme Corp", Name: "ACME PAYROLL", Amount: -2600.01},
		// Below the stream minimum.
		{ID: "4", Name: "SMALL REFUND", Amount: -150},
		// Money out.
		{ID: "5", Name: "RENT", Amount: 1800},
		// Money in, but not income.
		{ID: "6", Name: "BROKERAGE", RawCategory: "TRANSFER_INTERNAL_ACCOUNT_TRANSFER", Amount: -900},
	}

	streams := DetectStreams(txns)
	require.Len(t, streams, 2)

	assert.Equal(t, "Acme Corp", streams[0].Name)
	assert.InDelta(t, 2550.01, streams[0].Amount, 0.001)
	assert.Equal(t, "monthly", streams[0].Frequency)
	assert.Equal(t, 2, streams[0].Occurrences)
	assert.True(t, streams[0].IsActive)

	assert.Equal(t, "INTERAC E-TRANSFER JANE", streams[1].Name)
	assert.Equal(t, "one-time", streams[1].Frequency)
}

func TestDetectStreams_Empty(t *testing.T) {
	assert.Empty(t, DetectStreams(nil))
}
