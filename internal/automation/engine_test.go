package automation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	n := 0
	return NewEngine(DefaultConfig(),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("prop-%d", n)
		}),
	)
}

func newTransfer(rate float64) *model.AutoTransfer {
	return &model.AutoTransfer{
		UserID:         "user-1",
		SavingsRatePct: rate,
		Destination:    DefaultDestination,
		IsActive:       true,
	}
}

func flagged(amount float64, flag model.IncomeChange) *model.IncomeEvent {
	return &model.IncomeEvent{ID: "evt", Amount: amount, ChangeFlag: flag}
}

func TestHandleIncomeChange_ProposesEscalation(t *testing.T) {
	engine := newTestEngine()
	transfer := newTransfer(10)

	out := engine.HandleIncomeChange(transfer, flagged(1200, model.IncomeIncrease), 1000)

	require.Equal(t, ActionProposed, out.Action)
	require.NotNil(t, out.Proposal)
	assert.InDelta(t, 20.0, out.Proposal.NewRate, 1e-9)
	assert.InDelta(t, 10.0, out.Proposal.OldRate, 1e-9)
	assert.Equal(t, model.ProposalPending, out.Proposal.Status)
	assert.Equal(t, "prop-1", out.Proposal.ID)
	assert.Equal(t, "Income increased 20.0%. Proposing 10.0pp increase to capture surplus.", out.Proposal.Reason)

	// The active rate only moves on acceptance.
	assert.InDelta(t, 10.0, transfer.SavingsRatePct, 1e-9)
	assert.Same(t, transfer.PendingEscalation, out.Proposal)
	assert.Empty(t, transfer.History)
}

func TestHandleIncomeChange_CeilingCapsProposal(t *testing.T) {
	engine := newTestEngine()

	for _, tc := range []struct {
		rate   float64
		amount float64
	}{
		{rate: 45, amount: 5000},
		{rate: 10, amount: 1_000_000},
		{rate: 49.9, amount: 1100},
	} {
		transfer := newTransfer(tc.rate)
		out := engine.HandleIncomeChange(transfer, flagged(tc.amount, model.IncomeIncrease), 1000)

		require.Equal(t, ActionProposed, out.Action)
		assert.LessOrEqual(t, out.Proposal.NewRate, DefaultCeiling)
	}
}

func TestHandleIncomeChange_AtCeilingIsNoop(t *testing.T) {
	engine := newTestEngine()
	transfer := newTransfer(50)

	out := engine.HandleIncomeChange(transfer, flagged(2000, model.IncomeIncrease), 1000)

	assert.Equal(t, ActionNone, out.Action)
	assert.False(t, out.Changed())
	assert.Nil(t, transfer.PendingEscalation)
}

func TestHandleIncomeChange_SupersedesPendingProposal(t *testing.T) {
	engine := newTestEngine()
	transfer := newTransfer(10)

	first := engine.HandleIncomeChange(transfer, flagged(1200, model.IncomeIncrease), 1000)
	second := engine.HandleIncomeChange(transfer, flagged(1100, model.IncomeIncrease), 1000)

	require.Equal(t, ActionProposed, second.Action)
	require.NotNil(t, second.Superseded)
	assert.Equal(t, first.Proposal.ID, second.Superseded.ID)
	assert.Equal(t, model.ProposalRejected, second.Superseded.Status)
	require.NotNil(t, second.Superseded.ResolvedAt)

	assert.Equal(t, "prop-2", transfer.PendingEscalation.ID)
	assert.InDelta(t, 15.0, transfer.PendingEscalation.NewRate, 1e-9)

	require.Len(t, transfer.Resolved, 1)
	require.Len(t, transfer.History, 1)
	assert.Equal(t, model.RateEscalationRejected, transfer.History[0].Action)
	assert.Equal(t, SupersededReason, transfer.History[0].Reason)
}

func TestHandleIncomeChange_ReducesImmediately(t *testing.T) {
	engine := newTestEngine()
	transfer := newTransfer(10)

	out := engine.HandleIncomeChange(transfer, flagged(800, model.IncomeDecrease), 1000)

	require.Equal(t, ActionReduced, out.Action)
	assert.InDelta(t, 8.0, transfer.SavingsRatePct, 1e-9)
	require.Len(t, transfer.History, 1)

	entry := transfer.History[0]
	assert.Equal(t, model.RateAutoReduce, entry.Action)
	assert.InDelta(t, 10.0, entry.OldRate, 1e-9)
	assert.InDelta(t, 8.0, entry.NewRate, 1e-9)
	assert.Equal(t, "Income decreased 20.0%", entry.Reason)
	assert.Equal(t, fixedNow, entry.At)
}

func TestHandleIncomeChange_FloorHoldsUnderRepeatedDecreases(t *testing.T) {
	engine := newTestEngine()
	transfer := newTransfer(10)

	for i := 0; i < 50; i++ {
		engine.HandleIncomeChange(transfer, flagged(100, model.IncomeDecrease), 1000)
		require.GreaterOrEqual(t, transfer.SavingsRatePct, DefaultFloor)
	}
	assert.InDelta(t, DefaultFloor, transfer.SavingsRatePct, 1e-9)

	// Once at the floor further decreases record nothing.
	recorded := len(transfer.History)
	out := engine.HandleIncomeChange(transfer, flagged(100, model.IncomeDecrease), 1000)
	assert.Equal(t, ActionNone, out.Action)
	assert.Len(t, transfer.History, recorded)
}

func TestHandleIncomeChange_NoSignal(t *testing.T) {
	engine := newTestEngine()

	tests := []struct {
		transfer *model.AutoTransfer
		event    *model.IncomeEvent
		name     string
		prevAvg  float64
	}{
		{name: "no flag", transfer: newTransfer(10), event: flagged(1200, model.IncomeNoChange), prevAvg: 1000},
		{name: "no baseline", transfer: newTransfer(10), event: flagged(1200, model.IncomeIncrease), prevAvg: 0},
		{name: "no transfer", transfer: nil, event: flagged(1200, model.IncomeIncrease), prevAvg: 1000},
		{name: "no event", transfer: newTransfer(10), event: nil, prevAvg: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := engine.HandleIncomeChange(tt.transfer, tt.event, tt.prevAvg)
			assert.Equal(t, ActionNone, out.Action)
			if tt.transfer != nil {
				assert.InDelta(t, 10.0, tt.transfer.SavingsRatePct, 1e-9)
				assert.Nil(t, tt.transfer.PendingEscalation)
			}
		})
	}
}

func TestAccept(t *testing.T) {
	engine := newTestEngine()
	transfer := newTransfer(10)
	engine.HandleIncomeChange(transfer, flagged(1200, model.IncomeIncrease), 1000)

	res := engine.Accept(transfer)
	require.True(t, res.Success)
	assert.InDelta(t, 20.0, transfer.SavingsRatePct, 1e-9)
	assert.Nil(t, transfer.PendingEscalation)
	require.Len(t, transfer.Resolved, 1)
	assert.Equal(t, model.ProposalAccepted, transfer.Resolved[0].Status)

	require.Len(t, transfer.History, 1)
	assert.Equal(t, model.RateEscalationAccepted, transfer.History[0].Action)
	assert.InDelta(t, 10.0, transfer.History[0].OldRate, 1e-9)
	assert.InDelta(t, 20.0, transfer.History[0].NewRate, 1e-9)

	again := engine.Accept(transfer)
	assert.False(t, again.Success)
	assert.Equal(t, "No pending escalation", again.Message)
	assert.InDelta(t, 20.0, transfer.SavingsRatePct, 1e-9)
	assert.Len(t, transfer.History, 1)
}

func TestReject(t *testing.T) {
	engine := newTestEngine()
	transfer := newTransfer(10)
	engine.HandleIncomeChange(transfer, flagged(1200, model.IncomeIncrease), 1000)

	res := engine.Reject(transfer)
	require.True(t, res.Success)
	assert.InDelta(t, 10.0, transfer.SavingsRatePct, 1e-9)
	assert.Nil(t, transfer.PendingEscalation)

	require.Len(t, transfer.History, 1)
	entry := transfer.History[0]
	assert.Equal(t, model.RateEscalationRejected, entry.Action)
	assert.InDelta(t, 10.0, entry.OldRate, 1e-9)
	assert.InDelta(t, 20.0, entry.NewRate, 1e-9)

	again := engine.Reject(transfer)
	assert.False(t, again.Success)
	assert.Len(t, transfer.History, 1)
}

func TestAcceptReject_NoTransfer(t *testing.T) {
	engine := newTestEngine()

	assert.False(t, engine.Accept(nil).Success)
	assert.False(t, engine.Reject(nil).Success)
}

func TestConfigure(t *testing.T) {
	engine := newTestEngine()

	t.Run("creates defaults", func(t *testing.T) {
		transfer, err := engine.Configure(nil, "user-1", Settings{})
		require.NoError(t, err)
		assert.InDelta(t, DefaultRate, transfer.SavingsRatePct, 1e-9)
		assert.Equal(t, DefaultDestination, transfer.Destination)
		assert.True(t, transfer.IsActive)
		require.Len(t, transfer.History, 1)
		assert.Equal(t, model.RateConfigured, transfer.History[0].Action)
	})

	t.Run("records rate changes", func(t *testing.T) {
		rate := 15.04
		active := false
		transfer, err := engine.Configure(newTransfer(10), "user-1", Settings{
			Rate: &rate, Destination: "tfsa", IsActive: &active,
		})
		require.NoError(t, err)
		assert.InDelta(t, 15.0, transfer.SavingsRatePct, 1e-9)
		assert.Equal(t, "tfsa", transfer.Destination)
		assert.False(t, transfer.IsActive)
		require.Len(t, transfer.History, 1)
		assert.InDelta(t, 10.0, transfer.History[0].OldRate, 1e-9)
	})

	t.Run("unchanged rate records nothing", func(t *testing.T) {
		rate := 10.0
		transfer, err := engine.Configure(newTransfer(10), "user-1", Settings{Rate: &rate})
		require.NoError(t, err)
		assert.Empty(t, transfer.History)
	})

	t.Run("rejects out of range rate", func(t *testing.T) {
		rate := 120.0
		_, err := engine.Configure(newTransfer(10), "user-1", Settings{Rate: &rate})
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})
}

func TestConfigure_ReplacesRecoveredPlaceholder(t *testing.T) {
	engine := newTestEngine()
	resolvedAt := fixedNow.Add(-time.Hour)
	placeholder := &model.AutoTransfer{
		UserID:    "user-1",
		Version:   3,
		Recovered: true,
		History: []model.RateChange{
			{Action: model.RateConfigured, NewRate: 10, At: fixedNow.AddDate(0, -1, 0)},
		},
		Resolved: []model.EscalationProposal{
			{ID: "p1", OldRate: 10, NewRate: 15, Status: model.ProposalRejected, ResolvedAt: &resolvedAt},
		},
	}

	rate := 12.0
	transfer, err := engine.Configure(placeholder, "user-1", Settings{Rate: &rate})
	require.NoError(t, err)

	assert.False(t, transfer.Recovered)
	assert.Equal(t, 3, transfer.Version)
	assert.InDelta(t, 12.0, transfer.SavingsRatePct, 1e-9)
	assert.Equal(t, DefaultDestination, transfer.Destination)
	assert.True(t, transfer.IsActive)
	assert.Equal(t, fixedNow, transfer.CreatedAt)
	require.Len(t, transfer.Resolved, 1)
	// Old history, the default entry, then the requested rate.
	require.Len(t, transfer.History, 3)
	assert.InDelta(t, DefaultRate, transfer.History[1].NewRate, 1e-9)
	assert.InDelta(t, 12.0, transfer.History[2].NewRate, 1e-9)
}

func TestHandleIncomeChange_IgnoresRecoveredPlaceholder(t *testing.T) {
	engine := newTestEngine()
	placeholder := &model.AutoTransfer{UserID: "user-1", Version: 2, Recovered: true}

	out := engine.HandleIncomeChange(placeholder, flagged(1500, model.IncomeIncrease), 1000)
	assert.Equal(t, ActionNone, out.Action)
	assert.Nil(t, placeholder.PendingEscalation)
}
