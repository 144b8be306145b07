package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/moneyplanner/internal/model"
)

var start = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func machineAt(cfg Config, now time.Time) *Machine {
	m := NewMachine(cfg)
	m.Clock = func() time.Time { return now }
	return m
}

func stateIn(p model.Phase, entered time.Time) *model.UserPhaseState {
	return &model.UserPhaseState{UserID: "user-1", CurrentPhase: p, PhaseEnteredAt: entered}
}

func TestFeatures_Cumulative(t *testing.T) {
	assert.Equal(t, []string{"connect_bank", "log_income", "log_savings"}, Features(model.PhaseOnboarding))
	assert.Len(t, Features(model.PhaseFirstBudget), 9)
	assert.Len(t, Features(model.PhaseOptimization), 17)
	assert.Nil(t, Features(model.Phase("bogus")))

	// Each later phase unlocks a superset.
	for i := 1; i < len(Order); i++ {
		prev := Features(Order[i-1])
		cur := Features(Order[i])
		assert.Equal(t, prev, cur[:len(prev)], "phase %s", Order[i])
	}
}

func TestUnlocked(t *testing.T) {
	assert.True(t, Unlocked(model.PhaseOnboarding, FeatureLogIncome))
	assert.False(t, Unlocked(model.PhaseOnboarding, FeatureViewTransactions))
	assert.True(t, Unlocked(model.PhaseAutomation, FeatureSafeToSpend))
	assert.False(t, Unlocked(model.PhaseAutomation, FeatureWeeklyReview))
	assert.True(t, Unlocked(model.PhaseOptimization, FeatureWeeklyReview))
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name        string
		phase       model.Phase
		requirement string
		cfg         Config
		facts       Facts
		days        float64
		ready       bool
	}{
		{name: "onboarding without income", phase: model.PhaseOnboarding, cfg: DefaultConfig(), requirement: "Log at least one income event"},
		{name: "onboarding with income", phase: model.PhaseOnboarding, cfg: DefaultConfig(), facts: Facts{IncomeEvents: 1}, ready: true, requirement: "Log at least one income event"},
		{name: "observation too early", phase: model.PhaseObservation, cfg: DefaultConfig(), days: 13.9, requirement: "Wait 14 days of observation"},
		{name: "observation done", phase: model.PhaseObservation, cfg: DefaultConfig(), days: 14, ready: true, requirement: "Wait 14 days of observation"},
		{name: "observation dev window", phase: model.PhaseObservation, cfg: DevConfig(), ready: true, requirement: "Wait 0 days of observation"},
		{name: "budgeting too early", phase: model.PhaseFirstBudget, cfg: DefaultConfig(), days: 29, requirement: "Complete 30 days of budgeting"},
		{name: "budgeting done", phase: model.PhaseFirstBudget, cfg: DefaultConfig(), days: 30, ready: true, requirement: "Complete 30 days of budgeting"},
		{name: "automation gated", phase: model.PhaseAutomation, cfg: DefaultConfig(), days: 6, requirement: "Automation running successfully"},
		{name: "automation settled", phase: model.PhaseAutomation, cfg: DefaultConfig(), days: 7, ready: true, requirement: "Automation running successfully"},
		{name: "automation gate off", phase: model.PhaseAutomation, cfg: DevConfig(), ready: true, requirement: "Automation running successfully"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := start.Add(time.Duration(tt.days * 24 * float64(time.Hour)))
			m := machineAt(tt.cfg, now)

			r := m.Readiness(stateIn(tt.phase, start), tt.facts)

			assert.Equal(t, tt.ready, r.Ready)
			assert.Equal(t, tt.requirement, r.Requirement)
			require.NotNil(t, r.NextPhase)
		})
	}
}

func TestReadiness_Terminal(t *testing.T) {
	m := machineAt(DefaultConfig(), start.AddDate(1, 0, 0))

	r := m.Readiness(stateIn(model.PhaseOptimization, start), Facts{})

	assert.False(t, r.Ready)
	assert.Nil(t, r.NextPhase)
	assert.Equal(t, "All phases unlocked", r.Message)
}

func TestAdvance(t *testing.T) {
	now := start.Add(2 * time.Hour)
	m := machineAt(DefaultConfig(), now)
	state := stateIn(model.PhaseOnboarding, start)

	res := m.Advance(state, Facts{IncomeEvents: 1})

	require.True(t, res.Advanced)
	assert.Equal(t, "Advanced to observation", res.Message)
	assert.Equal(t, model.PhaseObservation, state.CurrentPhase)
	assert.Equal(t, now, state.PhaseEnteredAt)
	require.Len(t, state.History, 1)
	assert.Equal(t, model.PhaseTransition{From: model.PhaseOnboarding, To: model.PhaseObservation, At: start}, state.History[0])
}

func TestAdvance_NotReadyLeavesStateUnchanged(t *testing.T) {
	m := machineAt(DefaultConfig(), start.AddDate(0, 0, 3))
	state := stateIn(model.PhaseObservation, start)

	res := m.Advance(state, Facts{IncomeEvents: 5})

	assert.False(t, res.Advanced)
	assert.Equal(t, "Not ready: Wait 14 days of observation", res.Message)
	assert.Equal(t, model.PhaseObservation, state.CurrentPhase)
	assert.Equal(t, start, state.PhaseEnteredAt)
	assert.Empty(t, state.History)
}

func TestAdvance_FinalPhase(t *testing.T) {
	m := machineAt(DevConfig(), start.AddDate(1, 0, 0))
	state := stateIn(model.PhaseOptimization, start)

	for i := 0; i < 3; i++ {
		res := m.Advance(state, Facts{IncomeEvents: 1})
		assert.False(t, res.Advanced)
		assert.Equal(t, "Already at final phase", res.Message)
	}
	assert.Empty(t, state.History)
}

func TestAdvance_NeverRegressesOrSkips(t *testing.T) {
	now := start
	m := NewMachine(DevConfig())
	m.Clock = func() time.Time { return now }
	state := m.NewState("user-1")

	for step := 0; step < 10; step++ {
		before := Index(state.CurrentPhase)
		now = now.Add(24 * time.Hour)

		res := m.Advance(state, Facts{IncomeEvents: 1})

		after := Index(state.CurrentPhase)
		if res.Advanced {
			assert.Equal(t, before+1, after)
		} else {
			assert.Equal(t, before, after)
		}
	}

	assert.Equal(t, model.PhaseOptimization, state.CurrentPhase)
	assert.Len(t, state.History, len(Order)-1)
}
