// Package phase moves users forward through the planner's progression
// phases and decides which features each phase unlocks.
package phase

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Veraticus/moneyplanner/internal/model"
)

// Order lists the phases in progression order.
var Order = []model.Phase{
	model.PhaseOnboarding,
	model.PhaseObservation,
	model.PhaseFirstBudget,
	model.PhaseAutomation,
	model.PhaseOptimization,
}

// Feature names.
const (
	FeatureConnectBank      = "connect_bank"
	FeatureLogIncome        = "log_income"
	FeatureLogSavings       = "log_savings"
	FeatureViewTransactions = "view_transactions"
	FeatureAutoCategorize   = "auto_categorize"
	FeatureSpendingSummary  = "spending_summary"
	FeatureBudgetEnvelopes  = "budget_envelopes"
	FeatureBudgetAlerts     = "budget_alerts"
	FeatureSafeToSpend      = "safe_to_spend"
	FeatureAutoTransfer     = "auto_transfer"
	FeatureIINRules         = "iin_rules"
	FeatureIncomeDetection  = "income_detection"
	FeaturePeerBenchmark    = "peer_benchmark"
	FeatureEscalation       = "escalation"
	FeatureWeeklyReview     = "weekly_review"
	FeatureGroupGoals       = "group_goals"
	FeatureExperiments      = "experiments"
)

var phaseFeatures = map[model.Phase][]string{
	model.PhaseOnboarding:   {FeatureConnectBank, FeatureLogIncome, FeatureLogSavings},
	model.PhaseObservation:  {FeatureViewTransactions, FeatureAutoCategorize, FeatureSpendingSummary},
	model.PhaseFirstBudget:  {FeatureBudgetEnvelopes, FeatureBudgetAlerts, FeatureSafeToSpend},
	model.PhaseAutomation:   {FeatureAutoTransfer, FeatureIINRules, FeatureIncomeDetection},
	model.PhaseOptimization: {FeaturePeerBenchmark, FeatureEscalation, FeatureWeeklyReview, FeatureGroupGoals, FeatureExperiments},
}

// automationSettleDays is how long automation must run before the gate opens.
const automationSettleDays = 7

// Index returns p's position in Order, or -1 for an unknown phase.
func Index(p model.Phase) int {
	for i, o := range Order {
		if o == p {
			return i
		}
	}
	return -1
}

// Next returns the phase after p. ok is false at the final phase or for an
// unknown phase.
func Next(p model.Phase) (next model.Phase, ok bool) {
	i := Index(p)
	if i < 0 || i >= len(Order)-1 {
		return "", false
	}
	return Order[i+1], true
}

// Features returns every feature unlocked up to and including p, in
// phase order. An unknown phase unlocks nothing.
func Features(p model.Phase) []string {
	if Index(p) < 0 {
		return nil
	}

	var features []string
	for _, o := range Order {
		features = append(features, phaseFeatures[o]...)
		if o == p {
			break
		}
	}
	return features
}

// Unlocked reports whether feature is available in phase p.
func Unlocked(p model.Phase, feature string) bool {
	for _, f := range Features(p) {
		if f == feature {
			return true
		}
	}
	return false
}

// Config holds the externally tunable transition windows.
type Config struct {
	ObservationDays int
	BudgetCycleDays int
	// AutomationGate requires automation to settle for a week before
	// optimization unlocks. When false the final step is always ready.
	AutomationGate bool
}

// DefaultConfig returns the production windows.
func DefaultConfig() Config {
	return Config{ObservationDays: 14, BudgetCycleDays: 30, AutomationGate: true}
}

// DevConfig returns short windows for local development.
func DevConfig() Config {
	return Config{ObservationDays: 0, BudgetCycleDays: 1, AutomationGate: false}
}

// Facts are the user data readiness depends on beyond the phase state.
type Facts struct {
	IncomeEvents int
}

// Readiness describes what stands between a user and the next phase.
// Fields that do not apply to the current phase are nil.
type Readiness struct {
	NextPhase          *model.Phase `json:"next_phase"`
	DaysElapsed        *float64     `json:"days_elapsed,omitempty"`
	DaysRequired       *int         `json:"days_required,omitempty"`
	GatePassed         *bool        `json:"gate_passed,omitempty"`
	IncomeEventsLogged *int         `json:"income_events_logged,omitempty"`
	Requirement        string       `json:"requirement,omitempty"`
	Message            string       `json:"message,omitempty"`
	Ready              bool         `json:"ready"`
}

// AdvanceResult is the outcome of an advance attempt.
type AdvanceResult struct {
	State    *model.UserPhaseState `json:"state"`
	Message  string                `json:"message"`
	Advanced bool                  `json:"success"`
}

// Machine evaluates and applies phase transitions.
type Machine struct {
	Clock  func() time.Time
	logger *slog.Logger
	Config Config
}

// NewMachine creates a machine using the wall clock.
func NewMachine(cfg Config) *Machine {
	return &Machine{
		Config: cfg,
		Clock:  time.Now,
		logger: slog.Default().With("component", "phase"),
	}
}

func (m *Machine) now() time.Time {
	if m.Clock == nil {
		return time.Now().UTC()
	}
	return m.Clock().UTC()
}

// NewState returns the starting state for a user who has none.
func (m *Machine) NewState(userID string) *model.UserPhaseState {
	return &model.UserPhaseState{
		UserID:         userID,
		CurrentPhase:   model.PhaseOnboarding,
		PhaseEnteredAt: m.now(),
	}
}

// Readiness reports whether state may advance and what is still required.
func (m *Machine) Readiness(state *model.UserPhaseState, facts Facts) Readiness {
	next, ok := Next(state.CurrentPhase)
	if !ok {
		return Readiness{Message: "All phases unlocked"}
	}

	r := Readiness{NextPhase: &next}
	days := state.DaysInPhase(m.now())
	elapsed := math.Round(days*10) / 10

	switch state.CurrentPhase {
	case model.PhaseOnboarding:
		logged := facts.IncomeEvents
		r.Requirement = "Log at least one income event"
		r.IncomeEventsLogged = &logged
		r.Ready = logged > 0

	case model.PhaseObservation:
		required := m.Config.ObservationDays
		r.Requirement = fmt.Sprintf("Wait %d days of observation", required)
		r.DaysElapsed = &elapsed
		r.DaysRequired = &required
		r.Ready = days >= float64(required)

	case model.PhaseFirstBudget:
		required := m.Config.BudgetCycleDays
		r.Requirement = fmt.Sprintf("Complete %d days of budgeting", required)
		r.DaysElapsed = &elapsed
		r.DaysRequired = &required
		r.Ready = days >= float64(required)

	case model.PhaseAutomation:
		passed := !m.Config.AutomationGate || days >= automationSettleDays
		r.Requirement = "Automation running successfully"
		r.GatePassed = &passed
		r.Ready = passed
	}

	return r
}

// Advance moves state one phase forward when it is ready. state is modified
// in place only on success. Advance never fails with an error; the result
// explains why nothing happened.
func (m *Machine) Advance(state *model.UserPhaseState, facts Facts) AdvanceResult {
	next, ok := Next(state.CurrentPhase)
	if !ok {
		return AdvanceResult{State: state, Message: "Already at final phase"}
	}

	readiness := m.Readiness(state, facts)
	if !readiness.Ready {
		return AdvanceResult{State: state, Message: "Not ready: " + readiness.Requirement}
	}

	from := state.CurrentPhase
	state.History = append(state.History, model.PhaseTransition{
		From: from,
		To:   next,
		At:   state.PhaseEnteredAt,
	})
	state.CurrentPhase = next
	state.PhaseEnteredAt = m.now()

	m.logger.Info("Advanced phase",
		"user_id", state.UserID,
		"from", from,
		"to", next)

	return AdvanceResult{
		State:    state,
		Advanced: true,
		Message:  fmt.Sprintf("Advanced to %s", next),
	}
}
