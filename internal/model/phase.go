package model

import "time"

// Phase is a stage of user progression.
type Phase string

// Phases, in progression order.
const (
	PhaseOnboarding   Phase = "onboarding"
	PhaseObservation  Phase = "observation"
	PhaseFirstBudget  Phase = "first_budget"
	PhaseAutomation   Phase = "automation"
	PhaseOptimization Phase = "optimization"
)

// PhaseTransition is one append-only entry in a user's phase history.
// At is the moment the previous phase was entered.
type PhaseTransition struct {
	At   time.Time `json:"at"`
	From Phase     `json:"from"`
	To   Phase     `json:"to"`
}

// UserPhaseState is a user's current phase and how they got there.
//
// Recovered is set by the store when the current row was unreadable and the
// state was rebuilt from the transition history; it must be saved again.
type UserPhaseState struct {
	PhaseEnteredAt time.Time         `json:"phase_entered_at"`
	UserID         string            `json:"user_id"`
	CurrentPhase   Phase             `json:"current_phase"`
	History        []PhaseTransition `json:"history"`
	Recovered      bool              `json:"-"`
}

// LastReachedPhase returns the most recent known phase in history, or
// onboarding when there is none.
func (s *UserPhaseState) LastReachedPhase() Phase {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].To.Valid() {
			return s.History[i].To
		}
	}
	return PhaseOnboarding
}

// DaysInPhase returns the fractional days elapsed since the phase was entered.
func (s *UserPhaseState) DaysInPhase(now time.Time) float64 {
	return now.Sub(s.PhaseEnteredAt).Hours() / 24
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseOnboarding, PhaseObservation, PhaseFirstBudget, PhaseAutomation, PhaseOptimization:
		return true
	}
	return false
}
