package planner

import (
	"context"
	"fmt"

	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/phase"
)

// PhaseStatus is a user's phase, unlocked features and next-step readiness.
type PhaseStatus struct {
	State      *model.UserPhaseState `json:"phase"`
	Features   []string              `json:"unlocked_features"`
	Transition phase.Readiness       `json:"transition"`
}

// AdvanceStatus is the result of an advance request.
type AdvanceStatus struct {
	phase.AdvanceResult
	Features []string `json:"unlocked_features"`
}

// PhaseStatus returns the user's phase, creating the onboarding state on
// first contact.
func (p *Planner) PhaseStatus(ctx context.Context, userID string) (*PhaseStatus, error) {
	var status *PhaseStatus
	err := p.withUserLock(ctx, userID, func() error {
		state, stored, err := p.loadPhase(ctx, userID)
		if err != nil {
			return err
		}
		if !stored || state.Recovered {
			if err := p.storage.SavePhaseState(ctx, userID, state); err != nil {
				return fmt.Errorf("failed to create phase state: %w", err)
			}
		}

		facts, err := p.phaseFacts(ctx, userID)
		if err != nil {
			return err
		}

		status = &PhaseStatus{
			State:      state,
			Features:   phase.Features(state.CurrentPhase),
			Transition: p.phases.Readiness(state, facts),
		}
		return nil
	})
	return status, err
}

// AdvancePhase moves the user one phase forward when ready. A user who is
// not ready gets Advanced=false and the unmet requirement, not an error.
func (p *Planner) AdvancePhase(ctx context.Context, userID string) (*AdvanceStatus, error) {
	var status *AdvanceStatus
	err := p.withUserLock(ctx, userID, func() error {
		res, err := p.advance(ctx, userID)
		if err != nil {
			return err
		}
		status = &AdvanceStatus{
			AdvanceResult: res,
			Features:      phase.Features(res.State.CurrentPhase),
		}
		return nil
	})
	return status, err
}

// advance runs one advance attempt. The caller must hold the user's lock.
func (p *Planner) advance(ctx context.Context, userID string) (phase.AdvanceResult, error) {
	state, stored, err := p.loadPhase(ctx, userID)
	if err != nil {
		return phase.AdvanceResult{}, err
	}

	facts, err := p.phaseFacts(ctx, userID)
	if err != nil {
		return phase.AdvanceResult{}, err
	}

	res := p.phases.Advance(state, facts)
	if res.Advanced || !stored || state.Recovered {
		if err := p.storage.SavePhaseState(ctx, userID, state); err != nil {
			return phase.AdvanceResult{}, fmt.Errorf("failed to save phase state: %w", err)
		}
	}
	return res, nil
}

func (p *Planner) phaseFacts(ctx context.Context, userID string) (phase.Facts, error) {
	n, err := p.storage.CountIncomeEvents(ctx, userID)
	if err != nil {
		return phase.Facts{}, fmt.Errorf("failed to count income events: %w", err)
	}
	return phase.Facts{IncomeEvents: n}, nil
}
