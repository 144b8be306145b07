package planner

import (
	"context"
	"fmt"

	"github.com/Veraticus/moneyplanner/internal/automation"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/phase"
)

// Transfer returns the user's auto-transfer, or nil when none is configured.
func (p *Planner) Transfer(ctx context.Context, userID string) (*model.AutoTransfer, error) {
	return p.loadTransfer(ctx, userID)
}

// ConfigureTransfer creates or updates the user's auto-transfer settings.
func (p *Planner) ConfigureTransfer(ctx context.Context, userID string, s automation.Settings) (*model.AutoTransfer, error) {
	var transfer *model.AutoTransfer
	err := p.withUserLock(ctx, userID, func() error {
		if err := p.requireFeature(ctx, userID, phase.FeatureAutoTransfer); err != nil {
			return err
		}

		current, err := p.loadStoredTransfer(ctx, userID)
		if err != nil {
			return err
		}
		transfer, err = p.engine.Configure(current, userID, s)
		if err != nil {
			return err
		}
		if err := p.storage.SaveAutoTransfer(ctx, userID, transfer); err != nil {
			return fmt.Errorf("failed to save auto transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Configured auto transfer",
		"user_id", userID,
		"rate", transfer.SavingsRatePct,
		"active", transfer.IsActive)
	return transfer, nil
}

// AcceptEscalation applies the pending escalation proposal. Without one the
// result has Success=false.
func (p *Planner) AcceptEscalation(ctx context.Context, userID string) (automation.Result, error) {
	return p.resolveEscalation(ctx, userID, p.engine.Accept)
}

// RejectEscalation discards the pending escalation proposal. Without one the
// result has Success=false.
func (p *Planner) RejectEscalation(ctx context.Context, userID string) (automation.Result, error) {
	return p.resolveEscalation(ctx, userID, p.engine.Reject)
}

func (p *Planner) resolveEscalation(ctx context.Context, userID string, resolve func(*model.AutoTransfer) automation.Result) (automation.Result, error) {
	var res automation.Result
	err := p.withUserLock(ctx, userID, func() error {
		transfer, err := p.loadTransfer(ctx, userID)
		if err != nil {
			return err
		}

		res = resolve(transfer)
		if !res.Success {
			return nil
		}
		if err := p.storage.SaveAutoTransfer(ctx, userID, transfer); err != nil {
			return fmt.Errorf("failed to save auto transfer: %w", err)
		}
		return nil
	})
	if err != nil {
		return automation.Result{}, err
	}

	if res.Success {
		p.logger.Info("Resolved escalation", "user_id", userID, "message", res.Message)
	}
	return res, nil
}

// EscalationProposals returns every proposal the user has received.
func (p *Planner) EscalationProposals(ctx context.Context, userID string) ([]model.EscalationProposal, error) {
	proposals, err := p.storage.GetEscalationProposals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load escalation proposals: %w", err)
	}
	return proposals, nil
}
