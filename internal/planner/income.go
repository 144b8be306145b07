package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/moneyplanner/internal/automation"
	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/income"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/monitor"
	"github.com/Veraticus/moneyplanner/internal/phase"
	"github.com/Veraticus/moneyplanner/internal/service"
)

// IncomeInput is a manually logged income payment. A zero Date means today.
type IncomeInput struct {
	Date              time.Time
	SourceDescription string
	Amount            float64
	IsRecurring       bool
}

// IncomeResult reports what logging an income payment set in motion.
type IncomeResult struct {
	Event              *model.IncomeEvent `json:"income_event"`
	RollingAverage     *float64           `json:"rolling_3mo_average"`
	ChangeFlag         model.IncomeChange `json:"income_change_flag"`
	Automation         automation.Action  `json:"automation_action"`
	PhaseAdvanced      bool               `json:"phase_advanced"`
	EscalationProposed bool               `json:"escalation_proposed"`
	RateReduced        bool               `json:"rate_reduced"`
}

// IncomeHistory is the user's income events and their current average.
type IncomeHistory struct {
	Events         []model.IncomeEvent `json:"events"`
	RollingAverage float64             `json:"rolling_average"`
}

func (p *Planner) today() time.Time {
	now := p.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// LogIncome records a manual income payment as a log entry and an income
// event. Logging income advances a user out of onboarding. Once the income
// rules are unlocked a flagged change is handed to the automation engine.
func (p *Planner) LogIncome(ctx context.Context, userID string, in IncomeInput) (*IncomeResult, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: income amount must be positive", common.ErrInvalidInput)
	}
	if in.Date.IsZero() {
		in.Date = p.today()
	}

	var result *IncomeResult
	err := p.withUserLock(ctx, userID, func() error {
		log := &model.ManualIncomeLog{
			ID:                uuid.NewString(),
			Amount:            in.Amount,
			Date:              in.Date,
			SourceDescription: in.SourceDescription,
			IsRecurring:       in.IsRecurring,
			CreatedAt:         p.now(),
		}
		history, err := p.storage.GetIncomeEvents(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load income history: %w", err)
		}

		event, previousAvg := p.tracker.NewEvent(history, income.EventInput{
			Amount:            in.Amount,
			Date:              in.Date,
			Source:            model.IncomeSourceManual,
			SourceDescription: in.SourceDescription,
			IsRecurring:       in.IsRecurring,
		})
		if err := p.storage.AppendManualIncome(ctx, userID, log, event); err != nil {
			return fmt.Errorf("failed to save income: %w", err)
		}

		result = &IncomeResult{
			Event:          event,
			RollingAverage: event.RollingAverage,
			ChangeFlag:     event.ChangeFlag,
			Automation:     automation.ActionNone,
		}

		state, _, err := p.loadPhase(ctx, userID)
		if err != nil {
			return err
		}
		// The rules apply to the phase the user was in when the income arrived.
		before := state.CurrentPhase

		if before == model.PhaseOnboarding {
			res, err := p.advance(ctx, userID)
			if err != nil {
				return err
			}
			result.PhaseAdvanced = res.Advanced
		}

		if event.ChangeFlag == model.IncomeNoChange || !phase.Unlocked(before, phase.FeatureIINRules) {
			return nil
		}
		return p.reactToIncome(ctx, userID, event, previousAvg, result)
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Logged income",
		"user_id", userID,
		"amount", in.Amount,
		"change", result.ChangeFlag,
		"automation", result.Automation)
	return result, nil
}

// reactToIncome applies the automation rules to the user's transfer. The
// caller must hold the user's lock.
func (p *Planner) reactToIncome(ctx context.Context, userID string, event *model.IncomeEvent, previousAvg float64, result *IncomeResult) error {
	transfer, err := p.loadTransfer(ctx, userID)
	if err != nil || transfer == nil {
		return err
	}

	outcome := p.engine.HandleIncomeChange(transfer, event, previousAvg)
	result.Automation = outcome.Action
	result.RateReduced = outcome.Action == automation.ActionReduced
	result.EscalationProposed = transfer.PendingEscalation.IsPending()

	if !outcome.Changed() {
		return nil
	}
	if err := p.storage.SaveAutoTransfer(ctx, userID, transfer); err != nil {
		return fmt.Errorf("failed to save auto transfer: %w", err)
	}
	return nil
}

// IncomeHistory returns every income event in logged order with the
// current rolling average.
func (p *Planner) IncomeHistory(ctx context.Context, userID string) (*IncomeHistory, error) {
	events, err := p.storage.GetIncomeEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load income history: %w", err)
	}
	return &IncomeHistory{
		Events:         events,
		RollingAverage: p.tracker.Average(events),
	}, nil
}

// IncomeStreams infers recurring income sources from stored transactions.
func (p *Planner) IncomeStreams(ctx context.Context, userID string) ([]model.IncomeStream, error) {
	if err := p.requireFeature(ctx, userID, phase.FeatureIncomeDetection); err != nil {
		return nil, err
	}
	txns, err := p.storage.GetTransactions(ctx, userID, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return income.DetectStreams(txns), nil
}

// SavingsInput is a manually logged transfer into savings. A zero Date
// means today.
type SavingsInput struct {
	Date                   time.Time
	DestinationDescription string
	Amount                 float64
}

// LogSavings records money moved into savings and how closely it matches
// the target rate applied to the latest income payment.
func (p *Planner) LogSavings(ctx context.Context, userID string, in SavingsInput) (*model.ManualSavingsLog, error) {
	if in.Amount < 0 {
		return nil, fmt.Errorf("%w: savings amount must not be negative", common.ErrInvalidInput)
	}
	if in.Date.IsZero() {
		in.Date = p.today()
	}

	var log *model.ManualSavingsLog
	err := p.withUserLock(ctx, userID, func() error {
		events, err := p.storage.GetIncomeEvents(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load income history: %w", err)
		}
		var latest float64
		if len(events) > 0 {
			latest = events[len(events)-1].Amount
		}

		rate := monitor.DefaultSavingsRate
		transfer, err := p.loadTransfer(ctx, userID)
		if err != nil {
			return err
		}
		if transfer != nil {
			rate = transfer.SavingsRatePct / 100
		}

		log = &model.ManualSavingsLog{
			ID:                     uuid.NewString(),
			Amount:                 in.Amount,
			Date:                   in.Date,
			DestinationDescription: in.DestinationDescription,
			SavingsRateAtTime:      rate,
			RateAdherence:          monitor.SavingsAdherence(in.Amount, latest, rate),
			CreatedAt:              p.now(),
		}
		if err := p.storage.AppendSavingsLog(ctx, userID, log); err != nil {
			return fmt.Errorf("failed to save savings log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// SavingsHistory returns the user's savings logs in logged order.
func (p *Planner) SavingsHistory(ctx context.Context, userID string) ([]model.ManualSavingsLog, error) {
	logs, err := p.storage.GetSavingsLogs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load savings logs: %w", err)
	}
	return logs, nil
}
