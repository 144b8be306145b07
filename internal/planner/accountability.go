package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/moneyplanner/internal/automation"
	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/monitor"
	"github.com/Veraticus/moneyplanner/internal/phase"
)

// ForecastInput overrides the figures an escalation forecast is built from.
// Unset fields come from the user's records.
type ForecastInput struct {
	CurrentRate   *float64
	ProposedRate  *float64
	MonthlyIncome *float64
	Years         int
}

// EscalationForecast projects the user's savings at their current rate
// against a proposed one. The current rate defaults to the configured
// transfer, the proposed rate to the pending proposal or one point more,
// and monthly income to the rolling average of income events.
func (p *Planner) EscalationForecast(ctx context.Context, userID string, in ForecastInput) (automation.Forecast, error) {
	if err := p.requireFeature(ctx, userID, phase.FeatureEscalation); err != nil {
		return automation.Forecast{}, err
	}

	transfer, err := p.loadTransfer(ctx, userID)
	if err != nil {
		return automation.Forecast{}, err
	}

	current := monitor.DefaultSavingsRate * 100
	if transfer != nil {
		current = transfer.SavingsRatePct
	}
	if in.CurrentRate != nil {
		current = *in.CurrentRate
	}

	proposed := min(current+1, 100)
	if transfer != nil && transfer.PendingEscalation.IsPending() {
		proposed = transfer.PendingEscalation.NewRate
	}
	if in.ProposedRate != nil {
		proposed = *in.ProposedRate
	}

	income := automation.DefaultForecastIncome
	if in.MonthlyIncome != nil {
		income = *in.MonthlyIncome
	} else {
		events, err := p.storage.GetIncomeEvents(ctx, userID)
		if err != nil {
			return automation.Forecast{}, fmt.Errorf("failed to load income history: %w", err)
		}
		if avg := p.tracker.Average(events); avg > 0 {
			income = avg
		}
	}

	years := in.Years
	if years == 0 {
		years = automation.DefaultForecastYears
	}

	return automation.ProjectEscalation(current, proposed, years, income)
}

// PeerBenchmark compares the user's savings rate with their peers. A
// running gamification holiday suppresses the comparison.
func (p *Planner) PeerBenchmark(ctx context.Context, userID string) (*monitor.Benchmark, error) {
	if err := p.requireFeature(ctx, userID, phase.FeaturePeerBenchmark); err != nil {
		return nil, err
	}

	settings, err := p.storage.GetBenchmarkSettings(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		settings = &model.BenchmarkSettings{}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load benchmark settings: %w", err)
	}

	transfer, err := p.loadTransfer(ctx, userID)
	if err != nil {
		return nil, err
	}
	rate := monitor.DefaultSavingsRate * 100
	if transfer != nil {
		rate = transfer.SavingsRatePct
	}

	safeguards, err := p.Safeguards(ctx, userID)
	if err != nil {
		return nil, err
	}

	benchmark := monitor.PeerBenchmark(rate, settings.OptIn, !safeguards.GamificationActive)
	return &benchmark, nil
}

// ToggleBenchmark opts the user in to or out of peer benchmarks.
func (p *Planner) ToggleBenchmark(ctx context.Context, userID string, optIn bool) (*model.BenchmarkSettings, error) {
	var settings *model.BenchmarkSettings
	err := p.withUserLock(ctx, userID, func() error {
		if err := p.requireFeature(ctx, userID, phase.FeaturePeerBenchmark); err != nil {
			return err
		}
		settings = &model.BenchmarkSettings{OptIn: optIn, UpdatedAt: p.now()}
		if err := p.storage.SaveBenchmarkSettings(ctx, userID, settings); err != nil {
			return fmt.Errorf("failed to save benchmark settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Toggled peer benchmark", "user_id", userID, "opt_in", optIn)
	return settings, nil
}

// GroupGoalInput describes a new group goal. The creator is always a member.
type GroupGoalInput struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
	Target    float64  `json:"target"`
}

// CreateGroupGoal starts a shared savings target.
func (p *Planner) CreateGroupGoal(ctx context.Context, userID string, in GroupGoalInput) (*model.GroupGoal, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", common.ErrInvalidInput)
	}
	if in.Target <= 0 {
		return nil, fmt.Errorf("%w: target must be positive", common.ErrInvalidInput)
	}

	members := []string{userID}
	for _, id := range in.MemberIDs {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(members, id) {
			members = append(members, id)
		}
	}

	var goal *model.GroupGoal
	err := p.withUserLock(ctx, userID, func() error {
		if err := p.requireFeature(ctx, userID, phase.FeatureGroupGoals); err != nil {
			return err
		}
		goal = &model.GroupGoal{
			ID:        uuid.NewString(),
			CreatorID: userID,
			Name:      name,
			Target:    in.Target,
			MemberIDs: members,
			CreatedAt: p.now(),
		}
		if err := p.storage.CreateGroupGoal(ctx, userID, goal); err != nil {
			return fmt.Errorf("failed to create group goal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Created group goal", "user_id", userID, "goal_id", goal.ID, "members", len(members))
	return goal, nil
}

// GroupGoal returns a group goal with the savings logged toward it since it
// was created.
func (p *Planner) GroupGoal(ctx context.Context, userID, id string) (*model.GroupGoal, error) {
	if err := p.requireFeature(ctx, userID, phase.FeatureGroupGoals); err != nil {
		return nil, err
	}

	goal, err := p.storage.GetGroupGoal(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	logs, err := p.storage.GetSavingsLogs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load savings logs: %w", err)
	}

	since := goal.CreatedAt.UTC().Truncate(24 * time.Hour)
	saved := decimal.Zero
	for _, log := range logs {
		if !log.Date.Before(since) {
			saved = saved.Add(decimal.NewFromFloat(log.Amount))
		}
	}

	percent := saved.Div(decimal.NewFromFloat(goal.Target)).Mul(decimal.NewFromInt(100))
	goal.Progress = saved.Round(2).InexactFloat64()
	goal.PercentComplete = decimal.Min(percent, decimal.NewFromInt(100)).Round(1).InexactFloat64()
	return goal, nil
}
