package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/moneyplanner/internal/categorize"
	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/monitor"
	"github.com/Veraticus/moneyplanner/internal/phase"
	"github.com/Veraticus/moneyplanner/internal/service"
)

// Transactions returns the user's transactions, newest first, each with its
// budget category.
func (p *Planner) Transactions(ctx context.Context, userID string, filter service.TransactionFilter) ([]model.CategorizedTransaction, error) {
	if err := p.requireFeature(ctx, userID, phase.FeatureViewTransactions); err != nil {
		return nil, err
	}
	return p.categorized(ctx, userID, filter)
}

func (p *Planner) categorized(ctx context.Context, userID string, filter service.TransactionFilter) ([]model.CategorizedTransaction, error) {
	txns, err := p.storage.GetTransactions(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	overrides, err := p.storage.GetCategoryOverrides(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load category overrides: %w", err)
	}
	return categorize.Apply(txns, overrides), nil
}

// OverrideCategory pins one transaction to category.
func (p *Planner) OverrideCategory(ctx context.Context, userID, transactionID, category string) (*model.CategoryOverride, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", common.ErrInvalidInput)
	}

	var override *model.CategoryOverride
	err := p.withUserLock(ctx, userID, func() error {
		if err := p.requireFeature(ctx, userID, phase.FeatureAutoCategorize); err != nil {
			return err
		}

		txns, err := p.storage.GetTransactions(ctx, userID, service.TransactionFilter{})
		if err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}
		found := false
		for _, txn := range txns {
			if txn.ID == transactionID {
				found = true
				break
			}
		}
		if !found {
			return common.NotFound("transaction", transactionID)
		}

		override = &model.CategoryOverride{
			TransactionID: transactionID,
			Category:      category,
			OverriddenAt:  p.now(),
		}
		if err := p.storage.SaveCategoryOverride(ctx, userID, override); err != nil {
			return fmt.Errorf("failed to save category override: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return override, nil
}

// BudgetSummary aggregates all transactions into monthly averages by envelope.
func (p *Planner) BudgetSummary(ctx context.Context, userID string) (*monitor.Summary, error) {
	if err := p.requireFeature(ctx, userID, phase.FeatureSpendingSummary); err != nil {
		return nil, err
	}
	txns, err := p.categorized(ctx, userID, service.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	summary := monitor.Summarize(txns)
	return &summary, nil
}

// Budget returns the user's explicit budget. A user without one gets an
// empty budget, meaning every figure uses its default.
func (p *Planner) Budget(ctx context.Context, userID string) (*model.Budget, error) {
	budget, err := p.storage.GetBudget(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return &model.Budget{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load budget: %w", err)
	}
	return budget, nil
}

// SaveBudget replaces the user's explicit budget.
func (p *Planner) SaveBudget(ctx context.Context, userID string, budget *model.Budget) (*model.Budget, error) {
	if budget == nil {
		return nil, fmt.Errorf("%w: budget is required", common.ErrInvalidInput)
	}
	for name, v := range map[string]*float64{
		"monthly_income": budget.MonthlyIncome,
		"fixed_expenses": budget.FixedExpenses,
		"savings_target": budget.SavingsTarget,
	} {
		if v != nil && *v < 0 {
			return nil, fmt.Errorf("%w: %s must not be negative", common.ErrInvalidInput, name)
		}
	}

	err := p.withUserLock(ctx, userID, func() error {
		budget.UpdatedAt = p.now()
		if err := p.storage.SaveBudget(ctx, userID, budget); err != nil {
			return fmt.Errorf("failed to save budget: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

// BudgetItemInput holds the editable fields of a budget line.
type BudgetItemInput struct {
	Category       string              `json:"category_id"`
	Name           string              `json:"name"`
	Classification model.SpendingClass `json:"classification"`
	BudgetAmount   float64             `json:"budget_amount"`
}

func (in *BudgetItemInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: budget item name is required", common.ErrInvalidInput)
	}
	if in.BudgetAmount < 0 {
		return fmt.Errorf("%w: budget amount must not be negative", common.ErrInvalidInput)
	}
	if in.Classification == "" {
		in.Classification = model.SpendingUnclassified
	}
	if !in.Classification.Valid() {
		return fmt.Errorf("%w: unknown classification %q", common.ErrInvalidInput, in.Classification)
	}
	return nil
}

// BudgetItems returns the user's budget lines.
func (p *Planner) BudgetItems(ctx context.Context, userID string) ([]model.BudgetItem, error) {
	if err := p.requireFeature(ctx, userID, phase.FeatureBudgetEnvelopes); err != nil {
		return nil, err
	}
	items, err := p.storage.GetBudgetItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load budget items: %w", err)
	}
	return items, nil
}

// CreateBudgetItem adds a budget line.
func (p *Planner) CreateBudgetItem(ctx context.Context, userID string, in BudgetItemInput) (*model.BudgetItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var item *model.BudgetItem
	err := p.withUserLock(ctx, userID, func() error {
		if err := p.requireFeature(ctx, userID, phase.FeatureBudgetEnvelopes); err != nil {
			return err
		}
		item = &model.BudgetItem{
			ID:             uuid.NewString(),
			Category:       in.Category,
			Name:           in.Name,
			Classification: in.Classification,
			BudgetAmount:   in.BudgetAmount,
			CreatedAt:      p.now(),
		}
		if err := p.storage.CreateBudgetItem(ctx, userID, item); err != nil {
			return fmt.Errorf("failed to create budget item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateBudgetItem replaces the editable fields of a budget line.
func (p *Planner) UpdateBudgetItem(ctx context.Context, userID, id string, in BudgetItemInput) (*model.BudgetItem, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var item *model.BudgetItem
	err := p.withUserLock(ctx, userID, func() error {
		if err := p.requireFeature(ctx, userID, phase.FeatureBudgetEnvelopes); err != nil {
			return err
		}
		now := p.now()
		item = &model.BudgetItem{
			ID:             id,
			Category:       in.Category,
			Name:           in.Name,
			Classification: in.Classification,
			BudgetAmount:   in.BudgetAmount,
			UpdatedAt:      &now,
		}
		return p.storage.UpdateBudgetItem(ctx, userID, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteBudgetItem removes a budget line.
func (p *Planner) DeleteBudgetItem(ctx context.Context, userID, id string) error {
	return p.withUserLock(ctx, userID, func() error {
		if err := p.requireFeature(ctx, userID, phase.FeatureBudgetEnvelopes); err != nil {
			return err
		}
		return p.storage.DeleteBudgetItem(ctx, userID, id)
	})
}

// SetHardStop turns the hard stop of a budget line on or off.
func (p *Planner) SetHardStop(ctx context.Context, userID, id string, hardStop bool) (*model.BudgetItem, error) {
	var item *model.BudgetItem
	err := p.withUserLock(ctx, userID, func() error {
		if err := p.requireFeature(ctx, userID, phase.FeatureBudgetAlerts); err != nil {
			return err
		}
		if err := p.storage.SetBudgetItemHardStop(ctx, userID, id, hardStop, p.now()); err != nil {
			return err
		}

		items, err := p.storage.GetBudgetItems(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load budget items: %w", err)
		}
		for i := range items {
			if items[i].ID == id {
				item = &items[i]
				return nil
			}
		}
		return common.NotFound("budget item", id)
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Set budget hard stop", "user_id", userID, "item_id", id, "hard_stop", hardStop)
	return item, nil
}

// BudgetAlerts returns the budget lines this month's spending is close to
// or over.
func (p *Planner) BudgetAlerts(ctx context.Context, userID string) ([]monitor.BudgetAlert, error) {
	if err := p.requireFeature(ctx, userID, phase.FeatureBudgetAlerts); err != nil {
		return nil, err
	}

	items, err := p.storage.GetBudgetItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load budget items: %w", err)
	}
	now := p.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	txns, err := p.categorized(ctx, userID, service.TransactionFilter{StartDate: &monthStart})
	if err != nil {
		return nil, err
	}
	return monitor.BudgetAlerts(items, txns, now), nil
}

// SafeToSpend returns this month's remaining discretionary budget. Monthly
// income is the explicit budget figure when set, otherwise the rolling
// average of income events.
func (p *Planner) SafeToSpend(ctx context.Context, userID string) (*monitor.SafeToSpend, error) {
	if err := p.requireFeature(ctx, userID, phase.FeatureSafeToSpend); err != nil {
		return nil, err
	}

	events, err := p.storage.GetIncomeEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load income history: %w", err)
	}
	budget, err := p.Budget(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := p.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	txns, err := p.storage.GetTransactions(ctx, userID, service.TransactionFilter{StartDate: &monthStart})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	result := monitor.ComputeSafeToSpend(p.tracker.Average(events), budget, txns, now)
	return &result, nil
}
