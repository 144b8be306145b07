package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
)

// GetBudget returns a user's explicit budget.
func (s *SQLiteStorage) GetBudget(ctx context.Context, userID string) (*model.Budget, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	var (
		budget                 model.Budget
		income, fixed, savings sql.NullFloat64
		updated                string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT monthly_income, fixed_expenses, savings_target, updated_at
		FROM budgets
		WHERE user_id = ?`, userID).Scan(&income, &fixed, &savings, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("budget", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	budget.MonthlyIncome = floatPtr(income)
	budget.FixedExpenses = floatPtr(fixed)
	budget.SavingsTarget = floatPtr(savings)
	budget.UpdatedAt, _ = parseTime(updated)

	return &budget, nil
}

// SaveBudget replaces a user's explicit budget.
func (s *SQLiteStorage) SaveBudget(ctx context.Context, userID string, budget *model.Budget) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if budget == nil {
		return fmt.Errorf("%w: budget", ErrNilParameter)
	}

	if budget.UpdatedAt.IsZero() {
		budget.UpdatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, monthly_income, fixed_expenses, savings_target, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			monthly_income = excluded.monthly_income,
			fixed_expenses = excluded.fixed_expenses,
			savings_target = excluded.savings_target,
			updated_at = excluded.updated_at`,
		userID, nullFloat(budget.MonthlyIncome), nullFloat(budget.FixedExpenses),
		nullFloat(budget.SavingsTarget), formatTime(budget.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

// CreateBudgetItem stores a new budget line.
func (s *SQLiteStorage) CreateBudgetItem(ctx context.Context, userID string, item *model.BudgetItem) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateBudgetItem(item); err != nil {
		return err
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_items (
			id, user_id, category, name, classification, budget_amount, hard_stop, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, userID, item.Category, item.Name, string(item.Classification),
		item.BudgetAmount, item.HardStop, formatTime(item.CreatedAt), formatNullTime(item.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create budget item: %w", err)
	}
	return nil
}

// UpdateBudgetItem replaces the editable fields of an existing budget line.
// The hard stop is left as stored; see SetBudgetItemHardStop.
func (s *SQLiteStorage) UpdateBudgetItem(ctx context.Context, userID string, item *model.BudgetItem) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateBudgetItem(item); err != nil {
		return err
	}

	if item.UpdatedAt == nil {
		now := s.now()
		item.UpdatedAt = &now
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE budget_items
		SET category = ?, name = ?, classification = ?, budget_amount = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		item.Category, item.Name, string(item.Classification), item.BudgetAmount,
		formatNullTime(item.UpdatedAt), userID, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget item: %w", err)
	}

	return requireRow(result, "budget item", item.ID)
}

// DeleteBudgetItem removes a budget line.
func (s *SQLiteStorage) DeleteBudgetItem(ctx context.Context, userID, id string) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM budget_items WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete budget item: %w", err)
	}

	return requireRow(result, "budget item", id)
}

// GetBudgetItems returns a user's budget lines in creation order.
func (s *SQLiteStorage) GetBudgetItems(ctx context.Context, userID string) ([]model.BudgetItem, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, name, classification, budget_amount, hard_stop, created_at, updated_at
		FROM budget_items
		WHERE user_id = ?
		ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []model.BudgetItem{}
	for rows.Next() {
		var (
			item           model.BudgetItem
			class, created string
			updated        sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Category, &item.Name, &class,
			&item.BudgetAmount, &item.HardStop, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan budget item: %w", err)
		}
		if item.CreatedAt, err = parseTime(created); err != nil {
			slog.Warn("Skipping malformed budget item", "user_id", userID, "id", item.ID, "error", err)
			continue
		}
		item.Classification = model.SpendingClass(class)
		if !item.Classification.Valid() {
			item.Classification = model.SpendingUnclassified
		}
		item.UpdatedAt, _ = parseNullTime(updated)
		items = append(items, item)
	}

	return items, rows.Err()
}

// SetBudgetItemHardStop turns a budget line's hard stop on or off.
func (s *SQLiteStorage) SetBudgetItemHardStop(ctx context.Context, userID, id string, hardStop bool, at time.Time) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE budget_items SET hard_stop = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		hardStop, formatTime(at), userID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set budget item hard stop: %w", err)
	}

	return requireRow(result, "budget item", id)
}

// requireRow turns a write that touched no rows into a not-found error.
func requireRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return common.NotFound(kind, id)
	}
	return nil
}
