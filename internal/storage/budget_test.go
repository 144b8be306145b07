package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
)

func TestBudget_OptionalFields(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	income := 5000.0
	require.NoError(t, store.SaveBudget(ctx, "user-1", &model.Budget{MonthlyIncome: &income}))

	budget, err := store.GetBudget(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, budget.MonthlyIncome)
	assert.InDelta(t, 5000.0, *budget.MonthlyIncome, 0.001)
	assert.Nil(t, budget.FixedExpenses)
	assert.Nil(t, budget.SavingsTarget)
	assert.False(t, budget.UpdatedAt.IsZero())
}

func TestBudgetItems_CRUD(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	item := &model.BudgetItem{
		ID: "b1", Category: "Groceries", Name: "Weekly shop",
		Classification: model.SpendingRecurringVariable, BudgetAmount: 400,
	}
	require.NoError(t, store.CreateBudgetItem(ctx, "user-1", item))
	require.NoError(t, store.CreateBudgetItem(ctx, "user-1", &model.BudgetItem{
		ID: "b2", Category: "Rent/Mortgage", Name: "Rent", Classification: model.SpendingFixed, BudgetAmount: 1800,
	}))

	item.BudgetAmount = 450
	require.NoError(t, store.UpdateBudgetItem(ctx, "user-1", item))
	require.NotNil(t, item.UpdatedAt)

	require.NoError(t, store.DeleteBudgetItem(ctx, "user-1", "b2"))

	items, err := store.GetBudgetItems(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.InDelta(t, 450.0, items[0].BudgetAmount, 0.001)
	assert.NotNil(t, items[0].UpdatedAt)

	err = store.UpdateBudgetItem(ctx, "user-2", item)
	assert.ErrorIs(t, err, common.ErrNotFound, "items are scoped per user")

	err = store.CreateBudgetItem(ctx, "user-1", &model.BudgetItem{ID: "b3", Name: "x", Classification: "WEIRD"})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestWeeklyReview_AcknowledgeIsIdempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Date(2024, 6, 7, 9, 0, 0, 0, time.UTC)
	review := &model.WeeklyReview{
		ID: "r1", PeriodStart: now.AddDate(0, 0, -7), PeriodEnd: now, GeneratedAt: now, Total: 120,
		Categories: []model.CategoryTotal{{Category: "Groceries", Total: 100, Count: 2}, {Category: "Transit", Total: 20, Count: 1}},
	}
	require.NoError(t, store.AppendWeeklyReview(ctx, "user-1", review))

	first := now.Add(time.Hour)
	require.NoError(t, store.AcknowledgeWeeklyReview(ctx, "user-1", "r1", first))
	require.NoError(t, store.AcknowledgeWeeklyReview(ctx, "user-1", "r1", first.Add(time.Hour)))

	loaded, err := store.GetWeeklyReview(ctx, "user-1", "r1")
	require.NoError(t, err)
	assert.True(t, loaded.Acknowledged)
	require.NotNil(t, loaded.AcknowledgedAt)
	assert.True(t, loaded.AcknowledgedAt.Equal(first), "second acknowledgment keeps the first time")
	require.Len(t, loaded.Categories, 2)
	assert.Equal(t, "Groceries", loaded.Categories[0].Category)
}

func TestWeeklyReview_MalformedCategoriesReadAsEmpty(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO weekly_reviews (id, user_id, period_start, period_end, generated_at, total, categories)
		VALUES ('r1', 'user-1', '2024-01-01T00:00:00Z', '2024-01-08T00:00:00Z', '2024-01-08T00:00:00Z', 10, '{oops')`)
	require.NoError(t, err)

	review, err := store.GetWeeklyReview(ctx, "user-1", "r1")
	require.NoError(t, err)
	assert.Empty(t, review.Categories)
}

func TestPlaidItems_AndSafeguards(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	item := &model.PlaidItem{ItemID: "item-1", AccessToken: "sealed", InstitutionName: "Test Bank"}
	require.NoError(t, store.SavePlaidItem(ctx, "user-1", item))

	synced := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	item.Cursor = "cursor-2"
	item.LastSync = &synced
	require.NoError(t, store.SavePlaidItem(ctx, "user-1", item))

	loaded, err := store.GetPlaidItem(ctx, "user-1", "item-1")
	require.NoError(t, err)
	assert.Equal(t, "sealed", loaded.AccessToken)
	assert.Equal(t, "cursor-2", loaded.Cursor)
	require.NotNil(t, loaded.LastSync)
	assert.True(t, loaded.LastSync.Equal(synced))

	items, err := store.GetPlaidItems(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, store.DeletePlaidItem(ctx, "user-1", "item-1"))
	_, err = store.GetPlaidItem(ctx, "user-1", "item-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	until := synced.AddDate(0, 0, 14)
	require.NoError(t, store.SaveSafeguards(ctx, "user-1", &model.Safeguards{GamificationActive: false, HolidayUntil: &until}))
	safeguards, err := store.GetSafeguards(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, safeguards.GamificationActive)
	require.NotNil(t, safeguards.HolidayUntil)
	assert.True(t, safeguards.HolidayUntil.Equal(until))
}

func TestBackup_WritesCopy(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.AppendIncomeEvent(ctx, "user-1",
		&model.IncomeEvent{ID: "e1", Amount: 100, Date: day("2024-01-01")}))

	dest := filepath.Join(t.TempDir(), "copy.db")
	info, err := store.Backup(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, 1, info.RowCounts["income_events"])
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)

	_, err = os.Stat(dest)
	require.NoError(t, err)

	_, err = store.Backup(ctx, dest)
	assert.ErrorIs(t, err, ErrBackupExists)

	_, err = store.Backup(ctx, filepath.Join(t.TempDir(), "bad'name.db"))
	assert.ErrorIs(t, err, ErrInvalidPath)
}
