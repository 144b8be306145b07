package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
)

func TestBudgetItems_HardStop(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	item := &model.BudgetItem{
		ID: "b1", Category: "Dining Out", Name: "Restaurants",
		Classification: model.SpendingTrueVariable, BudgetAmount: 150,
	}
	require.NoError(t, store.CreateBudgetItem(ctx, "user-1", item))

	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetBudgetItemHardStop(ctx, "user-1", "b1", true, at))

	// Editing the line keeps the hard stop.
	item.BudgetAmount = 175
	item.UpdatedAt = nil
	require.NoError(t, store.UpdateBudgetItem(ctx, "user-1", item))

	items, err := store.GetBudgetItems(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].HardStop)
	assert.InDelta(t, 175.0, items[0].BudgetAmount, 0.001)

	err = store.SetBudgetItemHardStop(ctx, "user-2", "b1", false, at)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestBenchmarkSettings(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.GetBenchmarkSettings(ctx, "user-1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, store.SaveBenchmarkSettings(ctx, "user-1", &model.BenchmarkSettings{OptIn: true}))
	settings, err := store.GetBenchmarkSettings(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, settings.OptIn)
	assert.False(t, settings.UpdatedAt.IsZero())

	require.NoError(t, store.SaveBenchmarkSettings(ctx, "user-1", &model.BenchmarkSettings{OptIn: false}))
	settings, err = store.GetBenchmarkSettings(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, settings.OptIn)
}

func TestGroupGoals(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	goal := &model.GroupGoal{
		ID: "g1", Name: "Trip", Target: 3000, MemberIDs: []string{"user-1", "user-2"},
	}
	require.NoError(t, store.CreateGroupGoal(ctx, "user-1", goal))

	got, err := store.GetGroupGoal(ctx, "user-1", "g1")
	require.NoError(t, err)
	assert.Equal(t, "Trip", got.Name)
	assert.Equal(t, "user-1", got.CreatorID)
	assert.Equal(t, []string{"user-1", "user-2"}, got.MemberIDs)
	assert.InDelta(t, 3000.0, got.Target, 0.001)

	// Goals are scoped to their creator.
	_, err = store.GetGroupGoal(ctx, "user-2", "g1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.CreateGroupGoal(ctx, "user-1", &model.GroupGoal{ID: "g2", Name: "Bad", Target: 0})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
