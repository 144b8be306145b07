package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/service"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMigrate_IsIdempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestValidation_RejectsEmptyUser(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.GetIncomeEvents(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyString)

	//nolint:staticcheck // nil context is what is being tested
	_, err = store.GetIncomeEvents(nil, "user-1")
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestIncomeEvents_RoundTripInOrder(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	avg := 1000.0
	events := []model.IncomeEvent{
		{ID: "e1", Amount: 1000, Date: day("2024-01-15"), Source: model.IncomeSourceManual},
		{ID: "e2", Amount: 1200, Date: day("2024-01-01"), Source: model.IncomeSourcePlaid,
			RollingAverage: &avg, ChangeFlag: model.IncomeIncrease, IsRecurring: true},
	}
	for i := range events {
		require.NoError(t, store.AppendIncomeEvent(ctx, "user-1", &events[i]))
	}
	require.NoError(t, store.AppendIncomeEvent(ctx, "user-2",
		&model.IncomeEvent{ID: "other", Amount: 5, Date: day("2024-01-01")}))

	got, err := store.GetIncomeEvents(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "e1", got[0].ID)
	assert.Nil(t, got[0].RollingAverage)
	assert.Equal(t, model.IncomeNoChange, got[0].ChangeFlag)

	assert.Equal(t, "e2", got[1].ID)
	require.NotNil(t, got[1].RollingAverage)
	assert.InDelta(t, 1000.0, *got[1].RollingAverage, 0.001)
	assert.Equal(t, model.IncomeIncrease, got[1].ChangeFlag)
	assert.True(t, got[1].IsRecurring)
	assert.True(t, got[1].Date.Equal(day("2024-01-01")))

	count, err := store.CountIncomeEvents(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIncomeEvents_MalformedRowIsSkipped(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.AppendIncomeEvent(ctx, "user-1",
		&model.IncomeEvent{ID: "good", Amount: 100, Date: day("2024-02-01")}))
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO income_events (id, user_id, amount, date, source, created_at)
		VALUES ('bad', 'user-1', 50, 'not-a-date', 'manual', '2024-02-01T00:00:00Z')`)
	require.NoError(t, err)

	got, err := store.GetIncomeEvents(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].ID)
}

func TestAppendManualIncome_WritesLogAndEventTogether(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	countLogs := func() int {
		var n int
		require.NoError(t, store.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM manual_income_logs WHERE user_id = 'user-1'").Scan(&n))
		return n
	}

	require.NoError(t, store.AppendManualIncome(ctx, "user-1",
		&model.ManualIncomeLog{ID: "log-1", Amount: 1000, Date: day("2024-03-01")},
		&model.IncomeEvent{ID: "evt-1", Amount: 1000, Date: day("2024-03-01"), Source: model.IncomeSourceManual}))
	assert.Equal(t, 1, countLogs())

	// A failing event insert leaves no orphaned log behind.
	err := store.AppendManualIncome(ctx, "user-1",
		&model.ManualIncomeLog{ID: "log-2", Amount: 1200, Date: day("2024-04-01")},
		&model.IncomeEvent{ID: "evt-1", Amount: 1200, Date: day("2024-04-01"), Source: model.IncomeSourceManual})
	require.Error(t, err)
	assert.Equal(t, 1, countLogs())

	count, err := store.CountIncomeEvents(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = store.AppendManualIncome(ctx, "user-1",
		&model.ManualIncomeLog{ID: "log-3", Amount: 1200, Date: day("2024-04-01")}, nil)
	assert.ErrorIs(t, err, ErrNilParameter)
	assert.Equal(t, 1, countLogs())
}

func TestSavingsLogs_RoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	adherence := 1.25
	require.NoError(t, store.AppendSavingsLog(ctx, "user-1", &model.ManualSavingsLog{
		ID: "s1", Amount: 250, Date: day("2024-03-01"), SavingsRateAtTime: 0.1, RateAdherence: &adherence,
	}))
	require.NoError(t, store.AppendSavingsLog(ctx, "user-1", &model.ManualSavingsLog{
		ID: "s2", Amount: 50, Date: day("2024-03-02"), SavingsRateAtTime: 0.1,
	}))

	logs, err := store.GetSavingsLogs(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.NotNil(t, logs[0].RateAdherence)
	assert.InDelta(t, 1.25, *logs[0].RateAdherence, 0.0001)
	assert.Nil(t, logs[1].RateAdherence)
}

func TestGetters_ReturnNotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		call func() error
		name string
	}{
		{name: "auto transfer", call: func() error { _, err := store.GetAutoTransfer(ctx, "nobody"); return err }},
		{name: "phase state", call: func() error { _, err := store.GetPhaseState(ctx, "nobody"); return err }},
		{name: "budget", call: func() error { _, err := store.GetBudget(ctx, "nobody"); return err }},
		{name: "safeguards", call: func() error { _, err := store.GetSafeguards(ctx, "nobody"); return err }},
		{name: "weekly review", call: func() error { _, err := store.GetWeeklyReview(ctx, "nobody", "r1"); return err }},
		{name: "plaid item", call: func() error { _, err := store.GetPlaidItem(ctx, "nobody", "item"); return err }},
		{name: "delete budget item", call: func() error { return store.DeleteBudgetItem(ctx, "nobody", "x") }},
		{name: "delete plaid item", call: func() error { return store.DeletePlaidItem(ctx, "nobody", "x") }},
		{name: "acknowledge review", call: func() error {
			return store.AcknowledgeWeeklyReview(ctx, "nobody", "r1", time.Now())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.True(t, errors.Is(err, common.ErrNotFound), "got %v", err)
		})
	}
}

func TestTransactions_UpsertFilterDelete(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := []model.Transaction{
		{ID: "t1", ItemID: "item-a", AccountID: "acc", Date: day("2024-05-01"), Name: "COFFEE", Amount: 4.5},
		{ID: "t2", ItemID: "item-a", AccountID: "acc", Date: day("2024-05-10"), Name: "PAYROLL", Amount: -2000},
		{ID: "t3", ItemID: "item-b", AccountID: "acc2", Date: day("2024-06-01"), Name: "RENT", Amount: 1500},
	}
	require.NoError(t, store.SaveTransactions(ctx, "user-1", txns))

	modified := txns[0]
	modified.Amount = 5.25
	modified.Pending = true
	require.NoError(t, store.SaveTransactions(ctx, "user-1", []model.Transaction{modified}))

	all, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t3", all[0].ID, "newest first")
	assert.Equal(t, "t1", all[2].ID)
	assert.InDelta(t, 5.25, all[2].Amount, 0.001)
	assert.True(t, all[2].Pending)
	assert.NotEmpty(t, all[2].Hash)

	start, end := day("2024-05-05"), day("2024-05-31")
	ranged, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "t2", ranged[0].ID)

	require.NoError(t, store.DeleteTransactions(ctx, "user-1", []string{"t2", "missing"}))
	require.NoError(t, store.DeleteItemTransactions(ctx, "user-1", "item-b"))

	remaining, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "t1", remaining[0].ID)

	other, err := store.GetTransactions(ctx, "user-2", service.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSaveTransactions_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	err := store.SaveTransactions(ctx, "user-1", []model.Transaction{})
	assert.ErrorIs(t, err, ErrEmptySlice)

	err = store.SaveTransactions(ctx, "user-1", []model.Transaction{{ID: "x", Name: "no date"}})
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestCategoryOverrides_LatestWins(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveCategoryOverride(ctx, "user-1",
		&model.CategoryOverride{TransactionID: "t1", Category: "Groceries"}))
	require.NoError(t, store.SaveCategoryOverride(ctx, "user-1",
		&model.CategoryOverride{TransactionID: "t1", Category: "Dining Out"}))

	overrides, err := store.GetCategoryOverrides(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, "Dining Out", overrides["t1"].Category)
}
