// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/moneyplanner/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	ItemID    string
	Limit     int
	Offset    int
}

// Storage defines the contract for the per-user record store.
// Every method is scoped to a single user; there are no cross-user queries.
type Storage interface {
	// Income operations
	AppendIncomeEvent(ctx context.Context, userID string, event *model.IncomeEvent) error
	GetIncomeEvents(ctx context.Context, userID string) ([]model.IncomeEvent, error)
	CountIncomeEvents(ctx context.Context, userID string) (int, error)
	AppendManualIncome(ctx context.Context, userID string, log *model.ManualIncomeLog, event *model.IncomeEvent) error
	AppendSavingsLog(ctx context.Context, userID string, log *model.ManualSavingsLog) error
	GetSavingsLogs(ctx context.Context, userID string) ([]model.ManualSavingsLog, error)

	// Automation operations
	GetAutoTransfer(ctx context.Context, userID string) (*model.AutoTransfer, error)
	SaveAutoTransfer(ctx context.Context, userID string, transfer *model.AutoTransfer) error
	GetEscalationProposals(ctx context.Context, userID string) ([]model.EscalationProposal, error)

	// Phase operations
	GetPhaseState(ctx context.Context, userID string) (*model.UserPhaseState, error)
	SavePhaseState(ctx context.Context, userID string, state *model.UserPhaseState) error

	// Transaction operations
	SaveTransactions(ctx context.Context, userID string, transactions []model.Transaction) error
	DeleteTransactions(ctx context.Context, userID string, ids []string) error
	DeleteItemTransactions(ctx context.Context, userID, itemID string) error
	GetTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error)
	SaveCategoryOverride(ctx context.Context, userID string, override *model.CategoryOverride) error
	GetCategoryOverrides(ctx context.Context, userID string) (map[string]model.CategoryOverride, error)

	// Budget operations
	GetBudget(ctx context.Context, userID string) (*model.Budget, error)
	SaveBudget(ctx context.Context, userID string, budget *model.Budget) error
	CreateBudgetItem(ctx context.Context, userID string, item *model.BudgetItem) error
	UpdateBudgetItem(ctx context.Context, userID string, item *model.BudgetItem) error
	DeleteBudgetItem(ctx context.Context, userID, id string) error
	GetBudgetItems(ctx context.Context, userID string) ([]model.BudgetItem, error)
	SetBudgetItemHardStop(ctx context.Context, userID, id string, hardStop bool, at time.Time) error

	// Review operations
	AppendWeeklyReview(ctx context.Context, userID string, review *model.WeeklyReview) error
	GetWeeklyReview(ctx context.Context, userID, id string) (*model.WeeklyReview, error)
	AcknowledgeWeeklyReview(ctx context.Context, userID, id string, at time.Time) error

	// Safeguard operations
	GetSafeguards(ctx context.Context, userID string) (*model.Safeguards, error)
	SaveSafeguards(ctx context.Context, userID string, safeguards *model.Safeguards) error

	// Accountability operations
	GetBenchmarkSettings(ctx context.Context, userID string) (*model.BenchmarkSettings, error)
	SaveBenchmarkSettings(ctx context.Context, userID string, settings *model.BenchmarkSettings) error
	CreateGroupGoal(ctx context.Context, userID string, goal *model.GroupGoal) error
	GetGroupGoal(ctx context.Context, userID, id string) (*model.GroupGoal, error)

	// Bank connection operations
	SavePlaidItem(ctx context.Context, userID string, item *model.PlaidItem) error
	GetPlaidItem(ctx context.Context, userID, itemID string) (*model.PlaidItem, error)
	GetPlaidItems(ctx context.Context, userID string) ([]model.PlaidItem, error)
	DeletePlaidItem(ctx context.Context, userID, itemID string) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// SyncResult is the net effect of one cursor-based sync run.
type SyncResult struct {
	Cursor   string
	Added    []model.Transaction
	Modified []model.Transaction
	Removed  []string
}

// TransactionSource is an external aggregator that provides bank transactions.
type TransactionSource interface {
	CreateLinkToken(ctx context.Context, userID string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error)
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*SyncResult, error)
	GetAccounts(ctx context.Context, accessToken string) ([]model.Account, error)
	RemoveItem(ctx context.Context, accessToken string) error
}

// Locker serializes work on a key. The returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
