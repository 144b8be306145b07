// Package storage provides the data persistence layer for the planner.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/moneyplanner/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidRecord      = errors.New("invalid record")

	// ErrStaleWrite is returned when a write was based on an out-of-date read.
	ErrStaleWrite = errors.New("stale write: record changed since it was read")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateScope checks the context and user id shared by every call.
func validateScope(ctx context.Context, userID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return validateString(userID, "userID")
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.Name == "" && txn.Merchant == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidTransaction)
	}
	return nil
}

func validateIncomeEvent(event *model.IncomeEvent) error {
	if event == nil {
		return fmt.Errorf("%w: income event", ErrNilParameter)
	}
	if event.ID == "" {
		return fmt.Errorf("%w: income event missing ID", ErrInvalidRecord)
	}
	if event.Date.IsZero() {
		return fmt.Errorf("%w: income event missing date", ErrInvalidRecord)
	}
	return nil
}

func validateAutoTransfer(transfer *model.AutoTransfer) error {
	if transfer == nil {
		return fmt.Errorf("%w: auto transfer", ErrNilParameter)
	}
	if transfer.Recovered {
		return fmt.Errorf("%w: recovered auto transfer must be configured before saving", ErrInvalidRecord)
	}
	if transfer.SavingsRatePct < 0 || transfer.SavingsRatePct > 100 {
		return fmt.Errorf("%w: savings rate %.1f out of range", ErrInvalidRecord, transfer.SavingsRatePct)
	}
	if transfer.PendingEscalation != nil && transfer.PendingEscalation.ID == "" {
		return fmt.Errorf("%w: escalation proposal missing ID", ErrInvalidRecord)
	}
	for _, p := range transfer.Resolved {
		if p.ID == "" || p.Status == model.ProposalPending {
			return fmt.Errorf("%w: resolved proposal %q", ErrInvalidRecord, p.ID)
		}
	}
	return nil
}

func validatePhaseState(state *model.UserPhaseState) error {
	if state == nil {
		return fmt.Errorf("%w: phase state", ErrNilParameter)
	}
	if !state.CurrentPhase.Valid() {
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidRecord, state.CurrentPhase)
	}
	return nil
}

func validateBudgetItem(item *model.BudgetItem) error {
	if item == nil {
		return fmt.Errorf("%w: budget item", ErrNilParameter)
	}
	if item.ID == "" {
		return fmt.Errorf("%w: budget item missing ID", ErrInvalidRecord)
	}
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: budget item missing name", ErrInvalidRecord)
	}
	if !item.Classification.Valid() {
		return fmt.Errorf("%w: classification %q", ErrInvalidRecord, item.Classification)
	}
	return nil
}

func validateGroupGoal(goal *model.GroupGoal) error {
	if goal == nil {
		return fmt.Errorf("%w: group goal", ErrNilParameter)
	}
	if goal.ID == "" {
		return fmt.Errorf("%w: group goal missing ID", ErrInvalidRecord)
	}
	if strings.TrimSpace(goal.Name) == "" {
		return fmt.Errorf("%w: group goal missing name", ErrInvalidRecord)
	}
	if goal.Target <= 0 {
		return fmt.Errorf("%w: group goal target must be positive", ErrInvalidRecord)
	}
	return nil
}
