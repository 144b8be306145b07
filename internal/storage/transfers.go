package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
)

// GetAutoTransfer loads a user's current transfer configuration together with
// its full rate history and pending proposal.
func (s *SQLiteStorage) GetAutoTransfer(ctx context.Context, userID string) (*model.AutoTransfer, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	var (
		transfer         model.AutoTransfer
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT savings_rate_pct, destination, is_active, version, created_at, updated_at
		FROM auto_transfers
		WHERE user_id = ?`, userID).Scan(
		&transfer.SavingsRatePct, &transfer.Destination, &transfer.IsActive,
		&transfer.Version, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("auto transfer", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auto transfer: %w", err)
	}

	transfer.UserID = userID
	if transfer.History, err = s.getTransferHistory(ctx, s.db, userID); err != nil {
		return nil, err
	}
	pending, err := s.getProposals(ctx, s.db, userID, true)
	if err != nil {
		return nil, err
	}

	transfer.CreatedAt, err = parseTime(created)
	if err == nil && (transfer.SavingsRatePct < 0 || transfer.SavingsRatePct > 100) {
		err = fmt.Errorf("savings rate %.1f out of range", transfer.SavingsRatePct)
	}
	if err != nil {
		slog.Warn("Treating malformed auto transfer as absent", "user_id", userID, "error", err)
		return s.recoveredTransfer(&transfer, pending), nil
	}
	if transfer.UpdatedAt, err = parseTime(updated); err != nil {
		transfer.UpdatedAt = transfer.CreatedAt
	}
	if len(pending) > 0 {
		transfer.PendingEscalation = &pending[0]
	}

	return &transfer, nil
}

// recoveredTransfer replaces an unreadable transfer row with an empty
// placeholder. Version and History are kept so the next save overwrites the
// row; a pending proposal made against the unreadable rate is rejected.
func (s *SQLiteStorage) recoveredTransfer(stored *model.AutoTransfer, pending []model.EscalationProposal) *model.AutoTransfer {
	recovered := &model.AutoTransfer{
		UserID:    stored.UserID,
		Version:   stored.Version,
		History:   stored.History,
		Recovered: true,
	}
	now := s.now()
	for _, p := range pending {
		p.Status = model.ProposalRejected
		p.ResolvedAt = &now
		recovered.Resolved = append(recovered.Resolved, p)
	}
	return recovered
}

// SaveAutoTransfer persists the current transfer row and appends any new
// history and proposal rows in one transaction.
//
// transfer.Version must equal the stored version (0 for a new record);
// otherwise ErrStaleWrite is returned and nothing is written. On success the
// version is incremented and the resolved proposal list is cleared.
func (s *SQLiteStorage) SaveAutoTransfer(ctx context.Context, userID string, transfer *model.AutoTransfer) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateAutoTransfer(transfer); err != nil {
		return err
	}

	now := s.now()
	if transfer.CreatedAt.IsZero() {
		transfer.CreatedAt = now
	}
	if transfer.UpdatedAt.IsZero() {
		transfer.UpdatedAt = now
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.writeTransferRow(ctx, tx, userID, transfer); err != nil {
			return err
		}
		if err := s.appendTransferHistory(ctx, tx, userID, transfer.History); err != nil {
			return err
		}
		// Resolved rows go first so the pending slot is free for a replacement.
		for i := range transfer.Resolved {
			if err := s.upsertProposal(ctx, tx, userID, &transfer.Resolved[i]); err != nil {
				return err
			}
		}
		if transfer.PendingEscalation != nil {
			return s.upsertProposal(ctx, tx, userID, transfer.PendingEscalation)
		}
		return nil
	})
	if err != nil {
		return err
	}

	transfer.UserID = userID
	transfer.Version++
	transfer.Resolved = nil
	transfer.Recovered = false
	return nil
}

// GetEscalationProposals returns every proposal a user has received, oldest first.
func (s *SQLiteStorage) GetEscalationProposals(ctx context.Context, userID string) ([]model.EscalationProposal, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}
	return s.getProposals(ctx, s.db, userID, false)
}

func (s *SQLiteStorage) writeTransferRow(ctx context.Context, tx *sql.Tx, userID string, transfer *model.AutoTransfer) error {
	var current int
	err := tx.QueryRowContext(ctx,
		"SELECT version FROM auto_transfers WHERE user_id = ?", userID).Scan(&current)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if transfer.Version != 0 {
			return fmt.Errorf("%w: auto transfer for %q no longer exists", ErrStaleWrite, userID)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO auto_transfers (
				user_id, savings_rate_pct, destination, is_active, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, 1, ?, ?)`,
			userID, transfer.SavingsRatePct, transfer.Destination, transfer.IsActive,
			formatTime(transfer.CreatedAt), formatTime(transfer.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert auto transfer: %w", err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("failed to read auto transfer version: %w", err)

	case current != transfer.Version:
		return fmt.Errorf("%w: auto transfer for %q is at version %d, write based on %d",
			ErrStaleWrite, userID, current, transfer.Version)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE auto_transfers
		SET savings_rate_pct = ?, destination = ?, is_active = ?,
		    version = version + 1, created_at = ?, updated_at = ?
		WHERE user_id = ? AND version = ?`,
		transfer.SavingsRatePct, transfer.Destination, transfer.IsActive,
		formatTime(transfer.CreatedAt), formatTime(transfer.UpdatedAt), userID, transfer.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update auto transfer: %w", err)
	}
	return nil
}

// appendTransferHistory inserts the entries of history that are not yet stored.
// Stored entries are never rewritten.
func (s *SQLiteStorage) appendTransferHistory(ctx context.Context, tx *sql.Tx, userID string, history []model.RateChange) error {
	var stored int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transfer_history WHERE user_id = ?", userID).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count transfer history: %w", err)
	}
	if len(history) < stored {
		return fmt.Errorf("%w: transfer history has %d stored entries, got %d",
			ErrStaleWrite, stored, len(history))
	}

	for _, change := range history[stored:] {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transfer_history (user_id, action, old_rate, new_rate, reason, at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			userID, string(change.Action), change.OldRate, change.NewRate,
			change.Reason, formatTime(change.At),
		)
		if err != nil {
			return fmt.Errorf("failed to append transfer history: %w", err)
		}
	}
	return nil
}

// upsertProposal inserts a proposal or records its resolution.
// Only status and resolved_at change after the first insert.
func (s *SQLiteStorage) upsertProposal(ctx context.Context, tx *sql.Tx, userID string, p *model.EscalationProposal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO escalation_proposals (
			id, user_id, old_rate, new_rate, reason, status, created_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			resolved_at = excluded.resolved_at
		WHERE escalation_proposals.status = 'pending'`,
		p.ID, userID, p.OldRate, p.NewRate, p.Reason, string(p.Status),
		formatTime(p.CreatedAt), formatNullTime(p.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save escalation proposal %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) getTransferHistory(ctx context.Context, q queryable, userID string) ([]model.RateChange, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT action, old_rate, new_rate, reason, at
		FROM transfer_history
		WHERE user_id = ?
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfer history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := []model.RateChange{}
	for rows.Next() {
		var (
			change     model.RateChange
			action, at string
		)
		if err := rows.Scan(&action, &change.OldRate, &change.NewRate, &change.Reason, &at); err != nil {
			return nil, fmt.Errorf("failed to scan transfer history: %w", err)
		}
		change.Action = model.RateAction(action)
		// A bad timestamp still counts as a stored entry; history length must
		// stay aligned with the table for appends.
		change.At, _ = parseTime(at)
		history = append(history, change)
	}

	return history, rows.Err()
}

func (s *SQLiteStorage) getProposals(ctx context.Context, q queryable, userID string, pendingOnly bool) ([]model.EscalationProposal, error) {
	query := `
		SELECT id, old_rate, new_rate, reason, status, created_at, resolved_at
		FROM escalation_proposals
		WHERE user_id = ?`
	if pendingOnly {
		query += " AND status = 'pending'"
	}
	query += " ORDER BY created_at, rowid"

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query escalation proposals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	proposals := []model.EscalationProposal{}
	for rows.Next() {
		var (
			p               model.EscalationProposal
			status, created string
			resolved        sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.OldRate, &p.NewRate, &p.Reason, &status, &created, &resolved); err != nil {
			return nil, fmt.Errorf("failed to scan escalation proposal: %w", err)
		}
		if p.CreatedAt, err = parseTime(created); err != nil {
			slog.Warn("Skipping malformed escalation proposal", "user_id", userID, "id", p.ID, "error", err)
			continue
		}
		p.Status = model.ProposalStatus(status)
		p.ResolvedAt, _ = parseNullTime(resolved)
		proposals = append(proposals, p)
	}

	return proposals, rows.Err()
}
