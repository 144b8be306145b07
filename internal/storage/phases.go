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

// GetPhaseState loads a user's current phase and transition history.
//
// An unreadable current row is rebuilt from the transition history: the user
// stays in the stored phase when it is known, otherwise in the last phase the
// history reached. The rebuilt state restarts its phase clock now and is
// marked Recovered so the caller saves it over the bad row.
func (s *SQLiteStorage) GetPhaseState(ctx context.Context, userID string) (*model.UserPhaseState, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	var (
		phase, entered string
		state          model.UserPhaseState
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT current_phase, phase_entered_at
		FROM user_phases
		WHERE user_id = ?`, userID).Scan(&phase, &entered)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("phase state", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get phase state: %w", err)
	}

	state.UserID = userID
	if state.History, err = s.getPhaseTransitions(ctx, userID); err != nil {
		return nil, err
	}

	state.CurrentPhase = model.Phase(phase)
	state.PhaseEnteredAt, err = parseTime(entered)
	if state.CurrentPhase.Valid() && err == nil {
		return &state, nil
	}

	if !state.CurrentPhase.Valid() {
		state.CurrentPhase = state.LastReachedPhase()
	}
	state.PhaseEnteredAt = s.now()
	state.Recovered = true
	slog.Warn("Rebuilt malformed phase state from history",
		"user_id", userID,
		"stored_phase", phase,
		"phase", state.CurrentPhase)
	return &state, nil
}

func (s *SQLiteStorage) getPhaseTransitions(ctx context.Context, userID string) ([]model.PhaseTransition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_phase, to_phase, at
		FROM phase_transitions
		WHERE user_id = ?
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query phase transitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := []model.PhaseTransition{}
	for rows.Next() {
		var (
			t            model.PhaseTransition
			from, to, at string
		)
		if err := rows.Scan(&from, &to, &at); err != nil {
			return nil, fmt.Errorf("failed to scan phase transition: %w", err)
		}
		t.From = model.Phase(from)
		t.To = model.Phase(to)
		t.At, _ = parseTime(at)
		history = append(history, t)
	}
	return history, rows.Err()
}

// SavePhaseState writes the current phase row and appends new transitions
// in one transaction. Stored transitions are never rewritten.
func (s *SQLiteStorage) SavePhaseState(ctx context.Context, userID string, state *model.UserPhaseState) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validatePhaseState(state); err != nil {
		return err
	}

	if state.PhaseEnteredAt.IsZero() {
		state.PhaseEnteredAt = s.now()
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_phases (user_id, current_phase, phase_entered_at)
			VALUES (?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				current_phase = excluded.current_phase,
				phase_entered_at = excluded.phase_entered_at`,
			userID, string(state.CurrentPhase), formatTime(state.PhaseEnteredAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save phase state: %w", err)
		}

		var stored int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM phase_transitions WHERE user_id = ?", userID).Scan(&stored); err != nil {
			return fmt.Errorf("failed to count phase transitions: %w", err)
		}
		if len(state.History) < stored {
			return fmt.Errorf("%w: phase history has %d stored entries, got %d",
				ErrStaleWrite, stored, len(state.History))
		}

		for _, t := range state.History[stored:] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO phase_transitions (user_id, from_phase, to_phase, at)
				VALUES (?, ?, ?, ?)`,
				userID, string(t.From), string(t.To), formatTime(t.At),
			)
			if err != nil {
				return fmt.Errorf("failed to append phase transition: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	state.Recovered = false
	return nil
}
