package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
)

// GetBenchmarkSettings returns a user's peer benchmark opt-in.
func (s *SQLiteStorage) GetBenchmarkSettings(ctx context.Context, userID string) (*model.BenchmarkSettings, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	var (
		settings model.BenchmarkSettings
		updated  string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT opt_in, updated_at
		FROM benchmark_settings
		WHERE user_id = ?`, userID).Scan(&settings.OptIn, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("benchmark settings", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get benchmark settings: %w", err)
	}

	settings.UpdatedAt, _ = parseTime(updated)
	return &settings, nil
}

// SaveBenchmarkSettings replaces a user's peer benchmark opt-in.
func (s *SQLiteStorage) SaveBenchmarkSettings(ctx context.Context, userID string, settings *model.BenchmarkSettings) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if settings == nil {
		return fmt.Errorf("%w: benchmark settings", ErrNilParameter)
	}

	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO benchmark_settings (user_id, opt_in, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			opt_in = excluded.opt_in,
			updated_at = excluded.updated_at`,
		userID, settings.OptIn, formatTime(settings.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save benchmark settings: %w", err)
	}
	return nil
}

// CreateGroupGoal stores a new group goal owned by userID. Progress is not
// stored.
func (s *SQLiteStorage) CreateGroupGoal(ctx context.Context, userID string, goal *model.GroupGoal) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateGroupGoal(goal); err != nil {
		return err
	}

	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = s.now()
	}
	members, err := json.Marshal(goal.MemberIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal group members: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO group_goals (id, user_id, name, target, member_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		goal.ID, userID, goal.Name, goal.Target, string(members), formatTime(goal.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create group goal: %w", err)
	}
	return nil
}

// GetGroupGoal returns one of the group goals userID created.
func (s *SQLiteStorage) GetGroupGoal(ctx context.Context, userID, id string) (*model.GroupGoal, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var (
		goal             model.GroupGoal
		members, created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, target, member_ids, created_at
		FROM group_goals
		WHERE user_id = ? AND id = ?`, userID, id).Scan(&goal.Name, &goal.Target, &members, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("group goal", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group goal: %w", err)
	}

	goal.ID = id
	goal.CreatorID = userID
	if goal.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("%w: group goal %s has malformed created_at", ErrInvalidRecord, id)
	}
	if err := json.Unmarshal([]byte(members), &goal.MemberIDs); err != nil {
		slog.Warn("Group goal has malformed members", "user_id", userID, "id", id, "error", err)
		goal.MemberIDs = []string{userID}
	}
	return &goal, nil
}
