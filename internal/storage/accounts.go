package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
)

// SavePlaidItem stores or updates a bank connection. The access token is
// expected to be encrypted by the caller.
func (s *SQLiteStorage) SavePlaidItem(ctx context.Context, userID string, item *model.PlaidItem) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: plaid item", ErrNilParameter)
	}
	if err := validateString(item.ItemID, "item.ItemID"); err != nil {
		return err
	}
	if err := validateString(item.AccessToken, "item.AccessToken"); err != nil {
		return err
	}

	if item.ConnectedAt.IsZero() {
		item.ConnectedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plaid_items (
			user_id, item_id, access_token, institution_name, institution_id,
			cursor, connected_at, last_sync
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, item_id) DO UPDATE SET
			access_token = excluded.access_token,
			institution_name = excluded.institution_name,
			institution_id = excluded.institution_id,
			cursor = excluded.cursor,
			last_sync = excluded.last_sync`,
		userID, item.ItemID, item.AccessToken, item.InstitutionName, item.InstitutionID,
		item.Cursor, formatTime(item.ConnectedAt), formatNullTime(item.LastSync),
	)
	if err != nil {
		return fmt.Errorf("failed to save plaid item: %w", err)
	}
	return nil
}

// GetPlaidItem returns one bank connection.
func (s *SQLiteStorage) GetPlaidItem(ctx context.Context, userID, itemID string) (*model.PlaidItem, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}
	if err := validateString(itemID, "itemID"); err != nil {
		return nil, err
	}

	rows, err := s.queryPlaidItems(ctx, "user_id = ? AND item_id = ?", userID, itemID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.NotFound("plaid item", itemID)
	}
	return &rows[0], nil
}

// GetPlaidItems returns a user's bank connections in the order they were made.
func (s *SQLiteStorage) GetPlaidItems(ctx context.Context, userID string) ([]model.PlaidItem, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}
	return s.queryPlaidItems(ctx, "user_id = ?", userID)
}

// DeletePlaidItem removes a bank connection.
func (s *SQLiteStorage) DeletePlaidItem(ctx context.Context, userID, itemID string) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateString(itemID, "itemID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM plaid_items WHERE user_id = ? AND item_id = ?", userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete plaid item: %w", err)
	}
	return requireRow(result, "plaid item", itemID)
}

func (s *SQLiteStorage) queryPlaidItems(ctx context.Context, where string, args ...any) ([]model.PlaidItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, access_token, institution_name, institution_id, cursor,
		       connected_at, last_sync
		FROM plaid_items
		WHERE `+where+`
		ORDER BY connected_at, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plaid items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []model.PlaidItem{}
	for rows.Next() {
		var (
			item      model.PlaidItem
			connected string
			lastSync  sql.NullString
		)
		if err := rows.Scan(&item.ItemID, &item.AccessToken, &item.InstitutionName,
			&item.InstitutionID, &item.Cursor, &connected, &lastSync); err != nil {
			return nil, fmt.Errorf("failed to scan plaid item: %w", err)
		}
		item.ConnectedAt, _ = parseTime(connected)
		item.LastSync, _ = parseNullTime(lastSync)
		items = append(items, item)
	}

	return items, rows.Err()
}

// GetSafeguards returns a user's safeguard settings.
func (s *SQLiteStorage) GetSafeguards(ctx context.Context, userID string) (*model.Safeguards, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	var (
		safeguards model.Safeguards
		until      sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT gamification_active, holiday_until
		FROM safeguards
		WHERE user_id = ?`, userID).Scan(&safeguards.GamificationActive, &until)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("safeguards", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get safeguards: %w", err)
	}

	safeguards.HolidayUntil, _ = parseNullTime(until)
	return &safeguards, nil
}

// SaveSafeguards replaces a user's safeguard settings.
func (s *SQLiteStorage) SaveSafeguards(ctx context.Context, userID string, safeguards *model.Safeguards) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if safeguards == nil {
		return fmt.Errorf("%w: safeguards", ErrNilParameter)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO safeguards (user_id, gamification_active, holiday_until)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			gamification_active = excluded.gamification_active,
			holiday_until = excluded.holiday_until`,
		userID, safeguards.GamificationActive, formatNullTime(safeguards.HolidayUntil),
	)
	if err != nil {
		return fmt.Errorf("failed to save safeguards: %w", err)
	}
	return nil
}
