package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
)

// AppendWeeklyReview stores a generated weekly review. Reviews are immutable
// apart from acknowledgment.
func (s *SQLiteStorage) AppendWeeklyReview(ctx context.Context, userID string, review *model.WeeklyReview) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if review == nil {
		return fmt.Errorf("%w: weekly review", ErrNilParameter)
	}
	if err := validateString(review.ID, "review.ID"); err != nil {
		return err
	}

	categories, err := json.Marshal(review.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal review categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO weekly_reviews (
			id, user_id, period_start, period_end, generated_at, total,
			categories, acknowledged, acknowledged_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		review.ID, userID, formatTime(review.PeriodStart), formatTime(review.PeriodEnd),
		formatTime(review.GeneratedAt), review.Total, string(categories),
		review.Acknowledged, formatNullTime(review.AcknowledgedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append weekly review: %w", err)
	}
	return nil
}

// GetWeeklyReview returns one review by id.
func (s *SQLiteStorage) GetWeeklyReview(ctx context.Context, userID, id string) (*model.WeeklyReview, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getWeeklyReviewTx(ctx, s.db, userID, id)
}

func (s *SQLiteStorage) getWeeklyReviewTx(ctx context.Context, q queryable, userID, id string) (*model.WeeklyReview, error) {
	var (
		review                      model.WeeklyReview
		start, end, generated, cats string
		acknowledgedAt              sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, period_start, period_end, generated_at, total, categories,
		       acknowledged, acknowledged_at
		FROM weekly_reviews
		WHERE user_id = ? AND id = ?`, userID, id).Scan(
		&review.ID, &start, &end, &generated, &review.Total, &cats,
		&review.Acknowledged, &acknowledgedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("weekly review", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly review: %w", err)
	}

	review.PeriodStart, _ = parseTime(start)
	review.PeriodEnd, _ = parseTime(end)
	review.GeneratedAt, _ = parseTime(generated)
	review.AcknowledgedAt, _ = parseNullTime(acknowledgedAt)

	if err := json.Unmarshal([]byte(cats), &review.Categories); err != nil {
		slog.Warn("Weekly review has malformed categories", "user_id", userID, "id", id, "error", err)
		review.Categories = []model.CategoryTotal{}
	}

	return &review, nil
}

// AcknowledgeWeeklyReview marks a review as seen. Acknowledging an already
// acknowledged review keeps the original acknowledgment time.
func (s *SQLiteStorage) AcknowledgeWeeklyReview(ctx context.Context, userID, id string, at time.Time) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getWeeklyReviewTx(ctx, tx, userID, id); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE weekly_reviews
			SET acknowledged = 1, acknowledged_at = ?
			WHERE user_id = ? AND id = ? AND acknowledged = 0`,
			formatTime(at), userID, id,
		)
		if err != nil {
			return fmt.Errorf("failed to acknowledge weekly review: %w", err)
		}
		return nil
	})
}
