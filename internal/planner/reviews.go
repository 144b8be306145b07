package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/monitor"
	"github.com/Veraticus/moneyplanner/internal/phase"
	"github.com/Veraticus/moneyplanner/internal/service"
)

// HolidayLength is how long a gamification holiday lasts.
const HolidayLength = 14 * 24 * time.Hour

// GenerateWeeklyReview summarizes the past week's spending and stores the
// review.
func (p *Planner) GenerateWeeklyReview(ctx context.Context, userID string) (*model.WeeklyReview, error) {
	var review *model.WeeklyReview
	err := p.withUserLock(ctx, userID, func() error {
		if err := p.requireFeature(ctx, userID, phase.FeatureWeeklyReview); err != nil {
			return err
		}

		now := p.now()
		since := now.Add(-monitor.ReviewWindow)
		txns, err := p.categorized(ctx, userID, service.TransactionFilter{StartDate: &since})
		if err != nil {
			return err
		}

		review = monitor.NewWeeklyReview(txns, now)
		if err := p.storage.AppendWeeklyReview(ctx, userID, review); err != nil {
			return fmt.Errorf("failed to save weekly review: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Generated weekly review",
		"user_id", userID,
		"review_id", review.ID,
		"total", review.Total,
		"transactions", monitor.TransactionCount(review))
	return review, nil
}

// AcknowledgeReview marks a stored review as seen. Acknowledging twice keeps
// the first acknowledgment time.
func (p *Planner) AcknowledgeReview(ctx context.Context, userID, reviewID string) (*model.WeeklyReview, error) {
	if reviewID == "" {
		return nil, fmt.Errorf("%w: review id is required", common.ErrInvalidInput)
	}

	var review *model.WeeklyReview
	err := p.withUserLock(ctx, userID, func() error {
		if err := p.storage.AcknowledgeWeeklyReview(ctx, userID, reviewID, p.now()); err != nil {
			return err
		}
		var err error
		review, err = p.storage.GetWeeklyReview(ctx, userID, reviewID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// SafeguardStatus is the user's protective settings as of LastChecked.
type SafeguardStatus struct {
	LastChecked          time.Time  `json:"last_checked"`
	HolidayUntil         *time.Time `json:"gamification_holiday_until"`
	UserID               string     `json:"user_id"`
	FailureModesDetected []string   `json:"failure_modes_detected"`
	GamificationActive   bool       `json:"gamification_active"`
}

// Safeguards returns the user's safeguard status. Gamification is active
// unless a holiday is running; an expired holiday no longer counts.
func (p *Planner) Safeguards(ctx context.Context, userID string) (*SafeguardStatus, error) {
	now := p.now()
	status := &SafeguardStatus{
		UserID:               userID,
		GamificationActive:   true,
		FailureModesDetected: []string{},
		LastChecked:          now,
	}

	stored, err := p.storage.GetSafeguards(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load safeguards: %w", err)
	}

	status.HolidayUntil = stored.HolidayUntil
	status.GamificationActive = stored.GamificationActive
	if stored.HolidayUntil != nil && !stored.HolidayUntil.After(now) {
		status.GamificationActive = true
	}
	return status, nil
}

// StartHoliday pauses gamification for HolidayLength.
func (p *Planner) StartHoliday(ctx context.Context, userID string) (*model.Safeguards, error) {
	var safeguards *model.Safeguards
	err := p.withUserLock(ctx, userID, func() error {
		until := p.now().Add(HolidayLength)
		safeguards = &model.Safeguards{
			GamificationActive: false,
			HolidayUntil:       &until,
		}
		if err := p.storage.SaveSafeguards(ctx, userID, safeguards); err != nil {
			return fmt.Errorf("failed to save safeguards: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Started gamification holiday", "user_id", userID, "until", safeguards.HolidayUntil)
	return safeguards, nil
}
