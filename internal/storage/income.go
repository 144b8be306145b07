package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/moneyplanner/internal/model"
)

// AppendIncomeEvent stores a new income event. Events are never updated.
func (s *SQLiteStorage) AppendIncomeEvent(ctx context.Context, userID string, event *model.IncomeEvent) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateIncomeEvent(event); err != nil {
		return err
	}
	return s.insertIncomeEvent(ctx, s.db, userID, event)
}

func (s *SQLiteStorage) insertIncomeEvent(ctx context.Context, q queryable, userID string, event *model.IncomeEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO income_events (
			id, user_id, amount, date, source, source_description,
			is_recurring, rolling_average, change_flag, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, userID, event.Amount, formatDate(event.Date), string(event.Source),
		event.SourceDescription, event.IsRecurring, nullFloat(event.RollingAverage),
		string(event.ChangeFlag), formatTime(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append income event: %w", err)
	}
	return nil
}

// GetIncomeEvents returns a user's income events in the order they were logged.
// Rows that cannot be decoded are skipped.
func (s *SQLiteStorage) GetIncomeEvents(ctx context.Context, userID string) ([]model.IncomeEvent, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, date, source, source_description, is_recurring,
		       rolling_average, change_flag, created_at
		FROM income_events
		WHERE user_id = ?
		ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query income events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []model.IncomeEvent{}
	for rows.Next() {
		var (
			event              model.IncomeEvent
			date, created      string
			source, changeFlag string
			rolling            sql.NullFloat64
		)
		if err := rows.Scan(&event.ID, &event.Amount, &date, &source, &event.SourceDescription,
			&event.IsRecurring, &rolling, &changeFlag, &created); err != nil {
			return nil, fmt.Errorf("failed to scan income event: %w", err)
		}

		if event.Date, err = parseDate(date); err != nil {
			slog.Warn("Skipping malformed income event", "user_id", userID, "id", event.ID, "error", err)
			continue
		}
		if event.CreatedAt, err = parseTime(created); err != nil {
			slog.Warn("Skipping malformed income event", "user_id", userID, "id", event.ID, "error", err)
			continue
		}
		event.Source = model.IncomeSource(source)
		event.ChangeFlag = model.IncomeChange(changeFlag)
		event.RollingAverage = floatPtr(rolling)

		events = append(events, event)
	}

	return events, rows.Err()
}

// CountIncomeEvents returns how many income events a user has logged.
func (s *SQLiteStorage) CountIncomeEvents(ctx context.Context, userID string) (int, error) {
	if err := validateScope(ctx, userID); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM income_events WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count income events: %w", err)
	}
	return count, nil
}

// AppendManualIncome stores a hand-entered income record and the income
// event derived from it in one transaction. Neither is written if either
// insert fails.
func (s *SQLiteStorage) AppendManualIncome(ctx context.Context, userID string, log *model.ManualIncomeLog, event *model.IncomeEvent) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if log == nil {
		return fmt.Errorf("%w: income log", ErrNilParameter)
	}
	if err := validateString(log.ID, "log.ID"); err != nil {
		return err
	}
	if err := validateIncomeEvent(event); err != nil {
		return err
	}

	if log.CreatedAt.IsZero() {
		log.CreatedAt = s.now()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO manual_income_logs (
				id, user_id, amount, date, source_description, is_recurring, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			log.ID, userID, log.Amount, formatDate(log.Date), log.SourceDescription,
			log.IsRecurring, formatTime(log.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to append income log: %w", err)
		}
		return s.insertIncomeEvent(ctx, tx, userID, event)
	})
}

// AppendSavingsLog stores a manual savings record.
func (s *SQLiteStorage) AppendSavingsLog(ctx context.Context, userID string, log *model.ManualSavingsLog) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if log == nil {
		return fmt.Errorf("%w: savings log", ErrNilParameter)
	}
	if err := validateString(log.ID, "log.ID"); err != nil {
		return err
	}

	if log.CreatedAt.IsZero() {
		log.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO savings_logs (
			id, user_id, amount, date, destination_description,
			savings_rate_at_time, rate_adherence, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, userID, log.Amount, formatDate(log.Date), log.DestinationDescription,
		log.SavingsRateAtTime, nullFloat(log.RateAdherence), formatTime(log.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append savings log: %w", err)
	}
	return nil
}

// GetSavingsLogs returns a user's savings logs in the order they were logged.
func (s *SQLiteStorage) GetSavingsLogs(ctx context.Context, userID string) ([]model.ManualSavingsLog, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, date, destination_description, savings_rate_at_time,
		       rate_adherence, created_at
		FROM savings_logs
		WHERE user_id = ?
		ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query savings logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := []model.ManualSavingsLog{}
	for rows.Next() {
		var (
			log           model.ManualSavingsLog
			date, created string
			adherence     sql.NullFloat64
		)
		if err := rows.Scan(&log.ID, &log.Amount, &date, &log.DestinationDescription,
			&log.SavingsRateAtTime, &adherence, &created); err != nil {
			return nil, fmt.Errorf("failed to scan savings log: %w", err)
		}

		if log.Date, err = parseDate(date); err != nil {
			slog.Warn("Skipping malformed savings log", "user_id", userID, "id", log.ID, "error", err)
			continue
		}
		if log.CreatedAt, err = parseTime(created); err != nil {
			slog.Warn("Skipping malformed savings log", "user_id", userID, "id", log.ID, "error", err)
			continue
		}
		log.RateAdherence = floatPtr(adherence)

		logs = append(logs, log)
	}

	return logs, rows.Err()
}
