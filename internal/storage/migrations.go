package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS income_events (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					amount REAL NOT NULL,
					date TEXT NOT NULL,
					source TEXT NOT NULL,
					source_description TEXT NOT NULL DEFAULT '',
					is_recurring INTEGER NOT NULL DEFAULT 0,
					rolling_average REAL,
					change_flag TEXT NOT NULL DEFAULT '',
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_income_events_user ON income_events(user_id)`,

				`CREATE TABLE IF NOT EXISTS manual_income_logs (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					amount REAL NOT NULL,
					date TEXT NOT NULL,
					source_description TEXT NOT NULL DEFAULT '',
					is_recurring INTEGER NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_manual_income_logs_user ON manual_income_logs(user_id)`,

				`CREATE TABLE IF NOT EXISTS savings_logs (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					amount REAL NOT NULL,
					date TEXT NOT NULL,
					destination_description TEXT NOT NULL DEFAULT '',
					savings_rate_at_time REAL NOT NULL,
					rate_adherence REAL,
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_savings_logs_user ON savings_logs(user_id)`,

				`CREATE TABLE IF NOT EXISTS auto_transfers (
					user_id TEXT PRIMARY KEY,
					savings_rate_pct REAL NOT NULL,
					destination TEXT NOT NULL,
					is_active INTEGER NOT NULL DEFAULT 1,
					version INTEGER NOT NULL,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS transfer_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id TEXT NOT NULL,
					action TEXT NOT NULL,
					old_rate REAL NOT NULL,
					new_rate REAL NOT NULL,
					reason TEXT NOT NULL DEFAULT '',
					at TEXT NOT NULL,
					FOREIGN KEY (user_id) REFERENCES auto_transfers(user_id)
				)`,
				`CREATE INDEX idx_transfer_history_user ON transfer_history(user_id)`,
				`CREATE TABLE IF NOT EXISTS escalation_proposals (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					old_rate REAL NOT NULL,
					new_rate REAL NOT NULL,
					reason TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL,
					created_at TEXT NOT NULL,
					resolved_at TEXT,
					FOREIGN KEY (user_id) REFERENCES auto_transfers(user_id)
				)`,
				`CREATE UNIQUE INDEX idx_escalation_proposals_pending
					ON escalation_proposals(user_id) WHERE status = 'pending'`,

				`CREATE TABLE IF NOT EXISTS user_phases (
					user_id TEXT PRIMARY KEY,
					current_phase TEXT NOT NULL,
					phase_entered_at TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS phase_transitions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id TEXT NOT NULL,
					from_phase TEXT NOT NULL,
					to_phase TEXT NOT NULL,
					at TEXT NOT NULL,
					FOREIGN KEY (user_id) REFERENCES user_phases(user_id)
				)`,
				`CREATE INDEX idx_phase_transitions_user ON phase_transitions(user_id)`,

				`CREATE TABLE IF NOT EXISTS weekly_reviews (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					period_start TEXT NOT NULL,
					period_end TEXT NOT NULL,
					generated_at TEXT NOT NULL,
					total REAL NOT NULL,
					categories TEXT NOT NULL,
					acknowledged INTEGER NOT NULL DEFAULT 0,
					acknowledged_at TEXT
				)`,
				`CREATE INDEX idx_weekly_reviews_user ON weekly_reviews(user_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add transactions, bank connections and category overrides",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					user_id TEXT NOT NULL,
					id TEXT NOT NULL,
					item_id TEXT NOT NULL DEFAULT '',
					account_id TEXT NOT NULL DEFAULT '',
					hash TEXT NOT NULL,
					date TEXT NOT NULL,
					name TEXT NOT NULL,
					merchant TEXT NOT NULL DEFAULT '',
					raw_category TEXT NOT NULL DEFAULT '',
					amount REAL NOT NULL,
					pending INTEGER NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL,
					PRIMARY KEY (user_id, id)
				)`,
				`CREATE INDEX idx_transactions_user_date ON transactions(user_id, date)`,
				`CREATE INDEX idx_transactions_item ON transactions(user_id, item_id)`,

				`CREATE TABLE IF NOT EXISTS category_overrides (
					user_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL,
					category TEXT NOT NULL,
					overridden_at TEXT NOT NULL,
					PRIMARY KEY (user_id, transaction_id)
				)`,

				`CREATE TABLE IF NOT EXISTS plaid_items (
					user_id TEXT NOT NULL,
					item_id TEXT NOT NULL,
					access_token TEXT NOT NULL,
					institution_name TEXT NOT NULL DEFAULT '',
					institution_id TEXT NOT NULL DEFAULT '',
					cursor TEXT NOT NULL DEFAULT '',
					connected_at TEXT NOT NULL,
					last_sync TEXT,
					PRIMARY KEY (user_id, item_id)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add budgets, budget items and safeguards",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS budgets (
					user_id TEXT PRIMARY KEY,
					monthly_income REAL,
					fixed_expenses REAL,
					savings_target REAL,
					updated_at TEXT NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS budget_items (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					category TEXT NOT NULL,
					name TEXT NOT NULL,
					classification TEXT NOT NULL,
					budget_amount REAL NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL,
					updated_at TEXT
				)`,
				`CREATE INDEX idx_budget_items_user ON budget_items(user_id)`,

				`CREATE TABLE IF NOT EXISTS safeguards (
					user_id TEXT PRIMARY KEY,
					gamification_active INTEGER NOT NULL DEFAULT 1,
					holiday_until TEXT
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Add budget hard stops, benchmark settings and group goals",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE budget_items ADD COLUMN hard_stop INTEGER NOT NULL DEFAULT 0`,

				`CREATE TABLE IF NOT EXISTS benchmark_settings (
					user_id TEXT PRIMARY KEY,
					opt_in INTEGER NOT NULL DEFAULT 0,
					updated_at TEXT NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS group_goals (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					name TEXT NOT NULL,
					target REAL NOT NULL,
					member_ids TEXT NOT NULL,
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_group_goals_user ON group_goals(user_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
