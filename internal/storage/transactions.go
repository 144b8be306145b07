package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/service"
)

// SaveTransactions inserts new transactions and updates ones already stored
// under the same id.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, userID string, transactions []model.Transaction) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveTransactionsTx(ctx, tx, userID, transactions)
	})
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, tx *sql.Tx, userID string, transactions []model.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			user_id, id, item_id, account_id, hash, date, name,
			merchant, raw_category, amount, pending, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			item_id = excluded.item_id,
			account_id = excluded.account_id,
			hash = excluded.hash,
			date = excluded.date,
			name = excluded.name,
			merchant = excluded.merchant,
			raw_category = excluded.raw_category,
			amount = excluded.amount,
			pending = excluded.pending`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	created := formatTime(s.now())
	for i := range transactions {
		txn := &transactions[i]
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		_, err := stmt.ExecContext(ctx,
			userID, txn.ID, txn.ItemID, txn.AccountID, txn.Hash, formatDate(txn.Date),
			txn.Name, txn.Merchant, txn.RawCategory, txn.Amount, txn.Pending, created,
		)
		if err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	return nil
}

// DeleteTransactions removes transactions by id. Unknown ids are ignored.
func (s *SQLiteStorage) DeleteTransactions(ctx context.Context, userID string, ids []string) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM transactions WHERE user_id = ? AND id = ?", userID, id); err != nil {
				return fmt.Errorf("failed to delete transaction %s: %w", id, err)
			}
		}
		return nil
	})
}

// DeleteItemTransactions removes every transaction that came from one bank connection.
func (s *SQLiteStorage) DeleteItemTransactions(ctx context.Context, userID, itemID string) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if err := validateString(itemID, "itemID"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE user_id = ? AND item_id = ?", userID, itemID); err != nil {
		return fmt.Errorf("failed to delete transactions for item %s: %w", itemID, err)
	}
	return nil
}

// GetTransactions returns a user's transactions, newest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, userID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if filter.StartDate != nil {
		where = append(where, "date >= ?")
		args = append(args, formatDate(*filter.StartDate))
	}
	if filter.EndDate != nil {
		where = append(where, "date <= ?")
		args = append(args, formatDate(*filter.EndDate))
	}
	if filter.ItemID != "" {
		where = append(where, "item_id = ?")
		args = append(args, filter.ItemID)
	}

	query := `
		SELECT id, item_id, account_id, hash, date, name, merchant, raw_category, amount, pending
		FROM transactions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY date DESC, rowid DESC`
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transactions := []model.Transaction{}
	for rows.Next() {
		var (
			txn  model.Transaction
			date string
		)
		if err := rows.Scan(&txn.ID, &txn.ItemID, &txn.AccountID, &txn.Hash, &date,
			&txn.Name, &txn.Merchant, &txn.RawCategory, &txn.Amount, &txn.Pending); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if txn.Date, err = parseDate(date); err != nil {
			slog.Warn("Skipping malformed transaction", "user_id", userID, "id", txn.ID, "error", err)
			continue
		}
		transactions = append(transactions, txn)
	}

	return transactions, rows.Err()
}

// SaveCategoryOverride pins a transaction to a category, replacing any earlier override.
func (s *SQLiteStorage) SaveCategoryOverride(ctx context.Context, userID string, override *model.CategoryOverride) error {
	if err := validateScope(ctx, userID); err != nil {
		return err
	}
	if override == nil {
		return fmt.Errorf("%w: category override", ErrNilParameter)
	}
	if err := validateString(override.TransactionID, "override.TransactionID"); err != nil {
		return err
	}
	if err := validateString(override.Category, "override.Category"); err != nil {
		return err
	}

	if override.OverriddenAt.IsZero() {
		override.OverriddenAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_overrides (user_id, transaction_id, category, overridden_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, transaction_id) DO UPDATE SET
			category = excluded.category,
			overridden_at = excluded.overridden_at`,
		userID, override.TransactionID, override.Category, formatTime(override.OverriddenAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save category override: %w", err)
	}
	return nil
}

// GetCategoryOverrides returns a user's overrides keyed by transaction id.
func (s *SQLiteStorage) GetCategoryOverrides(ctx context.Context, userID string) (map[string]model.CategoryOverride, error) {
	if err := validateScope(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, category, overridden_at
		FROM category_overrides
		WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category overrides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	overrides := make(map[string]model.CategoryOverride)
	for rows.Next() {
		var (
			o  model.CategoryOverride
			at string
		)
		if err := rows.Scan(&o.TransactionID, &o.Category, &at); err != nil {
			return nil, fmt.Errorf("failed to scan category override: %w", err)
		}
		o.OverriddenAt, _ = parseTime(at)
		overrides[o.TransactionID] = o
	}

	return overrides, rows.Err()
}
