package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backup errors.
var (
	ErrBackupExists = errors.New("backup already exists")
	ErrInvalidPath  = errors.New("invalid backup path")
)

// BackupInfo describes a completed database backup.
type BackupInfo struct {
	CreatedAt     time.Time
	RowCounts     map[string]int
	Path          string
	FileSize      int64
	SchemaVersion int
}

// backupTables lists the tables reported in BackupInfo.RowCounts.
var backupTables = []string{
	"income_events",
	"auto_transfers",
	"escalation_proposals",
	"user_phases",
	"transactions",
	"weekly_reviews",
	"plaid_items",
}

// Backup writes a consistent copy of the database to destPath.
// An empty destPath places the backup in a "backups" directory next to the database.
func (s *SQLiteStorage) Backup(ctx context.Context, destPath string) (*BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	if destPath == "" {
		dir := filepath.Join(filepath.Dir(s.dbPath), "backups")
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create backups directory: %w", err)
		}
		destPath = filepath.Join(dir, fmt.Sprintf("planner-%s.db", s.now().Format("2006-01-02-150405")))
	}

	destPath, err := filepath.Abs(destPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	// VACUUM INTO takes a literal, so quotes and statement separators are rejected.
	if strings.ContainsAny(destPath, "'\";") {
		return nil, fmt.Errorf("%w: contains forbidden characters", ErrInvalidPath)
	}
	if _, statErr := os.Stat(destPath); statErr == nil {
		return nil, ErrBackupExists
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(backupTables))
	for _, table := range backupTables {
		var count int
		// #nosec G202 - table names come from the fixed list above
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = count
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	// #nosec G201 - destPath is validated above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return nil, fmt.Errorf("failed to backup database: %w", err)
	}

	stat, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	return &BackupInfo{
		Path:          destPath,
		CreatedAt:     s.now(),
		FileSize:      stat.Size(),
		RowCounts:     counts,
		SchemaVersion: version,
	}, nil
}
