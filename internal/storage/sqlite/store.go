// Package sqlite provides the SQLite-backed counter store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/louisbranch/moecount/internal/platform/errors"
	"github.com/louisbranch/moecount/internal/storage"
	"github.com/louisbranch/moecount/internal/storage/sqlite/migrations"
	"github.com/louisbranch/moecount/internal/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store persists counters in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite counter store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetNum returns the durable count for name, zero when absent.
func (s *Store) GetNum(ctx context.Context, name string) (storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return storage.Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Record{}, fmt.Errorf("storage is not configured")
	}

	var count int64
	row := s.sqlDB.QueryRowContext(ctx, "SELECT count FROM counters WHERE name = ?", name)
	if err := row.Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return storage.Record{Name: name, Count: 0}, nil
		}
		return storage.Record{}, errors.Wrap(errors.CodeStoreFailure, "get counter", err)
	}
	return storage.Record{Name: name, Count: uint64(count)}, nil
}

// GetAll returns every counter record, ordered by name.
func (s *Store) GetAll(ctx context.Context) ([]storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT name, count FROM counters ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(errors.CodeStoreFailure, "list counters", err)
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, errors.Wrap(errors.CodeStoreFailure, "scan counter", err)
		}
		records = append(records, storage.Record{Name: name, Count: uint64(count)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeStoreFailure, "iterate counters", err)
	}
	return records, nil
}

// SetNum upserts one counter to an absolute count.
func (s *Store) SetNum(ctx context.Context, name string, count uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO counters (name, count) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET count = excluded.count
`, name, int64(count))
	if err != nil {
		return errors.Wrap(errors.CodeStoreFailure, "set counter", err)
	}
	return nil
}

// SetNumMulti upserts every record inside one transaction.
func (s *Store) SetNumMulti(ctx context.Context, records []storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.CodeStoreFailure, "begin counter batch", err)
	}
	for _, record := range records {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO counters (name, count) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET count = excluded.count
`, record.Name, int64(record.Count)); err != nil {
			_ = tx.Rollback()
			return errors.Wrap(errors.CodeStoreFailure, "set counter batch", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.CodeStoreFailure, "commit counter batch", err)
	}
	return nil
}

// Increment atomically adds delta to name, creating it when absent, and
// returns the new count. The upsert runs as a single statement so concurrent
// writers cannot lose updates.
func (s *Store) Increment(ctx context.Context, name string, delta uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var count int64
	row := s.sqlDB.QueryRowContext(ctx, `
INSERT INTO counters (name, count) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET count = count + excluded.count
RETURNING count
`, name, int64(delta))
	if err := row.Scan(&count); err != nil {
		return 0, errors.Wrap(errors.CodeStoreFailure, "increment counter", err)
	}
	return uint64(count), nil
}
