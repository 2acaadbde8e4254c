package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"sheetpulse/pkg/contracts/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS named_sources (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	locator    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);`

// SQLiteStore keeps sources in a SQLite table. Insertion order is the
// autoincrement id.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.NamedSource, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, locator, created_at FROM named_sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var out []domain.NamedSource
	for rows.Next() {
		var src domain.NamedSource
		if err := rows.Scan(&src.Name, &src.Locator, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Insert(ctx context.Context, src domain.NamedSource) error {
	created := src.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO named_sources (name, locator, created_at) VALUES (?, ?, ?)`,
		src.Name, src.Locator, created)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrSourceExists
		}
		return fmt.Errorf("failed to insert source: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM named_sources WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	if n == 0 {
		return ErrSourceNotFound
	}
	return nil
}
