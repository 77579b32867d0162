package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite persists metadata in the account_metadata table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if needed creates) the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS account_metadata (
		account TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (account, key)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, account, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM account_metadata WHERE account = ? AND key = ?`, account, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select %s/%s: %w", account, key, err)
	}
	return v, true, nil
}

func (s *SQLite) Set(ctx context.Context, account, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO account_metadata (account, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (account, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		account, key, value)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", account, key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, account, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM account_metadata WHERE account = ? AND key = ?`, account, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", account, key, err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
