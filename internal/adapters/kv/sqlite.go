package kv

import (
	"context"
	"database/sql"
	"path/filepath"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     BLOB NOT NULL,
	PRIMARY KEY (namespace, key)
)`

// SQLite stores records in a single table of a SQLite database file.
type SQLite struct {
	db        *sql.DB
	namespace string
}

var _ Backend = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string, o options) (*SQLite, error) {
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping sqlite db")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &SQLite{db: db, namespace: o.bucket}, nil
}

// Get returns the value under key.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s == nil || s.db == nil {
		return nil, false, ErrClosed
	}

	var v []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "read %q", key)
	}
	return v, true, nil
}

// PutAll upserts every record in one transaction.
func (s *SQLite) PutAll(ctx context.Context, records map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	for k, v := range records {
		_, err := tx.ExecContext(ctx, `
INSERT INTO records (namespace, key, value) VALUES (?, ?, ?)
ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value
`, s.namespace, k, v)
		if err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "write %q", k)
		}
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

// Clear deletes every record in the namespace.
func (s *SQLite) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE namespace = ?`, s.namespace)
	return errors.Wrap(err, "clear records")
}

// Close releases the connection pool.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return errors.Wrap(err, "close sqlite db")
}
