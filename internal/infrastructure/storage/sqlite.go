package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	user_id       INTEGER PRIMARY KEY,
	mobile_number TEXT    NOT NULL,
	created_at    INTEGER NOT NULL
)`

// SQLite stores records in a users table
type SQLite struct {
	db *sql.DB

	stmtGet    *sql.Stmt
	stmtInsert *sql.Stmt
}

// NewSQLite opens the database at dsn and creates the users table. Use
// "file::memory:" for a throwaway database.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dsn, err)
	}

	// One connection serializes writers and keeps in-memory databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLite{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init() error {
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	var err error
	s.stmtGet, err = s.db.Prepare(`SELECT mobile_number, created_at FROM users WHERE user_id = ?`)
	if err != nil {
		return fmt.Errorf("preparing get: %w", err)
	}
	s.stmtInsert, err = s.db.Prepare(`
		INSERT INTO users (user_id, mobile_number, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	return nil
}

// Get returns the record for userID
func (s *SQLite) Get(ctx context.Context, userID int64) (Record, error) {
	var (
		number  string
		created int64
	)
	err := s.stmtGet.QueryRowContext(ctx, userID).Scan(&number, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying user %d: %w", userID, err)
	}
	return Record{UserID: userID, MobileNumber: number, CreatedAt: time.Unix(0, created).UTC()}, nil
}

// PutIfAbsent relies on the primary key: the insert affects a row only for
// the first writer of an id.
func (s *SQLite) PutIfAbsent(ctx context.Context, rec Record) (Record, bool, error) {
	res, err := s.stmtInsert.ExecContext(ctx, rec.UserID, rec.MobileNumber, rec.CreatedAt.UnixNano())
	if err != nil {
		return Record{}, false, fmt.Errorf("inserting user %d: %w", rec.UserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Record{}, false, fmt.Errorf("inserting user %d: %w", rec.UserID, err)
	}
	if n == 1 {
		return rec, true, nil
	}

	existing, err := s.Get(ctx, rec.UserID)
	if err != nil {
		return Record{}, false, err
	}
	return existing, false, nil
}

// Ping checks the database connection
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes statements and the database
func (s *SQLite) Close() error {
	return errors.Join(s.stmtGet.Close(), s.stmtInsert.Close(), s.db.Close())
}
