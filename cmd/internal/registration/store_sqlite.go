package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS participants (
    invite_link TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    team_number TEXT NOT NULL,
    email TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS invite_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL,
    name TEXT NOT NULL,
    team_number TEXT NOT NULL,
    invite_link TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
`

// SQLiteStore persists registrations in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps upsert+audit and delete serialized.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec PendingRegistration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validRecord(rec) {
		return ErrInvalidInput
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO participants (invite_link, name, team_number, email) VALUES (?, ?, ?, ?)
		 ON CONFLICT (invite_link) DO UPDATE SET
		   name = excluded.name, team_number = excluded.team_number, email = excluded.email`,
		rec.InviteKey, rec.DisplayName, rec.TeamID, rec.Email,
	); err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO invite_logs (email, name, team_number, invite_link, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Email, rec.DisplayName, rec.TeamID, rec.InviteKey, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("append invite log: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Get(ctx context.Context, inviteKey string) (PendingRegistration, error) {
	out := PendingRegistration{InviteKey: inviteKey}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, team_number, email FROM participants WHERE invite_link = ?`, inviteKey,
	).Scan(&out.DisplayName, &out.TeamID, &out.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PendingRegistration{}, ErrNotFound
		}
		return PendingRegistration{}, err
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, inviteKey string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM participants WHERE invite_link = ?`, inviteKey)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) AuditLog(ctx context.Context) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, invite_link, name, team_number, email, created_at FROM invite_logs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var ms int64
		if err := rows.Scan(&e.ID, &e.InviteKey, &e.DisplayName, &e.TeamID, &e.Email, &ms); err != nil {
			return nil, err
		}
		e.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
