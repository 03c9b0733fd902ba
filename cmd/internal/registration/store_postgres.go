package registration

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists registrations in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "regbot").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return ErrInvalidInput
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore. The pool is owned by the caller.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "regbot"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, ErrInvalidInput
	}
	return st, nil
}

// EnsureSchema creates the schema and tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	participants := pgIdent(s.schema, "participants")
	logs := pgIdent(s.schema, "invite_logs")
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + pgx.Identifier{s.schema}.Sanitize(),
		`CREATE TABLE IF NOT EXISTS ` + participants + ` (
		     invite_link TEXT PRIMARY KEY,
		     name        TEXT NOT NULL,
		     team_number TEXT NOT NULL,
		     email       TEXT NOT NULL
		   )`,
		`CREATE TABLE IF NOT EXISTS ` + logs + ` (
		     id          BIGSERIAL PRIMARY KEY,
		     email       TEXT NOT NULL,
		     name        TEXT NOT NULL,
		     team_number TEXT NOT NULL,
		     invite_link TEXT NOT NULL,
		     created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		   )`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Save upserts the participant row and appends to invite_logs in one transaction.
func (s *PostgresStore) Save(ctx context.Context, rec PendingRegistration) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validRecord(rec) {
		return ErrInvalidInput
	}
	participants := pgIdent(s.schema, "participants")
	logs := pgIdent(s.schema, "invite_logs")

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+participants+` (invite_link, name, team_number, email)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (invite_link) DO UPDATE
			    SET name = EXCLUDED.name,
			        team_number = EXCLUDED.team_number,
			        email = EXCLUDED.email`,
			rec.InviteKey, rec.DisplayName, rec.TeamID, rec.Email,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO `+logs+` (email, name, team_number, invite_link) VALUES ($1, $2, $3, $4)`,
			rec.Email, rec.DisplayName, rec.TeamID, rec.InviteKey,
		)
		return err
	})
}

// Get fetches a pending registration by invite link.
func (s *PostgresStore) Get(ctx context.Context, inviteKey string) (PendingRegistration, error) {
	if s == nil || s.pool == nil {
		return PendingRegistration{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return PendingRegistration{}, err
	}
	participants := pgIdent(s.schema, "participants")
	out := PendingRegistration{InviteKey: inviteKey}
	err := s.pool.QueryRow(ctx,
		`SELECT name, team_number, email FROM `+participants+` WHERE invite_link = $1`,
		inviteKey,
	).Scan(&out.DisplayName, &out.TeamID, &out.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PendingRegistration{}, ErrNotFound
		}
		return PendingRegistration{}, err
	}
	return out, nil
}

// Delete removes a pending registration.
func (s *PostgresStore) Delete(ctx context.Context, inviteKey string) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	participants := pgIdent(s.schema, "participants")
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+participants+` WHERE invite_link = $1`, inviteKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AuditLog returns all invite_logs rows ordered by id.
func (s *PostgresStore) AuditLog(ctx context.Context) ([]AuditEntry, error) {
	if s == nil || s.pool == nil {
		return nil, ErrInvalidInput
	}
	logs := pgIdent(s.schema, "invite_logs")
	rows, err := s.pool.Query(ctx,
		`SELECT id, invite_link, name, team_number, email, created_at FROM `+logs+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AuditEntry, error) {
		var e AuditEntry
		err := row.Scan(&e.ID, &e.InviteKey, &e.DisplayName, &e.TeamID, &e.Email, &e.CreatedAt)
		return e, err
	})
}

// Ping checks that a connection can be acquired.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	return s.pool.Ping(ctx)
}

// Close is a no-op: the pool is owned by the app.
func (s *PostgresStore) Close() error { return nil }

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
