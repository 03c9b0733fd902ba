package app

import (
	"context"
	"fmt"
	"time"

	"regbot/cmd/internal/registration"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	dbApplicationName = "regbot"
	dbConnectTimeout  = 3 * time.Second
)

// poolConfig maps REGBOT_DATABASE_URL and the REGBOT_DB_* limits onto a pgxpool
// config. Sessions resolve unqualified names in cfg.DBSchema first.
func poolConfig(cfg Config) (*pgxpool.Config, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse REGBOT_DATABASE_URL: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns > 0 {
		pcfg.MinConns = min(cfg.DBMinConns, pcfg.MaxConns)
	}

	rp := pcfg.ConnConfig.RuntimeParams
	if _, ok := rp["application_name"]; !ok {
		rp["application_name"] = dbApplicationName
	}
	if cfg.DBSchema != "" {
		rp["search_path"] = pgx.Identifier{cfg.DBSchema}.Sanitize() + ", public"
	}
	return pcfg, nil
}

// openPostgres connects, ensures the registration schema and returns the store
// with the pool it runs on. The caller owns the pool.
func openPostgres(ctx context.Context, cfg Config) (*registration.PostgresStore, *pgxpool.Pool, error) {
	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	err = pool.Ping(pingCtx)
	cancel()
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	st, err := registration.NewPostgresStore(pool, registration.WithSchema(cfg.DBSchema))
	if err == nil {
		err = st.EnsureSchema(ctx)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres schema %q: %w", cfg.DBSchema, err)
	}
	return st, pool, nil
}
