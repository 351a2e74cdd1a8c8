// Package postgres provides a PostgreSQL-backed library repository on a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers the goqu dialect
	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/jsamuelsen/library-catalog/internal/adapters/storage/postgres/migrations"
	"github.com/jsamuelsen/library-catalog/internal/adapters/storage/sqlstore"
)

// Config holds connection settings.
type Config struct {
	DSN          string
	MaxConns     int32
	QueryTimeout time.Duration
}

// Repository is a migrated PostgreSQL database exposed as a library repository.
type Repository struct {
	*sqlstore.Store

	pool *pgxpool.Pool
}

// Open connects to the database, applies pending migrations, and returns
// a repository backed by the pool.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn must not be empty")
	}

	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if err := migrateUp(pool); err != nil {
		pool.Close()

		return nil, err
	}

	logger.InfoContext(ctx, "postgres repository ready",
		slog.String("host", poolCfg.ConnConfig.Host),
		slog.String("database", poolCfg.ConnConfig.Database),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)

	store := sqlstore.New(newPoolDB(pool), "postgres", "postgres",
		sqlstore.WithQueryTimeout(cfg.QueryTimeout),
		sqlstore.WithLogger(logger),
	)

	return &Repository{Store: store, pool: pool}, nil
}

func migrateUp(pool *pgxpool.Pool) error {
	source, err := iofs.New(migrations.Files, ".")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	return nil
}

// Close releases every pooled connection.
func (r *Repository) Close() {
	r.pool.Close()
}
