// Package sqlite provides a SQLite-backed library repository using the
// pure-Go ncruces driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // registers the goqu dialect
	_ "github.com/ncruces/go-sqlite3/driver"           // registers database/sql "sqlite3"
	_ "github.com/ncruces/go-sqlite3/embed"            // embeds the wasm build

	"github.com/jsamuelsen/library-catalog/internal/adapters/storage/sqlite/migrations"
	"github.com/jsamuelsen/library-catalog/internal/adapters/storage/sqlstore"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const busyTimeoutMS = 5000

// Repository is a migrated SQLite database exposed as a library repository.
type Repository struct {
	*sqlstore.Store

	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path, applies pragmas,
// and runs pending migrations.
func Open(ctx context.Context, path string, queryTimeout time.Duration, logger *slog.Logger) (*Repository, error) {
	if path == "" {
		return nil, errors.New("sqlite path must not be empty")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// One connection keeps :memory: databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if err := configure(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	if err := migrations.Up(db); err != nil {
		_ = db.Close()

		return nil, err
	}

	logger.InfoContext(ctx, "sqlite repository ready", slog.String("path", path))

	store := sqlstore.New(sqlstore.NewSQLDB(db), "sqlite3", "sqlite",
		sqlstore.WithQueryTimeout(queryTimeout),
		sqlstore.WithLogger(logger),
	)

	return &Repository{Store: store, db: db, path: path}, nil
}

func configure(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging sqlite database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMS),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("applying %q: %w", p, err)
		}
	}

	return nil
}

// Path returns the file the repository was opened on.
func (r *Repository) Path() string { return r.path }

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}
