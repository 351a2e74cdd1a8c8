// Package migrations applies the embedded catalogue schema to a SQLite
// database opened with the ncruces driver.
//
// golang-migrate's own sqlite3 driver links mattn/go-sqlite3, which also
// registers as "sqlite3" and collides with ncruces. Driver below speaks
// golang-migrate's database.Driver interface over an already open *sql.DB.
package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

const versionTable = "schema_migrations"

var _ database.Driver = (*Driver)(nil)

// Driver is a golang-migrate database driver for an ncruces connection.
type Driver struct {
	db     *sql.DB
	locked atomic.Bool
}

// NewDriver wraps db and makes sure the version table exists.
func NewDriver(db *sql.DB) (*Driver, error) {
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	d := &Driver{db: db}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + versionTable + ` (version INTEGER NOT NULL, dirty BOOLEAN NOT NULL);
		CREATE UNIQUE INDEX IF NOT EXISTS ` + versionTable + `_version ON ` + versionTable + ` (version);`)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", versionTable, err)
	}

	return d, nil
}

// Open is unsupported; build drivers with NewDriver.
func (d *Driver) Open(string) (database.Driver, error) {
	return nil, errors.New("sqlite migrations: Open is unsupported, use NewDriver")
}

// Close leaves the connection open; the repository owns it.
func (d *Driver) Close() error { return nil }

// Lock takes the in-process migration lock.
func (d *Driver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}

	return nil
}

// Unlock releases the in-process migration lock.
func (d *Driver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}

	return nil
}

// Run applies one migration file inside a transaction.
func (d *Driver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}

	return d.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(string(body)); err != nil {
			return &database.Error{OrigErr: err, Query: body}
		}

		return nil
	})
}

// SetVersion records the current schema version.
func (d *Driver) SetVersion(version int, dirty bool) error {
	return d.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM ` + versionTable); err != nil {
			return &database.Error{OrigErr: err, Err: "clearing version"}
		}

		// A dirty nil version is kept so a failed first migration stays visible.
		if version >= 0 || (version == database.NilVersion && dirty) {
			_, err := tx.Exec(`INSERT INTO `+versionTable+` (version, dirty) VALUES (?, ?)`, version, dirty)
			if err != nil {
				return &database.Error{OrigErr: err, Err: "writing version"}
			}
		}

		return nil
	})
}

// Version reports the recorded schema version, or NilVersion when none.
func (d *Driver) Version() (int, bool, error) {
	var (
		version int
		dirty   bool
	)

	err := d.db.QueryRow(`SELECT version, dirty FROM ` + versionTable + ` LIMIT 1`).Scan(&version, &dirty)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return database.NilVersion, false, nil
	case err != nil:
		return 0, false, &database.Error{OrigErr: err, Err: "reading version"}
	}

	return version, dirty, nil
}

// Drop removes every table, including the version table.
func (d *Driver) Drop() error {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return &database.Error{OrigErr: err, Err: "listing tables"}
	}

	var tables []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()

			return err
		}

		tables = append(tables, name)
	}

	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return err
	}

	return d.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`PRAGMA defer_foreign_keys = ON`); err != nil {
			return err
		}

		for _, t := range tables {
			if _, err := tx.Exec(`DROP TABLE IF EXISTS "` + t + `"`); err != nil {
				return &database.Error{OrigErr: err, Err: "dropping " + t}
			}
		}

		return nil
	})
}

func (d *Driver) inTx(fn func(*sql.Tx) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return &database.Error{OrigErr: err, Err: "transaction start failed"}
	}

	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return &database.Error{OrigErr: err, Err: "transaction commit failed"}
	}

	return nil
}
