// Package ipadb persists per-frame 3A decisions and session records to
// SQLite for tuning analysis and the monitor UI.
package ipadb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/gmykhailiuta/libcamera/internal/monitoring"
)

var logDB = monitoring.Category("ipadb")

//go:embed migrations/*.sql
var migrationFS embed.FS

// DB wraps the decision store connection.
type DB struct {
	*sql.DB
	path string
}

// New opens (creating if needed) the decision store at path and brings the
// schema to the latest migration version.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open decision store: %w", err)
	}

	d := &DB{DB: db, path: path}
	if err := d.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	logDB("decision store ready at %s", path)
	return d, nil
}

// migrateUp applies all pending embedded migrations.
func (d *DB) migrateUp() error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(d.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: m is not closed here because that would close the underlying
	// DB connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}
