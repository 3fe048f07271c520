package repository

import (
	"embed"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies every pending schema migration for the open dialect.
func (d *DB) Migrate() error {
	var (
		dir    string
		name   string
		driver database.Driver
		err    error
	)
	switch d.Dialect {
	case dialect.Postgres:
		dir, name = "migrations/postgres", "pgx5"
		driver, err = migratepgx.WithInstance(d.SQL, &migratepgx.Config{})
	case dialect.SQLite:
		dir, name = "migrations/sqlite", "sqlite"
		driver, err = migratesqlite.WithInstance(d.SQL, &migratesqlite.Config{})
	default:
		return fmt.Errorf("no migrations for dialect %q", d.Dialect)
	}
	if err != nil {
		d.logger.Error("could not create migration driver", "error", err)
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		d.logger.Error("migration instance creation failed", "error", err)
		return fmt.Errorf("migration instance: %w", err)
	}

	d.logger.Info("applying database migrations", "source", dir)
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			d.logger.Info("no new database migrations to apply")
			return nil
		}
		d.logger.Error("failed to apply migrations", "error", err)
		return fmt.Errorf("migrate up: %w", err)
	}
	version, _, _ := m.Version()
	d.logger.Info("database migrations applied", "version", version)
	return nil
}
