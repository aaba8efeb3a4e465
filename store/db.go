// Package store is the sqlx-backed persistence layer behind the Execution
// Recorder, Reactive Trigger Pipeline, Outbound Fan-out, and rule repository
// (spec §4.F/G/H, §6). It follows the context-first, typed-struct-scanning
// idiom the rest of the pack's Postgres-backed services use, generalized
// with sqlx's Get/Select/NamedExec sugar in place of raw database/sql
// row-by-row scanning.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DB wraps a sqlx connection pool shared by every repository in this
// package.
type DB struct {
	*sqlx.DB
}

// Open connects to dsn (a standard Postgres connection string) using the
// lib/pq driver.
func Open(dsn string) (*DB, error) {
	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &DB{DB: conn}, nil
}

// Migrate runs every pending up migration found under migrationsDir against
// the connected database (spec §6's persisted table set).
func (db *DB) Migrate(migrationsDir string) error {
	driver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("store: migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("store: migration init: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}

// Tx runs fn inside a transaction, committing on nil error and rolling back
// otherwise.
func (db *DB) Tx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ErrNotFound is returned by single-row lookups that matched nothing,
// translated from sql.ErrNoRows so callers never need to import
// database/sql just to compare errors.
var ErrNotFound = sql.ErrNoRows
