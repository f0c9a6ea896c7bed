// Package db opens the document store database and keeps it tidy.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// schema is shared by both drivers; {{ts}} and {{bytes}} are replaced with
// the driver's column types. Label ids of a counter are kept as a JSON array.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL DEFAULT '',
    password_hash {{bytes}} NOT NULL,
    theme TEXT NOT NULL DEFAULT 'light',
    language TEXT NOT NULL DEFAULT 'ja',
    default_view TEXT NOT NULL DEFAULT 'grid',
    created_at {{ts}} NOT NULL,
    last_login_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS counters (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    count BIGINT NOT NULL DEFAULT 0,
    labels TEXT NOT NULL DEFAULT '[]',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at {{ts}} NOT NULL,
    updated_at {{ts}} NOT NULL
);

CREATE INDEX IF NOT EXISTS counters_user_active_idx ON counters (user_id, is_active, updated_at);

CREATE TABLE IF NOT EXISTS labels (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '',
    created_at {{ts}} NOT NULL
);
`

// Schema returns the DDL for driver.
func Schema(driver string) (string, error) {
	var r *strings.Replacer
	switch driver {
	case DriverPostgres:
		r = strings.NewReplacer("{{ts}}", "TIMESTAMPTZ", "{{bytes}}", "BYTEA")
	case DriverSQLite:
		r = strings.NewReplacer("{{ts}}", "TIMESTAMP", "{{bytes}}", "BLOB")
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
	return r.Replace(schema), nil
}

// Open connects to dsn with driver, checks the connection and applies the schema.
func Open(driver, dsn string) (*sql.DB, error) {
	ddl, err := Schema(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one connection keeps in-memory databases alive and serializes writers
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if driver == DriverSQLite {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	return db, nil
}
