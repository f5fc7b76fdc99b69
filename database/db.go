// Package database owns the Postgres connection and schema migrations.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the pooled Postgres connection.
type DB struct {
	*sql.DB
}

// Connect opens and verifies a Postgres connection. The worker writes a
// condition row per machine only when its condition changes, plus batch
// snapshot writes, so a modest pool is sufficient; unlike SQLite there is
// no single-writer constraint.
func Connect(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}
