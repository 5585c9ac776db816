// Package terraindb persists scan runs and their candidates in sqlite.
// The schema is owned by the embedded migrations; NewDB opens the file and
// brings it to the latest version before returning.
package terraindb

import (
	"database/sql"
	"embed"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the sqlite database at path and applies
// any pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// OpenDB opens the database without touching the schema. Used by the migrate
// subcommand, which manages versions explicitly.
func OpenDB(path string) (*DB, error) {
	// The pragma rides on the DSN so every pooled connection gets it.
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{db}, nil
}
