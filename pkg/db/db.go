package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBName is the ledger file used when no path is configured.
const DefaultDBName = "leakdiff.db"

// DB is the run ledger: one row per collect run and one per
// (run, category, source) result.
type DB struct {
	*sql.DB
	path string
}

// openLedgerFile opens the SQLite file behind the ledger with foreign keys on,
// so deleting a run drops its results.
func openLedgerFile(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return sqlDB, nil
}

// Open opens or creates the run ledger at dbPath, creating its directory.
// An empty path means DefaultDBName in the working directory.
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		dbPath = DefaultDBName
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	sqlDB, err := openLedgerFile(dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{
		DB:   sqlDB,
		path: dbPath,
	}
	if err := db.ensureRunTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare run ledger: %w", err)
	}
	return db, nil
}

// ensureRunTables creates the runs and run_results tables unless the runs
// table is already there. Existing runs are left alone.
func (db *DB) ensureRunTables() error {
	var name string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='runs'").Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return db.InitSchema()
	case err != nil:
		return fmt.Errorf("failed to look up runs table: %w", err)
	}
	return nil
}

// Path returns the ledger file path.
func (db *DB) Path() string {
	return db.path
}

// InitSchema creates the ledger tables.
func (db *DB) InitSchema() error {
	_, err := db.Exec(schema)
	return err
}
