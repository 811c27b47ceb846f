// internal/infra/database/db.go
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Driver selects the persisted-store backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

// DB wraps the sql handle with the driver it was opened with. All store
// access funnels through this single handle; SQLite is additionally pinned
// to one connection so mutations serialize through one logical writer.
type DB struct {
	*sql.DB
	driver Driver
}

func (db *DB) Driver() Driver { return db.driver }

// Open initializes the configured store backend. dsn is the Postgres DSN or
// the SQLite file path, depending on the driver.
func Open(driver Driver, dsn string) (*DB, error) {
	switch driver {
	case DriverPostgres:
		return openPostgres(dsn)
	case DriverSQLite:
		return openSQLite(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", driver)
	}
}

// openPostgres creates a new PostgreSQL connection pool and pings it to
// ensure connectivity.
func openPostgres(dataSourceName string) (*DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, driver: DriverPostgres}, nil
}

func openSQLite(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to exec pragma %q: %w", p, err)
		}
	}

	return &DB{DB: db, driver: DriverSQLite}, nil
}
