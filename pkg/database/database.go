package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/alimgiray/gitemails/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens (or creates) the SQLite database at dsnPath and applies migrations
func Open(dsnPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsnPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Rows are written by a single emitter
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	// Test the connection
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err = optimizeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}

	if err = RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithField("path", dsnPath).Debugf("Database ready")
	return db, nil
}

// optimizeDatabase configures SQLite for bulk appends
func optimizeDatabase(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=10000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=30000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}

// RunMigrations executes the embedded SQL scripts in name order
func RunMigrations(db *sql.DB) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		sqlContent, err := migrations.ReadFile(file)
		if err != nil {
			return err
		}

		// Execute the SQL script
		if _, err = db.Exec(string(sqlContent)); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", path.Base(file), err)
		}

		logger.Debugf("Executed SQL script: %s", path.Base(file))
	}
	return nil
}
