package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ConnectToSQLite initializes and returns a SQLite connection
func ConnectToSQLite(dbPath string) (*sql.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for SQLite: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_timeout=10000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return db, nil
}

// InitializeSchema creates all the necessary tables if they don't exist
func InitializeSchema(db *sql.DB) error {
	// Create incident ledger table
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS incidentes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pais TEXT NOT NULL,
		categoria TEXT NOT NULL,
		descripcion TEXT NOT NULL,
		fuente TEXT NOT NULL DEFAULT '',
		lat REAL,
		lon REAL,
		place TEXT,
		admin1 TEXT,
		admin2 TEXT,
		accuracy TEXT,
		geocode_source TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create incidentes table: %w", err)
	}

	// Index backing the dedup existence check
	_, err = db.Exec(`
	CREATE INDEX IF NOT EXISTS idx_incidentes_dedup
	ON incidentes (pais COLLATE NOCASE, categoria)`)
	if err != nil {
		return fmt.Errorf("failed to create incidentes dedup index: %w", err)
	}

	// Index backing the pending-resolution query
	_, err = db.Exec(`
	CREATE INDEX IF NOT EXISTS idx_incidentes_pending
	ON incidentes (pais) WHERE place IS NOT NULL AND lat IS NULL`)
	if err != nil {
		return fmt.Errorf("failed to create incidentes pending index: %w", err)
	}

	// Create geocode cache table
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS geocache (
		key TEXT PRIMARY KEY,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		country TEXT,
		admin1 TEXT,
		admin2 TEXT,
		accuracy TEXT,
		source TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create geocache table: %w", err)
	}

	return nil
}
