package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/cobranzas/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS client_contacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_name TEXT NOT NULL UNIQUE,
		contact_name TEXT,
		email TEXT,
		phone TEXT,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS unification_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		variant_name TEXT NOT NULL UNIQUE,
		canonical_name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_unification_rules_canonical ON unification_rules(canonical_name);
	`

	if _, err := DB.Exec(createTableStatement); err != nil {
		stdlog.Fatalf("failed to create database tables: %v", err)
	}

	migrateContactsTable()

	if logger.L != nil {
		logger.L.Info("Database initialized successfully")
	}
}

// migrateContactsTable adds columns introduced after the first release.
// SQLite has no ADD COLUMN IF NOT EXISTS, so presence is probed first.
func migrateContactsTable() {
	if tableExists("client_contacts") && !columnExists("client_contacts", "notes") {
		if _, err := DB.Exec(`ALTER TABLE client_contacts ADD COLUMN notes TEXT`); err != nil {
			logger.L.Warn("Could not add notes column to client_contacts", "error", err)
		}
	}
}

func tableExists(table string) bool {
	var name string
	err := DB.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
	return err == nil
}

func columnExists(table, column string) bool {
	rows, err := DB.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if rows.Scan(&name) == nil && name == column {
			return true
		}
	}
	return false
}
