package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"leadflow/internal/migrations"

	_ "github.com/mattn/go-sqlite3"
)

// migration 1 is the initial schema from scripts/migrations; later
// migrations are additive statements applied in order.
var indexMigration = []string{
	"CREATE INDEX IF NOT EXISTS idx_messages_sender_phone ON messages(sender_phone)",
	"CREATE INDEX IF NOT EXISTS idx_messages_sender_type ON messages(sender_type)",
	"CREATE INDEX IF NOT EXISTS idx_conversations_last_timestamp ON conversations(last_timestamp)",
}

func main() {
	dbPath := flag.String("db", "./leadflow.db", "Path to the database file")
	flag.Parse()

	if err := run(*dbPath); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

func run(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(db)
	if err != nil {
		return err
	}

	if !applied[1] {
		fmt.Println("Applying migration 1: initial schema")
		schema, err := migrations.GetInitialSchema()
		if err != nil {
			return fmt.Errorf("failed to read schema: %w", err)
		}
		if err := apply(db, 1, []string{schema}); err != nil {
			return err
		}
	}

	if !applied[2] {
		fmt.Println("Applying migration 2: reporting indexes")
		if err := apply(db, 2, indexMigration); err != nil {
			return err
		}
	}

	fmt.Println("Database schema is up to date")
	return nil
}

func appliedVersions(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to read migration status: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func apply(db *sql.DB, version int, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", version, err)
		}
	}
	if _, err := db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}
	return nil
}
