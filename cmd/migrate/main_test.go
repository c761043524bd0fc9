package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"leadflow/internal/migrations"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSchemaDir(t *testing.T) string {
	tmpDir := t.TempDir()
	schema := `CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id TEXT NOT NULL UNIQUE,
		sender_phone TEXT,
		sender_type TEXT,
		timestamp TEXT
	);
	CREATE TABLE IF NOT EXISTS conversations (
		conversation_id TEXT PRIMARY KEY,
		lead_phone TEXT NOT NULL,
		secretary_phone TEXT NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		first_timestamp TEXT,
		last_timestamp TEXT
	);`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "001_initial_schema.sql"), []byte(schema), 0644))

	original := migrations.MigrationsDir
	migrations.MigrationsDir = tmpDir
	t.Cleanup(func() { migrations.MigrationsDir = original })

	return tmpDir
}

func TestRunBootstrapsMissingDatabase(t *testing.T) {
	setupSchemaDir(t)
	dbPath := filepath.Join(t.TempDir(), "fresh.db")

	require.NoError(t, run(dbPath))

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	// Initial schema and the index migration both applied
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&count))
	assert.Equal(t, 0, count)

	var indexName string
	err = db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_messages_sender_phone'",
	).Scan(&indexName)
	require.NoError(t, err)
	assert.Equal(t, "idx_messages_sender_phone", indexName)

	var versions int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 2, versions)
}

func TestRunIsIdempotent(t *testing.T) {
	setupSchemaDir(t)
	dbPath := filepath.Join(t.TempDir(), "twice.db")

	require.NoError(t, run(dbPath))
	require.NoError(t, run(dbPath))

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var versions int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 2, versions)
}
