package migrations

import (
	"fmt"
	"os"
	"path/filepath"
)

const initialSchemaFile = "001_initial_schema.sql"

// MigrationsDir is where the SQL schema files live, relative to the
// repository root. Tests point it at a temp directory.
var MigrationsDir = "scripts/migrations"

// GetInitialSchema loads the schema that creates the messages and
// conversations tables. Binaries under cmd/ run from different working
// directories, so a few parent-relative locations are tried before giving up.
func GetInitialSchema() (string, error) {
	candidates := []string{
		filepath.Join(MigrationsDir, initialSchemaFile),
		filepath.Join("..", MigrationsDir, initialSchemaFile),
		filepath.Join("..", "..", MigrationsDir, initialSchemaFile),
	}
	for _, path := range candidates {
		if schema, err := os.ReadFile(path); err == nil {
			return string(schema), nil
		}
	}
	return "", fmt.Errorf("schema file %s not found under %s", initialSchemaFile, MigrationsDir)
}
