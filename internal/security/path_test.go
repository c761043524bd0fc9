package security

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilePath(t *testing.T) {
	assert.NoError(t, ValidateFilePath("config/test.json"))
	assert.NoError(t, ValidateFilePath("config/test.config"))

	invalid := []struct {
		name   string
		path   string
		errMsg string
	}{
		{"empty", "", "path cannot be empty"},
		{"absolute", "/etc/config/test.json", "absolute paths not allowed"},
		{"traversal", "../../../etc/passwd", "directory traversal"},
		{"embedded traversal", "config/../../../etc/passwd", "directory traversal"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateFilePathWithBase(t *testing.T) {
	base := t.TempDir()

	assert.NoError(t, ValidateFilePathWithBase("event-001.json", base))
	assert.NoError(t, ValidateFilePathWithBase(filepath.Join("captured", "event-002.json"), base))

	err := ValidateFilePathWithBase(filepath.Join("..", "..", "etc", "passwd"), base)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "directory traversal")

	assert.Error(t, ValidateFilePathWithBase("", base))
}

func TestValidateDatabasePath(t *testing.T) {
	assert.NoError(t, ValidateDatabasePath("leadflow.db"))
	assert.NoError(t, ValidateDatabasePath("/var/lib/leadflow/leadflow.db"), "absolute operator paths are allowed")
	assert.NoError(t, ValidateDatabasePath("./data/./leadflow.db"), "dot segments clean away")
	assert.NoError(t, ValidateDatabasePath(filepath.Join(t.TempDir(), "test.db")))

	invalid := []struct {
		name   string
		path   string
		errMsg string
	}{
		{"empty", "", "path cannot be empty"},
		{"traversal", "../../../etc/passwd", "directory traversal"},
		{"nul byte", "lead\x00flow.db", "invalid characters"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabasePath(tt.path)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateConfigPath(t *testing.T) {
	assert.NoError(t, ValidateConfigPath("config.json"))
	assert.NoError(t, ValidateConfigPath("/etc/leadflow/config.json"))

	err := ValidateConfigPath("../secrets/config.json")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config path")
}
