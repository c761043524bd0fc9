package config

import (
	"os"
	"path/filepath"
	"testing"

	"leadflow/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "leadflow-config-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	validConfig := `{
		"server": {
			"port": 9090,
			"readTimeoutSec": 10,
			"writeTimeoutSec": 10
		},
		"database": {
			"path": "/var/lib/leadflow/leadflow.db"
		},
		"grouping": {
			"readyThreshold": 5
		},
		"retry": {
			"initialBackoffMs": 500,
			"maxBackoffMs": 5000,
			"maxAttempts": 3
		},
		"log_level": "info"
	}`
	validConfigPath := writeConfigFile(t, tmpDir, "valid_config.json", validConfig)

	missingDBConfig := `{
		"server": {"port": 9090},
		"grouping": {"readyThreshold": 3}
	}`
	missingDBPath := writeConfigFile(t, tmpDir, "missing_db.json", missingDBConfig)

	malformedPath := writeConfigFile(t, tmpDir, "malformed.json", `{"server": `)

	tests := []struct {
		name        string
		path        string
		expectError bool
		errorType   error
	}{
		{
			name:        "valid config",
			path:        validConfigPath,
			expectError: false,
		},
		{
			name:        "missing database path",
			path:        missingDBPath,
			expectError: true,
			errorType:   ErrMissingDBPath,
		},
		{
			name:        "malformed json",
			path:        malformedPath,
			expectError: true,
		},
		{
			name:        "nonexistent file",
			path:        filepath.Join(tmpDir, "nope.json"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(tt.path)
			if tt.expectError {
				require.Error(t, err)
				if tt.errorType != nil {
					assert.ErrorIs(t, err, tt.errorType)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 9090, cfg.Server.Port)
			assert.Equal(t, "/var/lib/leadflow/leadflow.db", cfg.Database.Path)
			assert.Equal(t, 5, cfg.Grouping.ReadyThreshold)
			assert.Equal(t, 3, cfg.Retry.MaxAttempts)
			assert.Equal(t, "info", cfg.LogLevel)
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	minimalConfig := `{
		"database": {
			"path": "/var/lib/leadflow/leadflow.db"
		}
	}`
	path := writeConfigFile(t, tmpDir, "minimal.json", minimalConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultServerReadTimeoutSec, cfg.Server.ReadTimeoutSec)
	assert.Equal(t, constants.DefaultServerWriteTimeoutSec, cfg.Server.WriteTimeoutSec)
	assert.Equal(t, constants.DefaultServerIdleTimeoutSec, cfg.Server.IdleTimeoutSec)
	assert.Equal(t, int64(constants.DefaultMaxBodyBytes), cfg.Server.MaxBodyBytes)
	assert.Equal(t, constants.DefaultReadyThreshold, cfg.Grouping.ReadyThreshold)
	assert.Equal(t, constants.DefaultRetryBackoffMs, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, constants.DefaultMaxBackoffMs, cfg.Retry.MaxBackoffMs)
	assert.Equal(t, constants.DefaultMaxAttempts, cfg.Retry.MaxAttempts)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `{
		"server": {"port": 9090},
		"database": {"path": "/var/lib/leadflow/leadflow.db"},
		"grouping": {"readyThreshold": 3}
	}`
	path := writeConfigFile(t, tmpDir, "config.json", configContent)

	t.Setenv("LEADFLOW_DB_PATH", "/tmp/override.db")
	t.Setenv("LEADFLOW_PORT", "9999")
	t.Setenv("LEADFLOW_READY_THRESHOLD", "7")
	t.Setenv("LEADFLOW_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Grouping.ReadyThreshold)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfigInvalidReadyThreshold(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `{
		"database": {"path": "/var/lib/leadflow/leadflow.db"},
		"grouping": {"readyThreshold": 5000}
	}`
	path := writeConfigFile(t, tmpDir, "config.json", configContent)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ready threshold")
}

func TestLoadConfigProductionSecurity(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("rejects debug logging in production", func(t *testing.T) {
		configContent := `{
			"database": {"path": "/var/lib/leadflow/leadflow.db"},
			"log_level": "debug"
		}`
		path := writeConfigFile(t, tmpDir, "debug.json", configContent)

		t.Setenv("LEADFLOW_ENV", "production")

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "debug logging")
	})

	t.Run("rejects short encryption secret in production", func(t *testing.T) {
		configContent := `{
			"database": {"path": "/var/lib/leadflow/leadflow.db"}
		}`
		path := writeConfigFile(t, tmpDir, "enc.json", configContent)

		t.Setenv("LEADFLOW_ENV", "production")
		t.Setenv("LEADFLOW_ENABLE_ENCRYPTION", "true")
		t.Setenv("LEADFLOW_ENCRYPTION_SECRET", "too-short")

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "encryption secret")
	})

	t.Run("allows debug logging outside production", func(t *testing.T) {
		configContent := `{
			"database": {"path": "/var/lib/leadflow/leadflow.db"},
			"log_level": "debug"
		}`
		path := writeConfigFile(t, tmpDir, "dev.json", configContent)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
	})
}

func TestLoadConfigPathValidation(t *testing.T) {
	_, err := LoadConfig("")
	require.Error(t, err)

	_, err = LoadConfig("../../../etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "traversal")
}
