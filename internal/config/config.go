package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"leadflow/internal/constants"
	"leadflow/internal/models"
	"leadflow/internal/security"
	"leadflow/internal/validation"
)

var (
	ErrMissingDBPath = models.ConfigError{Message: "missing database path"}
)

func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateConfigPath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if err := security.ValidateDatabasePath(c.Database.Path); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("invalid database path: %v", err)}
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = constants.DefaultMaxBodyBytes
	}

	if c.Grouping.ReadyThreshold <= 0 {
		c.Grouping.ReadyThreshold = constants.DefaultReadyThreshold
	}
	if err := validation.ValidateReadyThreshold(c.Grouping.ReadyThreshold); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("invalid ready threshold: %v", err)}
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	if err := validation.ValidateTimeout(c.Server.ReadTimeoutSec, "server read timeout"); err != nil {
		return models.ConfigError{Message: err.Error()}
	}
	if err := validation.ValidateTimeout(c.Server.WriteTimeoutSec, "server write timeout"); err != nil {
		return models.ConfigError{Message: err.Error()}
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if path := os.Getenv("LEADFLOW_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("LEADFLOW_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if threshold := os.Getenv("LEADFLOW_READY_THRESHOLD"); threshold != "" {
		if n, err := strconv.Atoi(threshold); err == nil {
			c.Grouping.ReadyThreshold = n
		}
	}
	if level := os.Getenv("LEADFLOW_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	isProduction := os.Getenv("LEADFLOW_ENV") == "production"

	if isProduction {
		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}

		// Field encryption is opt-in, but a configured secret must be usable
		if os.Getenv("LEADFLOW_ENABLE_ENCRYPTION") == "true" && len(os.Getenv("LEADFLOW_ENCRYPTION_SECRET")) < 32 {
			return models.ConfigError{Message: "encryption secret must be at least 32 characters long (set LEADFLOW_ENCRYPTION_SECRET environment variable)"}
		}
	}

	return nil
}
