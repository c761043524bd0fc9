package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects paths that could step outside the directory they
// are resolved against: empty paths, absolute paths, and any traversal
// component that survives cleaning.
func ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	clean := filepath.Clean(path)
	if strings.Contains(clean, "..") {
		return fmt.Errorf("path contains directory traversal: %s", path)
	}
	if filepath.IsAbs(clean) {
		return fmt.Errorf("absolute paths not allowed: %s", path)
	}
	return nil
}

// ValidateFilePathWithBase additionally checks that path, resolved against
// baseDir, stays inside baseDir.
func ValidateFilePathWithBase(path, baseDir string) error {
	if err := ValidateFilePath(path); err != nil {
		return err
	}

	resolved := filepath.Clean(filepath.Join(baseDir, path))
	if !strings.HasPrefix(resolved, filepath.Clean(baseDir)) {
		return fmt.Errorf("path escapes base directory: %s", path)
	}
	return nil
}

// ValidateDatabasePath checks a database file path. Absolute paths are fine
// here since deployments place the database outside the working directory,
// but traversal components and NUL bytes are still rejected.
func ValidateDatabasePath(path string) error {
	return validateOperatorPath(path, "database path")
}

// ValidateConfigPath checks a configuration file path with the same rules as
// ValidateDatabasePath.
func ValidateConfigPath(path string) error {
	return validateOperatorPath(path, "config path")
}

// validateOperatorPath covers paths supplied by the operator via flags or
// environment rather than by remote input.
func validateOperatorPath(path, label string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", label)
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("%s contains invalid characters", label)
	}

	for _, part := range strings.Split(filepath.Clean(path), string(filepath.Separator)) {
		if part == ".." {
			return fmt.Errorf("%s contains directory traversal: %s", label, path)
		}
	}
	return nil
}
