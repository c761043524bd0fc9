package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadflow/internal/constants"
	"leadflow/internal/retry"
)

// dbRetryPolicy governs writes that can hit SQLite lock contention. Tests
// swap in a faster policy.
var dbRetryPolicy = retry.Policy{
	InitialDelay: time.Duration(constants.DefaultRetryBackoffMs) * time.Millisecond,
	MaxDelay:     time.Duration(constants.DefaultMaxBackoffMs) * time.Millisecond,
	Multiplier:   2.0,
	MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
	Jitter:       true,
}

// withRetry runs op under dbRetryPolicy, retrying only transient SQLite
// failures. The returned error names the operation for log readability.
func withRetry(ctx context.Context, name string, op func() error) error {
	err := dbRetryPolicy.DoWhen(ctx, op, isRetryableDBError)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if !isRetryableDBError(err) {
		return fmt.Errorf("%s failed (non-retryable): %w", name, err)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, dbRetryPolicy.MaxAttempts, err)
}

// transient SQLite failure markers worth another attempt
var transientDBErrors = []string{
	"database is locked",
	"disk I/O error",
	"connection refused",
	"no such host",
}

// isRetryableDBError classifies a storage error. Lock contention and
// transient I/O get retried; constraint violations, schema errors, and
// cancelled contexts do not.
func isRetryableDBError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := err.Error()
	for _, marker := range transientDBErrors {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
