package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  4,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	lockErr := errors.New("database is locked")
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return lockErr
	})
	assert.ErrorIs(t, err, lockErr)
	assert.Equal(t, 4, calls)
}

func TestDoWhenStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	schemaErr := errors.New("no such table: messages")
	err := fastPolicy().DoWhen(context.Background(), func() error {
		calls++
		return schemaErr
	}, func(err error) bool {
		return err.Error() == "database is locked"
	})
	assert.ErrorIs(t, err, schemaErr)
	assert.Equal(t, 1, calls, "a non-retryable error should not be retried")
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := fastPolicy().Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("database is locked")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDelayGrowsAndCaps(t *testing.T) {
	p := Policy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		MaxAttempts:  10,
	}

	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 400*time.Millisecond, p.Delay(3))
	assert.Equal(t, time.Second, p.Delay(8), "growth is capped at MaxDelay")
}

func TestDelayJitterStaysInBounds(t *testing.T) {
	p := DefaultPolicy()
	for attempt := 1; attempt <= 8; attempt++ {
		d := p.Delay(attempt)
		assert.GreaterOrEqual(t, d, p.InitialDelay)
		assert.LessOrEqual(t, d, p.MaxDelay)
	}
}

func TestZeroPolicyGetsDefaults(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
