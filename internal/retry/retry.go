package retry

import (
	"context"
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// Policy describes how a failing operation is retried: the delay grows by
// Multiplier from InitialDelay up to MaxDelay, with optional jitter to keep
// restarting processes from hammering the store in lockstep.
type Policy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
	Jitter       bool
}

// DefaultPolicy suits short-lived transient failures such as the database
// file being locked by a concurrent writer at startup.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  5,
		Jitter:       true,
	}
}

func (p Policy) withDefaults() Policy {
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2.0
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

// Do runs op until it succeeds, the attempt budget is spent, or ctx is
// cancelled. The last operation error is returned when all attempts fail.
func (p Policy) Do(ctx context.Context, op func() error) error {
	return p.DoWhen(ctx, op, func(error) bool { return true })
}

// DoWhen is Do with a predicate: an error the predicate rejects is returned
// immediately without burning the remaining attempts.
func (p Policy) DoWhen(ctx context.Context, op func() error, retryable func(error) bool) error {
	p = p.withDefaults()

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == p.MaxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}
}

// Delay reports the wait that follows the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()

	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}

	if p.Jitter {
		// Spread by up to a quarter of the delay in either direction.
		d += (randomUnit() - 0.5) * d / 2
		if d < float64(p.InitialDelay) {
			d = float64(p.InitialDelay)
		}
		if d > float64(p.MaxDelay) {
			d = float64(p.MaxDelay)
		}
	}

	return time.Duration(d)
}

func randomUnit() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(0).SetUint64(math.MaxUint64))
	if err != nil {
		return float64(time.Now().UnixNano()%1000000) / 1000000.0
	}
	return float64(n.Uint64()) / float64(math.MaxUint64)
}
