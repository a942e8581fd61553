// Package reconcile verifies that the destination collection's document
// count matches what an ingestion run accepted.
package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Status classifies a reconciliation outcome.
type Status string

const (
	StatusMatch    Status = "match"
	StatusMismatch Status = "mismatch"
	StatusUnknown  Status = "unknown"
)

// Result is the outcome of a count reconciliation.
type Result struct {
	Expected int64  `json:"expected"`
	Actual   int64  `json:"actual"`
	Status   Status `json:"status"`
}

// Counter reports the current document count of a collection.
type Counter interface {
	Count(ctx context.Context, index string) (int64, error)
}

// Config tunes the live verification retry loop.
type Config struct {
	// Attempts is the number of count polls before giving up on a match.
	Attempts int

	// Delay is the wait between polls, giving the store time to refresh.
	Delay time.Duration
}

// DefaultConfig returns the verification defaults.
func DefaultConfig() Config {
	return Config{
		Attempts: 3,
		Delay:    5 * time.Second,
	}
}

// Verify compares an expected count against an observed one.
func Verify(expected, actual int64) Result {
	status := StatusMismatch
	if expected == actual {
		status = StatusMatch
	}
	return Result{Expected: expected, Actual: actual, Status: status}
}

// VerifyLive polls the collection count until it matches the expected
// total or the attempts run out. Freshly-written documents may not be
// visible immediately, which is why a mismatch is retried.
//
// When every poll errors the result status is unknown; the last count
// error is returned alongside the result.
func VerifyLive(ctx context.Context, counter Counter, index string, expected int64, cfg Config, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultConfig().Attempts
	}

	var (
		lastErr  error
		actual   int64
		observed bool
	)
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		count, err := counter.Count(ctx, index)
		if err != nil {
			lastErr = err
			logger.Warn("Count poll failed",
				zap.String("collection", index),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else {
			observed = true
			actual = count
			if count == expected {
				return Verify(expected, count), nil
			}
			logger.Warn("Count does not match yet",
				zap.String("collection", index),
				zap.Int64("expected", expected),
				zap.Int64("actual", count),
				zap.Int("attempt", attempt))
		}

		if attempt < cfg.Attempts && cfg.Delay > 0 {
			select {
			case <-ctx.Done():
				return Result{Expected: expected, Actual: actual, Status: StatusUnknown}, ctx.Err()
			case <-time.After(cfg.Delay):
			}
		}
	}

	if !observed {
		return Result{Expected: expected, Status: StatusUnknown}, lastErr
	}
	return Verify(expected, actual), nil
}
