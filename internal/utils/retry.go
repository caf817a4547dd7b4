package utils

import (
	"context"
	"strings"
	"time"
)

// RetryConfig controls retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           // Total attempts including the first
	InitialWait time.Duration // Wait before the second attempt; doubles each retry
	// Retryable decides whether an error is worth retrying.
	// When nil every error is retried.
	Retryable func(error) bool
}

// DefaultRetryConfig matches the persistence layer contract:
// three attempts with exponential backoff, connection errors only.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Second,
		Retryable:   IsConnectionError,
	}
}

// Retry runs fn until it succeeds, the error is non-retryable, attempts are
// exhausted, or the context is cancelled. Waits grow exponentially between
// attempts (InitialWait, 2x, 4x, ...).
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var err error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := cfg.InitialWait << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		err = fn()
		if err == nil {
			return nil
		}

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
	}

	return err
}

// IsConnectionError reports whether an error looks like a transient
// connection-level failure rather than a logic error. Used to decide
// whether a database or HTTP operation should be retried.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"broken pipe",
		"i/o timeout",
		"database is locked",
		"database table is locked",
		"no such host",
		"network is unreachable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
