package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// RETRY TESTS
// ============================================================================

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls, "Should not retry on success")
}

func TestRetry_RetriesConnectionErrors(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		Retryable:   IsConnectionError,
	}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls, "Should retry until success")
}

func TestRetry_StopsOnNonRetryableError(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		Retryable:   IsConnectionError,
	}

	logicErr := errors.New("constraint violation")
	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return logicErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, logicErr)
	assert.Equal(t, 1, calls, "Logic errors should not be retried")
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		Retryable:   IsConnectionError,
	}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return errors.New("connection reset by peer")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "Should stop after max attempts")
}

func TestRetry_ContextCancellation(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 5,
		InitialWait: time.Hour, // Would block forever without cancellation
		Retryable:   IsConnectionError,
	}

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, cfg, func() error {
			calls++
			return errors.New("connection refused")
		})
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("Retry did not honor context cancellation")
	}
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(errors.New("dial tcp 10.0.0.1:5432: connection refused")))
	assert.True(t, IsConnectionError(errors.New("read: connection reset by peer")))
	assert.True(t, IsConnectionError(errors.New("database is locked")))
	assert.True(t, IsConnectionError(errors.New("read tcp: i/o timeout")))

	assert.False(t, IsConnectionError(nil))
	assert.False(t, IsConnectionError(errors.New("UNIQUE constraint failed: global_items.url")))
	assert.False(t, IsConnectionError(errors.New("invalid input syntax")))
}

// ============================================================================
// HASH TESTS
// ============================================================================

func TestMD5Hex(t *testing.T) {
	// Known digest for a fixed input
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", MD5Hex(""))
	assert.Equal(t, MD5Hex("abc"), MD5Hex("abc"), "Same input should produce same digest")
	assert.NotEqual(t, MD5Hex("abc"), MD5Hex("abd"))
	assert.Len(t, MD5Hex("anything"), 32)
}
