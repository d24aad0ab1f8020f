package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsRetries(t *testing.T) {
	attempts := 0
	failure := errors.New("permanent")
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		return failure
	})

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 4, attempts) // initial try plus three retries
}

func TestDoWithResultReturnsValue(t *testing.T) {
	value, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := &Config{MaxRetries: 10, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1}
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, cfg, func() error { return errors.New("always") })
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestNilConfigUsesDefaults(t *testing.T) {
	_, err := DoWithResult(context.Background(), nil, func() (string, error) {
		return "ok", nil
	})
	assert.NoError(t, err)
}

type retryableErr struct{ retryable bool }

func (e retryableErr) Error() string     { return "custom" }
func (e retryableErr) IsRetryable() bool { return e.retryable }

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("dial tcp: connection refused")))
	assert.True(t, IsRetryable(errors.New("i/o timeout")))
	assert.True(t, IsRetryable(errors.New("HTTP 503 Service Unavailable")))
	assert.False(t, IsRetryable(errors.New("invalid credentials")))

	assert.True(t, IsRetryable(retryableErr{retryable: true}))
	assert.False(t, IsRetryable(retryableErr{retryable: false}))
}
