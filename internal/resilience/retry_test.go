package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDo_DefaultIsSingleAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(context.Context) error {
		calls++
		return NewTransientError(errors.New("503"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransient(t *testing.T) {
	var calls int
	var retried []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_Exhausts(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		return NewTransientError(errors.New("always"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_NonTransientNotRetried(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(5), func(context.Context) error {
		calls++
		return errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, cfg, func(context.Context) error {
			calls++
			return NewTransientError(errors.New("slow"), 503)
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
}

func TestDoVal(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastConfig(2), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("blip"), 429)
		}
		return "ds-1", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ds-1", val)

	val, err = DoVal(context.Background(), fastConfig(2), func(context.Context) (string, error) {
		return "ignored", errors.New("fatal")
	})
	require.Error(t, err)
	assert.Empty(t, val)
}

func TestDo_ShouldRetryOverride(t *testing.T) {
	var calls int
	cfg := fastConfig(3)
	cfg.ShouldRetry = func(error) bool { return true }
	_ = Do(context.Background(), cfg, func(context.Context) error {
		calls++
		return errors.New("anything")
	})
	assert.Equal(t, 3, calls)
}

func TestAttempts(t *testing.T) {
	assert.Equal(t, 1, Attempts(0).MaxAttempts)
	assert.Equal(t, 4, Attempts(4).MaxAttempts)
}

func TestComputeBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, computeBackoff(0, cfg))
	assert.Equal(t, 200*time.Millisecond, computeBackoff(1, cfg))
	assert.Equal(t, 300*time.Millisecond, computeBackoff(5, cfg))

	cfg.JitterFraction = 0.5
	for range 20 {
		d := computeBackoff(0, cfg)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(NewTransientError(errors.New("x"), 503)))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", NewTransientError(errors.New("x"), 429))))
	assert.True(t, IsTransient(errors.New("read tcp: connection reset by peer")))
	assert.True(t, IsTransient(errors.New("dial tcp: i/o timeout")))
	assert.False(t, IsTransient(errors.New("unexpected payload")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 404, 501} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}
