package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"account_agent/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDo_TransientErrorExhaustsAttempts(t *testing.T) {
	r := New(3, time.Millisecond, zap.NewNop())
	transient := common.NewTransientError(common.CodeUnavailable, errors.New("offline"))

	calls := 0
	_, err := Do(context.Background(), r, "get", func(ctx context.Context) (int, error) {
		calls++
		return 0, transient
	})

	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, transient)
	assert.True(t, common.IsTransient(err))
}

func TestDo_NonTransientErrorIsNotRetried(t *testing.T) {
	r := New(3, time.Millisecond, zap.NewNop())
	wrongPassword := common.NewPermanentError(common.CodeWrongPassword, nil)

	calls := 0
	err := r.Run(context.Background(), "sign-in", func(ctx context.Context) error {
		calls++
		return wrongPassword
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, wrongPassword)
	assert.Equal(t, common.CodeWrongPassword, common.CodeOf(err))
}

func TestDo_UntaggedErrorIsNotRetried(t *testing.T) {
	r := New(3, time.Millisecond, zap.NewNop())

	calls := 0
	err := r.Run(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return errors.New("network is down")
	})

	assert.Equal(t, 1, calls, "message text never makes an error retryable")
	assert.Error(t, err)
}

func TestDo_SucceedsAfterTransientFailure(t *testing.T) {
	r := New(3, time.Millisecond, zap.NewNop())

	calls := 0
	got, err := Do(context.Background(), r, "get", func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", common.NewTransientError("", nil)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestDo_ExponentialSchedule(t *testing.T) {
	r := New(4, 2*time.Millisecond, zap.NewNop())
	var delays []time.Duration
	r.notify = func(attempt int, delay time.Duration, err error) {
		delays = append(delays, delay)
	}

	_ = r.Run(context.Background(), "op", func(ctx context.Context) error {
		return common.NewTransientError("", nil)
	})

	assert.Equal(t, []time.Duration{2 * time.Millisecond, 4 * time.Millisecond, 8 * time.Millisecond}, delays)
}

func TestDo_ContextCancelledStopsRetrying(t *testing.T) {
	r := New(3, time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx, "op", func(ctx context.Context) error {
			calls++
			return common.NewTransientError("", nil)
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New(0, 0, zap.NewNop())
	assert.Equal(t, DefaultMaxAttempts, r.MaxAttempts())
	assert.Equal(t, DefaultBaseDelay, r.baseDelay)
}

func TestDo_SingleAttempt(t *testing.T) {
	r := New(1, time.Millisecond, zap.NewNop())

	calls := 0
	err := r.Run(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return common.NewTransientError("", nil)
	})

	assert.Equal(t, 1, calls)
	assert.True(t, common.IsTransient(err))
}
