package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	"give4need/internal/common/config"
	"give4need/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func fastRetrier(maxRetries int) *Retrier {
	return NewRetrier(&RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	})
}

// ==========================
// Tests
// ==========================

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", status.Error(codes.Unavailable, "connection refused"), true},
		{"wrapped unavailable", fmt.Errorf("send: %w", status.Error(codes.Unavailable, "gateway down")), true},
		{"resource exhausted", status.Error(codes.ResourceExhausted, "backpressure"), true},
		{"context deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), true},
		{"not found", status.Error(codes.NotFound, "job not found"), false},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad variables"), false},
		{"plain error", fmt.Errorf("unavailable"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestMapCommandError(t *testing.T) {
	err := mapCommandError(status.Error(codes.DeadlineExceeded, "slow"), "complete-job", 2)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTimeout))
	assert.Contains(t, err.Error(), "after 2 attempts")

	err = mapCommandError(status.Error(codes.Unavailable, "down"), "ping", 1)
	assert.True(t, errors.HasCode(err, errors.ErrCodeExternalService))
	assert.NotContains(t, err.Error(), "attempts")
}

func TestRetrier_Do(t *testing.T) {
	t.Run("resends on transient errors", func(t *testing.T) {
		calls := 0
		err := fastRetrier(3).Do(context.Background(), "complete-job", func(context.Context) error {
			calls++
			if calls < 3 {
				return status.Error(codes.Unavailable, "gateway down")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		calls := 0
		err := fastRetrier(3).Do(context.Background(), "complete-job", func(context.Context) error {
			calls++
			return status.Error(codes.NotFound, "job not found")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.True(t, errors.HasCode(err, errors.ErrCodeExternalService))
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := fastRetrier(2).Do(context.Background(), "complete-job", func(context.Context) error {
			calls++
			return status.Error(codes.Unavailable, "gateway down")
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "after 3 attempts")
	})

	t.Run("zero retries sends once", func(t *testing.T) {
		calls := 0
		err := fastRetrier(0).Do(context.Background(), "complete-job", func(context.Context) error {
			calls++
			return status.Error(codes.Unavailable, "gateway down")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("caps each attempt", func(t *testing.T) {
		r := NewRetrier(&RetryConfig{AttemptTimeout: 50 * time.Millisecond})
		var hadDeadline bool
		err := r.Do(context.Background(), "complete-job", func(ctx context.Context) error {
			_, hadDeadline = ctx.Deadline()
			return nil
		})

		require.NoError(t, err)
		assert.True(t, hadDeadline)
	})

	t.Run("stops when the caller cancels", func(t *testing.T) {
		r := NewRetrier(&RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		err := r.Do(ctx, "complete-job", func(context.Context) error {
			calls++
			return status.Error(codes.Unavailable, "gateway down")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.True(t, errors.HasCode(err, errors.ErrCodeTimeout))
	})
}

func TestClient_Ping(t *testing.T) {
	var hadDeadline bool
	c := &Client{timeout: time.Second, topology: func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	}}

	require.NoError(t, c.Ping(context.Background()))
	assert.True(t, hadDeadline)

	c.topology = func(context.Context) error { return status.Error(codes.Unavailable, "gateway down") }
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeExternalService))
}

func TestRetryConfigFor(t *testing.T) {
	cfg := RetryConfigFor(config.WorkerConfig{MaxRetries: 4})
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.Equal(t, DefaultRetryConfig.BaseDelay, cfg.BaseDelay)
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, millis(1500, time.Second))
	assert.Equal(t, time.Second, millis(0, time.Second))
}
