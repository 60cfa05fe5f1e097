package camunda

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"give4need/internal/common/errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RetryConfig bounds how often a gateway command is resent.
// AttemptTimeout, when set, caps each single send.
type RetryConfig struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// Retrier resends Zeebe commands that failed with a transient gRPC status.
type Retrier struct {
	config *RetryConfig
}

func NewRetrier(cfg *RetryConfig) *Retrier {
	if cfg == nil {
		cfg = DefaultRetryConfig
	}
	return &Retrier{config: cfg}
}

// Do runs send until it succeeds, fails permanently, or runs out of retries. Delays double from
// BaseDelay up to MaxDelay. The returned error is a StandardError.
func (r *Retrier) Do(ctx context.Context, operation string, send func(context.Context) error) error {
	delay := r.config.BaseDelay

	for attempt := 0; ; attempt++ {
		err := r.attempt(ctx, send)
		if err == nil {
			return nil
		}
		if !isTransient(err) || attempt >= r.config.MaxRetries {
			return mapCommandError(err, operation, attempt+1)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return errors.NewTimeoutError("zeebe", fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err()))
		}
		if delay *= 2; delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}
}

func (r *Retrier) attempt(ctx context.Context, send func(context.Context) error) error {
	if r.config.AttemptTimeout <= 0 {
		return send(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, r.config.AttemptTimeout)
	defer cancel()
	return send(ctx)
}

// isTransient reports gateway conditions worth resending on.
func isTransient(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}

func mapCommandError(err error, operation string, attempts int) error {
	msg := fmt.Sprintf("Zeebe operation '%s' failed", operation)
	if attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", attempts)
	}
	wrapped := fmt.Errorf("%s: %w", msg, err)

	if stderrors.Is(err, context.DeadlineExceeded) || status.Code(err) == codes.DeadlineExceeded {
		return errors.NewTimeoutError("zeebe", wrapped)
	}
	return errors.NewExternalServiceError("zeebe", wrapped)
}
