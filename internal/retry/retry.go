// File: internal/retry/retry.go
package retry

import (
	"context"
	"time"

	"account_agent/internal/common"
	"account_agent/internal/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Retrier runs remote calls with bounded exponential backoff. Only errors
// tagged common.KindTransient are retried; anything else returns at once.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger

	// notify observes every scheduled retry; tests use it to read the delays.
	notify func(attempt int, delay time.Duration, err error)
}

func New(maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &Retrier{maxAttempts: maxAttempts, baseDelay: baseDelay, logger: logger.Named("retry")}
}

// NewFromConfig builds the agent-wide Retrier from RETRY_* settings.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) *Retrier {
	return New(cfg.RetryMaxAttempts, cfg.RetryBaseDelay, logger)
}

func (r *Retrier) MaxAttempts() int { return r.maxAttempts }

// policy yields baseDelay * 2^attemptIndex with no jitter, stopping after maxAttempts-1 retries.
func (r *Retrier) policy(ctx context.Context) backoff.BackOff {
	if r.maxAttempts == 1 {
		// WithMaxRetries treats zero as unlimited.
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.baseDelay
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxInterval = r.baseDelay << uint(r.maxAttempts)
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.maxAttempts-1)), ctx)
}

// Do runs fn until it succeeds, fails with a non-transient error, or the attempts run out.
// The last error is returned unchanged so callers can still classify it.
func Do[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := fn(ctx)
		if err != nil && !common.IsTransient(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	notify := func(err error, delay time.Duration) {
		r.logger.Warn("Transient failure, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.maxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if r.notify != nil {
			r.notify(attempt, delay, err)
		}
	}

	res, err := backoff.RetryNotifyWithData(operation, r.policy(ctx), notify)
	if err != nil && attempt > 1 {
		r.logger.Warn("Giving up after retries",
			zap.String("operation", op),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
	}
	return res, err
}

// Run is Do for operations without a result.
func (r *Retrier) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, r, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
