package session

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/unikron/shieldswap/pkg/circuitbreaker"
	"github.com/unikron/shieldswap/pkg/errs"
	"github.com/unikron/shieldswap/pkg/gateway"
	"github.com/unikron/shieldswap/pkg/logger"
	"github.com/unikron/shieldswap/pkg/metrics"
)

// RetryPolicy describes how transient gateway failures are retried
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryPolicy retries 3 times waiting 1s, 2s, 4s (capped at 10s)
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2,
	}
}

// Backoff calculates the wait before retry number attempt (zero based)
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}
	backoff := time.Duration(float64(p.BaseDelay) * math.Pow(multiplier, float64(attempt)))

	if p.MaxDelay > 0 && (backoff > p.MaxDelay || backoff < 0) {
		backoff = p.MaxDelay
	}
	return backoff
}

// sleepFunc waits d or until ctx is done
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retrier runs gateway calls under the retry policy and a circuit breaker
type retrier struct {
	policy  RetryPolicy
	breaker *circuitbreaker.CircuitBreaker
	logger  logger.Logger
	sleep   sleepFunc
}

func (r *retrier) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if r.breaker != nil && r.breaker.IsOpen() {
			return &errs.GatewayError{
				Op:    op,
				Class: gateway.ClassCircuitOpen,
				Err:   fmt.Errorf("circuit breaker %s is open", r.breaker.Name()),
			}
		}

		err := fn(ctx)
		if err == nil {
			if r.breaker != nil {
				r.breaker.RecordSuccess()
			}
			return nil
		}
		if !errs.IsTransient(err) {
			return err
		}
		if r.breaker != nil {
			r.breaker.RecordFailure()
		}

		if attempt >= r.policy.MaxRetries {
			metrics.MaxRetriesReached.WithLabelValues(op).Inc()
			r.logger.Error("Gateway %s failed after %d retries: %v", op, attempt, err)
			return err
		}

		backoff := r.policy.Backoff(attempt)
		metrics.RetryCount.WithLabelValues(op).Inc()
		r.logger.Notice("Gateway %s failed (%v), retrying in %v (%d/%d)", op, err, backoff, attempt+1, r.policy.MaxRetries)

		if sleepErr := r.sleep(ctx, backoff); sleepErr != nil {
			return &errs.GatewayError{Op: op, Class: gateway.ClassCancelled, Err: sleepErr}
		}
	}
}
