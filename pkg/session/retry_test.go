package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unikron/shieldswap/pkg/errs"
	"github.com/unikron/shieldswap/pkg/gateway"
	"github.com/unikron/shieldswap/pkg/logger"
)

func TestBackoff(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
	assert.Equal(t, 10*time.Second, p.Backoff(4))
	assert.Equal(t, 10*time.Second, p.Backoff(60))
}

func newTestRetrier(sleeps *[]time.Duration) *retrier {
	return &retrier{
		policy: DefaultRetryPolicy(),
		logger: &logger.EmptyLogger{},
		sleep: func(ctx context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return ctx.Err()
		},
	}
}

func TestRetrierDo(t *testing.T) {
	ctx := context.Background()

	t.Run("success needs one call", func(t *testing.T) {
		var sleeps []time.Duration
		calls := 0
		err := newTestRetrier(&sleeps).do(ctx, gateway.OpStatus, func(context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Empty(t, sleeps)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		var sleeps []time.Duration
		calls := 0
		err := newTestRetrier(&sleeps).do(ctx, gateway.OpReveal, func(context.Context) error {
			calls++
			return permanentErr(gateway.OpReveal)
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("plain errors are not retried", func(t *testing.T) {
		var sleeps []time.Duration
		calls := 0
		err := newTestRetrier(&sleeps).do(ctx, gateway.OpReveal, func(context.Context) error {
			calls++
			return errors.New("boom")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient errors back off then give up", func(t *testing.T) {
		var sleeps []time.Duration
		calls := 0
		err := newTestRetrier(&sleeps).do(ctx, gateway.OpCommit, func(context.Context) error {
			calls++
			return transientErr(gateway.OpCommit)
		})
		require.Error(t, err)
		assert.True(t, errs.IsTransient(err))
		assert.Equal(t, 4, calls)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeps)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		var sleeps []time.Duration
		err := newTestRetrier(&sleeps).do(cctx, gateway.OpCommit, func(context.Context) error {
			return transientErr(gateway.OpCommit)
		})
		var gwErr *errs.GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, gateway.ClassCancelled, gwErr.Class)
		assert.False(t, gwErr.Transient)
	})
}

func TestSleepCtx(t *testing.T) {
	require.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
