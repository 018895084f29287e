package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryer(maxRetries int) *ExponentialBackoffRetryer {
	return &ExponentialBackoffRetryer{
		maxRetries: maxRetries,
		baseDelay:  time.Millisecond,
		maxDelay:   5 * time.Millisecond,
		multiplier: 2.0,
	}
}

func TestExponentialBackoffRetryer(t *testing.T) {
	ctx := context.Background()
	errFlaky := errors.New("flaky")

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := fastRetryer(3).Retry(ctx, func() error {
			calls++
			if calls < 3 {
				return errFlaky
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up", func(t *testing.T) {
		calls := 0
		err := fastRetryer(2).Retry(ctx, func() error {
			calls++
			return errFlaky
		})
		assert.ErrorIs(t, err, errFlaky)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		err := fastRetryer(5).Retry(cctx, func() error {
			calls++
			return errFlaky
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})
}

func TestExponentialBackoffRetryer_DelayIsCapped(t *testing.T) {
	r := &ExponentialBackoffRetryer{
		baseDelay:  100 * time.Millisecond,
		maxDelay:   time.Second,
		multiplier: 2.0,
	}
	assert.Equal(t, 100*time.Millisecond, r.delay(0))
	assert.Equal(t, 400*time.Millisecond, r.delay(2))
	assert.Equal(t, time.Second, r.delay(10))

	r.jitter = true
	d := r.delay(10)
	assert.GreaterOrEqual(t, d, time.Second)
	assert.LessOrEqual(t, d, 1250*time.Millisecond)
}
