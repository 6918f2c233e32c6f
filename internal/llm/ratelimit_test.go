package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	t.Run("burst then wait for refill", func(t *testing.T) {
		// 600 per minute refills one token every 100ms
		rl := newRateLimiter(600)
		defer rl.Close()
		ctx := context.Background()

		for rl.tryAcquire() {
		}

		start := time.Now()
		require.NoError(t, rl.wait(ctx))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond, "expected to wait for a refill")
	})

	t.Run("context cancellation", func(t *testing.T) {
		rl := newRateLimiter(1)
		defer rl.Close()

		require.NoError(t, rl.wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() {
			done <- rl.wait(ctx)
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		err := <-done
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limiter canceled")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("tryAcquire", func(t *testing.T) {
		rl := newRateLimiter(5)
		defer rl.Close()

		for i := 0; i < 5; i++ {
			assert.True(t, rl.tryAcquire(), "attempt %d", i+1)
		}
		assert.False(t, rl.tryAcquire(), "expected tryAcquire to fail after tokens exhausted")
		assert.Equal(t, 0, rl.available())
	})

	t.Run("default rate limit", func(t *testing.T) {
		rl := newRateLimiter(0)
		defer rl.Close()

		assert.Equal(t, defaultRateLimit, rl.available())
	})

	t.Run("concurrent access", func(t *testing.T) {
		rl := newRateLimiter(100)
		defer rl.Close()
		ctx := context.Background()

		var (
			acquired int
			mu       sync.Mutex
			wg       sync.WaitGroup
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					if err := rl.wait(ctx); err == nil {
						mu.Lock()
						acquired++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 100, acquired)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		rl := newRateLimiter(10)
		rl.Close()
		assert.NotPanics(t, rl.Close)
	})
}
