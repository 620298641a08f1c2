package transport_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/featurekit/pkg/transport"
)

func TestBreaker(t *testing.T) {
	t.Parallel()

	t.Run("opens after threshold", func(t *testing.T) {
		t.Parallel()

		b := transport.NewBreaker(2, 1, time.Minute)
		assert.Equal(t, transport.BreakerClosed, b.State())

		b.Failure()
		assert.True(t, b.Allow())

		b.Failure()
		assert.Equal(t, transport.BreakerOpen, b.State())
		assert.False(t, b.Allow())
	})

	t.Run("success resets failure count", func(t *testing.T) {
		t.Parallel()

		b := transport.NewBreaker(2, 1, time.Minute)
		b.Failure()
		b.Success()
		b.Failure()
		assert.Equal(t, transport.BreakerClosed, b.State())
	})

	t.Run("half-open after cooldown then closes", func(t *testing.T) {
		t.Parallel()

		b := transport.NewBreaker(1, 2, 20*time.Millisecond)
		b.Failure()
		assert.False(t, b.Allow())

		time.Sleep(30 * time.Millisecond)
		assert.True(t, b.Allow())
		assert.Equal(t, transport.BreakerHalfOpen, b.State())

		b.Success()
		assert.Equal(t, transport.BreakerHalfOpen, b.State())
		b.Success()
		assert.Equal(t, transport.BreakerClosed, b.State())
	})

	t.Run("failed probe reopens", func(t *testing.T) {
		t.Parallel()

		b := transport.NewBreaker(1, 1, 20*time.Millisecond)
		b.Failure()
		time.Sleep(30 * time.Millisecond)
		assert.True(t, b.Allow())

		b.Failure()
		assert.Equal(t, transport.BreakerOpen, b.State())
		assert.False(t, b.Allow())
	})

	t.Run("concurrent use", func(t *testing.T) {
		t.Parallel()

		b := transport.NewBreaker(1000, 1, time.Minute)
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Allow()
				b.Failure()
				b.Success()
			}()
		}
		wg.Wait()
		assert.Equal(t, transport.BreakerClosed, b.State())
	})

	t.Run("state names", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "closed", transport.BreakerClosed.String())
		assert.Equal(t, "open", transport.BreakerOpen.String())
		assert.Equal(t, "half-open", transport.BreakerHalfOpen.String())
	})
}
