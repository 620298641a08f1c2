package cache_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/featurekit/pkg/cache"
)

func TestSentEvents_ShouldCapture(t *testing.T) {
	t.Parallel()

	t.Run("captures each tuple once", func(t *testing.T) {
		t.Parallel()
		s := cache.NewSentEvents()

		assert.True(t, s.ShouldCapture("user-1", "beta", "true"))
		assert.False(t, s.ShouldCapture("user-1", "beta", "true"))

		assert.True(t, s.ShouldCapture("user-1", "beta", "false"), "different result")
		assert.True(t, s.ShouldCapture("user-2", "beta", "true"), "different actor")
		assert.True(t, s.ShouldCapture("user-1", "other", "true"), "different flag")
		assert.Equal(t, 4, s.Len())
	})

	t.Run("captures again after the window elapses", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		s := cache.NewSentEvents(
			cache.WithSlidingExpiration(10*time.Minute),
			cache.WithNow(clock.Now),
		)

		assert.True(t, s.ShouldCapture("user-1", "beta", "true"))
		clock.Advance(9 * time.Minute)
		assert.False(t, s.ShouldCapture("user-1", "beta", "true"))

		clock.Advance(11 * time.Minute)
		assert.True(t, s.ShouldCapture("user-1", "beta", "true"))
	})

	t.Run("captures again after size eviction", func(t *testing.T) {
		t.Parallel()
		s := cache.NewSentEvents(cache.WithSizeLimit(2), cache.WithCompactionPercentage(0.5))

		assert.True(t, s.ShouldCapture("a", "f", "true"))
		assert.True(t, s.ShouldCapture("b", "f", "true"))
		assert.True(t, s.ShouldCapture("c", "f", "true"))
		assert.True(t, s.ShouldCapture("a", "f", "true"), "a was compacted away")
	})

	t.Run("forget readmits the tuple", func(t *testing.T) {
		t.Parallel()
		s := cache.NewSentEvents()

		assert.True(t, s.ShouldCapture("user-1", "beta", "true"))
		s.Forget("user-1", "beta", "true")
		assert.True(t, s.ShouldCapture("user-1", "beta", "true"))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("reset", func(t *testing.T) {
		t.Parallel()
		s := cache.NewSentEvents()
		s.ShouldCapture("a", "f", "true")
		s.Reset()
		assert.True(t, s.ShouldCapture("a", "f", "true"))
	})

	t.Run("one capture under concurrency", func(t *testing.T) {
		t.Parallel()
		s := cache.NewSentEvents()

		var captured atomic.Int32
		var wg sync.WaitGroup
		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.ShouldCapture("user-1", "beta", "true") {
					captured.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), captured.Load())
	})
}
