// Package cache provides a generic, thread-safe cache bounded by size and by a sliding
// expiration, and the SentEvents tracker built on it.
//
// # Eviction
//
// Every access refreshes an entry's sliding expiration and moves it to the front of the
// recency list. Expired entries are dropped lazily when they are looked up. When an
// insert finds the cache at its size limit, the cache compacts:
//
//  1. All expired entries are removed
//  2. If still at the limit, ceil(len * compactionPercentage) least recently used
//     entries are removed (at least one)
//
// # Usage
//
//	sent := cache.NewSentEvents(
//		cache.WithSizeLimit(50_000),
//		cache.WithCompactionPercentage(0.2),
//		cache.WithSlidingExpiration(10*time.Minute),
//	)
//
//	if sent.ShouldCapture(distinctID, flagKey, "true") {
//		// record the "flag called" event
//	}
//
// The generic cache can be used directly:
//
//	c := cache.NewExpiring[string, *Session](cache.WithSizeLimit(1000))
//	c.SetEvictCallback(func(key string, s *Session) {
//		s.Close()
//	})
//	value, loaded := c.GetOrAdd("key", session)
package cache
