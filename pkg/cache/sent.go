package cache

type sentKey struct {
	actorID string
	flagKey string
	result  string
}

// SentEvents remembers which (actor, flag, result) combinations already produced a
// "flag called" analytics event.
type SentEvents struct {
	cache *Expiring[sentKey, struct{}]
}

// NewSentEvents creates a SentEvents tracker backed by an Expiring cache.
func NewSentEvents(opts ...Option) *SentEvents {
	return &SentEvents{cache: NewExpiring[sentKey, struct{}](opts...)}
}

// ShouldCapture records the combination and reports whether it was new.
// Each combination yields true once until it is evicted.
func (s *SentEvents) ShouldCapture(actorID, flagKey, result string) bool {
	_, loaded := s.cache.GetOrAdd(sentKey{actorID: actorID, flagKey: flagKey, result: result}, struct{}{})
	return !loaded
}

// Forget drops a combination so the next ShouldCapture for it reports true again.
// Used when the event it admitted could not be recorded.
func (s *SentEvents) Forget(actorID, flagKey, result string) {
	s.cache.Remove(sentKey{actorID: actorID, flagKey: flagKey, result: result})
}

// Len returns the number of remembered combinations.
func (s *SentEvents) Len() int {
	return s.cache.Len()
}

// Reset forgets every combination.
func (s *SentEvents) Reset() {
	s.cache.Clear()
}
