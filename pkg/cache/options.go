package cache

import "time"

type options struct {
	sizeLimit            int
	compactionPercentage float64
	slidingExpiration    time.Duration
	now                  func() time.Time
}

func defaultOptions() options {
	return options{
		compactionPercentage: 0.2,
		now:                  time.Now,
	}
}

// Option configures an Expiring cache.
type Option func(*options)

// WithSizeLimit bounds the number of entries. Zero or negative means unbounded.
func WithSizeLimit(n int) Option {
	return func(o *options) {
		o.sizeLimit = n
	}
}

// WithCompactionPercentage sets the fraction of entries removed when the size limit is hit.
// Values outside (0, 1] are ignored.
func WithCompactionPercentage(p float64) Option {
	return func(o *options) {
		if p > 0 && p <= 1 {
			o.compactionPercentage = p
		}
	}
}

// WithSlidingExpiration evicts entries not accessed within d. Zero disables expiry.
func WithSlidingExpiration(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.slidingExpiration = d
		}
	}
}

// WithNow sets the time source.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
