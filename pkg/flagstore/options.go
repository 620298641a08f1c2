package flagstore

import (
	"log/slog"
	"time"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	pollInterval time.Duration
	persister    Persister
	logger       *slog.Logger
	onRefresh    func(RefreshResult)
	now          func() time.Time
}

// WithPollInterval sets how often the poller refreshes definitions.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithPersister enables saving snapshots and loading them on a failed cold start.
func WithPersister(p Persister) Option {
	return func(o *options) {
		o.persister = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOnRefresh registers a callback invoked after each refresh attempt.
func WithOnRefresh(fn func(RefreshResult)) Option {
	return func(o *options) {
		o.onRefresh = fn
	}
}

// WithNow sets the time source used for refresh durations and cold start backoff.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
