package batch

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a batcher
type Option func(*options)

type options struct {
	flushAt         int
	maxBatchSize    int
	maxQueueSize    int
	flushInterval   time.Duration
	shutdownTimeout time.Duration
	clock           Clock
	logger          *slog.Logger
	onDrop          func(dropped int)
	onFlush         func(FlushResult)
}

func defaultOptions() options {
	return options{
		flushAt:         20,
		maxBatchSize:    100,
		maxQueueSize:    1000,
		flushInterval:   30 * time.Second,
		shutdownTimeout: 30 * time.Second,
		clock:           SystemClock(),
		logger:          slog.Default(),
	}
}

// WithFlushAt sets the queue length that triggers an asynchronous flush
func WithFlushAt(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.flushAt = n
		}
	}
}

// WithMaxBatchSize sets the maximum number of items handed to the sender at once
func WithMaxBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBatchSize = n
		}
	}
}

// WithMaxQueueSize caps the number of buffered items; the oldest are dropped beyond it
func WithMaxQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxQueueSize = n
		}
	}
}

// WithFlushInterval sets how often the background loop flushes
func WithFlushInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.flushInterval = d
		}
	}
}

// WithShutdownTimeout bounds the final flush performed by Run
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithClock sets the time source, mainly for tests
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger for the batcher
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOnDrop registers a callback invoked with the number of items dropped on overflow
func WithOnDrop(fn func(dropped int)) Option {
	return func(o *options) {
		o.onDrop = fn
	}
}

// WithOnFlush registers a callback invoked after every flush attempt that had work
func WithOnFlush(fn func(FlushResult)) Option {
	return func(o *options) {
		o.onFlush = fn
	}
}
