package batch

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// Sender delivers one batch. A returned error puts the batch back at the head of the queue.
type Sender[T any] func(ctx context.Context, items []T) error

// FlushResult describes one flush attempt.
type FlushResult struct {
	Items    int
	Batches  int
	Requeued int
	Duration time.Duration
	Err      error
}

const flushKey = "flush"

// Batcher buffers items from concurrent producers and hands them to a Sender in
// bounded batches, on a count threshold, on a timer and on demand.
type Batcher[T any] struct {
	send Sender[T]
	opts options

	mu    sync.Mutex
	queue []T

	kick    chan struct{}
	flights singleflight.Group

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool
}

// New creates a batcher delivering to send.
func New[T any](send Sender[T], opts ...Option) (*Batcher[T], error) {
	if send == nil {
		return nil, ErrNilSender
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Batcher[T]{
		send:  send,
		opts:  o,
		queue: make([]T, 0, o.flushAt),
		kick:  make(chan struct{}, 1),
	}, nil
}

// Enqueue appends an item. Reaching the flush threshold signals the background loop
// without blocking. When the queue is full the oldest items are dropped.
func (b *Batcher[T]) Enqueue(item T) error {
	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.Lock()
	b.queue = append(b.queue, item)
	dropped := b.trimLocked()
	n := len(b.queue)
	b.mu.Unlock()

	b.reportDropped(dropped)

	if n >= b.opts.flushAt {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Len returns the number of buffered items.
func (b *Batcher[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Flush sends every buffered item, at most MaxBatchSize per sender call.
// Concurrent callers share a single in-flight flush. A caller whose ctx ends stops
// waiting; the shared flush is detached from every caller and bounded by the
// shutdown timeout.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	ch := b.shared(ctx)

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the background loop. It stops when ctx is cancelled or on Shutdown.
func (b *Batcher[T]) Start(ctx context.Context) error {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	if b.closed.Load() {
		return ErrClosed
	}
	if b.cancel != nil {
		return ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.run(loopCtx, b.done)

	b.opts.logger.LogAttrs(ctx, slog.LevelInfo, "batcher started",
		logger.Component("batch"),
		slog.Int("flush_at", b.opts.flushAt),
		slog.Int("max_batch_size", b.opts.maxBatchSize),
		slog.Duration("flush_interval", b.opts.flushInterval),
	)
	return nil
}

// Shutdown stops accepting items, stops the loop, waits for its in-flight flush and
// performs a final flush. Calling it again is a no-op.
func (b *Batcher[T]) Shutdown(ctx context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.lifeMu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel = nil
	b.lifeMu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := b.Flush(ctx)
	if err != nil && ctx.Err() == nil && b.Len() > 0 {
		// The joined flush may have been started by another caller; try once more.
		err = b.Flush(ctx)
	}
	if err != nil {
		b.opts.logger.LogAttrs(ctx, slog.LevelError, "final flush failed, buffered items are lost",
			logger.Component("batch"),
			logger.Count(b.Len()),
			logger.Error(err),
		)
		return err
	}

	b.opts.logger.LogAttrs(ctx, slog.LevelInfo, "batcher stopped", logger.Component("batch"))
	return nil
}

// Run starts the batcher and returns a function suitable for errgroup.
// The final flush is bounded by the shutdown timeout.
func (b *Batcher[T]) Run(ctx context.Context) func() error {
	return func() error {
		if err := b.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.opts.shutdownTimeout)
		defer cancel()
		return b.Shutdown(shutdownCtx)
	}
}

// run is the main loop
func (b *Batcher[T]) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := b.opts.clock.NewTicker(b.opts.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			b.flushFromLoop(ctx)
		case <-b.kick:
			b.flushFromLoop(ctx)
		}
	}
}

// flushFromLoop waits for the shared flush to finish even when ctx ends, so that
// Shutdown never races a loop-started flush.
func (b *Batcher[T]) flushFromLoop(ctx context.Context) {
	if b.Len() == 0 {
		return
	}

	res := <-b.shared(ctx)
	if res.Err != nil && !errors.Is(res.Err, context.Canceled) {
		b.opts.logger.LogAttrs(ctx, slog.LevelWarn, "scheduled flush failed, will retry on next trigger",
			logger.Component("batch"),
			logger.Error(res.Err),
		)
	}
}

// shared joins the in-flight flush or starts one. The drain keeps the values of ctx
// but not its cancellation, so a departing caller never fails it for the others.
func (b *Batcher[T]) shared(ctx context.Context) <-chan singleflight.Result {
	return b.flights.DoChan(flushKey, func() (any, error) {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.opts.shutdownTimeout)
		defer cancel()
		return nil, b.drain(drainCtx)
	})
}

func (b *Batcher[T]) drain(ctx context.Context) error {
	start := b.opts.clock.Now()
	var res FlushResult

	for {
		items := b.take(b.opts.maxBatchSize)
		if len(items) == 0 {
			break
		}
		if err := b.send(ctx, items); err != nil {
			b.requeue(items)
			res.Requeued = len(items)
			res.Err = err
			break
		}
		res.Items += len(items)
		res.Batches++
	}

	res.Duration = b.opts.clock.Now().Sub(start)
	if res.Batches > 0 || res.Err != nil {
		b.opts.logger.LogAttrs(ctx, slog.LevelDebug, "flush finished",
			logger.Component("batch"),
			logger.BatchSize(res.Items),
			slog.Int("batches", res.Batches),
			logger.Duration(res.Duration),
			logger.Error(res.Err),
		)
		if b.opts.onFlush != nil {
			b.opts.onFlush(res)
		}
	}
	return res.Err
}

func (b *Batcher[T]) take(n int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	n = min(n, len(b.queue))
	if n == 0 {
		return nil
	}
	items := slices.Clone(b.queue[:n])
	b.queue = slices.Delete(b.queue, 0, n)
	return items
}

func (b *Batcher[T]) requeue(items []T) {
	b.mu.Lock()
	b.queue = slices.Insert(b.queue, 0, items...)
	dropped := b.trimLocked()
	b.mu.Unlock()

	b.reportDropped(dropped)
}

// trimLocked drops the oldest items beyond the queue cap.
// Must be called with lock held.
func (b *Batcher[T]) trimLocked() int {
	over := len(b.queue) - b.opts.maxQueueSize
	if over <= 0 {
		return 0
	}
	b.queue = slices.Delete(b.queue, 0, over)
	return over
}

func (b *Batcher[T]) reportDropped(n int) {
	if n == 0 {
		return
	}
	b.opts.logger.LogAttrs(context.Background(), slog.LevelWarn, "queue full, dropped oldest items",
		logger.Component("batch"),
		logger.Count(n),
	)
	if b.opts.onDrop != nil {
		b.opts.onDrop(n)
	}
}
