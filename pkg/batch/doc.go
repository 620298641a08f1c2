// Package batch buffers items from many goroutines and delivers them to a sender in
// bounded batches.
//
// A flush is triggered when the queue reaches the FlushAt threshold, on every tick
// of the FlushInterval timer, on an explicit Flush call and once more on Shutdown.
// Flushes never overlap: concurrent callers share the in-flight flush through a
// singleflight group.
//
// # Delivery
//
// Each flush dequeues up to MaxBatchSize items per sender call until the queue is
// empty. If the sender fails, the failed batch goes back to the head of the queue
// and the flush stops; the next trigger retries it. There is no persistence, a
// process crash loses buffered items.
//
// # Overflow
//
// MaxQueueSize is a hard cap. When an Enqueue or a requeue pushes the queue past it,
// the oldest items are dropped and reported through WithOnDrop.
//
// # Usage
//
//	b, err := batch.New(func(ctx context.Context, events []Event) error {
//		return client.SendBatch(ctx, events)
//	},
//		batch.WithFlushAt(20),
//		batch.WithFlushInterval(30*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//
//	if err := b.Start(ctx); err != nil {
//		return err
//	}
//	defer b.Shutdown(context.Background())
//
//	_ = b.Enqueue(event)
//
// Run returns a function for errgroup, mirroring Start plus Shutdown:
//
//	g.Go(b.Run(ctx))
package batch
