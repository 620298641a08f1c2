// Package async provides a small generic Future for fan-out work such as
// stopping several components concurrently.
//
//	stopPoller := async.Run(ctx, store.Stop)
//	stopQueue := async.Run(ctx, batcher.Shutdown)
//	_, err := async.WaitAll(ctx, stopPoller, stopQueue)
package async
