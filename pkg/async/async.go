package async

import (
	"context"
	"errors"
)

// Future is the eventual result of a function started with Go.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Go runs fn in a new goroutine and returns its Future. A ctx that is already
// done short-circuits with ctx.Err() without calling fn.
func Go[U any](ctx context.Context, fn func(context.Context) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.result, f.err = fn(ctx)
	}()

	return f
}

// Run is Go for functions that only return an error.
func Run(ctx context.Context, fn func(context.Context) error) *Future[struct{}] {
	return Go(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

// Done is closed when the function has returned.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the function returns or ctx is done. In the latter case the
// function keeps running and ErrAwaitAborted is returned joined with ctx.Err().
func (f *Future[U]) Await(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero U
		return zero, errors.Join(ErrAwaitAborted, ctx.Err())
	}
}

// IsComplete reports whether the function has returned, without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// WaitAll awaits every future and returns their results in order. Errors from
// all futures are joined.
func WaitAll[U any](ctx context.Context, futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))
	var errs []error
	for i, f := range futures {
		res, err := f.Await(ctx)
		results[i] = res
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// WaitAny returns the index, result and error of the first future to finish.
func WaitAny[U any](ctx context.Context, futures ...*Future[U]) (int, U, error) {
	var zero U
	if len(futures) == 0 {
		return -1, zero, ErrNoFutures
	}

	first := make(chan int, len(futures))
	for i, f := range futures {
		go func() {
			select {
			case <-f.done:
				first <- i
			case <-ctx.Done():
			}
		}()
	}

	select {
	case i := <-first:
		return i, futures[i].result, futures[i].err
	case <-ctx.Done():
		return -1, zero, errors.Join(ErrAwaitAborted, ctx.Err())
	}
}
