package async

import (
	"context"
	"sync"
	"time"
)

// Future represents the result of an asynchronous computation.
type Future[U any] struct {
	result U
	err    error
	once   sync.Once
	done   chan struct{}
}

// Await blocks until the computation completes and returns its result.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout waits at most timeout for the computation.
// Returns ErrTimeout if it is still running; the computation itself keeps going.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.result, f.err
	case <-timer.C:
		var zero U
		return zero, ErrTimeout
	}
}

// Done returns a channel closed when the computation completes.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// IsComplete reports whether the computation has finished, without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future[U]) complete(result U, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}

// Async runs fn(ctx, param) in its own goroutine and returns a Future for its result.
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		// Pre-cancelled contexts never start the work
		if err := ctx.Err(); err != nil {
			var zero U
			f.complete(zero, err)
			return
		}

		result, err := fn(ctx, param)
		f.complete(result, err)
	}()

	return f
}

// Resolved returns an already completed Future.
func Resolved[U any](result U, err error) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}
	f.complete(result, err)
	return f
}

// WaitAll waits for every future and returns their results in order.
// The first error encountered (in argument order) is returned.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))
	var firstErr error
	for i, f := range futures {
		res, err := f.Await()
		results[i] = res
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}

// WaitAny returns the index and result of the first future to complete.
func WaitAny[U any](futures ...*Future[U]) (int, U, error) {
	var zero U
	if len(futures) == 0 {
		return -1, zero, ErrNoFutures
	}

	type first struct {
		index  int
		result U
		err    error
	}
	done := make(chan first, len(futures))

	for i, f := range futures {
		go func(index int, f *Future[U]) {
			res, err := f.Await()
			done <- first{index, res, err}
		}(i, f)
	}

	r := <-done
	return r.index, r.result, r.err
}
