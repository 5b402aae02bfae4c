// Package async runs blocking calls in the background and hands back a Future.
//
// The client uses it to offer non-blocking variants of its session operations:
//
//	future := async.Async(ctx, creds, func(ctx context.Context, c tunnel.Credentials) (tunnel.Result, error) {
//		return manager.Open(ctx, c)
//	})
//
//	// ... other work ...
//
//	res, err := future.Await()
//
// AwaitWithTimeout bounds the wait without cancelling the computation:
//
//	res, err := future.AwaitWithTimeout(time.Second)
//	if errors.Is(err, async.ErrTimeout) {
//		// still running
//	}
//
// WaitAll and WaitAny coordinate several futures. A context that is already
// cancelled when Async is called completes the future immediately with the
// context error.
package async
