package async

import (
	"context"
	"errors"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrCancelled completes a task whose Cancel method won the race against the
// task body.
var ErrCancelled = errors.New("task cancelled")

// Task is a Future backed by a goroutine whose context can be cancelled.
type Task[T any] struct {
	Future[T]

	promise Promise[T]
	cancel  context.CancelFunc
}

// Go runs f on its own goroutine and returns the task tracking it. The
// context handed to f is derived from ctx and is cancelled when f returns or
// when Cancel is called.
func Go[T any](ctx context.Context,
	f func(context.Context) fn.Result[T]) *Task[T] {

	taskCtx, cancel := context.WithCancel(ctx)
	p := NewPromise[T]()

	go func() {
		defer cancel()
		p.Complete(f(taskCtx))
	}()

	return &Task[T]{
		Future:  p.Future(),
		promise: p,
		cancel:  cancel,
	}
}

// Cancel cancels the task context and completes the future with
// ErrCancelled unless the body already finished. It reports whether the
// cancellation decided the result.
func (t *Task[T]) Cancel() bool {
	t.cancel()
	return t.promise.Complete(fn.Err[T](ErrCancelled))
}
