// Package async provides a minimal promise/future pair and a cancellable task
// built on top of it. Results travel as fn.Result values so a completed
// future carries either a value or an error, never both.
package async

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Future is the read side of an asynchronous computation.
type Future[T any] interface {
	// Await blocks until the result is available or ctx is done. In the
	// latter case the context error is returned as the result.
	Await(ctx context.Context) fn.Result[T]

	// ThenApply returns a new future holding f applied to a successful
	// result. Errors pass through untouched.
	ThenApply(ctx context.Context, f func(T) T) Future[T]

	// OnComplete calls f once the result is ready. If ctx is done first,
	// f receives the context error instead.
	OnComplete(ctx context.Context, f func(fn.Result[T]))

	// Done is closed once the future has a result.
	Done() <-chan struct{}
}

// Promise is the write side of a Future.
type Promise[T any] interface {
	// Future returns the read side of the promise.
	Future() Future[T]

	// Complete sets the result. Only the first call wins; it reports
	// whether this call was the one that completed the promise.
	Complete(result fn.Result[T]) bool
}

type promise[T any] struct {
	once   sync.Once
	done   chan struct{}
	result fn.Result[T]
}

// NewPromise returns an incomplete promise.
func NewPromise[T any]() Promise[T] {
	return &promise[T]{done: make(chan struct{})}
}

// Future is part of the Promise interface.
func (p *promise[T]) Future() Future[T] {
	return p
}

// Complete is part of the Promise interface.
func (p *promise[T]) Complete(result fn.Result[T]) bool {
	completed := false
	p.once.Do(func() {
		p.result = result
		close(p.done)
		completed = true
	})

	return completed
}

// Await is part of the Future interface.
func (p *promise[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-p.done:
		return p.result

	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

// ThenApply is part of the Future interface.
func (p *promise[T]) ThenApply(ctx context.Context, f func(T) T) Future[T] {
	next := NewPromise[T]()

	go func() {
		value, err := p.Await(ctx).Unpack()
		if err != nil {
			next.Complete(fn.Err[T](err))
			return
		}

		next.Complete(fn.Ok(f(value)))
	}()

	return next.Future()
}

// OnComplete is part of the Future interface.
func (p *promise[T]) OnComplete(ctx context.Context, f func(fn.Result[T])) {
	go func() {
		f(p.Await(ctx))
	}()
}

// Done is part of the Future interface.
func (p *promise[T]) Done() <-chan struct{} {
	return p.done
}
