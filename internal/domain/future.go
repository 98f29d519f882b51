package domain

import "sync"

// Future is the result of an asynchronous engine operation. It resolves once;
// later resolutions are ignored.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// NewFuture returns an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that is already resolved with v and err.
func Resolved[T any](v T, err error) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(v, err)
	return f
}

// Go runs fn on a new goroutine and resolves the returned future with its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		f.Resolve(fn())
	}()
	return f
}

// Resolve sets the result and wakes waiters. Only the first call has effect.
func (f *Future[T]) Resolve(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the future has resolved, without blocking.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the resolved value. It must only be called once Ready is true.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}
