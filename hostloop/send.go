package hostloop

import (
	"sync"
)

// Callback is a host-side function bound to its receiver, e.g. a script
// function paired with its `this` value. Implementations are only ever
// invoked on the host goroutine, and need not be safe for concurrent use.
type Callback interface {
	Invoke(args ...any) (any, error)
}

// CallbackFunc adapts an ordinary function to the Callback interface.
type CallbackFunc func(args ...any) (any, error)

// Invoke calls f(args...).
func (f CallbackFunc) Invoke(args ...any) (any, error) { return f(args...) }

// JoinHandle is a one-shot completion signal for a task submitted with [Send].
type JoinHandle[T any] struct {
	done  chan struct{}
	value T
	err   error
	once  sync.Once
}

// Send submits fn to the dispatcher, returning a handle that may be used to
// block until fn has run on the host goroutine, and to retrieve its result.
//
// Ownership of anything captured by fn passes to the host goroutine, and back
// to the caller of [JoinHandle.Join] via fn's return value. A panic in fn is
// recovered and reported as a [PanicError]. If the dispatcher rejects the
// task, the handle completes immediately with that error.
func Send[T any](d Dispatcher, fn func() (T, error)) *JoinHandle[T] {
	h := &JoinHandle[T]{done: make(chan struct{})}

	if d == nil {
		h.complete(*new(T), ErrNilDispatcher)
		return h
	}

	err := d.Submit(func() {
		var (
			value    T
			err      error
			returned bool
		)
		defer func() {
			if !returned {
				if r := recover(); r != nil {
					err = PanicError{Value: r}
				} else {
					err = ErrGoexit
				}
			}
			h.complete(value, err)
		}()
		value, err = fn()
		returned = true
	})
	if err != nil {
		h.complete(*new(T), err)
	}

	return h
}

func (h *JoinHandle[T]) complete(value T, err error) {
	h.once.Do(func() {
		h.value = value
		h.err = err
		close(h.done)
	})
}

// Done returns a channel that is closed once the result is available.
func (h *JoinHandle[T]) Done() <-chan struct{} {
	return h.done
}

// Join blocks until the task has run, then returns its result. It must not be
// called from the host goroutine, as that would deadlock.
func (h *JoinHandle[T]) Join() (T, error) {
	<-h.done
	return h.value, h.err
}
