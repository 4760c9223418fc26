// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package invoker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeycumines/go-hostbridge/hostloop"
	"github.com/joeycumines/logiface"
)

// DefaultDelay is the pause between iterations, if WithDelay is not used.
const DefaultDelay = time.Second

// ErrNilCallback is returned when Run or Inline is given a nil callback.
var ErrNilCallback = errors.New("invoker: nil callback")

// CallbackError indicates the callback failed, on the given iteration.
type CallbackError struct {
	Iteration int
	Err       error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("invoker: callback failed on iteration %d: %v", e.Iteration, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

type options struct {
	logger *logiface.Logger[logiface.Event]
	delay  time.Duration
}

// Option configures Run.
type Option func(*options)

// WithDelay sets the pause between iterations. Zero disables it.
func WithDelay(delay time.Duration) Option {
	return func(o *options) {
		if delay < 0 {
			delay = 0
		}
		o.delay = delay
	}
}

// WithLogger attaches a structured logger, which logs each iteration.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Run starts a single goroutine, which invokes cb count times, with the
// iteration index as the only argument. Every invocation runs on the host
// goroutine of d, and the next does not start until the previous returned.
//
// The returned promise resolves (with nil) once every iteration completed,
// or rejects with a *CallbackError if an invocation failed, ctx.Err() if ctx
// was cancelled between iterations, or the dispatcher's error if it stopped
// accepting work. A count <= 0 resolves without invoking cb.
func Run(ctx context.Context, d hostloop.Dispatcher, count int, cb hostloop.Callback, opts ...Option) hostloop.Promise {
	if cb == nil {
		return hostloop.RejectedPromise(ErrNilCallback)
	}
	if d == nil {
		return hostloop.RejectedPromise(hostloop.ErrNilDispatcher)
	}

	o := options{delay: DefaultDelay}
	for _, opt := range opts {
		opt(&o)
	}

	deferred, promise := hostloop.NewDeferred(d)

	go func() {
		if err := run(ctx, d, count, cb, &o); err != nil {
			deferred.Reject(err)
		} else {
			deferred.Resolve(nil)
		}
	}()

	return promise
}

func run(ctx context.Context, d hostloop.Dispatcher, count int, cb hostloop.Callback, o *options) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		o.logger.Debug().
			Int(`i`, i).
			Log(`running in thread`)

		// the closure is the sole owner of the callback until it returns it
		owned := cb
		cb = nil
		handle := hostloop.Send(d, func() (hostloop.Callback, error) {
			if _, err := owned.Invoke(i); err != nil {
				return owned, &CallbackError{Iteration: i, Err: err}
			}
			return owned, nil
		})

		var err error
		cb, err = handle.Join()
		if err != nil {
			var panicErr hostloop.PanicError
			if errors.As(err, &panicErr) {
				return &CallbackError{Iteration: i, Err: err}
			}
			return err
		}

		if i+1 < count && o.delay > 0 {
			if timer == nil {
				timer = time.NewTimer(o.delay)
			} else {
				timer.Reset(o.delay)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return nil
}

// Inline invokes cb count times, on the calling goroutine, with the
// iteration index as the only argument. The first failure is returned as a
// *CallbackError.
func Inline(count int, cb hostloop.Callback) error {
	if cb == nil {
		return ErrNilCallback
	}
	for i := 0; i < count; i++ {
		if _, err := cb.Invoke(i); err != nil {
			return &CallbackError{Iteration: i, Err: err}
		}
	}
	return nil
}
