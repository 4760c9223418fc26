// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package tasks implements long-running background tasks, that settle a
// promise with exactly one completion dispatch once their work is done.
//
// [RunNative] performs the work on a dedicated goroutine, [RunPooled] on a
// [workpool.Pool]. Neither ever blocks the host goroutine.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/joeycumines/go-hostbridge/events"
	"github.com/joeycumines/go-hostbridge/hostloop"
	"github.com/joeycumines/go-hostbridge/workpool"
	"github.com/joeycumines/logiface"
)

// DefaultStepDelay is the duration of one step of simulated blocking work.
const DefaultStepDelay = time.Second

// Config models the work performed by a task.
type Config struct {
	// StepDelay is how long each step blocks for.
	StepDelay time.Duration
}

// DefaultConfig returns the default Config.
func DefaultConfig() Config {
	return Config{StepDelay: DefaultStepDelay}
}

type options struct {
	logger   *logiface.Logger[logiface.Event]
	reporter func(events.Event)
}

// Option configures RunNative or RunPooled.
type Option func(*options)

// WithLogger attaches a structured logger.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReporter registers a function that is called, off the host goroutine,
// with a progress event before each step.
func WithReporter(reporter func(events.Event)) Option {
	return func(o *options) {
		o.reporter = reporter
	}
}

// RunNative performs count steps of blocking work on a new goroutine. The
// returned promise is settled through d once the work has finished, and is
// rejected with ctx.Err() if ctx is cancelled first. A panic during the work,
// including one raised by the reporter, rejects with a [hostloop.PanicError].
func RunNative(ctx context.Context, d hostloop.Dispatcher, count int, cfg Config, opts ...Option) hostloop.Promise {
	if d == nil {
		return hostloop.RejectedPromise(hostloop.ErrNilDispatcher)
	}
	o := resolveOptions(opts)
	deferred, promise := hostloop.NewDeferred(d)
	go execute(deferred, o, func() error { return work(ctx, `native`, count, cfg, o) })
	return promise
}

// RunPooled is RunNative, except the work is performed by pool.
func RunPooled(ctx context.Context, d hostloop.Dispatcher, pool *workpool.Pool, count int, cfg Config, opts ...Option) hostloop.Promise {
	if d == nil {
		return hostloop.RejectedPromise(hostloop.ErrNilDispatcher)
	}
	if pool == nil {
		return hostloop.RejectedPromise(fmt.Errorf("tasks: nil pool"))
	}
	o := resolveOptions(opts)
	deferred, promise := hostloop.NewDeferred(d)
	// acquiring a slot may block, and the caller is typically the host goroutine
	go func() {
		err := pool.Go(ctx, func(ctx context.Context) {
			execute(deferred, o, func() error { return work(ctx, `pooled`, count, cfg, o) })
		})
		if err != nil {
			deferred.Reject(err)
		}
	}()
	return promise
}

func resolveOptions(opts []Option) *options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &o
}

// execute calls fn, settling deferred with its result. It is the single
// completion dispatch of a task, even if fn panics or exits the goroutine.
func execute(deferred *hostloop.Deferred, o *options, fn func() error) {
	var returned bool
	defer func() {
		if returned {
			return
		}
		var err error
		if r := recover(); r != nil {
			err = hostloop.PanicError{Value: r}
		} else {
			err = hostloop.ErrGoexit
		}
		o.logger.Err().
			Err(err).
			Log(`task failed`)
		deferred.Reject(err)
	}()
	err := fn()
	returned = true
	complete(deferred, err)
}

func complete(deferred *hostloop.Deferred, err error) {
	if err != nil {
		deferred.Reject(err)
	} else {
		deferred.Resolve(nil)
	}
}

func work(ctx context.Context, kind string, count int, cfg Config, o *options) error {
	started := time.Now()

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

		if o.reporter != nil {
			o.reporter(events.Log{Message: fmt.Sprintf(`running in thread i: %d`, i)})
		}

		if cfg.StepDelay > 0 {
			if timer == nil {
				timer = time.NewTimer(cfg.StepDelay)
			} else {
				timer.Reset(cfg.StepDelay)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	o.logger.Debug().
		Str(`kind`, kind).
		Int(`count`, count).
		Dur(`elapsed`, time.Since(started)).
		Log(`task complete`)

	return nil
}
