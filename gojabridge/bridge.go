// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gojabridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-hostbridge/events"
	"github.com/joeycumines/go-hostbridge/hostloop"
	"github.com/joeycumines/go-hostbridge/invoker"
	"github.com/joeycumines/go-hostbridge/tasks"
	"github.com/joeycumines/go-hostbridge/workpool"
	"github.com/joeycumines/logiface"
)

// GlobalName is the name of the global object the operations are bound to.
const GlobalName = `hostbridge`

// Bridge binds native operations into a Goja runtime.
type Bridge struct {
	logger       *logiface.Logger[logiface.Event]
	loop         *hostloop.Loop
	runtime      *goja.Runtime
	pool         *workpool.Pool
	eventMetrics *events.Metrics

	slot events.Slot

	// ctx is cancelled by Close, stopping background work
	ctx    context.Context
	cancel context.CancelFunc

	// mu guards pending and idle, tracking promises not yet settled
	mu      sync.Mutex
	idle    chan struct{}
	pending int

	invokerDelay time.Duration
	taskConfig   tasks.Config
	ownPool      bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger attaches a structured logger, also used for the console binding.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithPool sets the pool used by run_pooled_task. The caller retains
// ownership, and Close will not close it. By default the bridge creates,
// and owns, a pool sized to GOMAXPROCS.
func WithPool(pool *workpool.Pool) Option {
	return func(b *Bridge) {
		b.pool = pool
	}
}

// WithInvokerDelay sets the delay between invoke_callback_cross_thread
// iterations.
func WithInvokerDelay(delay time.Duration) Option {
	return func(b *Bridge) {
		b.invokerDelay = delay
	}
}

// WithTaskConfig configures run_native_thread_task and run_pooled_task.
func WithTaskConfig(cfg tasks.Config) Option {
	return func(b *Bridge) {
		b.taskConfig = cfg
	}
}

// WithEventMetrics attaches metrics to the event publisher.
func WithEventMetrics(metrics *events.Metrics) Option {
	return func(b *Bridge) {
		b.eventMetrics = metrics
	}
}

// New creates a new Bridge for the given loop and runtime. The runtime must
// only be used via the loop, once bound.
func New(loop *hostloop.Loop, runtime *goja.Runtime, opts ...Option) (*Bridge, error) {
	if loop == nil {
		return nil, fmt.Errorf("gojabridge: loop cannot be nil")
	}
	if runtime == nil {
		return nil, fmt.Errorf("gojabridge: runtime cannot be nil")
	}

	b := &Bridge{
		loop:         loop,
		runtime:      runtime,
		invokerDelay: invoker.DefaultDelay,
		taskConfig:   tasks.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.pool == nil {
		b.pool = workpool.New(0, workpool.WithLogger(b.logger))
		b.ownPool = true
	}

	b.ctx, b.cancel = context.WithCancel(context.Background())

	return b, nil
}

// Loop returns the host loop.
func (b *Bridge) Loop() *hostloop.Loop { return b.loop }

// Runtime returns the Goja runtime.
func (b *Bridge) Runtime() *goja.Runtime { return b.runtime }

// Events returns the slot holding the event publisher, which may be used
// to publish events from Go.
func (b *Bridge) Events() *events.Slot { return &b.slot }

// Bind installs the hostbridge and console globals.
//
// It must be called before the loop runs, or from the host goroutine.
func (b *Bridge) Bind() error {
	obj := b.runtime.NewObject()
	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		`hello`:                        b.hello,
		`get_cpu_count`:                b.getCPUCount,
		`run_native_thread_task`:       b.runNativeThreadTask,
		`run_pooled_task`:              b.runPooledTask,
		`invoke_callback_inline`:       b.invokeCallbackInline,
		`invoke_callback_cross_thread`: b.invokeCallbackCrossThread,
		`initialize_event_publisher`:   b.initializeEventPublisher,
		`dispose_event_publisher`:      b.disposeEventPublisher,
		`publish_event`:                b.publishEvent,
	} {
		if err := obj.Set(name, fn); err != nil {
			return fmt.Errorf("gojabridge: failed to bind %s: %w", name, err)
		}
	}
	if err := b.runtime.Set(GlobalName, obj); err != nil {
		return fmt.Errorf("gojabridge: failed to bind %s: %w", GlobalName, err)
	}
	return b.bindConsole()
}

// RunScript evaluates src on the host goroutine, returning the exported
// completion value. A thrown exception is returned as a *goja.Exception.
// It must not be called from the host goroutine.
func (b *Bridge) RunScript(ctx context.Context, name, src string) (any, error) {
	handle := hostloop.Send(b.loop, func() (any, error) {
		v, err := b.runtime.RunScript(name, src)
		if err != nil {
			return nil, err
		}
		return v.Export(), nil
	})
	select {
	case <-handle.Done():
		return handle.Join()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Wait blocks until every promise returned to JavaScript has settled, or ctx
// is done.
func (b *Bridge) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		if b.pending == 0 {
			b.mu.Unlock()
			return nil
		}
		idle := b.idle
		b.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close disposes the event publisher, if it was initialized, and stops
// background work, waiting for the pool (if owned) to drain.
func (b *Bridge) Close(ctx context.Context) error {
	if b.slot.Initialized() {
		b.slot.Dispose()
	}
	b.cancel()
	if b.ownPool {
		return b.pool.Close(ctx)
	}
	return nil
}

func (b *Bridge) track() {
	b.mu.Lock()
	if b.pending == 0 {
		b.idle = make(chan struct{})
	}
	b.pending++
	b.mu.Unlock()
}

func (b *Bridge) untrack() {
	b.mu.Lock()
	b.pending--
	if b.pending == 0 {
		close(b.idle)
	}
	b.mu.Unlock()
}

// wrapPromise converts p to a JavaScript promise, settled on the host
// goroutine. Must be called from the host goroutine.
func (b *Bridge) wrapPromise(p hostloop.Promise) goja.Value {
	promise, resolve, reject := b.runtime.NewPromise()
	b.track()
	p.Then(func(result hostloop.Result, err error) {
		defer b.untrack()
		if !b.loop.IsLoopThread() {
			b.logger.Warning().
				Err(err).
				Log(`gojabridge: promise settled after the loop terminated`)
			return
		}
		if err != nil {
			reject(b.errorValue(err))
			return
		}
		if result == nil {
			resolve(goja.Undefined())
			return
		}
		resolve(b.runtime.ToValue(result))
	})
	return b.runtime.ToValue(promise)
}

// errorValue returns the value thrown by a script, if err originated from
// one, otherwise a GoError wrapping err.
func (b *Bridge) errorValue(err error) goja.Value {
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return exception.Value()
	}
	return b.runtime.NewGoError(err)
}

// throw raises err in the calling script.
func (b *Bridge) throw(err error) {
	panic(b.errorValue(err))
}
