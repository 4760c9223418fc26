// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package gojabridge

import (
	"encoding/json"
	"fmt"
	"math"
	"runtime"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-hostbridge/events"
	"github.com/joeycumines/go-hostbridge/hostloop"
	"github.com/joeycumines/go-hostbridge/invoker"
	"github.com/joeycumines/go-hostbridge/tasks"
)

// jsCallback is a script function, bound to its receiver.
type jsCallback struct {
	runtime *goja.Runtime
	fn      goja.Callable
	this    goja.Value
}

var _ hostloop.Callback = (*jsCallback)(nil)

func (x *jsCallback) Invoke(args ...any) (any, error) {
	values := make([]goja.Value, len(args))
	for i, arg := range args {
		values[i] = x.runtime.ToValue(arg)
	}
	ret, err := x.fn(x.this, values...)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, nil
	}
	return ret.Export(), nil
}

func (b *Bridge) hello(goja.FunctionCall) goja.Value {
	return b.runtime.ToValue(`hello node`)
}

func (b *Bridge) getCPUCount(goja.FunctionCall) goja.Value {
	return b.runtime.ToValue(runtime.NumCPU())
}

func (b *Bridge) runNativeThreadTask(call goja.FunctionCall) goja.Value {
	count := b.countArgument(call, `run_native_thread_task`)
	return b.wrapPromise(tasks.RunNative(b.ctx, b.loop, count, b.taskConfig, b.taskOptions()...))
}

func (b *Bridge) runPooledTask(call goja.FunctionCall) goja.Value {
	count := b.countArgument(call, `run_pooled_task`)
	return b.wrapPromise(tasks.RunPooled(b.ctx, b.loop, b.pool, count, b.taskConfig, b.taskOptions()...))
}

func (b *Bridge) taskOptions() []tasks.Option {
	return []tasks.Option{
		tasks.WithLogger(b.logger),
		tasks.WithReporter(func(event events.Event) {
			// progress is only reported while a publisher is live
			_ = b.slot.TryPublish(event)
		}),
	}
}

func (b *Bridge) invokeCallbackInline(call goja.FunctionCall) goja.Value {
	count := b.countArgument(call, `invoke_callback_inline`)
	cb := b.callbackArgument(call, 1, goja.Undefined(), `invoke_callback_inline`)
	if err := invoker.Inline(count, cb); err != nil {
		b.throw(err)
	}
	return goja.Undefined()
}

func (b *Bridge) invokeCallbackCrossThread(call goja.FunctionCall) goja.Value {
	count := b.countArgument(call, `invoke_callback_cross_thread`)
	cb := b.callbackArgument(call, 1, call.This, `invoke_callback_cross_thread`)
	return b.wrapPromise(invoker.Run(b.ctx, b.loop, count, cb,
		invoker.WithDelay(b.invokerDelay),
		invoker.WithLogger(b.logger),
	))
}

func (b *Bridge) initializeEventPublisher(call goja.FunctionCall) goja.Value {
	cb := b.callbackArgument(call, 0, call.This, `initialize_event_publisher`)
	b.guard(func() {
		b.slot.Initialize(b.loop, cb,
			events.WithLogger(b.logger),
			events.WithMetrics(b.eventMetrics),
		)
	})
	return goja.Undefined()
}

func (b *Bridge) disposeEventPublisher(goja.FunctionCall) goja.Value {
	b.guard(b.slot.Dispose)
	return goja.Undefined()
}

func (b *Bridge) publishEvent(call goja.FunctionCall) goja.Value {
	arg := call.Argument(0)

	var text string
	if s, ok := arg.Export().(string); ok {
		text = s
	} else if obj, ok := arg.(*goja.Object); ok {
		data, err := json.Marshal(obj.Export())
		if err != nil {
			b.throw(err)
		}
		text = string(data)
	} else {
		panic(b.runtime.NewTypeError(`publish_event: event must be an object or string`))
	}

	event, err := events.Unmarshal(text)
	if err != nil {
		panic(b.runtime.NewTypeError(`publish_event: ` + err.Error()))
	}

	var publishErr error
	b.guard(func() { publishErr = b.slot.Publish(event) })
	if publishErr != nil {
		b.throw(publishErr)
	}

	return goja.Undefined()
}

// guard converts error panics (precondition violations) to script exceptions.
func (b *Bridge) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				b.throw(err)
			}
			panic(r)
		}
	}()
	fn()
}

func (b *Bridge) countArgument(call goja.FunctionCall, name string) int {
	switch v := call.Argument(0).Export().(type) {
	case int64:
		if v >= 0 && v <= math.MaxInt32 {
			return int(v)
		}
	case float64:
		if v >= 0 && v <= math.MaxInt32 && v == math.Trunc(v) {
			return int(v)
		}
	}
	panic(b.runtime.NewTypeError(fmt.Sprint(name, `: count must be a non-negative integer`)))
}

func (b *Bridge) callbackArgument(call goja.FunctionCall, index int, this goja.Value, name string) hostloop.Callback {
	fn, ok := goja.AssertFunction(call.Argument(index))
	if !ok {
		panic(b.runtime.NewTypeError(fmt.Sprint(name, `: callback must be a function`)))
	}
	if this == nil {
		this = goja.Undefined()
	}
	return &jsCallback{
		runtime: b.runtime,
		fn:      fn,
		this:    this,
	}
}
