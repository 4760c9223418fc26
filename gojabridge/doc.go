// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package gojabridge exposes native operations to a Goja JavaScript runtime,
// driven by a [hostloop.Loop].
//
// # Binding the Bridge
//
//	loop, _ := hostloop.New()
//	runtime := goja.New()
//
//	bridge, err := gojabridge.New(loop, runtime)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := bridge.Bind(); err != nil {
//	    log.Fatal(err)
//	}
//
//	go loop.Run(ctx)
//
//	_, err = bridge.RunScript(ctx, "main.js", `
//	    hostbridge.run_native_thread_task(2).then(() => console.log("done"));
//	`)
//
// # Thread Safety
//
// The Goja runtime is only ever accessed from the host goroutine, i.e. from
// within tasks executed by the loop. [Bridge.RunScript] submits evaluation to
// the loop, and every promise returned to JavaScript is settled there.
//
// # Available JavaScript Globals
//
//   - hostbridge.hello() → "hello node"
//   - hostbridge.get_cpu_count() → number of logical CPUs
//   - hostbridge.run_native_thread_task(count) → Promise<undefined>
//   - hostbridge.run_pooled_task(count) → Promise<undefined>
//   - hostbridge.invoke_callback_inline(count, callback) → undefined
//   - hostbridge.invoke_callback_cross_thread(count, callback) → Promise<undefined>
//   - hostbridge.initialize_event_publisher(callback) → undefined
//   - hostbridge.dispose_event_publisher() → undefined
//   - hostbridge.publish_event(event) → undefined
//   - console.log/info/warn/error/debug(...args)
package gojabridge
