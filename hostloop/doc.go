// Package hostloop implements the host dispatch channel: a single logical
// host goroutine that executes submitted tasks one at a time, in submission
// order, on behalf of any number of producer goroutines.
//
// # Architecture
//
// A [Loop] owns a single FIFO queue, fed by [Loop.Submit]. Completion
// dispatches, such as promise settlement, share that queue with every other
// task, so a producer's earlier submissions always run before its later ones.
//
// Two dispatch primitives are provided on top of the same queue:
//   - Fire-and-forget: [Loop.Submit] returns as soon as the task is queued.
//   - Submit-and-await: [Send] returns a [JoinHandle], and
//     [JoinHandle.Join] blocks the calling goroutine until the task has run
//     on the host goroutine, returning whatever the task produced.
//
// Values that must only be touched on the host goroutine (for example the
// functions and objects of an embedded scripting runtime) are modelled by
// [Callback]. Nothing in this package invokes a Callback off the loop.
//
// # Thread Safety
//
//   - [Loop.Submit] and [Send] are safe to call from any goroutine
//   - [Deferred] settlement is routed through the loop, so subscribers registered
//     with [Promise.Then] observe the result on the host goroutine
//   - [Loop.Run] must not be called from within a task (see [ErrReentrantRun])
//
// # Usage
//
//	loop, err := hostloop.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go func() {
//	    v, err := hostloop.Send(loop, func() (string, error) {
//	        return "ran on the host goroutine", nil
//	    }).Join()
//	    fmt.Println(v, err)
//	    _ = loop.Shutdown(context.Background())
//	}()
//
//	if err := loop.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package hostloop
