// Package invoker repeatedly invokes a host-side callback from a background
// goroutine, waiting for each invocation to complete on the host goroutine
// before starting the next.
//
// The callback is never shared: ownership is handed to the host goroutine as
// part of each dispatch, and handed back when it completes. [Inline] is the
// degenerate, same-goroutine form.
package invoker
