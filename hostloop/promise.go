// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostloop

import (
	"context"
	"sync"
)

// Result represents the value of a settled promise.
type Result = any

// PromiseState represents the lifecycle state of a [Promise].
// A promise starts Pending and transitions to either Resolved or Rejected.
// State transitions are irreversible.
type PromiseState int

const (
	// Pending indicates the operation is still in progress.
	Pending PromiseState = iota

	// Resolved indicates the operation completed successfully.
	Resolved

	// Rejected indicates the operation failed.
	Rejected
)

// String returns a human-readable representation of the state.
func (s PromiseState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Resolved:
		return "Resolved"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Promise is a read-only view of a future result.
type Promise interface {
	// State returns the current [PromiseState].
	State() PromiseState

	// Result returns the fulfillment value, or nil if pending or rejected.
	Result() Result

	// Err returns the rejection reason, or nil if pending or resolved.
	Err() error

	// Done returns a channel that is closed once the promise settles.
	Done() <-chan struct{}

	// Await blocks until the promise settles or ctx is done.
	Await(ctx context.Context) (Result, error)

	// Then registers fn to be called once, with the settled outcome. If the
	// promise was settled through a dispatcher, fn runs on the host
	// goroutine. Subscribers registered after settlement are called
	// immediately, on the calling goroutine.
	Then(fn func(Result, error))
}

// Deferred is the capability to settle a [Promise].
type Deferred struct {
	p *promise
	d Dispatcher
}

// promise is the concrete implementation.
type promise struct {
	mu          sync.Mutex
	done        chan struct{}
	result      Result
	err         error
	subscribers []func(Result, error)
	state       PromiseState
}

var _ Promise = (*promise)(nil)

// NewDeferred creates a pending promise, along with the Deferred used to
// settle it. Settlement is performed on the host goroutine, via d.
func NewDeferred(d Dispatcher) (*Deferred, Promise) {
	p := &promise{done: make(chan struct{})}
	return &Deferred{p: p, d: d}, p
}

// Resolve settles the promise successfully. Only the first settlement wins.
func (x *Deferred) Resolve(value Result) {
	x.settle(func() { x.p.settle(Resolved, value, nil) })
}

// Reject settles the promise with err. Only the first settlement wins.
func (x *Deferred) Reject(err error) {
	x.settle(func() { x.p.settle(Rejected, nil, err) })
}

// settle routes through the dispatcher, falling back to direct settlement
// if it is unavailable (e.g. during shutdown), so that promises always settle.
func (x *Deferred) settle(fn func()) {
	if x.d != nil && x.d.Submit(Task(fn)) == nil {
		return
	}
	fn()
}

func (p *promise) settle(state PromiseState, result Result, err error) {
	p.mu.Lock()
	if p.state != Pending {
		p.mu.Unlock()
		return
	}
	p.state = state
	p.result = result
	p.err = err
	subscribers := p.subscribers
	p.subscribers = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range subscribers {
		fn(result, err)
	}
}

func (p *promise) State() PromiseState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *promise) Result() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

func (p *promise) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *promise) Done() <-chan struct{} {
	return p.done
}

func (p *promise) Await(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *promise) Then(fn func(Result, error)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	if p.state == Pending {
		p.subscribers = append(p.subscribers, fn)
		p.mu.Unlock()
		return
	}
	result, err := p.result, p.err
	p.mu.Unlock()
	fn(result, err)
}

// ResolvedPromise returns a promise that has already been resolved with value.
func ResolvedPromise(value Result) Promise {
	p := &promise{done: make(chan struct{})}
	p.settle(Resolved, value, nil)
	return p
}

// RejectedPromise returns a promise that has already been rejected with err.
func RejectedPromise(err error) Promise {
	p := &promise{done: make(chan struct{})}
	p.settle(Rejected, nil, err)
	return p
}
