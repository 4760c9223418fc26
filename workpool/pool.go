// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package workpool implements a bounded pool for offloading blocking work.
package workpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned by Go after Close has been called.
var ErrPoolClosed = errors.New("workpool: pool closed")

type (
	// Pool runs functions on goroutines, at most Size at a time.
	Pool struct {
		logger *logiface.Logger[logiface.Event]
		sem    *semaphore.Weighted
		// mu guards closed, and the corresponding wg.Add
		mu     sync.RWMutex
		wg     sync.WaitGroup
		size   int
		active atomic.Int64
		closed bool
	}

	// Option configures a Pool.
	Option func(*Pool)
)

// WithLogger attaches a structured logger, used to report recovered panics.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// New constructs a Pool, running at most size functions concurrently. A size
// <= 0 uses runtime.GOMAXPROCS(0).
func New(size int, opts ...Option) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the maximum number of concurrently running functions.
func (p *Pool) Size() int { return p.size }

// Active returns the number of currently running functions.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Go waits for a free slot, then runs fn on a new goroutine, passing ctx.
// It returns ctx.Err() if ctx is done before a slot was acquired, or
// ErrPoolClosed if Close has been called. A panic in fn is recovered and
// logged.
func (p *Pool) Go(ctx context.Context, fn func(ctx context.Context)) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return err
	}

	p.active.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer p.active.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Err().
					Any(`panic`, r).
					Log(`workpool: task panicked`)
			}
		}()
		fn(ctx)
	}()

	return nil
}

// Close stops the pool accepting new work, then waits for running work to
// finish, or ctx to be done. It may be called more than once.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
