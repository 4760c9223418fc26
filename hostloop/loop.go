// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostloop

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/joeycumines/logiface"
)

// Task is a unit of work, executed exactly once on the host goroutine.
type Task func()

// Dispatcher is the host dispatch channel, as consumed by the packages
// layered on top of it. [Loop] is the canonical implementation.
type Dispatcher interface {
	// Submit queues task for execution on the host goroutine, returning
	// without waiting for it to run.
	Submit(task Task) error
}

// Loop is a single-goroutine task executor.
//
// Tasks run one at a time, on the goroutine that called [Loop.Run], which is
// locked to its OS thread for the duration. Tasks run strictly in the order
// they were accepted, across all producers.
type Loop struct {
	// Prevent copying
	_ [0]func()

	logger  *logiface.Logger[logiface.Event]
	metrics *loopMetrics

	state *FastState

	// mu guards the queue, and the transition to StateTerminated
	mu    sync.Mutex
	queue *queue.Queue

	// batch is only touched by the goroutine executing tasks
	batch []Task

	// wake holds at most one pending wake-up token
	wake chan struct{}

	// loopDone is closed when Run returns
	loopDone chan struct{}
	stopOnce sync.Once

	loopGoroutineID atomic.Uint64

	id          uint64
	queueBudget int
}

var loopIDCounter atomic.Uint64

var _ Dispatcher = (*Loop)(nil)

// New creates a new host loop. The loop does nothing until [Loop.Run] is called.
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	loop := &Loop{
		logger:      cfg.logger,
		state:       NewFastState(),
		queue:       queue.New(),
		wake:        make(chan struct{}, 1),
		loopDone:    make(chan struct{}),
		id:          loopIDCounter.Add(1),
		queueBudget: cfg.queueBudget,
	}

	if loop.metrics, err = newLoopMetrics(cfg.registerer, loop); err != nil {
		return nil, fmt.Errorf("hostloop: failed to register metrics: %w", err)
	}

	return loop, nil
}

// ID returns the process-unique identifier of the loop.
func (l *Loop) ID() uint64 {
	return l.id
}

// State returns the current loop state.
func (l *Loop) State() LoopState {
	return l.state.Load()
}

// Run runs the loop, blocking until it has fully terminated, via Shutdown(),
// Close(), or ctx cancellation. Tasks accepted before termination are always
// executed. Returns ctx.Err() if terminated by the context.
func (l *Loop) Run(ctx context.Context) error {
	if l.IsLoopThread() {
		return ErrReentrantRun
	}

	if !l.state.TryTransition(StateAwake, StateRunning) {
		switch l.state.Load() {
		case StateTerminated, StateTerminating:
			return ErrLoopTerminated
		default:
			return ErrLoopAlreadyRunning
		}
	}

	// Close loopDone when run exits to signal completion to Shutdown waiters
	defer close(l.loopDone)

	return l.run(ctx)
}

// run is the main loop goroutine.
func (l *Loop) run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.loopGoroutineID.Store(getGoroutineID())
	defer l.loopGoroutineID.Store(0)

	l.logger.Debug().
		Uint64(`loop`, l.id).
		Log(`hostloop: running`)

	for {
		if l.state.Load() == StateTerminating {
			l.drain()
			return nil
		}

		if l.tick() {
			if err := ctx.Err(); err != nil {
				l.beginTermination()
				l.drain()
				return err
			}
			continue
		}

		if !l.state.TryTransition(StateRunning, StateSleeping) {
			// terminating, picked up by the next iteration
			continue
		}

		select {
		case <-l.wake:
		case <-ctx.Done():
		}

		l.state.TryTransition(StateSleeping, StateRunning)

		if err := ctx.Err(); err != nil {
			l.beginTermination()
			l.drain()
			return err
		}
	}
}

// tick executes a single batch of tasks, returning false if there was no work.
func (l *Loop) tick() bool {
	l.mu.Lock()
	batch := l.popBatchLocked(l.queueBudget)
	l.mu.Unlock()

	if len(batch) == 0 {
		return false
	}

	for i, task := range batch {
		l.safeExecute(task)
		batch[i] = nil // Clear for GC
	}

	return true
}

// popBatchLocked takes at most budget tasks, in FIFO order. Must be called
// with mu held.
func (l *Loop) popBatchLocked(budget int) []Task {
	batch := l.batch[:0]
	for n := 0; n < budget && l.queue.Length() > 0; n++ {
		batch = append(batch, l.queue.Remove().(Task))
	}
	l.batch = batch
	return batch
}

// drain executes everything still queued, then marks the loop terminated.
// Tasks executed while draining may submit further tasks, which are also run.
func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if l.queue.Length() == 0 {
			l.state.Store(StateTerminated)
			l.mu.Unlock()
			break
		}
		batch := l.popBatchLocked(l.queueBudget)
		l.mu.Unlock()

		for i, task := range batch {
			l.safeExecute(task)
			batch[i] = nil
		}
	}

	l.logger.Debug().
		Uint64(`loop`, l.id).
		Log(`hostloop: terminated`)
}

// Submit queues a task, behind everything already accepted. It never blocks.
//
// State Policy during shutdown:
//   - StateTerminated: returns ErrLoopTerminated
//   - StateTerminating: ALLOWS submission (the loop drains in-flight work)
func (l *Loop) Submit(task Task) error {
	if task == nil {
		return nil
	}

	l.mu.Lock()
	if !l.state.CanAcceptWork() {
		l.mu.Unlock()
		return ErrLoopTerminated
	}
	l.queue.Add(task)
	l.mu.Unlock()

	l.metrics.recordSubmit()
	l.wakeup()

	return nil
}

// wakeup leaves a wake-up token for the loop goroutine, if there isn't one already.
func (l *Loop) wakeup() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// pending returns the number of queued tasks.
func (l *Loop) pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Length()
}

// Shutdown gracefully shuts down the loop, blocking until every task accepted
// before termination has run, or ctx expires. Only the first call performs
// the shutdown, subsequent calls return ErrLoopTerminated.
//
// If the loop was never run, queued tasks are drained on the calling
// goroutine, which acts as the host goroutine for the duration. If called
// from a task, termination is requested but not waited for.
func (l *Loop) Shutdown(ctx context.Context) error {
	var (
		result error
		called bool
	)
	l.stopOnce.Do(func() {
		called = true
		result = l.shutdownImpl(ctx)
	})
	if !called {
		return ErrLoopTerminated
	}
	return result
}

// shutdownImpl contains the actual Shutdown implementation.
func (l *Loop) shutdownImpl(ctx context.Context) error {
	for {
		current := l.state.Load()
		if current == StateTerminated {
			return ErrLoopTerminated
		}
		if current == StateTerminating {
			break
		}
		if l.state.TryTransition(current, StateTerminating) {
			if current == StateAwake {
				l.loopGoroutineID.Store(getGoroutineID())
				l.drain()
				l.loopGoroutineID.Store(0)
				return nil
			}
			l.wakeup()
			break
		}
	}

	if l.IsLoopThread() {
		return nil
	}

	// Wait for termination via channel, NOT polling
	select {
	case <-l.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close requests termination without waiting for it. Queued tasks are still
// drained by the loop goroutine before Run returns.
func (l *Loop) Close() error {
	for {
		current := l.state.Load()
		if current == StateTerminated {
			return ErrLoopTerminated
		}
		if current == StateAwake {
			// nothing will ever drain the queues
			l.mu.Lock()
			l.state.Store(StateTerminated)
			l.mu.Unlock()
			return nil
		}
		if current == StateTerminating || l.state.TryTransition(current, StateTerminating) {
			l.wakeup()
			return nil
		}
	}
}

// beginTermination moves a running or sleeping loop to StateTerminating.
func (l *Loop) beginTermination() {
	for {
		current := l.state.Load()
		if current == StateTerminating || current == StateTerminated {
			return
		}
		if l.state.TryTransition(current, StateTerminating) {
			return
		}
	}
}

// safeExecute executes a task with panic recovery.
func (l *Loop) safeExecute(task Task) {
	start := time.Now()
	panicked := true

	defer func() {
		if panicked {
			r := recover()
			l.logger.Err().
				Uint64(`loop`, l.id).
				Str(`panic`, fmt.Sprint(r)).
				Log(`hostloop: task panicked`)
		}
		l.metrics.recordExecute(time.Since(start), panicked)
	}()

	task()
	panicked = false
}

// IsLoopThread reports whether the caller is running on the host goroutine.
func (l *Loop) IsLoopThread() bool {
	loopID := l.loopGoroutineID.Load()
	if loopID == 0 {
		return false
	}
	return getGoroutineID() == loopID
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
