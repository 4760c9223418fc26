package hostloop

import (
	"sync/atomic"
)

// LoopState represents the current state of the host loop.
//
// State Machine:
//
//	StateAwake → StateRunning              [Run()]
//	StateRunning → StateSleeping           [idle, waiting for work]
//	StateSleeping → StateRunning           [woken by a submission]
//	StateRunning/Sleeping → StateTerminating [Shutdown(), Close(), ctx cancel]
//	StateAwake → StateTerminating          [Shutdown() before Run()]
//	StateTerminating → StateTerminated     [queues drained]
//	StateTerminated → (terminal)
//
// Use TryTransition (CAS) for the temporary states, and Store only for
// StateTerminated.
type LoopState uint64

const (
	// StateAwake indicates the loop has been created but not started.
	StateAwake LoopState = iota
	// StateRunning indicates the loop is actively processing tasks.
	StateRunning
	// StateSleeping indicates the loop is idle, blocked waiting for a submission.
	StateSleeping
	// StateTerminating indicates shutdown has been requested but queued
	// tasks are still being drained.
	StateTerminating
	// StateTerminated indicates the loop has stopped and rejects all submissions.
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// FastState is a lock-free state machine.
type FastState struct {
	v atomic.Uint64
}

// NewFastState creates a new state machine in the Awake state.
func NewFastState() *FastState {
	s := &FastState{}
	s.v.Store(uint64(StateAwake))
	return s
}

// Load returns the current state atomically.
func (s *FastState) Load() LoopState {
	return LoopState(s.v.Load())
}

// Store atomically stores a new state, without transition validation.
func (s *FastState) Store(state LoopState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was successful.
func (s *FastState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// IsRunning returns true if the loop is currently running or sleeping.
func (s *FastState) IsRunning() bool {
	state := s.Load()
	return state == StateRunning || state == StateSleeping
}

// CanAcceptWork returns true if submissions will be accepted.
// Submissions remain accepted while terminating, so that in-flight work
// (completion dispatches in particular) is still delivered.
func (s *FastState) CanAcceptWork() bool {
	return s.Load() != StateTerminated
}
