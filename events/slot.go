package events

import (
	"sync/atomic"

	"github.com/joeycumines/go-hostbridge/hostloop"
)

// Slot holds at most one Aggregator, for the lifetime of the Slot.
//
// It replaces a process-wide singleton: construct one Slot at startup, and
// pass it to whatever needs to publish. The zero value is ready to use.
type Slot struct {
	agg atomic.Pointer[Aggregator]
}

// Initialize constructs the Aggregator. Panics with ErrAlreadyInitialized if
// called more than once, including after Dispose.
func (s *Slot) Initialize(channel hostloop.Dispatcher, callback hostloop.Callback, opts ...Option) *Aggregator {
	agg := NewAggregator(channel, callback, opts...)
	if !s.agg.CompareAndSwap(nil, agg) {
		panic(ErrAlreadyInitialized)
	}
	return agg
}

// Initialized reports whether Initialize has been called.
func (s *Slot) Initialized() bool {
	return s.agg.Load() != nil
}

// Instance returns the Aggregator, panicking with ErrNotInitialized if
// Initialize has not been called.
func (s *Slot) Instance() *Aggregator {
	agg := s.agg.Load()
	if agg == nil {
		panic(ErrNotInitialized)
	}
	return agg
}

// Publish is shorthand for Instance().Publish(event).
func (s *Slot) Publish(event Event) error {
	return s.Instance().Publish(event)
}

// TryPublish is Publish, except it returns ErrNotInitialized, rather than
// panicking, if Initialize has not been called.
func (s *Slot) TryPublish(event Event) error {
	agg := s.agg.Load()
	if agg == nil {
		return ErrNotInitialized
	}
	return agg.Publish(event)
}

// Dispose is shorthand for Instance().Dispose().
func (s *Slot) Dispose() {
	s.Instance().Dispose()
}
