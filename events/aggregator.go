// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package events

import (
	"sync"

	"github.com/joeycumines/go-hostbridge/hostloop"
	"github.com/joeycumines/logiface"
	"github.com/prometheus/client_golang/prometheus"
)

// Aggregator publishes events to a host-side callback, via a dispatcher.
//
// Publish may be called concurrently, from any goroutine. Dispose (the
// exclusive writer) cannot race with in-progress Publish calls (readers).
type Aggregator struct {
	logger  *logiface.Logger[logiface.Event]
	metrics *Metrics

	// callback is immutable, and shared by every in-flight dispatch
	callback hostloop.Callback

	mu      sync.RWMutex
	channel hostloop.Dispatcher
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger attaches a structured logger.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithMetrics attaches metrics, see NewMetrics.
func WithMetrics(metrics *Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = metrics
	}
}

// NewAggregator constructs an Aggregator that invokes callback with the
// serialized form of each published event, on the host goroutine of channel.
// Panics if either argument is nil.
func NewAggregator(channel hostloop.Dispatcher, callback hostloop.Callback, opts ...Option) *Aggregator {
	if channel == nil {
		panic(`events: nil dispatcher`)
	}
	if callback == nil {
		panic(`events: nil callback`)
	}
	a := &Aggregator{
		channel:  channel,
		callback: callback,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Publish serializes event, and submits a dispatch that invokes the callback
// with it, returning without waiting for the callback to run.
//
// Returns ErrDisposed (and submits nothing) after Dispose, or the dispatcher's
// error if it rejects the submission. Panics if event cannot be serialized.
func (a *Aggregator) Publish(event Event) error {
	a.logger.Debug().
		Str(`type`, event.Type()).
		Log(`will publish`)

	serialized := MustMarshal(event)

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.channel == nil {
		a.metrics.recordDropped()
		return ErrDisposed
	}

	callback := a.callback
	logger := a.logger
	if err := a.channel.Submit(func() {
		if _, err := callback.Invoke(serialized); err != nil {
			logger.Err().
				Err(err).
				Str(`type`, event.Type()).
				Log(`event callback failed`)
		}
	}); err != nil {
		a.metrics.recordDropped()
		return err
	}

	a.metrics.recordPublished(event.Type())
	return nil
}

// Dispose clears the dispatcher, after which Publish returns ErrDisposed.
// Events already submitted are still delivered. Calling Dispose more than
// once has no further effect.
func (a *Aggregator) Dispose() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.channel != nil {
		a.channel = nil
		a.logger.Info().Log(`event publisher disposed`)
	}
}

// Disposed reports whether Dispose has been called.
func (a *Aggregator) Disposed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.channel == nil
}

// Metrics holds the Prometheus collectors of an Aggregator. A nil *Metrics
// is valid, and records nothing.
type Metrics struct {
	published *prometheus.CounterVec
	dropped   prometheus.Counter
}

// NewMetrics creates and registers the publisher's collectors.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: `hostbridge`,
			Subsystem: `events`,
			Name:      `published_total`,
			Help:      `Events submitted to the host callback, by type.`,
		}, []string{`type`}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: `hostbridge`,
			Subsystem: `events`,
			Name:      `dropped_total`,
			Help:      `Publish calls that failed, e.g. after dispose.`,
		}),
	}
	if registerer != nil {
		for _, c := range []prometheus.Collector{m.published, m.dropped} {
			if err := registerer.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) recordPublished(typ string) {
	if m != nil {
		m.published.WithLabelValues(typ).Inc()
	}
}

func (m *Metrics) recordDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}
