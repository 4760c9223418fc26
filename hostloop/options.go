// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostloop

import (
	"errors"

	"github.com/joeycumines/logiface"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultQueueBudget is the maximum number of tasks executed per tick.
const DefaultQueueBudget = 1024

// loopOptions holds configuration options for Loop creation.
type loopOptions struct {
	logger      *logiface.Logger[logiface.Event]
	registerer  prometheus.Registerer
	queueBudget int
}

// --- Loop Options ---

// LoopOption configures a Loop instance.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithLogger attaches a structured logger, used to report recovered task
// panics and lifecycle transitions. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithMetrics registers the loop's Prometheus collectors with the given
// registerer. Each loop is distinguished by a constant "loop" label.
func WithMetrics(registerer prometheus.Registerer) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.registerer = registerer
		return nil
	}}
}

// WithQueueBudget sets the maximum number of tasks executed per tick, before
// the loop checks for termination.
func WithQueueBudget(budget int) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		if budget <= 0 {
			return errors.New("hostloop: queue budget must be positive")
		}
		opts.queueBudget = budget
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		queueBudget: DefaultQueueBudget,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
