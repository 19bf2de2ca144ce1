//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package bridge

import (
	"time"

	"github.com/membridge/membridge/token"
)

const (
	defaultPollInterval   = 30 * time.Second
	defaultDebounceWindow = time.Second
	defaultReadyGroup     = "basic"
)

type options struct {
	pollInterval   time.Duration
	debounceWindow time.Duration
	readyGroup     string
	estimator      *token.Estimator
	runner         func(func())
}

func defaultOptions() options {
	return options{
		pollInterval:   defaultPollInterval,
		debounceWindow: defaultDebounceWindow,
		readyGroup:     defaultReadyGroup,
		estimator:      token.NewEstimator(),
		runner:         func(fn func()) { go fn() },
	}
}

// Option configures a Coordinator.
type Option func(*options)

// WithPollInterval sets the task poller tick interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithDebounceWindow sets the trigger debounce window.
func WithDebounceWindow(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounceWindow = d
		}
	}
}

// WithReadyGroup sets the category group used for readiness queries.
func WithReadyGroup(group string) Option {
	return func(o *options) {
		if group != "" {
			o.readyGroup = group
		}
	}
}

// WithEstimator replaces the token estimator, e.g. to plug in a
// precise counter from the host.
func WithEstimator(e *token.Estimator) Option {
	return func(o *options) {
		if e != nil {
			o.estimator = e
		}
	}
}

// WithRunner replaces the continuation runner. The Manager uses this
// to route continuations onto its shared worker pool; tests use it to
// run continuations inline.
func WithRunner(run func(func())) Option {
	return func(o *options) {
		if run != nil {
			o.runner = run
		}
	}
}
