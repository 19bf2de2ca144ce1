//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

// Package token estimates how many conversation tokens have
// accumulated since the last summarized point.
package token

import (
	"context"

	"github.com/membridge/membridge/host"
	"github.com/membridge/membridge/log"
)

// Estimator sums per-message token counts. Counting is read-only;
// estimation never mutates conversation state.
type Estimator struct {
	counter     host.TokenCounter
	syncCounter host.SyncTokenCounter
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithCounter sets the precise counter tried first. Implementations
// may block on the network.
func WithCounter(c host.TokenCounter) Option {
	return func(e *Estimator) { e.counter = c }
}

// WithSyncCounter sets the precise non-blocking counter tried when no
// blocking counter is available or it fails.
func WithSyncCounter(c host.SyncTokenCounter) Option {
	return func(e *Estimator) { e.syncCounter = c }
}

// NewEstimator creates an Estimator. With no options it falls back to
// the character heuristic for every message.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EstimateAccumulated returns the approximate token total of messages
// with index in [from, len(msgs)-1). The most recent message is always
// excluded: it may still be an in-progress or continuable turn. Empty
// and inverted ranges return 0.
func (e *Estimator) EstimateAccumulated(ctx context.Context, msgs []host.Message, from int) int {
	last := len(msgs) - 1
	if from < 0 {
		from = 0
	}
	if last <= from {
		return 0
	}

	total := 0
	for i := from; i < last; i++ {
		total += e.countMessage(ctx, msgs[i].Content)
	}
	return total
}

// countMessage tries the counters in preference order and falls back
// to the heuristic on any failure or non-positive result.
func (e *Estimator) countMessage(ctx context.Context, text string) int {
	if e.counter != nil {
		n, err := e.counter.CountTokens(ctx, text)
		if err == nil && n > 0 {
			return n
		}
		if err != nil {
			log.Debugf("token: precise counter failed, trying next: %v", err)
		}
	}
	if e.syncCounter != nil {
		if n, ok := e.syncCounter.CountTokensSync(text); ok && n > 0 {
			return n
		}
	}
	return HeuristicCount(text)
}

// HeuristicCount is the fallback token estimate: max(1, ceil(len/4)).
// Coarse and model-agnostic but good enough for gating.
func HeuristicCount(text string) int {
	n := (len(text) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}
