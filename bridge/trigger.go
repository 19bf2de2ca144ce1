//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package bridge

import (
	"context"

	"github.com/membridge/membridge/log"
)

// Notify signals a conversation-changing event (message rendered,
// edited or swiped). Bursts collapse into one trailing evaluation per
// debounce window, so rapid edits do not each evaluate independently.
func (c *Coordinator) Notify() {
	c.deb.Call(c.evaluate)
}

// evaluate decides whether accumulated content warrants a new
// summarization submission. Cadence is tied to token budget pressure:
// a submission happens exactly when the unsummarized span no longer
// fits the model's context window.
func (c *Coordinator) evaluate() {
	ctx := context.Background()

	if !c.apiKeyConfigured() {
		log.Debugf("bridge: no API credential configured, skipping evaluation for conversation %s", c.conv.ID())
		return
	}

	st, err := c.snapshot(ctx)
	if err != nil {
		log.Errorf("bridge: load state failed for conversation %s: %v", c.conv.ID(), err)
		return
	}
	if st.BaseInfo == nil {
		log.Debugf("bridge: no base info yet for conversation %s, skipping evaluation", c.conv.ID())
		return
	}

	from := 0
	if st.Summary != nil {
		from = st.Summary.Range.To
	}

	// The last message may still be an open turn; both the estimate
	// and the submitted range exclude it.
	to := c.conv.MessageCount() - 1
	if to <= from {
		return
	}

	accumulated := c.opts.estimator.EstimateAccumulated(ctx, c.conv.Messages(), from)
	budget := c.conv.MaxContextTokens()
	if accumulated < budget {
		return
	}

	log.Infof("bridge: conversation %s accumulated ~%d tokens (budget %d), submitting range [%d,%d)",
		c.conv.ID(), accumulated, budget, from, to)
	if err := c.Submit(ctx, from, to); err != nil {
		log.Errorf("bridge: submission for conversation %s failed: %v", c.conv.ID(), err)
	}
}
