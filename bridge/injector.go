//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package bridge

import (
	"context"

	"github.com/membridge/membridge/host"
	"github.com/membridge/membridge/state"
)

// Inject merges the latest retrieved summary into an in-progress
// prompt. With override set, the host's existing summary slot is
// replaced in place when present; otherwise, and whenever no slot is
// found, one system message is prepended. Exactly one summary enters a
// prompt per assembly. Returns whether anything was injected.
func Inject(st *state.MemoryState, prompt *host.Prompt, override bool) bool {
	if st == nil || prompt == nil {
		return false
	}
	if st.Retrieve == nil || st.Retrieve.Current == nil || st.Retrieve.Current.SummaryText == "" {
		return false
	}
	text := st.Retrieve.Current.SummaryText

	if override {
		if slot := prompt.FindSlot(host.SlotSummary); slot != nil {
			slot.Content = text
			return true
		}
	}
	prompt.Prepend(&host.PromptMessage{Role: host.RoleSystem, Content: text})
	return true
}

// InjectSummary is the coordinator entry point the host calls
// synchronously during prompt assembly.
func (c *Coordinator) InjectSummary(ctx context.Context, prompt *host.Prompt, override bool) (bool, error) {
	st, err := c.snapshot(ctx)
	if err != nil {
		return false, err
	}
	return Inject(st, prompt, override), nil
}
