//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package bridge

import (
	"context"

	"github.com/membridge/membridge/host"
	"github.com/membridge/membridge/log"
	"github.com/membridge/membridge/remote"
	"github.com/membridge/membridge/state"
)

// Submit sends a summarization request covering [from, to) and records
// the outcome. A failed submission is recorded as a FAILURE task with
// no handle, which the poller's retry branch resubmits; both branches
// persist before returning. The remote service receives the full live
// transcript every time — only the range is recorded for bookkeeping.
func (c *Coordinator) Submit(ctx context.Context, from, to int) error {
	st, err := c.snapshot(ctx)
	if err != nil {
		return err
	}
	bi := st.BaseInfo
	if bi == nil {
		log.Warnf("bridge: no base info for conversation %s, skipping submission", c.conv.ID())
		return nil
	}

	req := &remote.MemorizeRequest{
		Conversation: projectTranscript(c.conv),
		UserID:       bi.UserID,
		UserName:     bi.UserName,
		AgentID:      bi.AgentID,
		AgentName:    bi.AgentName,
	}

	task := &state.SummaryTask{
		Range:  state.Range{From: from, To: to},
		Status: state.TaskPending,
	}
	resp, err := c.client.Memorize(ctx, req)
	if err != nil {
		log.Warnf("bridge: memorize submission for conversation %s failed, recording for retry: %v",
			c.conv.ID(), err)
		task.Status = state.TaskFailure
	} else {
		task.TaskID = resp.TaskID
		log.Infof("bridge: memorize task %s started for conversation %s range [%d,%d)",
			resp.TaskID, c.conv.ID(), from, to)
	}

	return c.commit(ctx, func(st *state.MemoryState) {
		st.Summary = task
	})
}

// projectTranscript maps the live conversation into role-tagged
// entries. A message is assistant unless user-authored; user-authored
// messages from speakers other than the registered user become
// participant entries carrying the speaker name.
func projectTranscript(conv host.Conversation) []remote.ConversationMessage {
	msgs := conv.Messages()
	userName := conv.UserName()
	out := make([]remote.ConversationMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.IsSystem {
			continue
		}
		entry := remote.ConversationMessage{Content: m.Content}
		switch {
		case !m.IsUser:
			entry.Role = remote.RoleAssistant
		case m.Name == userName:
			entry.Role = remote.RoleUser
		default:
			entry.Role = remote.RoleParticipant
			entry.Name = m.Name
		}
		out = append(out, entry)
	}
	return out
}
