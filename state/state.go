//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

// Package state holds the per-conversation memory state membridge
// persists through the host: the current summarization task, the most
// recently retrieved summary, and the identity used to tag
// submissions. The whole state is read and written as one blob.
package state

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrConversationIDRequired is returned by stores when the
	// conversation id is empty.
	ErrConversationIDRequired = errors.New("conversationID is required")
)

// TaskStatus is the lifecycle status of a summarization task.
type TaskStatus string

// Task statuses. They mirror the remote service's states.
const (
	TaskPending    TaskStatus = "PENDING"
	TaskProcessing TaskStatus = "PROCESSING"
	TaskSuccess    TaskStatus = "SUCCESS"
	TaskFailure    TaskStatus = "FAILURE"
)

// ParseTaskStatus maps a remote status string, case-insensitively, to
// a TaskStatus. Anything unrecognized maps to TaskFailure.
func ParseTaskStatus(s string) TaskStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(TaskPending):
		return TaskPending
	case string(TaskProcessing):
		return TaskProcessing
	case string(TaskSuccess):
		return TaskSuccess
	default:
		return TaskFailure
	}
}

// Range is a half-open interval [From, To) of conversation message
// indices.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Valid reports whether the range is well formed.
func (r Range) Valid() bool {
	return r.From >= 0 && r.From <= r.To
}

// SummaryTask is one in-flight or completed summarization submission.
// A failed submission is also recorded as a task (FAILURE, empty
// TaskID) so the poller's retry branch picks it up.
type SummaryTask struct {
	Range Range `json:"range"`
	// TaskID is the handle assigned by the remote service; empty when
	// submission failed before a handle was returned.
	TaskID string     `json:"taskId,omitempty"`
	Status TaskStatus `json:"status"`
	// IsReady is true once the service confirms the summarized
	// categories are fetchable. Distinct from Status == SUCCESS: the
	// task can finish before its summary content is computable.
	IsReady bool `json:"isReady"`
}

// RetrievalRecord is the most recently fetched categorized summary.
type RetrievalRecord struct {
	Range       Range  `json:"range"`
	TaskID      string `json:"taskId"`
	SummaryText string `json:"summaryText"`
}

// RetrievalHistory is the current record plus every superseded one.
// Growth is unbounded here; persistence limits are the host's call.
type RetrievalHistory struct {
	Current *RetrievalRecord  `json:"current,omitempty"`
	Past    []RetrievalRecord `json:"past,omitempty"`
}

// Append replaces the current record with rec, pushing the previous
// current record (if any) onto Past.
func (h *RetrievalHistory) Append(rec RetrievalRecord) {
	if h.Current != nil {
		h.Past = append(h.Past, *h.Current)
	}
	h.Current = &rec
}

// BaseInfo is the participant/agent identity used to tag outgoing
// submissions. Immutable once set for a conversation.
type BaseInfo struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
}

// MemoryState is the full per-conversation blob. Seq is the version
// counter for optimistic concurrency: every committed mutation
// increments it, and asynchronous continuations discard their write
// when the Seq they read is no longer current.
type MemoryState struct {
	BaseInfo *BaseInfo         `json:"baseInfo,omitempty"`
	Summary  *SummaryTask      `json:"summary,omitempty"`
	Retrieve *RetrievalHistory `json:"retrieve,omitempty"`
	Seq      uint64            `json:"seq"`
}

// Clone returns a deep copy of the state.
func (s *MemoryState) Clone() *MemoryState {
	if s == nil {
		return nil
	}
	out := &MemoryState{Seq: s.Seq}
	if s.BaseInfo != nil {
		bi := *s.BaseInfo
		out.BaseInfo = &bi
	}
	if s.Summary != nil {
		t := *s.Summary
		out.Summary = &t
	}
	if s.Retrieve != nil {
		h := &RetrievalHistory{}
		if s.Retrieve.Current != nil {
			cur := *s.Retrieve.Current
			h.Current = &cur
		}
		if len(s.Retrieve.Past) > 0 {
			h.Past = append([]RetrievalRecord(nil), s.Retrieve.Past...)
		}
		out.Retrieve = h
	}
	return out
}

// Store persists MemoryState blobs keyed by conversation id. Load for
// an unknown conversation returns a fresh zero state, not an error;
// Save writes the full blob.
type Store interface {
	Load(ctx context.Context, conversationID string) (*MemoryState, error)
	Save(ctx context.Context, conversationID string, st *MemoryState) error
}
