//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

// Package bridge implements the summarization cadence and
// task-lifecycle coordinator: deciding when conversation growth
// warrants a new summarization request, driving the remote task
// through submission, polling, retry and retrieval, and merging the
// retrieved summary back into outgoing prompts.
package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/membridge/membridge/host"
	"github.com/membridge/membridge/internal/debounce"
	"github.com/membridge/membridge/log"
	"github.com/membridge/membridge/remote"
	"github.com/membridge/membridge/state"
)

var (
	// ErrStoreRequired is returned by New without a state store.
	ErrStoreRequired = errors.New("bridge: state store is required")
	// ErrClientRequired is returned by New without a remote client.
	ErrClientRequired = errors.New("bridge: remote client is required")
)

// RemoteClient is the subset of the memory service API the coordinator
// drives. *remote.Client satisfies it.
type RemoteClient interface {
	Memorize(ctx context.Context, req *remote.MemorizeRequest) (*remote.MemorizeResponse, error)
	TaskStatus(ctx context.Context, taskID string) (*remote.TaskStatusResponse, error)
	SummaryReady(ctx context.Context, taskID, group string) (*remote.SummaryReadyResponse, error)
	DefaultCategories(ctx context.Context, req *remote.DefaultCategoriesRequest) (*remote.DefaultCategoriesResponse, error)
}

var _ RemoteClient = (*remote.Client)(nil)

// Coordinator is the explicit per-conversation handle tying the
// trigger, submitter, poller and injector together. All persisted
// mutations flow through its sequenced read-modify-write helpers, so
// asynchronous continuations never clobber newer state: a continuation
// commits only if the Seq it read is still current.
type Coordinator struct {
	conv   host.Conversation
	store  state.Store
	client RemoteClient
	creds  host.CredentialStore

	opts   options
	deb    *debounce.Debouncer
	poller *Poller

	// commitMu serializes read-modify-write cycles against the store.
	commitMu sync.Mutex
}

// New creates a Coordinator for one conversation.
func New(conv host.Conversation, store state.Store, client RemoteClient, creds host.CredentialStore, opts ...Option) (*Coordinator, error) {
	if conv == nil {
		return nil, host.ErrConversationRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if client == nil {
		return nil, ErrClientRequired
	}
	c := &Coordinator{
		conv:   conv,
		store:  store,
		client: client,
		creds:  creds,
		opts:   defaultOptions(),
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	c.deb = debounce.New(c.opts.debounceWindow)
	c.poller = newPoller(c)
	return c, nil
}

// Conversation returns the conversation this coordinator is bound to.
func (c *Coordinator) Conversation() host.Conversation { return c.conv }

// Bind subscribes the coordinator to the conversation-changing events
// of the host bus. Prompt injection stays a direct call because the
// prompt object travels with the host's assembly, not the event.
func (c *Coordinator) Bind(bus host.EventBus) {
	for _, t := range []host.EventType{
		host.EventMessageRendered,
		host.EventMessageEdited,
		host.EventMessageSwiped,
	} {
		bus.Subscribe(t, func(ev host.Event) {
			if ev.ConversationID != c.conv.ID() {
				return
			}
			c.Notify()
		})
	}
	bus.Subscribe(host.EventConversationChanged, func(ev host.Event) {
		if ev.ConversationID == c.conv.ID() {
			c.StartPolling()
			return
		}
		c.StopPolling()
	})
}

// EnsureBaseInfo mints and persists the submission identity on first
// contact. BaseInfo is immutable once set.
func (c *Coordinator) EnsureBaseInfo(ctx context.Context) error {
	st, err := c.snapshot(ctx)
	if err != nil {
		return err
	}
	if st.BaseInfo != nil {
		return nil
	}
	bi := &state.BaseInfo{
		UserID:    uuid.NewString(),
		UserName:  c.conv.UserName(),
		AgentID:   uuid.NewString(),
		AgentName: c.conv.AgentName(),
	}
	return c.commit(ctx, func(st *state.MemoryState) {
		if st.BaseInfo == nil {
			st.BaseInfo = bi
		}
	})
}

// StartPolling starts the task poller for this conversation.
func (c *Coordinator) StartPolling() { c.poller.Start() }

// StopPolling stops the task poller, e.g. when the conversation is
// switched away from. In-flight continuations are not cancelled; their
// writes are discarded by the Seq gate if newer state landed meanwhile.
func (c *Coordinator) StopPolling() { c.poller.Stop() }

// Close stops the poller and the debouncer.
func (c *Coordinator) Close() {
	c.poller.Stop()
	c.deb.Stop()
}

// snapshot loads the current persisted state.
func (c *Coordinator) snapshot(ctx context.Context) (*state.MemoryState, error) {
	return c.store.Load(ctx, c.conv.ID())
}

// commit applies mutate under the commit lock and persists the full
// blob with a bumped Seq.
func (c *Coordinator) commit(ctx context.Context, mutate func(*state.MemoryState)) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()
	st, err := c.store.Load(ctx, c.conv.ID())
	if err != nil {
		return err
	}
	mutate(st)
	st.Seq++
	return c.store.Save(ctx, c.conv.ID(), st)
}

// commitIf is the optimistic variant used by poller continuations: the
// mutation is applied only when the state version the continuation
// read is still current. Returns whether the write was applied.
func (c *Coordinator) commitIf(ctx context.Context, readSeq uint64, mutate func(*state.MemoryState)) (bool, error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()
	st, err := c.store.Load(ctx, c.conv.ID())
	if err != nil {
		return false, err
	}
	if st.Seq != readSeq {
		return false, nil
	}
	mutate(st)
	st.Seq++
	if err := c.store.Save(ctx, c.conv.ID(), st); err != nil {
		return false, err
	}
	return true, nil
}

// run dispatches a fire-and-forget continuation. A panicking
// continuation is logged, never propagated to the host.
func (c *Coordinator) run(fn func()) {
	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("bridge: panic in continuation for conversation %s: %v", c.conv.ID(), r)
			}
		}()
		fn()
	}
	c.opts.runner(wrapped)
}

func (c *Coordinator) apiKeyConfigured() bool {
	if c.creds == nil {
		return false
	}
	key, ok := c.creds.Get(host.CredentialAPIKey)
	return ok && key != ""
}
