//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package bridge

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/spaolacci/murmur3"

	"github.com/membridge/membridge/host"
	"github.com/membridge/membridge/log"
	"github.com/membridge/membridge/state"
)

const (
	defaultShardCount = 8
	defaultPoolSize   = 16
)

// Manager owns the coordinators of all known conversations and the
// shared worker pool their continuations run on. It enforces the
// one-active-poller rule: activating a conversation stops the
// previously active conversation's poller.
type Manager struct {
	store  state.Store
	client RemoteClient
	creds  host.CredentialStore

	coordOpts []Option
	pool      *ants.Pool
	shards    []*managerShard

	activeMu sync.Mutex
	active   *Coordinator
}

type managerShard struct {
	mu     sync.Mutex
	coords map[string]*Coordinator
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	shardCount int
	poolSize   int
	coordOpts  []Option
}

// WithPoolSize sets the continuation worker pool size.
func WithPoolSize(n int) ManagerOption {
	return func(o *managerOptions) {
		if n > 0 {
			o.poolSize = n
		}
	}
}

// WithShardCount sets the number of coordinator map shards.
func WithShardCount(n int) ManagerOption {
	return func(o *managerOptions) {
		if n > 0 {
			o.shardCount = n
		}
	}
}

// WithCoordinatorOptions appends options applied to every coordinator
// the manager creates.
func WithCoordinatorOptions(opts ...Option) ManagerOption {
	return func(o *managerOptions) {
		o.coordOpts = append(o.coordOpts, opts...)
	}
}

// NewManager creates a Manager.
func NewManager(store state.Store, client RemoteClient, creds host.CredentialStore, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if client == nil {
		return nil, ErrClientRequired
	}
	o := managerOptions{shardCount: defaultShardCount, poolSize: defaultPoolSize}
	for _, opt := range opts {
		opt(&o)
	}
	pool, err := ants.NewPool(o.poolSize)
	if err != nil {
		return nil, err
	}
	shards := make([]*managerShard, o.shardCount)
	for i := range shards {
		shards[i] = &managerShard{coords: make(map[string]*Coordinator)}
	}
	return &Manager{
		store:     store,
		client:    client,
		creds:     creds,
		coordOpts: o.coordOpts,
		pool:      pool,
		shards:    shards,
	}, nil
}

func (m *Manager) shardFor(conversationID string) *managerShard {
	index := int(murmur3.Sum32([]byte(conversationID))) % len(m.shards)
	return m.shards[index]
}

// Activate returns the coordinator for conv, creating it on first use,
// ensures its base identity, stops the previously active conversation's
// poller and starts this one's.
func (m *Manager) Activate(ctx context.Context, conv host.Conversation) (*Coordinator, error) {
	if conv == nil {
		return nil, host.ErrConversationRequired
	}
	sh := m.shardFor(conv.ID())

	sh.mu.Lock()
	c, ok := sh.coords[conv.ID()]
	if !ok {
		var err error
		opts := append([]Option{WithRunner(m.submit)}, m.coordOpts...)
		c, err = New(conv, m.store, m.client, m.creds, opts...)
		if err != nil {
			sh.mu.Unlock()
			return nil, err
		}
		sh.coords[conv.ID()] = c
	}
	sh.mu.Unlock()

	m.activeMu.Lock()
	if m.active != nil && m.active != c {
		m.active.StopPolling()
	}
	m.active = c
	m.activeMu.Unlock()

	if err := c.EnsureBaseInfo(ctx); err != nil {
		log.Warnf("bridge: ensure base info for conversation %s failed: %v", conv.ID(), err)
	}
	c.StartPolling()
	return c, nil
}

// Deactivate stops the active conversation's poller, e.g. when the
// host tears the chat view down.
func (m *Manager) Deactivate() {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()
	if m.active != nil {
		m.active.StopPolling()
		m.active = nil
	}
}

// submit routes a continuation onto the worker pool, falling back to
// inline execution if the pool rejects it.
func (m *Manager) submit(fn func()) {
	if err := m.pool.Submit(fn); err != nil {
		log.Warnf("bridge: worker pool rejected continuation, running inline: %v", err)
		fn()
	}
}

// Close stops every coordinator and releases the worker pool.
func (m *Manager) Close() {
	m.activeMu.Lock()
	m.active = nil
	m.activeMu.Unlock()
	for _, sh := range m.shards {
		sh.mu.Lock()
		for _, c := range sh.coords {
			c.Close()
		}
		sh.mu.Unlock()
	}
	m.pool.Release()
}
