//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

// Package inmemory provides an in-process state.Store, used as the
// default backend and in tests.
package inmemory

import (
	"context"
	"sync"

	"github.com/membridge/membridge/state"
)

var _ state.Store = (*Store)(nil)

// Store keeps MemoryState blobs in a mutex-guarded map. Both paths
// deep-copy so callers never share memory with the store.
type Store struct {
	mu     sync.RWMutex
	states map[string]*state.MemoryState
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{states: make(map[string]*state.MemoryState)}
}

// Load returns a copy of the stored state, or a fresh zero state for
// unknown conversations.
func (s *Store) Load(_ context.Context, conversationID string) (*state.MemoryState, error) {
	if conversationID == "" {
		return nil, state.ErrConversationIDRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[conversationID]; ok {
		return st.Clone(), nil
	}
	return &state.MemoryState{}, nil
}

// Save stores a copy of st as the conversation's full blob.
func (s *Store) Save(_ context.Context, conversationID string, st *state.MemoryState) error {
	if conversationID == "" {
		return state.ErrConversationIDRequired
	}
	if st == nil {
		st = &state.MemoryState{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[conversationID] = st.Clone()
	return nil
}
