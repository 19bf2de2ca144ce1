//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

// Package host defines the boundary toward the chat host application.
// The host owns the live conversation, its event stream, durable
// metadata storage and credential storage; membridge consumes them
// through the interfaces declared here.
package host

import (
	"context"
	"errors"
)

var (
	// ErrConversationRequired is returned when an operation is missing
	// its conversation handle.
	ErrConversationRequired = errors.New("conversation is required")
	// ErrCredentialNotFound is returned by credential stores that want
	// to distinguish lookup failure from an empty value.
	ErrCredentialNotFound = errors.New("credential not found")
)

// CredentialAPIKey is the credential-store key under which the remote
// memory service API key is expected.
const CredentialAPIKey = "membridge_api_key"

// Message is one rendered message of the live conversation.
type Message struct {
	Index    int    `json:"index"`    // Index is the position in the conversation.
	Name     string `json:"name"`     // Name is the speaker display name.
	Content  string `json:"content"`  // Content is the message text.
	IsUser   bool   `json:"isUser"`   // IsUser marks user-authored messages.
	IsSystem bool   `json:"isSystem"` // IsSystem marks host housekeeping messages.
}

// Conversation is the host's handle on the currently rendered chat.
// Implementations are expected to be cheap to query; membridge reads
// them on every trigger evaluation.
type Conversation interface {
	// ID returns the stable per-conversation identifier.
	ID() string
	// Messages returns the full live message list in index order.
	Messages() []Message
	// MessageCount returns the number of live messages.
	MessageCount() int
	// MaxContextTokens returns the model context window the host is
	// currently configured for.
	MaxContextTokens() int
	// UserName returns the registered user display name.
	UserName() string
	// AgentName returns the agent (character) display name.
	AgentName() string
}

// TokenCounter counts tokens precisely. Implementations may go over
// the network, hence the context.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// SyncTokenCounter counts tokens precisely without blocking. The
// second return reports whether a count was produced.
type SyncTokenCounter interface {
	CountTokensSync(text string) (int, bool)
}

// CredentialStore is the host's local key-value credential storage.
// Storage mechanics (keychain, browser storage, file) are the host's
// concern.
type CredentialStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// MemoryCredentials is a trivial in-process CredentialStore for hosts
// that have no secure storage, and for tests.
type MemoryCredentials map[string]string

// Get returns the stored value for key.
func (m MemoryCredentials) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Set stores value under key.
func (m MemoryCredentials) Set(key, value string) error {
	m[key] = value
	return nil
}
