//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package host

import "sync"

// EventType identifies a conversation event emitted by the host.
type EventType string

// Conversation events membridge subscribes to.
const (
	EventMessageRendered     EventType = "message_rendered"
	EventMessageEdited       EventType = "message_edited"
	EventMessageSwiped       EventType = "message_swiped"
	EventConversationChanged EventType = "conversation_changed"
	EventPromptReady         EventType = "prompt_ready"
)

// Event carries one host notification. MessageIndex is -1 when the
// event is not about a specific message.
type Event struct {
	Type           EventType
	ConversationID string
	MessageIndex   int
}

// Handler consumes one event. Handlers run on the emitter's goroutine
// and must not block.
type Handler func(Event)

// EventBus is the subscription surface the host exposes.
type EventBus interface {
	Subscribe(t EventType, h Handler)
}

// Events is a small in-process EventBus for hosts and tests. The zero
// value is ready to use.
type Events struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEvents creates an empty in-process event bus.
func NewEvents() *Events {
	return &Events{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h for events of type t.
func (e *Events) Subscribe(t EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[EventType][]Handler)
	}
	e.handlers[t] = append(e.handlers[t], h)
}

// Emit delivers ev to every handler subscribed to its type, in
// registration order.
func (e *Events) Emit(ev Event) {
	e.mu.RLock()
	hs := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range hs {
		h(ev)
	}
}
