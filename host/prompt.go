//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package host

// Role is a prompt message role.
type Role string

// Prompt message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SlotSummary tags the host's own summary slot inside the prompt tree.
const SlotSummary = "summary"

// PromptMessage is one message of an in-progress outgoing prompt.
// Slot, when non-empty, names the host slot the message fills.
type PromptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Slot    string `json:"slot,omitempty"`
}

// PromptNode is one entry of the prompt tree: either a message or a
// named sub-collection of further nodes.
type PromptNode struct {
	Name     string         `json:"name,omitempty"`
	Message  *PromptMessage `json:"message,omitempty"`
	Children []*PromptNode  `json:"children,omitempty"`
}

// Prompt is the in-progress outgoing prompt the host hands to
// membridge during assembly.
type Prompt struct {
	Nodes []*PromptNode `json:"nodes"`
}

// Prepend inserts msg at the front of the outgoing message list.
func (p *Prompt) Prepend(msg *PromptMessage) {
	p.Nodes = append([]*PromptNode{{Message: msg}}, p.Nodes...)
}

// FindSlot walks the prompt tree depth-first and returns the first
// message whose Slot equals slot, or nil.
func (p *Prompt) FindSlot(slot string) *PromptMessage {
	return findSlot(p.Nodes, slot)
}

func findSlot(nodes []*PromptNode, slot string) *PromptMessage {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.Message != nil && n.Message.Slot == slot {
			return n.Message
		}
		if m := findSlot(n.Children, slot); m != nil {
			return m
		}
	}
	return nil
}

// FlattenMessages returns the prompt's messages in depth-first order.
// Hosts use it to turn the tree back into a flat outgoing list.
func (p *Prompt) FlattenMessages() []*PromptMessage {
	var out []*PromptMessage
	var walk func(nodes []*PromptNode)
	walk = func(nodes []*PromptNode) {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			if n.Message != nil {
				out = append(out, n.Message)
			}
			walk(n.Children)
		}
	}
	walk(p.Nodes)
	return out
}
