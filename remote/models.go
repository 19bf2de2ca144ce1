//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

package remote

// Role values accepted by the memorize endpoint. Participant covers
// user-authored messages from speakers other than the registered user
// in multi-party chats.
const (
	RoleUser        = "user"
	RoleAssistant   = "assistant"
	RoleParticipant = "participant"
)

// ConversationMessage is one role-tagged transcript entry. Name is
// attached only for participant entries.
type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// MemorizeRequest submits a conversation for summarization.
type MemorizeRequest struct {
	Conversation []ConversationMessage `json:"conversation"`
	UserID       string                `json:"user_id"`
	UserName     string                `json:"user_name"`
	AgentID      string                `json:"agent_id"`
	AgentName    string                `json:"agent_name"`
	// SessionDate is ISO 8601; the client fills it with the current
	// time when empty.
	SessionDate string `json:"session_date,omitempty"`
}

// MemorizeResponse carries the handle of the created task.
type MemorizeResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TaskStatusResponse reports the lifecycle state of a task.
type TaskStatusResponse struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	DetailInfo string `json:"detail_info"`
}

// SummaryReadyRequest queries whether categorized summary content is
// fetchable for a task.
type SummaryReadyRequest struct {
	Group string `json:"group"`
}

// SummaryReadyResponse reports per-category and overall readiness.
type SummaryReadyResponse struct {
	AllReady      bool            `json:"all_ready"`
	CategoryReady map[string]bool `json:"category_ready"`
}

// DefaultCategoriesRequest retrieves the categorized summaries for a
// user/agent pair.
type DefaultCategoriesRequest struct {
	UserID          string `json:"user_id"`
	AgentID         string `json:"agent_id,omitempty"`
	WantMemoryItems bool   `json:"want_memory_items"`
}

// Category is one named bucket of extracted memory content.
type Category struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Summary     string `json:"summary,omitempty"`
}

// DefaultCategoriesResponse lists the retrieved categories.
type DefaultCategoriesResponse struct {
	Categories      []Category `json:"categories"`
	TotalCategories int        `json:"total_categories"`
}

// DeleteMemoryRequest removes stored memories for a user, optionally
// scoped to one agent.
type DeleteMemoryRequest struct {
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id,omitempty"`
}

// DeleteMemoryResponse reports the deletion outcome.
type DeleteMemoryResponse struct {
	Success      bool `json:"success"`
	DeletedCount int  `json:"deleted_count"`
}
