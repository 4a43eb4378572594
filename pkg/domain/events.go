package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventToolCall    EventType = "tool_call"
	EventToolReturn  EventType = "tool_return"
	EventRefresh     EventType = "refresh"
	EventTranscript  EventType = "transcript"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// StateEvent represents a session controller transition.
type StateEvent struct {
	EventBase
	From SessionState `json:"from"`
	To   SessionState `json:"to"`
	Err  error        `json:"-"`
}

// ToolEvent represents a tool dispatch.
type ToolEvent struct {
	EventBase
	CallID   string        `json:"call_id"`
	ToolName string        `json:"tool_name"`
	Input    any           `json:"input,omitempty"`
	Output   any           `json:"output,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Kind     Kind          `json:"kind,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// RefreshEvent represents one reload of a cached collection.
type RefreshEvent struct {
	EventBase
	Collection Collection    `json:"collection"`
	Rows       int           `json:"rows"`
	Err        error         `json:"-"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnStateChange func(context.Context, *StateEvent)
	OnToolCall    func(context.Context, *ToolEvent)
	OnToolReturn  func(context.Context, *ToolEvent)
	OnRefresh     func(context.Context, *RefreshEvent)
}

// Role of a conversation item author.
type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
)

// ConversationItem is an item appended to the runtime's conversation, reduced to what the host displays.
type ConversationItem struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
}
