package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/aretw0/helix/pkg/domain"
)

// Server event types consumed by the orchestrator. Everything else is ignored.
const (
	EventSessionCreated       = "session.created"
	EventSessionUpdated       = "session.updated"
	EventError                = "error"
	EventFunctionCallArgsDone = "response.function_call_arguments.done"
	EventItemDone             = "conversation.item.done"
	EventItemCreated          = "conversation.item.created"
)

// Client event types sent by the orchestrator.
const (
	EventSessionUpdate  = "session.update"
	EventItemCreate     = "conversation.item.create"
	EventResponseCreate = "response.create"
)

// serverEvent is the union of the fields read from inbound events.
type serverEvent struct {
	Type    string            `json:"type"`
	EventID string            `json:"event_id,omitempty"`
	Error   *serverError      `json:"error,omitempty"`
	CallID  string            `json:"call_id,omitempty"`
	Name    string            `json:"name,omitempty"`
	Args    string            `json:"arguments,omitempty"`
	Item    *conversationItem `json:"item,omitempty"`
}

type serverError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *serverError) String() string {
	if e == nil {
		return "unknown error"
	}
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

type conversationItem struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// text extracts the displayable text of an assistant message:
// the first audio transcript if any, otherwise the first text part.
func (it *conversationItem) text() string {
	for _, p := range it.Content {
		if (p.Type == "output_audio" || p.Type == "audio") && p.Transcript != "" {
			return p.Transcript
		}
	}
	for _, p := range it.Content {
		if p.Text != "" {
			return p.Text
		}
	}
	return ""
}

type clientEvent struct {
	Type    string         `json:"type"`
	EventID string         `json:"event_id"`
	Session *sessionConfig `json:"session,omitempty"`
	Item    *outputItem    `json:"item,omitempty"`
}

type sessionConfig struct {
	Type         string         `json:"type"`
	Instructions string         `json:"instructions,omitempty"`
	Tools        []functionTool `json:"tools"`
	ToolChoice   string         `json:"tool_choice"`
	Audio        *audioConfig   `json:"audio,omitempty"`
}

type audioConfig struct {
	Output audioOutput `json:"output"`
}

type audioOutput struct {
	Voice string `json:"voice"`
}

type functionTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type outputItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

func newEvent(typ string) clientEvent {
	return clientEvent{Type: typ, EventID: "evt_" + uuid.NewString()}
}

func sessionUpdate(instructions, voice string, tools []domain.Tool) clientEvent {
	ev := newEvent(EventSessionUpdate)
	cfg := &sessionConfig{
		Type:         "realtime",
		Instructions: instructions,
		Tools:        make([]functionTool, 0, len(tools)),
		ToolChoice:   "auto",
	}
	for _, t := range tools {
		cfg.Tools = append(cfg.Tools, functionTool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	if voice != "" {
		cfg.Audio = &audioConfig{Output: audioOutput{Voice: voice}}
	}
	ev.Session = cfg
	return ev
}

func functionOutput(res domain.ToolResult) clientEvent {
	ev := newEvent(EventItemCreate)
	ev.Item = &outputItem{Type: "function_call_output", CallID: res.ID, Output: res.Output()}
	return ev
}

func decodeEvent(data []byte) (serverEvent, error) {
	var ev serverEvent
	err := json.Unmarshal(data, &ev)
	return ev, err
}
