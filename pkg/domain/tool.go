package domain

import (
	"encoding/json"
	"errors"
)

// ToolCall represents a request from the remote assistant to run a named tool.
// Args is the decoded argument payload; RawArgs keeps the runtime's original JSON text.
type ToolCall struct {
	ID      string         `json:"id" yaml:"id" mapstructure:"id"`                                // Runtime call id, echoed back with the result
	Name    string         `json:"name" yaml:"name" mapstructure:"name"`                          // Tool name to dispatch
	Args    map[string]any `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`      // Decoded arguments
	RawArgs string         `json:"raw_args,omitempty" yaml:"raw_args,omitempty" mapstructure:"-"` // Original JSON text, if any
}

// ToolResult represents the outcome of one dispatch, returned to the runtime that issued the call.
type ToolResult struct {
	ID      string `json:"id"` // Must match the ToolCall.ID
	Name    string `json:"name"`
	Result  any    `json:"result,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Tool describes a callable tool to the runtime: name, description and JSON schema of its parameters.
type Tool struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
}

// Success builds a successful result for call.
func Success(call ToolCall, result any) ToolResult {
	return ToolResult{ID: call.ID, Name: call.Name, Result: result}
}

// Failure builds a failing result for call from err.
// Errors carrying a Kind keep it; anything else is reported as an executor error.
func Failure(call ToolCall, err error) ToolResult {
	res := ToolResult{ID: call.ID, Name: call.Name, IsError: true, Error: err.Error()}

	var de *Error
	if errors.As(err, &de) {
		res.Kind = de.Kind
		details := map[string]any{}
		if de.Status != 0 {
			details["status"] = de.Status
		}
		if de.Body != "" {
			details["body"] = de.Body
		}
		if len(de.Fields) > 0 {
			details["fields"] = de.Fields
		}
		if len(details) > 0 {
			res.Details = details
		}
		return res
	}
	if errors.Is(err, ErrToolNotFound) {
		res.Kind = KindToolNotFound
		return res
	}
	res.Kind = KindExecutor
	return res
}

// failureOutput is the wire shape of a failing tool output.
type failureOutput struct {
	OK      bool   `json:"ok"`
	Kind    Kind   `json:"kind"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// Output renders the result as the JSON text delivered to the runtime as the tool's output.
// Success payloads are serialized as-is so the assistant sees the backend's shape.
func (r ToolResult) Output() string {
	var v any = r.Result
	if r.IsError {
		v = failureOutput{OK: false, Kind: r.Kind, Error: r.Error, Details: r.Details}
	}
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(failureOutput{OK: false, Kind: KindExecutor, Error: "unserializable result: " + err.Error()})
	}
	return string(data)
}
