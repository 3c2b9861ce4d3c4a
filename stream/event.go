// Package stream implements the server-sent-events transport: the event
// vocabulary shared by server and client, an SSE response writer, a converter
// from supervisor runs to stream events, and a reconnecting client.
package stream

import "encoding/json"

// EventType labels a stream event.
type EventType string

const (
	// EventToken carries one incremental fragment of assistant text.
	EventToken EventType = "token"

	// EventToolCall announces a dispatched tool / worker call.
	EventToolCall EventType = "tool_call"

	// EventToolResult carries the result of a completed call.
	EventToolResult EventType = "tool_result"

	// EventDone terminates a successful stream.
	EventDone EventType = "done"

	// EventError terminates a failed stream with a user-safe message.
	EventError EventType = "error"
)

// Terminal reports whether the event type ends the stream. Every stream
// carries exactly one terminal event.
func (t EventType) Terminal() bool { return t == EventDone || t == EventError }

// Event is one wire-level stream event. Data is the JSON payload matching
// the type's payload struct.
type Event struct {
	Type EventType
	Data json.RawMessage
}

// TokenData is the payload of EventToken.
type TokenData struct {
	Content string `json:"content"`
}

// ToolCallData is the payload of EventToolCall.
type ToolCallData struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// ToolResultData is the payload of EventToolResult.
type ToolResultData struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

// ErrorData is the payload of EventError.
type ErrorData struct {
	Message string `json:"message"`
}

// genericProcessingError is the user-safe message for unhandled server-side
// failures.
const genericProcessingError = "An error occurred during processing"

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// Payload structs marshal unconditionally; a failure is a
		// programming error.
		panic(err)
	}
	return data
}

// Token builds a token event.
func Token(content string) Event {
	return Event{Type: EventToken, Data: mustJSON(TokenData{Content: content})}
}

// ToolCall builds a tool_call event.
func ToolCall(toolName string, args map[string]any) Event {
	if args == nil {
		args = map[string]any{}
	}
	return Event{Type: EventToolCall, Data: mustJSON(ToolCallData{Tool: toolName, Args: args})}
}

// ToolResult builds a tool_result event.
func ToolResult(toolName, result string) Event {
	return Event{Type: EventToolResult, Data: mustJSON(ToolResultData{Tool: toolName, Result: result})}
}

// Done builds the successful terminal event.
func Done() Event {
	return Event{Type: EventDone, Data: json.RawMessage("{}")}
}

// Error builds the failure terminal event with a user-safe message.
func Error(message string) Event {
	if message == "" {
		message = genericProcessingError
	}
	return Event{Type: EventError, Data: mustJSON(ErrorData{Message: message})}
}
