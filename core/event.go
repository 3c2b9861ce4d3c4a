package core

import (
	"time"

	"github.com/google/uuid"
)

// Event is the primary unit of communication between the supervisor, workers
// and external clients. After emission it should be treated as immutable. It
// captures:
//   - Correlation (RunID, ID, Author)
//   - Conversational content (optional role-based Parts)
//   - Streaming flags (Partial, TurnComplete)
//   - Error metadata for terminal failures
//   - High precision UTC timestamp
//
// Content may be nil for control or error-only events.
type Event struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Author       string    `json:"author"`
	Timestamp    time.Time `json:"timestamp"`
	Content      *Content  `json:"content,omitempty"`
	Partial      *bool     `json:"partial,omitempty"`
	TurnComplete *bool     `json:"turn_complete,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
}

// NewEvent creates a bare event authored by 'author' bound to a run.
// Prefer helper constructors for common semantic categories.
func NewEvent(runID, author string) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Author:    author,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageEvent creates a non-user assistant message event with a single text part.
func NewMessageEvent(runID, author, message string) Event {
	e := NewEvent(runID, author)
	e.Content = &Content{Role: "assistant", Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewUserMessageEvent creates a user-authored text message event.
func NewUserMessageEvent(runID, message string) Event {
	e := NewEvent(runID, "user")
	e.Content = &Content{Role: "user", Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewFunctionResponseEvent records the completion result of a tool/function
// invocation as a tool-role message.
func NewFunctionResponseEvent(runID, author string, resp FunctionResponse) Event {
	e := NewEvent(runID, author)
	e.Content = &Content{Role: "tool", Parts: []Part{FunctionResponsePart{FunctionResponse: resp}}}
	return e
}

// NewErrorEvent creates a terminal error event carrying a user-safe message.
func NewErrorEvent(runID, author, message string) Event {
	e := NewEvent(runID, author)
	e.ErrorMessage = &message
	return e
}

// NewID generates a new unique identifier for events and tool calls.
func NewID() string { return uuid.NewString() }

// IsPartial reports whether this event is a streaming fragment that will be
// followed by additional events composing the final assistant turn.
func (e Event) IsPartial() bool { return e.Partial != nil && *e.Partial }

// IsError reports whether this event carries a terminal error.
func (e Event) IsError() bool { return e.ErrorMessage != nil }

// GetFunctionCalls returns any FunctionCall parts contained within the event
// content preserving their original order.
func (e Event) GetFunctionCalls() []FunctionCall {
	if e.Content == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range e.Content.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// GetFunctionResponses returns any FunctionResponse parts contained within the
// event content preserving their original order.
func (e Event) GetFunctionResponses() []FunctionResponse {
	if e.Content == nil {
		return nil
	}
	var responses []FunctionResponse
	for _, p := range e.Content.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// IsFinalResponse reports whether the assistant turn is complete: no pending
// tool calls or responses and not a partial fragment.
func (e Event) IsFinalResponse() bool {
	return len(e.GetFunctionCalls()) == 0 &&
		len(e.GetFunctionResponses()) == 0 &&
		!e.IsPartial()
}

// Text returns the concatenated text content of the event, if any.
func (e Event) Text() string {
	if e.Content == nil {
		return ""
	}
	return e.Content.Text()
}
