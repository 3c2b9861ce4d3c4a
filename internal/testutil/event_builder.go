package testutil

import (
	"time"

	"github.com/veramoney/chatmesh/core"
)

// EventBuilder provides a fluent helper for constructing events in tests.
// Example:
//
//	ev := NewEventBuilder().Author("supervisor").Run("run-1").AssistantText("hello").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	author        string
	runID         string
	id            string
	role          string
	textParts     []string
	funcCalls     []core.FunctionCall
	funcResponses []core.FunctionResponse
	partial       *bool
	turnComplete  *bool
	errorMessage  *string
}

// NewEventBuilder creates a builder with default author "supervisor".
func NewEventBuilder() *EventBuilder { return &EventBuilder{author: "supervisor"} }

// Author sets the author name for the event (chainable).
func (b *EventBuilder) Author(a string) *EventBuilder { b.author = a; return b }

// Run sets the run ID associated with the event (chainable).
func (b *EventBuilder) Run(id string) *EventBuilder { b.runID = id; return b }

// ID overrides the auto-generated event ID (chainable). Use mainly in tests where determinism matters.
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// Partial marks the event as a streaming / partial chunk (chainable).
func (b *EventBuilder) Partial(p bool) *EventBuilder { b.partial = &p; return b }

// TurnComplete sets the TurnComplete flag indicating turn completion (chainable).
func (b *EventBuilder) TurnComplete(c bool) *EventBuilder { b.turnComplete = &c; return b }

// Error marks the event as a terminal error carrying a user-safe message (chainable).
func (b *EventBuilder) Error(msg string) *EventBuilder { b.errorMessage = &msg; return b }

// UserText appends a user role text part and sets role to user (chainable).
func (b *EventBuilder) UserText(t string) *EventBuilder {
	b.role = "user"
	b.textParts = append(b.textParts, t)
	return b
}

// AssistantText appends an assistant role text part and sets role to assistant (chainable).
func (b *EventBuilder) AssistantText(t string) *EventBuilder {
	b.role = "assistant"
	b.textParts = append(b.textParts, t)
	return b
}

// FunctionCall adds a function call part with the provided id, name and JSON argument string (chainable).
func (b *EventBuilder) FunctionCall(id, name, args string) *EventBuilder {
	b.funcCalls = append(b.funcCalls, core.FunctionCall{ID: id, Name: name, Arguments: args})
	return b
}

// FunctionResponse adds a function response part representing tool execution output (chainable).
func (b *EventBuilder) FunctionResponse(id, name, content string, isError bool) *EventBuilder {
	b.funcResponses = append(b.funcResponses, core.FunctionResponse{
		ID:      id,
		Name:    name,
		Content: content,
		IsError: isError,
	})
	return b
}

// Build constructs the core.Event value.
func (b *EventBuilder) Build() core.Event {
	ev := core.NewEvent(b.runID, b.author)
	if b.id != "" {
		ev.ID = b.id
	}
	ev.Timestamp = time.Now().UTC()
	ev.Partial = b.partial
	ev.TurnComplete = b.turnComplete
	ev.ErrorMessage = b.errorMessage

	var parts []core.Part
	for _, t := range b.textParts {
		parts = append(parts, core.TextPart{Text: t})
	}
	for _, fc := range b.funcCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	for _, fr := range b.funcResponses {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: fr})
	}

	if len(parts) > 0 {
		role := b.role
		if role == "" {
			role = "assistant"
		}
		if len(b.funcResponses) > 0 && len(b.textParts) == 0 && len(b.funcCalls) == 0 {
			role = "tool"
		}
		ev.Content = &core.Content{Role: role, Parts: parts}
	}

	return ev
}
