package core

import (
	"encoding/json"
	"fmt"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// FunctionCall describes a tool/function invocation request. It is produced
// only by a reasoning step, never fabricated by the pipeline; ID is unique
// within its session.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`        // Stable id correlating call and response
	Name      string `json:"name"`                // Tool / function name
	Arguments string `json:"arguments,omitempty"` // Serialized JSON argument payload
}

// ArgumentsMap deserializes the JSON argument payload into a map. An empty
// payload yields an empty map.
func (fc FunctionCall) ArgumentsMap() (map[string]any, error) {
	if fc.Arguments == "" {
		return map[string]any{}, nil
	}
	args := map[string]any{}
	if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
		return nil, fmt.Errorf("invalid function call arguments: %w", err)
	}
	return args, nil
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
}

// isPart implements the Part interface for FunctionCallPart.
func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call. Content is always
// human-readable; when IsError is set it carries a translated user-safe
// message, never a raw transport error.
type FunctionResponse struct {
	ID      string `json:"id,omitempty"` // Matches originating FunctionCall ID
	Name    string `json:"name"`         // Function name
	Content string `json:"content"`      // Result payload or user-safe error text
	IsError bool   `json:"is_error,omitempty"`
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
}

// isPart implements the Part interface for FunctionResponsePart.
func (FunctionResponsePart) isPart() {}

// Content holds role + ordered parts.
type Content struct {
	Role  string // Conversation role (user, assistant, tool, system)
	Parts []Part // Ordered heterogeneous parts
}

// Text concatenates all text parts in order.
func (c Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// partEnvelope is the wire form for the Part union. The Type discriminator
// keeps persisted events round-trippable.
type partEnvelope struct {
	Type             string            `json:"type"`
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

const (
	partTypeText             = "text"
	partTypeFunctionCall     = "function_call"
	partTypeFunctionResponse = "function_response"
)

type contentWire struct {
	Role  string         `json:"role,omitempty"`
	Parts []partEnvelope `json:"parts"`
}

// MarshalJSON implements json.Marshaler using a tagged envelope per part.
func (c Content) MarshalJSON() ([]byte, error) {
	wire := contentWire{Role: c.Role, Parts: make([]partEnvelope, 0, len(c.Parts))}
	for _, p := range c.Parts {
		switch v := p.(type) {
		case TextPart:
			wire.Parts = append(wire.Parts, partEnvelope{Type: partTypeText, Text: v.Text})
		case FunctionCallPart:
			fc := v.FunctionCall
			wire.Parts = append(wire.Parts, partEnvelope{Type: partTypeFunctionCall, FunctionCall: &fc})
		case FunctionResponsePart:
			fr := v.FunctionResponse
			wire.Parts = append(wire.Parts, partEnvelope{Type: partTypeFunctionResponse, FunctionResponse: &fr})
		default:
			return nil, fmt.Errorf("unsupported content part type %T", p)
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler, reconstructing concrete part
// types from their envelopes.
func (c *Content) UnmarshalJSON(data []byte) error {
	var wire contentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c.Role = wire.Role
	c.Parts = make([]Part, 0, len(wire.Parts))
	for _, env := range wire.Parts {
		switch env.Type {
		case partTypeText:
			c.Parts = append(c.Parts, TextPart{Text: env.Text})
		case partTypeFunctionCall:
			if env.FunctionCall == nil {
				return fmt.Errorf("function_call part missing payload")
			}
			c.Parts = append(c.Parts, FunctionCallPart{FunctionCall: *env.FunctionCall})
		case partTypeFunctionResponse:
			if env.FunctionResponse == nil {
				return fmt.Errorf("function_response part missing payload")
			}
			c.Parts = append(c.Parts, FunctionResponsePart{FunctionResponse: *env.FunctionResponse})
		default:
			return fmt.Errorf("unknown content part type %q", env.Type)
		}
	}
	return nil
}
