// Package middleware implements the interception pipeline wrapped around
// model calls and tool calls. Interceptors compose as continuation-passing
// wrappers: each receives the next handler and decides what to do before and
// after forwarding.
package middleware

import (
	"context"

	"github.com/veramoney/chatmesh/core"
)

// ModelRequest is the normalized input seen by model interceptors.
type ModelRequest struct {
	SessionID string
	Author    string
	// Contents is the conversation turn handed to the model, including any
	// tool responses accumulated so far.
	Contents []core.Content
	// Tools lists the tool names available for this call.
	Tools []string
}

// ModelResponse is the final (non-partial) model output seen by interceptors.
type ModelResponse struct {
	Content core.Content
}

// ModelHandler advances a model call. The innermost handler performs the
// actual generation.
type ModelHandler func(ctx context.Context, req *ModelRequest) (*ModelResponse, error)

// ModelInterceptor wraps model calls.
type ModelInterceptor interface {
	Name() string
	WrapModel(next ModelHandler) ModelHandler
}

// ToolRequest is the normalized input seen by tool interceptors.
type ToolRequest struct {
	SessionID string
	Author    string
	Call      core.FunctionCall
	Args      map[string]any
}

// ToolHandler advances a tool call. The innermost handler performs the actual
// invocation.
type ToolHandler func(ctx context.Context, req *ToolRequest) (core.FunctionResponse, error)

// ToolInterceptor wraps tool calls.
type ToolInterceptor interface {
	Name() string
	WrapTool(next ToolHandler) ToolHandler
}

// Chain holds registered interceptors and composes them around handlers.
// Registration order is outermost-first: the first registered interceptor
// sees the request first and the response last.
type Chain struct {
	model []ModelInterceptor
	tool  []ToolInterceptor
}

// NewChain creates an empty chain.
func NewChain() *Chain { return &Chain{} }

// UseModel appends model interceptors to the chain.
func (c *Chain) UseModel(ms ...ModelInterceptor) *Chain {
	c.model = append(c.model, ms...)
	return c
}

// UseTool appends tool interceptors to the chain.
func (c *Chain) UseTool(ts ...ToolInterceptor) *Chain {
	c.tool = append(c.tool, ts...)
	return c
}

// WrapModel composes the registered model interceptors around final.
func (c *Chain) WrapModel(final ModelHandler) ModelHandler {
	h := final
	for i := len(c.model) - 1; i >= 0; i-- {
		h = c.model[i].WrapModel(h)
	}
	return h
}

// WrapTool composes the registered tool interceptors around final.
func (c *Chain) WrapTool(final ToolHandler) ToolHandler {
	h := final
	for i := len(c.tool) - 1; i >= 0; i-- {
		h = c.tool[i].WrapTool(h)
	}
	return h
}

// ModelNames returns the registered model interceptor names in order.
func (c *Chain) ModelNames() []string {
	names := make([]string, len(c.model))
	for i, m := range c.model {
		names[i] = m.Name()
	}
	return names
}

// ToolNames returns the registered tool interceptor names in order.
func (c *Chain) ToolNames() []string {
	names := make([]string, len(c.tool))
	for i, t := range c.tool {
		names[i] = t.Name()
	}
	return names
}
