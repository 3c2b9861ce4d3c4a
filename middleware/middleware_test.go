package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veramoney/chatmesh/core"
)

// orderInterceptor records the order in which it sees requests and responses.
type orderInterceptor struct {
	name string
	log  *[]string
}

func (o *orderInterceptor) Name() string { return o.name }

func (o *orderInterceptor) WrapModel(next ModelHandler) ModelHandler {
	return func(ctx context.Context, req *ModelRequest) (*ModelResponse, error) {
		*o.log = append(*o.log, o.name+".before")
		resp, err := next(ctx, req)
		*o.log = append(*o.log, o.name+".after")
		return resp, err
	}
}

func (o *orderInterceptor) WrapTool(next ToolHandler) ToolHandler {
	return func(ctx context.Context, req *ToolRequest) (core.FunctionResponse, error) {
		*o.log = append(*o.log, o.name+".before")
		resp, err := next(ctx, req)
		*o.log = append(*o.log, o.name+".after")
		return resp, err
	}
}

func TestChain_ModelOrderIsOutermostFirst(t *testing.T) {
	var log []string
	chain := NewChain().UseModel(
		&orderInterceptor{name: "outer", log: &log},
		&orderInterceptor{name: "inner", log: &log},
	)

	handler := chain.WrapModel(func(context.Context, *ModelRequest) (*ModelResponse, error) {
		log = append(log, "final")
		return &ModelResponse{}, nil
	})

	_, err := handler(context.Background(), &ModelRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer.before", "inner.before", "final", "inner.after", "outer.after"}, log)
}

func TestChain_ToolOrderIsOutermostFirst(t *testing.T) {
	var log []string
	chain := NewChain().UseTool(
		&orderInterceptor{name: "outer", log: &log},
		&orderInterceptor{name: "inner", log: &log},
	)

	handler := chain.WrapTool(func(context.Context, *ToolRequest) (core.FunctionResponse, error) {
		log = append(log, "final")
		return core.FunctionResponse{}, nil
	})

	_, err := handler(context.Background(), &ToolRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer.before", "inner.before", "final", "inner.after", "outer.after"}, log)
}

func TestDefaultChain_Composition(t *testing.T) {
	chain := Default(nil, nil)

	assert.Equal(t, []string{"logging", "output_guardrails", "citation_guardrails"}, chain.ModelNames())
	assert.Equal(t, []string{"logging", "tool_error_translation"}, chain.ToolNames())
}

func TestToolErrorTranslator_TranslatesFailures(t *testing.T) {
	translator := NewToolErrorTranslator(nil)

	handler := translator.WrapTool(func(context.Context, *ToolRequest) (core.FunctionResponse, error) {
		return core.FunctionResponse{}, errors.New("dial tcp 10.0.0.1:443: i/o timeout")
	})

	resp, err := handler(context.Background(), &ToolRequest{
		Call: core.FunctionCall{ID: "call-1", Name: "get_weather"},
	})
	require.NoError(t, err, "failures must be translated, not propagated")

	assert.True(t, resp.IsError)
	assert.Equal(t, "call-1", resp.ID)
	assert.Equal(t, "I'm having trouble accessing weather data right now. Please try again.", resp.Content)
	assert.NotContains(t, resp.Content, "i/o timeout")
}

func TestToolErrorTranslator_PassesSuccessThrough(t *testing.T) {
	translator := NewToolErrorTranslator(nil)

	handler := translator.WrapTool(func(context.Context, *ToolRequest) (core.FunctionResponse, error) {
		return core.FunctionResponse{ID: "call-1", Content: "ok"}, nil
	})

	resp, err := handler(context.Background(), &ToolRequest{})
	require.NoError(t, err)
	assert.False(t, resp.IsError)
	assert.Equal(t, "ok", resp.Content)
}
