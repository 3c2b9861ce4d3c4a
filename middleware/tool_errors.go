package middleware

import (
	"context"
	"fmt"

	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/logging"
	"github.com/veramoney/chatmesh/tool"
)

// ToolErrorTranslator converts tool failures into user-safe tool responses so
// the model can apologize instead of the run aborting. The raw error is
// logged; the translated message never leaks internals.
type ToolErrorTranslator struct {
	logger logging.Logger
}

// NewToolErrorTranslator constructs the translator.
func NewToolErrorTranslator(logger logging.Logger) *ToolErrorTranslator {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ToolErrorTranslator{logger: logger}
}

// Name implements ToolInterceptor.
func (t *ToolErrorTranslator) Name() string { return "tool_error_translation" }

// WrapTool implements ToolInterceptor.
func (t *ToolErrorTranslator) WrapTool(next ToolHandler) ToolHandler {
	return func(ctx context.Context, req *ToolRequest) (core.FunctionResponse, error) {
		resp, err := next(ctx, req)
		if err == nil {
			return resp, nil
		}

		t.logger.Error("tool.error",
			"session", req.SessionID,
			"tool", req.Call.Name,
			"args", req.Args,
			"error", err.Error(),
		)

		return core.FunctionResponse{
			ID:      req.Call.ID,
			Name:    req.Call.Name,
			Content: UserSafeToolMessage(req.Call.Name),
			IsError: true,
		}, nil
	}
}

// UserSafeToolMessage renders the message surfaced to the model (and
// ultimately the user) when a tool fails.
func UserSafeToolMessage(toolName string) string {
	return fmt.Sprintf("I'm having trouble accessing %s right now. Please try again.",
		tool.ServiceName(toolName))
}
