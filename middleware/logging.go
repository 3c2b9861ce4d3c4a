package middleware

import (
	"context"
	"time"

	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/logging"
)

// Logging traces model and tool calls with timings. It observes only and
// never alters the request or response.
type Logging struct {
	logger logging.Logger
}

// NewLogging constructs the logging interceptor.
func NewLogging(logger logging.Logger) *Logging {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Logging{logger: logger}
}

// Name implements ModelInterceptor and ToolInterceptor.
func (l *Logging) Name() string { return "logging" }

// WrapModel implements ModelInterceptor.
func (l *Logging) WrapModel(next ModelHandler) ModelHandler {
	return func(ctx context.Context, req *ModelRequest) (*ModelResponse, error) {
		l.logger.Debug("model.request",
			"session", req.SessionID,
			"author", req.Author,
			"messages", len(req.Contents),
			"tools", req.Tools,
		)

		start := time.Now()
		resp, err := next(ctx, req)
		durationMS := float64(time.Since(start).Microseconds()) / 1000

		if err != nil {
			l.logger.Debug("model.response",
				"session", req.SessionID,
				"author", req.Author,
				"duration_ms", durationMS,
				"error", err.Error(),
			)
			return resp, err
		}

		l.logger.Debug("model.response",
			"session", req.SessionID,
			"author", req.Author,
			"content_len", len(resp.Content.Text()),
			"tool_calls", countToolCalls(resp),
			"duration_ms", durationMS,
		)

		return resp, nil
	}
}

// WrapTool implements ToolInterceptor.
func (l *Logging) WrapTool(next ToolHandler) ToolHandler {
	return func(ctx context.Context, req *ToolRequest) (core.FunctionResponse, error) {
		l.logger.Debug("tool.request",
			"session", req.SessionID,
			"tool", req.Call.Name,
			"fc_id", req.Call.ID,
		)

		start := time.Now()
		resp, err := next(ctx, req)
		durationMS := float64(time.Since(start).Microseconds()) / 1000

		if err != nil {
			l.logger.Debug("tool.response",
				"session", req.SessionID,
				"tool", req.Call.Name,
				"duration_ms", durationMS,
				"error", err.Error(),
			)
			return resp, err
		}

		l.logger.Debug("tool.response",
			"session", req.SessionID,
			"tool", req.Call.Name,
			"is_error", resp.IsError,
			"duration_ms", durationMS,
		)

		return resp, nil
	}
}

func countToolCalls(resp *ModelResponse) int {
	n := 0
	for _, p := range resp.Content.Parts {
		if _, ok := p.(core.FunctionCallPart); ok {
			n++
		}
	}
	return n
}
