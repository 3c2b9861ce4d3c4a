package observe

import (
	"context"

	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/middleware"
	"github.com/veramoney/chatmesh/tool"
)

// StockQueryRecorder receives stock lookup samples. *DatasetRecorder
// implements it.
type StockQueryRecorder interface {
	RecordStockQuery(sessionID, userMessage, ticker string)
}

// StockQueryObserver is a tool interceptor that records a dataset sample for
// every stock price lookup seen during a turn. Recording never blocks or
// alters the call.
type StockQueryObserver struct {
	recorder StockQueryRecorder
}

// NewStockQueryObserver constructs a StockQueryObserver.
func NewStockQueryObserver(r StockQueryRecorder) *StockQueryObserver {
	return &StockQueryObserver{recorder: r}
}

// Name implements middleware.ToolInterceptor.
func (o *StockQueryObserver) Name() string { return "stock_query_observer" }

// WrapTool implements middleware.ToolInterceptor.
func (o *StockQueryObserver) WrapTool(next middleware.ToolHandler) middleware.ToolHandler {
	return func(ctx context.Context, req *middleware.ToolRequest) (core.FunctionResponse, error) {
		if req.Call.Name == tool.StockToolName {
			ticker, _ := req.Args["ticker"].(string)
			o.recorder.RecordStockQuery(req.SessionID, middleware.UserMessageFrom(ctx), ticker)
		}
		return next(ctx, req)
	}
}
