// Package worker implements single-specialty agents. A worker owns one tool
// and one model, runs a bounded reason/act loop and returns structured text
// for the supervisor to synthesize. A worker never addresses the end user
// directly.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/veramoney/chatmesh/core"
	"github.com/veramoney/chatmesh/logging"
	"github.com/veramoney/chatmesh/middleware"
	"github.com/veramoney/chatmesh/model"
	"github.com/veramoney/chatmesh/tool"
)

// DefaultMaxIterations bounds a worker's reason/act loop.
const DefaultMaxIterations = 5

// Config describes one worker.
type Config struct {
	// Name is the worker's short identity ("weather", "stock", "knowledge").
	Name string
	// Description guides the supervisor's routing decision.
	Description string
	// Prompt is the worker's system prompt. Supports {{current_date}}.
	Prompt string
	// Tool is the single tool this worker may call.
	Tool tool.Tool
	// Model generates the worker's reasoning steps.
	Model model.Model
	// MaxIterations bounds the loop; zero selects DefaultMaxIterations.
	MaxIterations int
	// Chain intercepts the worker's model and tool calls. Optional.
	Chain *middleware.Chain
	// Logger is used for per-step tracing. Optional.
	Logger logging.Logger
}

// Worker runs a bounded loop over one model and one tool.
type Worker struct {
	cfg       Config
	callModel middleware.ModelHandler
	callTool  middleware.ToolHandler
}

// New constructs a worker from its config.
func New(cfg Config) *Worker {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}
	if cfg.Chain == nil {
		cfg.Chain = middleware.NewChain()
	}

	w := &Worker{cfg: cfg}
	w.callModel = cfg.Chain.WrapModel(w.generate)
	w.callTool = cfg.Chain.WrapTool(w.invokeTool)

	return w
}

// Name returns the worker's identity.
func (w *Worker) Name() string { return w.cfg.Name }

// Description returns the routing description shown to the supervisor model.
func (w *Worker) Description() string { return w.cfg.Description }

// Run executes the worker loop for one request. Failures never escape as
// errors to the caller's user: the returned string is always usable worker
// output, falling back to a user-safe apology when the loop cannot produce
// one.
func (w *Worker) Run(ctx context.Context, sessionID, request string) string {
	result, err := w.run(ctx, sessionID, request)
	if err != nil {
		w.cfg.Logger.Error("worker.error", "worker", w.cfg.Name, "error", err.Error())
		return fmt.Sprintf("I encountered an issue processing your %s request. Please try again.", w.cfg.Name)
	}
	if result == "" {
		return fmt.Sprintf("I couldn't retrieve %s information right now. Please try again.", w.cfg.Name)
	}
	return result
}

func (w *Worker) run(ctx context.Context, sessionID, request string) (string, error) {
	contents := []core.Content{
		{Role: "user", Parts: []core.Part{core.TextPart{Text: request}}},
	}

	var lastText string

	for iteration := 0; iteration < w.cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := w.callModel(ctx, &middleware.ModelRequest{
			SessionID: sessionID,
			Author:    w.cfg.Name,
			Contents:  contents,
			Tools:     []string{w.cfg.Tool.Name()},
		})
		if err != nil {
			return "", err
		}

		if text := resp.Content.Text(); text != "" {
			lastText = text
		}

		calls := functionCalls(resp.Content)
		if len(calls) == 0 {
			return resp.Content.Text(), nil
		}

		contents = append(contents, resp.Content)

		for _, call := range calls {
			args, err := call.ArgumentsMap()
			if err != nil {
				args = map[string]any{}
			}

			toolResp, err := w.callTool(ctx, &middleware.ToolRequest{
				SessionID: sessionID,
				Author:    w.cfg.Name,
				Call:      call,
				Args:      args,
			})
			if err != nil {
				// Translation middleware normally absorbs tool errors; an
				// error here means the pipeline itself failed.
				return "", err
			}

			contents = append(contents, core.Content{
				Role:  "tool",
				Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: toolResp}},
			})
		}
	}

	w.cfg.Logger.Warn("worker.iteration_limit", "worker", w.cfg.Name, "max", w.cfg.MaxIterations)

	// Hard stop: surface the best text seen so far.
	return lastText, nil
}

// generate is the innermost model handler: one non-streaming model call.
func (w *Worker) generate(ctx context.Context, req *middleware.ModelRequest) (*middleware.ModelResponse, error) {
	respCh, errCh := w.cfg.Model.Generate(ctx, model.Request{
		Instructions: renderPrompt(w.cfg.Prompt, time.Now().UTC()),
		Contents:     req.Contents,
		Tools:        []model.ToolDefinition{toolDefinition(w.cfg.Tool)},
	})

	var final *model.Response
	for resp := range respCh {
		if !resp.Partial {
			r := resp
			final = &r
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if final == nil {
		return nil, fmt.Errorf("worker %s: model produced no final response", w.cfg.Name)
	}

	return &middleware.ModelResponse{Content: final.Content}, nil
}

// invokeTool is the innermost tool handler: one tool invocation.
func (w *Worker) invokeTool(ctx context.Context, req *middleware.ToolRequest) (core.FunctionResponse, error) {
	if req.Call.Name != w.cfg.Tool.Name() {
		return core.FunctionResponse{}, fmt.Errorf("worker %s: unknown tool %q", w.cfg.Name, req.Call.Name)
	}

	result, err := w.cfg.Tool.Invoke(ctx, req.Args)
	if err != nil {
		return core.FunctionResponse{}, err
	}

	return core.FunctionResponse{
		ID:      req.Call.ID,
		Name:    req.Call.Name,
		Content: result,
	}, nil
}

func functionCalls(c core.Content) []core.FunctionCall {
	var calls []core.FunctionCall
	for _, p := range c.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

func toolDefinition(t tool.Tool) model.ToolDefinition {
	return model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}
